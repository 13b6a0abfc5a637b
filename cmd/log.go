package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/gusuihan4-tech/kaluli/internal/tracker"
)

func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "List or delete saved meal entries",
	}
	cmd.AddCommand(newLogListCmd(), newLogDeleteCmd())
	return cmd
}

func newLogListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the meal history, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			history, err := a.tracker.History()
			if err != nil {
				return err
			}
			if len(history) == 0 {
				fmt.Println("No entries yet.")
				return nil
			}

			// newest first; the printed index is the displayed index
			// that `log delete` expects
			for i := len(history) - 1; i >= 0; i-- {
				e := history[i]
				displayed := len(history) - 1 - i
				fmt.Printf("[%d] %s  %s  %d kcal\n", displayed,
					e.Time().Format("2006-01-02 15:04"), e.Meal, e.Total)
				for _, it := range e.Items {
					fmt.Printf("      %s  %d kcal\n", it.Name, it.Calories)
				}
			}
			return nil
		},
	}
}

func newLogDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <index>",
		Short: "Delete an entry by its displayed (newest-first) index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			displayed, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("index must be a number: %w", err)
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			history, err := a.tracker.History()
			if err != nil {
				return err
			}
			if displayed < 0 || displayed >= len(history) {
				return fmt.Errorf("index %d out of range (have %d entries)", displayed, len(history))
			}

			// the store deletes by chronological index
			if err := a.tracker.DeleteAt(tracker.DisplayedToChronological(len(history), displayed)); err != nil {
				return err
			}
			fmt.Println("Entry deleted.")
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show today's calorie total and meal counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			stats, err := a.tracker.Stats(time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("Today: %d kcal across %d meal kinds; %d entries total\n",
				stats.TodayTotal, stats.TodayMeals, stats.TotalCount)
			return nil
		},
	}
}

func newDrainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drain",
		Short: "Retry queued analysis requests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			delivered, err := a.queue.Drain(cmd.Context())
			remaining, cErr := a.tracker.PendingCount()
			if cErr == nil {
				fmt.Printf("Delivered %d queued request(s); %d remaining\n", delivered, remaining)
			}
			if err != nil {
				return fmt.Errorf("drain stopped: %w", err)
			}
			return nil
		},
	}
}
