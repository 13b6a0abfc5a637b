package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gusuihan4-tech/kaluli/internal/model"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		mealFlag    string
		saveFlag    bool
		offlineFlag bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <image-file>",
		Short: "Analyze a meal photo into calorie predictions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meal := model.MealType(mealFlag)
			if !meal.Valid() {
				return fmt.Errorf("unknown meal type %q (breakfast, lunch, dinner, snack, late)", mealFlag)
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			a.tracker.SetOnline(!offlineFlag)

			out, err := a.tracker.AnalyzePhoto(cmd.Context(), raw)
			if err != nil {
				return err
			}

			if out.Queued {
				fmt.Printf("Offline or endpoint unavailable: queued for retry (queue length %d)\n", out.QueueLength)
				return nil
			}
			if len(out.Predictions) == 0 {
				fmt.Println("No food detected. Make sure the photo is clear.")
				return nil
			}

			for _, p := range out.Predictions {
				fmt.Println(formatPrediction(p))
			}

			if saveFlag {
				entry, err := a.tracker.Save(meal, out.Predictions)
				if err != nil {
					return err
				}
				fmt.Printf("Saved %s: %d kcal total\n", entry.Meal, entry.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mealFlag, "meal", string(model.MealBreakfast), "meal type: breakfast, lunch, dinner, snack, late")
	cmd.Flags().BoolVar(&saveFlag, "save", false, "save the predictions as a log entry")
	cmd.Flags().BoolVar(&offlineFlag, "offline", false, "treat the network as offline and queue the request")
	return cmd
}

func formatPrediction(p model.Prediction) string {
	s := "- " + p.Name
	if p.Calories != nil {
		s += fmt.Sprintf(" (%.0f kcal", *p.Calories)
		if p.PortionG != nil {
			s += fmt.Sprintf(", %.0f g", *p.PortionG)
		}
		s += ")"
	}
	return s
}
