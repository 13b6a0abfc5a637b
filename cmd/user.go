package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the active local user",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <name>",
		Short: "Switch the active user namespace",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			a, err := openApp(c.Context())
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.SetCurrentUser(args[0]); err != nil {
				return err
			}
			fmt.Printf("Active user is now %q. Each user's records are stored separately.\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the active user",
		RunE: func(c *cobra.Command, _ []string) error {
			a, err := openApp(c.Context())
			if err != nil {
				return err
			}
			defer a.close()

			user, err := a.store.CurrentUser()
			if err != nil {
				return err
			}
			if user == "" {
				fmt.Println("No active user (using the shared namespace).")
				return nil
			}
			fmt.Println(user)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Clear the active user (other users' data is kept)",
		RunE: func(c *cobra.Command, _ []string) error {
			a, err := openApp(c.Context())
			if err != nil {
				return err
			}
			defer a.close()
			return a.store.ClearCurrentUser()
		},
	})

	return cmd
}
