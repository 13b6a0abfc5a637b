package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Link a cloud account and sync the meal log",
	}
	cmd.AddCommand(newSyncSignupCmd(), newSyncLoginCmd(), newSyncLogoutCmd(), newSyncPushCmd(), newSyncStatusCmd())
	return cmd
}

func newSyncSignupCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a cloud account",
		RunE: func(c *cobra.Command, _ []string) error {
			a, err := openApp(c.Context())
			if err != nil {
				return err
			}
			defer a.close()

			sess, err := a.cloud.SignUp(c.Context(), email, password)
			if err != nil {
				return err
			}
			if err := a.store.SetSessionToken(sess.AccessToken); err != nil {
				return err
			}
			a.tracker.SetSession(sess)
			fmt.Printf("Account created and linked (%s).\n", sess.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newSyncLoginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and pull the remote snapshot",
		RunE: func(c *cobra.Command, _ []string) error {
			a, err := openApp(c.Context())
			if err != nil {
				return err
			}
			defer a.close()

			sess, err := a.cloud.SignIn(c.Context(), email, password)
			if err != nil {
				return err
			}
			if err := a.store.SetSessionToken(sess.AccessToken); err != nil {
				return err
			}
			a.tracker.SetSession(sess)

			user, err := a.store.CurrentUser()
			if err != nil {
				return err
			}
			// the remote snapshot overwrites local history outright;
			// local-only entries made before first sign-in are lost
			n, err := a.sync.PullOnSignIn(c.Context(), sess, user)
			if err != nil {
				return fmt.Errorf("signed in, but pull failed: %w", err)
			}
			if n > 0 {
				fmt.Printf("Signed in as %s; pulled %d entries from the cloud (local history replaced).\n", sess.Email, n)
			} else {
				fmt.Printf("Signed in as %s; no remote history yet.\n", sess.Email)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newSyncLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Unlink the cloud account",
		RunE: func(c *cobra.Command, _ []string) error {
			a, err := openApp(c.Context())
			if err != nil {
				return err
			}
			defer a.close()

			if sess := a.tracker.Session(); sess != nil {
				_ = a.cloud.SignOut(c.Context(), sess)
			}
			a.tracker.SetSession(nil)
			if err := a.store.ClearSessionToken(); err != nil {
				return err
			}
			fmt.Println("Signed out. Local data is untouched.")
			return nil
		},
	}
}

func newSyncPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Upload the full local log snapshot now",
		RunE: func(c *cobra.Command, _ []string) error {
			a, err := openApp(c.Context())
			if err != nil {
				return err
			}
			defer a.close()

			sess := a.tracker.Session()
			if sess == nil {
				return fmt.Errorf("not signed in to a cloud account")
			}
			user, err := a.store.CurrentUser()
			if err != nil {
				return err
			}
			if err := a.sync.Push(c.Context(), sess, user); err != nil {
				return err
			}
			fmt.Println("Snapshot pushed.")
			return nil
		},
	}
}

func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the sync link and last sync outcome",
		RunE: func(c *cobra.Command, _ []string) error {
			a, err := openApp(c.Context())
			if err != nil {
				return err
			}
			defer a.close()

			if !a.cloud.Enabled() {
				fmt.Println("Cloud sync not configured (set SYNC_URL and SYNC_ANON_KEY).")
				return nil
			}
			linked, status := a.sync.State().Snapshot()
			if sess := a.tracker.Session(); sess != nil {
				fmt.Printf("Linked to %s; last sync: %s\n", sess.Email, status)
			} else {
				fmt.Printf("Not signed in (linked=%v); last sync: %s\n", linked, status)
			}
			return nil
		},
	}
}
