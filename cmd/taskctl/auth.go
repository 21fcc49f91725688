package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const passwordEnv = "TASKCTL_PASSWORD"

func passwordFlag(cmd *cobra.Command) (string, error) {
	pw, _ := cmd.Flags().GetString("password")
	if pw == "" {
		pw = os.Getenv(passwordEnv)
	}
	if pw == "" {
		return "", errors.New("password required: pass --password or set " + passwordEnv)
	}
	return pw, nil
}

func (a *app) signupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signup [email]",
		Short: "Create an account and sign in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordFlag(cmd)
			if err != nil {
				return err
			}
			name, _ := cmd.Flags().GetString("name")
			user, err := a.client.SignUp(cmd.Context(), args[0], pw, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Welcome, %s (%s)\n", user.Name, user.Email)
			return nil
		},
	}
	cmd.Flags().StringP("password", "p", "", "Account password (or "+passwordEnv+")")
	cmd.Flags().StringP("name", "n", "", "Display name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (a *app) loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login [email]",
		Short: "Sign in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordFlag(cmd)
			if err != nil {
				return err
			}
			user, err := a.client.SignIn(cmd.Context(), args[0], pw)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Signed in as %s\n", user.Email)
			return nil
		},
	}
	cmd.Flags().StringP("password", "p", "", "Account password (or "+passwordEnv+")")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Restore loads the stored pair so SignOut can revoke it. SignOut
			// clears the stored copy even when the backend is unreachable.
			_, _ = a.client.Restore(cmd.Context())
			a.client.SignOut(cmd.Context())
			fmt.Fprintln(a.out, "Signed out")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.requireSession(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s <%s> (id %d)\n", user.Name, user.Email, user.ID)
			return nil
		},
	}
}
