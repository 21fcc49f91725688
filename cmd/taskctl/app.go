package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/session"
	"github.com/spf13/cobra"
)

type app struct {
	out        io.Writer
	configPath string
	baseURL    string
	client     *goSession.Client
}

// run executes one taskctl invocation and releases the client afterwards,
// including when the command failed.
func run(out io.Writer, args []string) error {
	a := &app{out: out}
	root := a.rootCmd()
	root.SetArgs(args)
	err := root.Execute()
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "taskctl",
		Short:         "taskctl - manage your tasks from the terminal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open()
		},
	}
	root.SetOut(a.out)
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "taskctl.yaml", "Config file (YAML)")
	root.PersistentFlags().StringVar(&a.baseURL, "base-url", "", "Backend base URL, overrides the config file")

	root.AddCommand(a.signupCmd())
	root.AddCommand(a.loginCmd())
	root.AddCommand(a.logoutCmd())
	root.AddCommand(a.whoamiCmd())
	root.AddCommand(a.tasksCmd())
	return root
}

func (a *app) open() error {
	cfg, err := goSession.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.baseURL != "" {
		cfg.API.BaseURL = a.baseURL
	}
	// A process-local store would forget the session on exit.
	if cfg.Storage.Backend == goSession.StorageMemory {
		path, err := defaultCredentialPath()
		if err != nil {
			return err
		}
		cfg.Storage.Backend = goSession.StorageFile
		cfg.Storage.Path = path
	}

	client, err := goSession.New().WithConfig(cfg).Build()
	if err != nil {
		return err
	}
	a.client = client
	return nil
}

func (a *app) close() error {
	if a.client == nil {
		return nil
	}
	err := a.client.Close()
	a.client = nil
	return err
}

// requireSession restores the persisted session and fails unless it is
// authenticated.
func (a *app) requireSession(cmd *cobra.Command) (session.User, error) {
	state, err := a.client.Restore(cmd.Context())
	if err != nil {
		return session.User{}, fmt.Errorf("restore session: %w", err)
	}
	if state.Status != session.StatusAuthenticated || state.User == nil {
		return session.User{}, errNotSignedIn
	}
	return *state.User, nil
}

var errNotSignedIn = errors.New("not signed in, run `taskctl login` first")

func defaultCredentialPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "taskctl", "credentials"), nil
}
