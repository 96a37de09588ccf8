package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/chatpilot-hq/console/internal/auth"
	"github.com/chatpilot-hq/console/internal/backend"
	"github.com/chatpilot-hq/console/internal/platform/config"
	"github.com/chatpilot-hq/console/internal/session"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}

// app carries what every subcommand resolves from flags and configuration.
type app struct {
	configPath string
	backendURL string

	cfg   *config.Config
	store session.Store
	out   io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "chatpilot",
		Short:         "Tenant console for the chatpilot WhatsApp platform",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.out = cmd.OutOrStdout()
			return a.load()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "config.yaml", "path to a YAML config file")
	root.PersistentFlags().StringVar(&a.backendURL, "backend-url", "", "backend base URL (overrides config)")

	root.AddCommand(
		newServeCmd(a),
		newLoginCmd(a),
		newSignupCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newMenuCmd(a),
		newUsersCmd(a),
		newPermissionsCmd(a),
	)
	return root
}

func (a *app) load() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.backendURL != "" {
		cfg.Backend.URL = a.backendURL
	}
	a.cfg = cfg

	if a.store == nil {
		path, err := cfg.SessionPath()
		if err != nil {
			return err
		}
		a.store = session.NewFileStore(path)
	}
	return nil
}

func (a *app) tokens() *auth.TokenService {
	return auth.NewTokenService(a.cfg.Auth.SigningKey)
}

func (a *app) client(opts ...backend.Option) *backend.Client {
	opts = append([]backend.Option{
		backend.WithTimeout(time.Duration(a.cfg.Backend.TimeoutSecs) * time.Second),
	}, opts...)
	return backend.NewClient(a.cfg.Backend.URL, opts...)
}

// signedIn restores the signed-in session and a client authorised with it.
func (a *app) signedIn() (*session.Session, *backend.Client, error) {
	s, err := session.Init(a.store, a.tokens())
	if err != nil {
		return nil, nil, err
	}
	return s, a.client(backend.WithToken(s.Token)), nil
}
