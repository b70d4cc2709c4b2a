package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/shehryarbajwa/gridstatus/internal/api"
	"github.com/shehryarbajwa/gridstatus/internal/config"
	"github.com/shehryarbajwa/gridstatus/internal/observability"
	"github.com/shehryarbajwa/gridstatus/internal/ratelimit"
	"github.com/shehryarbajwa/gridstatus/internal/session"
)

var errNoAccounts = errors.New("no accounts configured: pass --accounts, set GRIDSIM_ACCOUNTS or set BROWSERSTACK_USERNAME and BROWSERSTACK_ACCESS_KEY")

type serveFunc func(ctx context.Context, srv *http.Server, logger zerolog.Logger) error

type simFlags struct {
	configPath string
	addr       string
	delay      time.Duration
	idle       time.Duration
	rpm        int
	accounts   string
}

func newRootCmd(run serveFunc) *cobra.Command {
	var f simFlags

	root := &cobra.Command{
		Use:   "gridsim",
		Short: "Run a local fake of the remote browser grid REST API",
		Long: `gridsim serves the session endpoints of a remote browser grid under /automate.

New sessions stay invisible for a configurable delay, which reproduces the
grid's session registration race for local runs and integration tests.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, logger, err := buildServer(cmd, f)
			if err != nil {
				return err
			}
			return run(cmd.Context(), srv, logger)
		},
	}

	flags := root.Flags()
	flags.StringVarP(&f.configPath, "config", "c", "", "config file path")
	flags.StringVar(&f.addr, "addr", ":8080", "listen address")
	flags.DurationVar(&f.delay, "delay", 3*time.Second, "how long new sessions stay invisible")
	flags.DurationVar(&f.idle, "idle-timeout", 30*time.Minute, "close sessions left open this long (0 disables)")
	flags.IntVar(&f.rpm, "rpm", 600, "requests per minute per account (0 disables)")
	flags.StringVar(&f.accounts, "accounts", "", "comma separated user:key pairs; defaults to the grid.username/grid.access_key account")
	root.CompletionOptions.DisableDefaultCmd = true

	return root
}

// applyFlags overrides loaded settings with the flags set on the command line
func applyFlags(cmd *cobra.Command, f simFlags, sim *config.SimConfig) {
	changed := cmd.Flags().Changed
	if changed("addr") {
		sim.Addr = f.addr
	}
	if changed("delay") {
		sim.Delay = f.delay
	}
	if changed("idle-timeout") {
		sim.IdleTimeout = f.idle
	}
	if changed("rpm") {
		sim.RequestsPerMinute = f.rpm
	}
	if changed("accounts") {
		sim.Accounts = f.accounts
	}
}

func buildServer(cmd *cobra.Command, f simFlags) (*http.Server, zerolog.Logger, error) {
	dotenvErr := config.LoadDotEnv(".env")

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("configuration error: %w", err)
	}

	logger := observability.NewLogger(cfg.Log, "gridsim")
	if dotenvErr != nil {
		logger.Warn().Err(dotenvErr).Msg("ignoring .env")
	}

	applyFlags(cmd, f, &cfg.Sim)
	if err := cfg.Sim.Validate(); err != nil {
		return nil, logger, fmt.Errorf("configuration error: %w", err)
	}

	accounts := resolveAccounts(cfg)
	if len(accounts) == 0 {
		return nil, logger, errNoAccounts
	}

	sessionMgr := session.NewManager(session.Options{
		RegistrationDelay: cfg.Sim.Delay,
		IdleTimeout:       cfg.Sim.IdleTimeout,
		Logger:            &logger,
	})

	rpm := cfg.Sim.RequestsPerMinute
	var limiter *ratelimit.Limiter
	if rpm > 0 {
		limiter = ratelimit.NewLimiter(rpm, max(rpm/10, 1))
	}

	handler := api.NewHandler(sessionMgr)
	router := handler.SetupRoutes(api.RouterConfig{
		Accounts:          accounts,
		Limiter:           limiter,
		RequestsPerMinute: rpm,
		Registry:          prometheus.NewRegistry(),
	})

	logger.Info().
		Str("addr", cfg.Sim.Addr).
		Dur("registration_delay", cfg.Sim.Delay).
		Int("accounts", len(accounts)).
		Msg("grid simulator listening, API under /automate")

	return &http.Server{
		Addr:         cfg.Sim.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, logger, nil
}

// resolveAccounts prefers sim.accounts and falls back to the grid account
func resolveAccounts(cfg *config.Config) map[string]string {
	accounts := parseAccounts(cfg.Sim.Accounts)
	if len(accounts) == 0 {
		if creds := cfg.Credentials(); creds.Configured() {
			accounts[creds.Username] = creds.AccessKey
		}
	}
	return accounts
}

func parseAccounts(s string) map[string]string {
	accounts := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		user, key, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if ok && user != "" && key != "" {
			accounts[user] = key
		}
	}
	return accounts
}
