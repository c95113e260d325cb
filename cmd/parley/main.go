package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"parley/internal/config"
	"parley/internal/gateway"
	"parley/internal/logging"
	"parley/internal/prefs"
	"parley/internal/state"
	"parley/internal/sync"
)

func main() {
	if err := execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "parley: %v\n", err)
		os.Exit(1)
	}
}

func execute() error {
	// Missing .env is fine; the config file and defaults cover everything.
	_ = godotenv.Load()
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "parley",
		Short:         "parley keeps a local view of chat sessions in sync with the remote service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")

	app := &appContext{configPath: &configPath}
	cmd.AddCommand(
		newListCmd(app),
		newCreateCmd(app),
		newSendCmd(app),
		newSystemCmd(app),
		newPinCmd(app),
		newArchiveCmd(app),
		newRemoveCmd(app),
		newSettingsCmd(app),
	)
	return cmd
}

// appContext builds the shared plumbing lazily, once per invocation.
type appContext struct {
	configPath *string

	cfg   config.Config
	log   logging.Logger
	prefs *prefs.Store
	sync  *sync.Synchronizer
	store *state.Store
}

func (a *appContext) init() error {
	if a.sync != nil {
		return nil
	}
	path := *a.configPath
	var (
		cfg config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFromPath(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg
	a.log = logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel()))

	prefsPath, err := config.PrefsPath()
	if err != nil {
		return err
	}
	a.prefs, err = prefs.Open(prefsPath)
	if err != nil {
		return fmt.Errorf("open prefs: %w", err)
	}
	token, err := a.prefs.DeviceToken()
	if err != nil {
		return fmt.Errorf("device token: %w", err)
	}

	client := gateway.New(cfg.BaseURL(), token, cfg.GatewayTimeout())
	a.store = state.NewStore()
	a.sync, err = sync.New(sync.Options{
		Gateway:        client,
		Store:          a.store,
		Logger:         a.log,
		LoadRetries:    cfg.LoadRetries(),
		RetryUnit:      cfg.RetryUnit(),
		SearchDebounce: cfg.SearchDebounce(),
		SettleDelay:    cfg.SettleDelay(),
		PageSize:       cfg.PageSize(),
	})
	if err != nil {
		return err
	}
	return nil
}

func (a *appContext) close() {
	if a.sync != nil {
		a.sync.Close()
	}
	if a.prefs != nil {
		_ = a.prefs.Close()
	}
}
