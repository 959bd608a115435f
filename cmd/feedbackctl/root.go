package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/scribemark/feedback/config"
	"github.com/scribemark/feedback/ledger"
	"github.com/scribemark/feedback/llm"
	feedbacklogger "github.com/scribemark/feedback/logger"
	"github.com/scribemark/feedback/pipeline"
)

// app holds what subcommands share. Fields are filled in by PersistentPreRunE.
type app struct {
	configPath string
	logFile    string
	pretty     bool
	dbPath     string

	cfg     *config.Config
	logger  zerolog.Logger
	catalog *llm.Catalog
	store   *ledger.Store
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "feedbackctl",
		Short:         "Generate AI feedback on student writing and inspect usage",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.store != nil {
				return a.store.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", config.GetConfigPath(), "Path to config file")
	root.PersistentFlags().StringVar(&a.logFile, "logfile", "", "Path to log file. If not set, logs to stderr")
	root.PersistentFlags().BoolVar(&a.pretty, "pretty", false, "Use pretty console logs (only valid when logfile is not set)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "Usage ledger database path (overrides config)")

	root.AddCommand(newGenerateCmd(a), newUsageCmd(a), newModelsCmd(a))
	return root
}

func (a *app) init() error {
	if a.logFile != "" && a.pretty {
		return fmt.Errorf("--logfile and --pretty are mutually exclusive")
	}
	log, err := feedbacklogger.InitWithOptions(a.logFile, a.pretty)
	if err != nil {
		return err
	}
	a.logger = log

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	a.cfg = cfg

	catalog, err := cfg.LoadCatalog()
	if err != nil {
		return err
	}
	a.catalog = catalog
	return nil
}

// openStore opens the usage ledger on first use.
func (a *app) openStore() (*ledger.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := ledger.Open(a.cfg.Database.Path, a.logger)
	if err != nil {
		return nil, err
	}
	a.store = store
	return store, nil
}

// service builds the generation pipeline backed by the ledger.
func (a *app) service() (*pipeline.Service, error) {
	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	return pipeline.NewService(pipeline.Options{
		Catalog:        a.catalog,
		Providers:      a.cfg.ProviderConfig(),
		Breaker:        a.cfg.BreakerSettings(),
		Retry:          a.cfg.RetryConfig(),
		Throttle:       a.cfg.ThrottleConfig(),
		Ledger:         store,
		Sink:           store,
		FactoryOptions: []pipeline.FactoryOption{pipeline.WithHTTPClient(a.cfg.HTTPClient())},
	}, a.logger)
}
