package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/five82/storeview/internal/app"
	"github.com/five82/storeview/internal/catalog"
	"github.com/five82/storeview/internal/condastore"
	"github.com/five82/storeview/internal/config"
	"github.com/five82/storeview/internal/logging"
	"github.com/five82/storeview/internal/ui"
)

// flagKeys maps persistent flag names to config keys.
var flagKeys = map[string]string{
	"server":      "server_url",
	"namespace":   "namespace",
	"environment": "environment",
	"page-size":   "page_size",
	"debug":       "debug",
	"log-dir":     "log_dir",
}

type cli struct {
	root       *cobra.Command
	v          *viper.Viper
	configPath string
	stderr     bool
}

func newCLI() *cli {
	c := &cli{v: config.New()}
	c.root = &cobra.Command{
		Use:   "storeview",
		Short: "Browse conda-store packages from the terminal",
		Long: "storeview lists the conda-store package catalog page by page and marks " +
			"which packages an environment has installed and which can be updated.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          c.runTUI,
	}

	flags := c.root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default ~/.config/storeview/config.toml)")
	flags.String("server", "", "conda-store server URL")
	flags.String("namespace", "", "namespace of the environment to reconcile")
	flags.String("environment", "", "environment to reconcile against the catalog")
	flags.Int("page-size", 0, "catalog records per page (1-1000)")
	flags.Bool("debug", false, "enable debug logging")
	flags.String("log-dir", "", "directory for storeview.log")
	flags.BoolVar(&c.stderr, "stderr", false, "also log to stderr (subcommands only)")
	if err := bindFlags(c.v, flags); err != nil {
		panic(err)
	}

	c.root.AddCommand(c.statusCmd(), c.envsCmd(), c.packagesCmd())
	return c
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// setup loads the configuration and opens the log. Console logging is only
// allowed when the TUI does not own the terminal.
func (c *cli) setup(console bool) (config.Config, *logging.Logger, error) {
	cfg, err := config.Load(c.v, c.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(logging.Config{
		Dir:     cfg.LogDir,
		Debug:   cfg.Debug,
		Console: console && c.stderr,
	})
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logging: %w", err)
	}
	return cfg, logger, nil
}

func (c *cli) client(cfg config.Config) (*condastore.Client, error) {
	client, err := condastore.NewClient(cfg.ServerURL, cfg.APIPrefix, cfg.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("init conda-store client: %w", err)
	}
	return client, nil
}

func (c *cli) runTUI(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := c.setup(false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()
	return app.Run(cmd.Context(), app.Options{Config: cfg, Logger: logger, Viper: c.v})
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Query the server once and print its status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := c.setup(true)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Close() }()
			client, err := c.client(cfg)
			if err != nil {
				return err
			}
			return app.PrintStatus(cmd.Context(), client, client.BaseURL(), cmd.OutOrStdout())
		},
	}
}

func (c *cli) envsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "envs",
		Short: "List every environment on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := c.setup(true)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Close() }()
			client, err := c.client(cfg)
			if err != nil {
				return err
			}
			return app.PrintEnvironments(cmd.Context(), client, cmd.OutOrStdout())
		},
	}
}

func (c *cli) packagesCmd() *cobra.Command {
	var (
		installed bool
		search    string
		pages     int
		filter    string
	)
	cmd := &cobra.Command{
		Use:   "packages",
		Short: "Reconcile the catalog with an environment and print the result",
		Long: "packages runs the reconciliation engine without the TUI. It loads --pages " +
			"catalog pages (all of them when 0) and prints name, latest version, " +
			"installed version and channel for every package.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			view, err := catalog.ParseFilter(filter)
			if err != nil {
				return err
			}
			if pages < 0 {
				return fmt.Errorf("--pages must not be negative")
			}
			cfg, logger, err := c.setup(true)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Close() }()
			client, err := c.client(cfg)
			if err != nil {
				return err
			}
			opts := app.PackagesOptions{
				Selection: ui.Selection{Namespace: cfg.Namespace, Environment: cfg.Environment, Search: search},
				Pages:     pages,
				Filter:    view,
				Installed: installed,
			}
			return app.ListPackages(cmd.Context(), client, cfg, opts, cmd.OutOrStdout(), logger.Logger)
		},
	}
	cmd.Flags().BoolVar(&installed, "installed", false, "list the environment's installed packages only")
	cmd.Flags().StringVar(&search, "search", "", "server-side search term")
	cmd.Flags().IntVar(&pages, "pages", 0, "catalog pages to load (0 loads all)")
	cmd.Flags().StringVar(&filter, "filter", "all", "all, installed, available or updatable")
	return cmd
}
