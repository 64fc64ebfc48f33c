// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the manual-preview CLI. It looks up
// products in the catalog and renders their PDF manuals to JPEG previews,
// from the command line or over HTTP.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/pdiddy/manual-preview/internal/observability"
	"github.com/pdiddy/manual-preview/internal/sponsored"
	"github.com/pdiddy/manual-preview/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Loaded once in PersistentPreRunE and read-only afterwards.
var (
	appConfig    types.Config
	logger       zerolog.Logger
	sponsoredIDs []types.ProductID
)

// rootCmd is the base command for the manual-preview CLI.
var rootCmd = &cobra.Command{
	Use:   "manual-preview",
	Short: "Render product manual previews",
	Long: `manual-preview looks up products in the catalog database and renders
the first page of each product's PDF manual to a JPEG preview using
ImageMagick.

Sponsored products configured under "sponsored" are included in every
catalog lookup.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		appConfig = cfg
		logger = observability.NewLogger(cfg.Log, os.Stderr)

		ids, err := sponsored.Resolve(cfg.Sponsored)
		if err != nil {
			return err
		}
		sponsoredIDs = ids
		if len(ids) > 0 {
			logger.Debug().Int("count", len(ids)).Msg("loaded sponsored products")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./manual-preview.yaml or ~/.config/manual-preview/manual-preview.yaml)")
	pf.String("db-driver", "", "catalog database driver: sqlite3 or postgres")
	pf.String("dsn", "", "catalog data source name")
	pf.String("manual-dir", "", "directory holding the PDF manuals")
	pf.String("log-level", "", "log level: trace, debug, info, warn, error, off")

	bindFlag(pf, "database.driver", "db-driver")
	bindFlag(pf, "database.dsn", "dsn")
	bindFlag(pf, "manuals.dir", "manual-dir")
	bindFlag(pf, "log.level", "log-level")

	setDefaults()
}

// bindFlag lets flag override config key. Unset flags do not shadow the
// config file or environment.
func bindFlag(fs *pflag.FlagSet, key, flag string) {
	if err := viper.BindPFlag(key, fs.Lookup(flag)); err != nil {
		panic(err)
	}
}

func setDefaults() {
	viper.SetDefault("database.driver", string(types.DriverSQLite))
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("sponsored.file", "sponsored.txt")
	viper.SetDefault("sponsored.ids", []string{})
	viper.SetDefault("manuals.dir", "/var/lib/app")
	viper.SetDefault("manuals.scratch_dir", "")
	viper.SetDefault("render.tool_paths", []string{})
	viper.SetDefault("render.timeout", "30s")
	viper.SetDefault("render.page", 0)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "60s")
}

func initConfig() {
	// A missing .env is fine.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("manual-preview")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "manual-preview"))
		}
	}

	viper.SetEnvPrefix("MANUAL_PREVIEW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}
	return cfg, nil
}

func main() {
	// Only fails on an invalid GOMAXPROCS value; the runtime default stays.
	_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
