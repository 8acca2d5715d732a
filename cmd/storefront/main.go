package main

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/norun9/bakery-storefront/config"
)

var (
	// Global flags
	configPath string

	cfg config.Config
	log *logrus.Logger
)

func init() {
	log = logrus.New()
	log.Level = logrus.InfoLevel
	log.Formatter = &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "severity",
			logrus.FieldKeyMsg:   "message",
		},
		TimestampFormat: time.RFC3339Nano,
	}
	log.Out = os.Stdout
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Bakery storefront: catalog, per-session carts and newsletter sign-up",
	Long: `storefront serves the bakery catalog and keeps one shopping cart per visitor
session in a pluggable key-value storage (memory, file, redis or sqlite).

Settings come from defaults, then the --config YAML file, then the environment.
.env.local and .env in the working directory are read first.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loadDotEnv()

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		log.SetLevel(level)
		return nil
	},
}

// loadDotEnv reads .env.local and .env without overriding variables already set.
func loadDotEnv() {
	for _, p := range []string{".env.local", ".env"} {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			log.WithError(err).Warnf("failed to load %s", p)
		} else {
			log.Debugf("loaded env from %s", p)
		}
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(cartCmd)
	cartCmd.AddCommand(cartShowCmd)
	cartCmd.AddCommand(cartClearCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("storefront failed")
		os.Exit(1)
	}
}
