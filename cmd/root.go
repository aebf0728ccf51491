package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/niktheblak/waterlevel-uploader/internal/logging"
)

var (
	cfgFile string
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:          "waterlevel-uploader",
	Short:        "Uploads water level readings to a document database",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLevel(viper.GetString("log.level"))
		if err != nil {
			return err
		}
		l, err := logging.New(os.Stderr, level, viper.GetString("log.format"))
		if err != nil {
			return err
		}
		logger = l
		if viper.ConfigFileUsed() != "" {
			logger.LogAttrs(cmd.Context(), slog.LevelDebug, "Using config file", slog.String("config", viper.ConfigFileUsed()))
		}
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	logger = slog.Default()
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.waterlevel-uploader/config.toml)")
	rootCmd.PersistentFlags().String("log.level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log.format", "text", "log format (text, json)")

	cobra.CheckErr(viper.BindPFlags(rootCmd.PersistentFlags()))
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("/etc/waterlevel-uploader")
		viper.AddConfigPath("$HOME/.waterlevel-uploader")
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logger.LogAttrs(context.Background(), slog.LevelError, "Failed to read config file", slog.String("config", viper.ConfigFileUsed()), slog.Any("error", err))
			cobra.CheckErr(fmt.Errorf("read config: %w", err))
		}
	}
}
