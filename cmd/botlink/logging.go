package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/botlink/pkg/config"
)

// loadSettings reads the --config file, if any, and builds the logger.
func loadSettings(cmd *cobra.Command) (*config.Config, *logrus.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	logger, err := configureLogger(cmd, cfg, path != "")
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// configureLogger picks the level from --log-level, then --verbose, then the
// config file. Without any of them the logger stays at panic level, which is
// silent for normal operation.
func configureLogger(cmd *cobra.Command, cfg *config.Config, fromFile bool) (*logrus.Logger, error) {
	logLevel := logrus.PanicLevel

	logLevelStr, _ := cmd.Flags().GetString("log-level")
	verbose, _ := cmd.Flags().GetBool("verbose")
	switch {
	case logLevelStr != "":
		switch logLevelStr {
		case "debug":
			logLevel = logrus.DebugLevel
		case "info":
			logLevel = logrus.InfoLevel
		case "warn":
			logLevel = logrus.WarnLevel
		case "error":
			logLevel = logrus.ErrorLevel
		default:
			return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", logLevelStr)
		}
	case verbose:
		logLevel = logrus.DebugLevel
	case fromFile:
		logLevel = cfg.Level()
	}

	logger := cfg.NewLogger()
	logger.SetLevel(logLevel)
	logger.SetOutput(cmd.ErrOrStderr())
	return logger, nil
}
