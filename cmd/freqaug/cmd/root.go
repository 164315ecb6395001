// Package cmd implements the freqaug command-line interface.
package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/freqaug/internal/config"
	"github.com/MeKo-Tech/freqaug/internal/version"
)

// flagKeys maps command-line flags to configuration keys. Flags that are
// not listed here are command-local and never reach viper.
var flagKeys = map[string]string{
	"log-level": "log_level",
	"verbose":   "verbose",

	"variant":    "augment.variant",
	"freq-alpha": "augment.freq_alpha",
	"device":     "augment.device",
	"seed":       "augment.seed",
	"size":       "augment.image_size",
	"max-size":   "augment.max_image_size",

	"overlay-dir": "overlay.dir",
	"out":         "output.dir",
	"format":      "output.format",

	"host":                 "server.host",
	"port":                 "server.port",
	"cors-origin":          "server.cors_origin",
	"max-upload-size":      "server.max_upload_mb",
	"timeout":              "server.timeout_sec",
	"shutdown-timeout":     "server.shutdown_timeout",
	"rate-limit-enabled":   "server.rate_limit_enabled",
	"requests-per-minute":  "server.requests_per_minute",
	"requests-per-hour":    "server.requests_per_hour",
	"max-requests-per-day": "server.max_requests_per_day",
	"max-data-per-day":     "server.max_data_per_day",
}

// app holds the state shared by one command tree.
type app struct {
	cfgFile string
	loader  *config.Loader
	cfg     *config.Config
	logger  *slog.Logger
}

// Execute builds the command tree and runs it against os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds a fresh command tree with its own configuration
// state, so it can be executed repeatedly in one process.
func NewRootCommand() *cobra.Command {
	a := &app{loader: config.NewLoaderWithViper(viper.New())}

	root := &cobra.Command{
		Use:   "freqaug",
		Short: "Frequency-domain image augmentation for pixel-based RL",
		Long: `freqaug applies frequency-domain augmentations to batches of image
observations: ring and square-ring masking of the centred spectrum and
amplitude mixing between batches, plus overlay, random convolution and
random shift.

Examples:
  freqaug variants
  freqaug augment frames/ --variant mask-ring --out augmented
  freqaug bench --variant mix-band-3 --batch 32 --channels 9
  freqaug serve --port 8080`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				info := version.Get()
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "freqaug version %s\n", info.Version)
				_, _ = fmt.Fprintf(out, "Commit: %s\n", info.GitCommit)
				_, _ = fmt.Fprintf(out, "Date: %s\n", info.BuildDate)
				return nil
			}
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/freqaug, /etc/freqaug)")
	root.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.Flags().Bool("version", false, "print version information and exit")

	root.AddCommand(
		newAugmentCommand(a),
		newBenchCommand(a),
		newServeCommand(a),
		newVariantsCommand(),
		newConfigCommand(a),
	)
	return root
}

// init binds the executing command's flags, loads the configuration and
// installs the logger.
func (a *app) init(cmd *cobra.Command) error {
	v := a.loader.GetViper()
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok && bindErr == nil {
			bindErr = v.BindPFlag(key, f)
		}
	})
	if bindErr != nil {
		return fmt.Errorf("binding flags: %w", bindErr)
	}

	cfg, err := a.loader.LoadWithFile(a.cfgFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	a.cfg = cfg

	a.logger = slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel(cfg),
	}))
	slog.SetDefault(a.logger)
	if used := a.loader.GetConfigFileUsed(); used != "" {
		a.logger.Debug("using config file", "path", used)
	}
	return nil
}

func logLevel(cfg *config.Config) slog.Level {
	if cfg.Verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
