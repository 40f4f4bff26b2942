package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bianoble/prebundle/internal/config"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// loadConfig reads and validates the config file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", configPath, err)
	}
	return cfg, nil
}

// loadEnv reads the environment descriptor from flags, the environment and
// the app's .env files.
func loadEnv(cfg *config.Config, root string) (config.Env, error) {
	loaded, err := config.ReadDotEnv(envViper, root)
	if err != nil {
		return config.Env{}, err
	}
	for _, p := range loaded {
		detail("env file: %s", p)
	}
	return config.LoadEnv(envViper, cfg)
}

// appRoot returns the application directory: --app-root when given,
// otherwise the directory containing the config file.
func appRoot() (string, error) {
	dir := appRootDir
	if dir == "" {
		dir = filepath.Dir(configPath)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving app root: %w", err)
	}
	return abs, nil
}

// newLogger returns the console logger used for pipeline progress.
func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	switch {
	case verbose:
		level = zerolog.DebugLevel
	case quiet:
		level = zerolog.WarnLevel
	}

	out := zerolog.ConsoleWriter{Out: os.Stderr, NoColor: noColor || color.NoColor, TimeFormat: "15:04:05"}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// humanSize formats a byte count with binary units.
func humanSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

// shortHash abbreviates a hex digest for display.
func shortHash(h string) string {
	if h == "" {
		return "-"
	}
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// info prints a line unless quiet mode is active.
func info(format string, args ...any) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// detail prints a line only in verbose mode.
func detail(format string, args ...any) {
	if verbose {
		fmt.Printf("  "+format+"\n", args...)
	}
}
