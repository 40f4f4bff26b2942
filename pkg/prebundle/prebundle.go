// Package prebundle provides the public Go library API for prebundle.
//
// prebundle compiles the third-party dependencies of an application once
// with esbuild, packages them as a module federation remote and wires the
// primary build to consume that remote. Both stages are cached under the
// application's cache directory and skipped when their inputs are
// unchanged.
//
// # Basic Usage
//
//	client, err := prebundle.New(prebundle.Options{
//	    AppRoot:    "/path/to/app",
//	    ConfigPath: "prebundle.yaml",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	env, err := client.Env()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Prebundle dependencies and build the remote
//	result, err := client.Run(ctx, prebundle.RunOptions{Env: env})
//
//	// Inspect the cache
//	status, err := client.Status()
package prebundle

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/bianoble/prebundle/internal/config"
	"github.com/bianoble/prebundle/internal/engine"
	"github.com/rs/zerolog"
)

// DefaultConfigPath is the config file used when Options.ConfigPath is empty.
const DefaultConfigPath = "prebundle.yaml"

// Runner executes the prebundle pipeline.
type Runner interface {
	Run(ctx context.Context, opts RunOptions) (*RunResult, error)
}

// StatusReporter inspects the prebundle cache without modifying it.
type StatusReporter interface {
	Status() (*StatusResult, error)
}

// Cleaner removes prebundle artifacts.
type Cleaner interface {
	Clean(opts CleanOptions) (*CleanResult, error)
}

// Options configures a prebundle client.
type Options struct {
	// AppRoot is the application directory. Relative paths in the config
	// resolve against it. If empty, defaults to the directory containing
	// ConfigPath.
	AppRoot string

	// ConfigPath is the path to the config file. Default: "prebundle.yaml".
	ConfigPath string

	// Logger receives pipeline progress. Nil discards all output.
	Logger *zerolog.Logger
}

// Client is the main entry point for the prebundle library.
// It implements Runner, StatusReporter, and Cleaner.
type Client struct {
	appRoot    string
	configPath string
	logger     zerolog.Logger
}

// New creates a new prebundle Client.
func New(opts Options) (*Client, error) {
	if opts.ConfigPath == "" {
		opts.ConfigPath = DefaultConfigPath
	}

	root := opts.AppRoot
	if root == "" {
		root = filepath.Dir(opts.ConfigPath)
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving app root: %w", err)
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Client{
		appRoot:    root,
		configPath: opts.ConfigPath,
		logger:     logger,
	}, nil
}

// AppRoot returns the absolute application directory.
func (c *Client) AppRoot() string {
	return c.appRoot
}

// Config loads and validates the client's config file.
func (c *Client) Config() (*Config, error) {
	return config.Load(c.configPath)
}

// Env reads the environment descriptor from PREBUNDLE_MODE, NODE_ENV and
// PREBUNDLE_SOURCE_MAP, then from the app's .env files, falling back to the
// config file's source-map switch.
func (c *Client) Env() (Env, error) {
	cfg, err := c.Config()
	if err != nil {
		return Env{}, err
	}
	return c.env(cfg)
}

func (c *Client) env(cfg *Config) (Env, error) {
	v := config.NewEnvViper()
	if _, err := config.ReadDotEnv(v, c.appRoot); err != nil {
		return Env{}, err
	}
	return config.LoadEnv(v, cfg)
}

// Run prebundles the application's dependencies, builds the federation
// remote and writes the host wiring. Stages whose inputs are unchanged
// since the last successful run are served from the cache.
func (c *Client) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	cfg, err := c.Config()
	if err != nil {
		return nil, err
	}
	if opts.Env.Mode == "" {
		opts.Env.Mode = ModeDevelopment
	}

	return engine.New(c.appRoot, cfg, c.logger).Run(ctx, cfg, opts)
}

// Status reports the state of the prebundle cache.
func (c *Client) Status() (*StatusResult, error) {
	cfg, err := c.Config()
	if err != nil {
		return nil, err
	}

	eng := &engine.StatusEngine{AppRoot: c.appRoot}
	return eng.Status(cfg)
}

// Clean removes the prebundle cache, and the copied remote when
// opts.Output is set.
func (c *Client) Clean(opts CleanOptions) (*CleanResult, error) {
	cfg, err := c.Config()
	if err != nil {
		return nil, err
	}

	eng := &engine.CleanEngine{AppRoot: c.appRoot}
	return eng.Clean(cfg, opts)
}

// Info gathers tool and project information.
func (c *Client) Info(version string) (*InfoResult, error) {
	cfg, err := c.Config()
	if err != nil {
		return nil, err
	}
	env, err := c.env(cfg)
	if err != nil {
		return nil, err
	}

	return engine.Info(version, c.configPath, c.appRoot, cfg, env)
}
