package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/bianoble/prebundle/internal/engine"
	"github.com/bianoble/prebundle/internal/host"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	runForce      bool
	runHostConfig string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Prebundle dependencies and build the federation remote",
	Long: `Scans the application entries, resolves their third-party dependencies,
bundles them with esbuild, packages the result as a federation remote and
copies it into <output.path>/prebundle/ together with the host wiring.

Each stage is skipped when its inputs match the last successful run. Use
--force to ignore the cache.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		root, err := appRoot()
		if err != nil {
			return err
		}

		env, err := loadEnv(cfg, root)
		if err != nil {
			return err
		}

		opts := engine.RunOptions{Env: env, Force: runForce}
		if runHostConfig != "" {
			hc, err := readHostConfig(runHostConfig)
			if err != nil {
				return err
			}
			opts.HostConfig = hc
		}

		eng := engine.New(root, cfg, newLogger())
		result, err := eng.Run(cmd.Context(), cfg, opts)
		if err != nil {
			return err
		}

		for _, dep := range result.Deps {
			detail("%s", dep)
		}
		info("Dependencies:  %d", len(result.Deps))
		info("Bundle:        %s (%s)", stageLabel(result.Bundle), shortHash(result.BundleHash))
		info("Remote:        %s (%s)", stageLabel(result.Remote), shortHash(result.MFHash))
		info("Runtime chunk: %s", result.RuntimeChunkPath)
		info("Output:        %s", result.OutputDir)
		info("")
		info("Prebundle complete in %s.", result.Duration.Round(time.Millisecond))
		return nil
	},
}

// readHostConfig loads a host build config to wire in place. A missing
// file yields an empty config.
func readHostConfig(path string) (*host.BuildConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &host.BuildConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading host config: %w", err)
	}
	var hc host.BuildConfig
	if err := json.Unmarshal(data, &hc); err != nil {
		return nil, fmt.Errorf("parsing host config %s: %w", path, err)
	}
	return &hc, nil
}

func stageLabel(s engine.StageOutcome) string {
	if s == engine.StageCached {
		return color.New(color.FgGreen).Sprint(s)
	}
	return color.New(color.FgYellow).Sprint(s)
}

func init() {
	runCmd.Flags().BoolVar(&runForce, "force", false, "ignore the cache and rebuild both stages")
	runCmd.Flags().StringVar(&runHostConfig, "host-config", "", "existing host build config (JSON) to extend")
	rootCmd.AddCommand(runCmd)
}
