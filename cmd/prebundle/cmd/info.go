package cmd

import (
	"fmt"
	"strings"

	"github.com/bianoble/prebundle/internal/config"
	"github.com/bianoble/prebundle/internal/engine"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show information about the prebundle configuration",
	Long: `Displays the prebundle version, configuration path, app root and entry,
cache directory and size, federation settings, the dependency lists that
are always included or excluded, and the resolved build environment.`,
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

		result, err := engine.Info(version, configPath, root, cfg, env)
		if err != nil {
			return err
		}

		fmt.Printf("prebundle %s\n", result.Version)
		fmt.Printf("  config:        %s\n", result.ConfigPath)
		fmt.Printf("  app root:      %s\n", result.AppRoot)
		fmt.Printf("  app entry:     %s\n", result.AppEntry)
		fmt.Printf("  cache dir:     %s\n", result.CacheDir)
		fmt.Printf("  cache size:    %s\n", humanSize(result.CacheSize))
		fmt.Printf("  output dir:    %s\n", result.OutputDir)
		fmt.Printf("  federation:    %s\n", result.FederationName)
		fmt.Printf("  runtime:       %s (%s)\n", result.RuntimePackage, result.RuntimeSymbol)
		fmt.Printf("  mode:          %s\n", result.Env.Mode)
		fmt.Printf("  source maps:   %t\n", result.Env.SourceMapEnabled)

		fmt.Println("\nAlways included:")
		fmt.Printf("  %s\n", listOrNone(result.ForceInclude))
		fmt.Println("Always excluded:")
		fmt.Printf("  %s\n", listOrNone(result.ForceExclude))

		if result.Env.Mode == config.ModeProduction {
			detail("remote is minified in production mode")
		}
		return nil
	},
}

func listOrNone(ids []string) string {
	if len(ids) == 0 {
		return "(none)"
	}
	return strings.Join(ids, ", ")
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
