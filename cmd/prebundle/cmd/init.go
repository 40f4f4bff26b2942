package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initForce bool

// initTemplate is the default prebundle.yaml scaffold.
const initTemplate = `# prebundle configuration
version: 1

# Entry modules of the primary build. The "app" entry is scanned, together
# with every page listed in its app config (src/app.config.json).
entry:
  app: [src/app.ts]

# Runtime package whose split chunk provides DOM globals to dependencies.
# runtime:
#   package: "@tarojs/runtime"
#   symbol: TaroRootElement
#   include: ["@tarojs/taro"]

# Runtime modules injected by platform plugins ("post:" is stripped).
# runtimePath:
#   - post:@tarojs/plugin-platform-weapp/dist/runtime

# Always prebundle / never prebundle. Exclude wins.
# include: [dayjs]
# exclude: [react]

# Packages the host build supplies natively.
# hostPackages: ["@tarojs/components"]

# resolve:
#   alias:
#     "@/utils": ./src/utils

# esbuild:
#   target: es2017
#   platform: browser
#   define:
#     ENABLE_INNER_HTML: "true"

output:
  path: dist
  # chunkLoadingGlobal: webpackJsonp
  # globalObject: wx

# cacheDir: node_modules/.prebundle
# enableSourceMap: false
# federationName: taro_app_library

# Extra globals provided by exports of the runtime chunk.
# provide:
#   IntersectionObserver: IntersectionObserver
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter prebundle.yaml configuration",
	Long: `Creates a prebundle.yaml file with a commented template covering entries,
runtime settings, include and exclude lists, and output topology.

Use --force to overwrite an existing configuration file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath := configPath
		if !filepath.IsAbs(outPath) {
			abs, err := filepath.Abs(outPath)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			outPath = abs
		}

		if !initForce {
			if _, err := os.Stat(outPath); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", outPath)
			}
		}

		if err := os.WriteFile(outPath, []byte(initTemplate), 0644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		info("Created %s", outPath)
		info("")
		info("Next steps:")
		info("  1. Point 'entry.app' at your app entry module")
		info("  2. Run 'prebundle run' to prebundle dependencies")
		info("  3. Run 'prebundle status' to inspect the cache")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing config file")
	rootCmd.AddCommand(initCmd)
}
