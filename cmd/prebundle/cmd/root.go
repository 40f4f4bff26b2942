package cmd

import (
	"fmt"
	"os"

	"github.com/bianoble/prebundle/internal/config"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Build-time variables set via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	configPath string
	appRootDir string
	verbose    bool
	quiet      bool
	noColor    bool
)

// envViper holds the environment descriptor; --mode and --source-map are
// bound to it on top of PREBUNDLE_* variables.
var envViper = config.NewEnvViper()

var rootCmd = &cobra.Command{
	Use:   "prebundle",
	Short: "Prebundle third-party dependencies into a federation remote",
	Long: `prebundle compiles an application's third-party dependencies once with
esbuild, packages them as a module federation remote, and wires the primary
build to consume that remote. Both stages are cached and skipped when their
inputs are unchanged.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("prebundle %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "prebundle.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&appRootDir, "app-root", "", "application directory (default: directory of the config file)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "detailed output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "minimal output (errors only)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.PersistentFlags().String("mode", "", "build mode: production or development (default: from NODE_ENV)")
	rootCmd.PersistentFlags().Bool("source-map", false, "emit source maps for the remote")
	bindEnvFlags(envViper, rootCmd)

	rootCmd.AddCommand(versionCmd)
}

// bindEnvFlags binds the environment flags of cmd to v.
func bindEnvFlags(v *viper.Viper, cmd *cobra.Command) {
	_ = v.BindPFlag(config.KeyMode, cmd.PersistentFlags().Lookup("mode"))
	_ = v.BindPFlag(config.KeySourceMap, cmd.PersistentFlags().Lookup("source-map"))
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		errorf("%s", err)
		return err
	}
	return nil
}

func errorf(format string, args ...any) {
	color.New(color.FgRed).Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
