package cmd

import (
	"github.com/bianoble/prebundle/internal/engine"
	"github.com/spf13/cobra"
)

var (
	cleanDryRun bool
	cleanOutput bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the prebundle cache",
	Long: `Removes the cache directory so the next run rebuilds both stages. With
--output, also removes the remote copied into <output.path>/prebundle/.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		root, err := appRoot()
		if err != nil {
			return err
		}

		eng := &engine.CleanEngine{AppRoot: root}
		result, err := eng.Clean(cfg, engine.CleanOptions{Output: cleanOutput, DryRun: cleanDryRun})
		if err != nil {
			return err
		}

		if len(result.Removed) == 0 {
			info("Nothing to clean.")
			return nil
		}

		verb := "Removed"
		if cleanDryRun {
			verb = "Would remove"
		}
		for _, p := range result.Removed {
			info("  %s %s", verb, p)
		}
		info("")
		info("%s %s.", verb, humanSize(result.Freed))
		return nil
	},
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "show what would be removed without deleting")
	cleanCmd.Flags().BoolVar(&cleanOutput, "output", false, "also remove the remote copied into the build output")
	rootCmd.AddCommand(cleanCmd)
}
