package cmd

import (
	"os"

	"github.com/bianoble/prebundle/internal/engine"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the prebundle cache",
	Long: `Shows the cache directory and size, the recorded stage hashes and runtime
chunk, and whether every remote asset is present in the cache and in the
build output (ready, incomplete, empty).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		root, err := appRoot()
		if err != nil {
			return err
		}

		eng := &engine.StatusEngine{AppRoot: root}
		result, err := eng.Status(cfg)
		if err != nil {
			return err
		}

		if result.State == engine.StateEmpty {
			info("No prebundle cache at %s.", result.CacheDir)
			return nil
		}

		m := result.Metadata
		tbl := table.NewWriter()
		tbl.SetOutputMirror(os.Stdout)
		tbl.SetStyle(table.StyleLight)
		tbl.Style().Options.DrawBorder = false
		tbl.Style().Options.SeparateColumns = false
		tbl.AppendRows([]table.Row{
			{"state", stateLabel(result.State)},
			{"cache dir", result.CacheDir},
			{"cache size", humanSize(result.CacheSize)},
			{"bundle hash", shortHash(m.BundleHash)},
			{"remote hash", shortHash(m.MFHash)},
			{"runtime chunk", m.RuntimeChunkPath},
			{"prebundled files", result.PrebundleFiles},
			{"remote files", result.RemoteFiles},
			{"remote assets", len(m.RemoteAssets)},
			{"runtime requirements", len(m.RuntimeRequirements)},
		})
		tbl.Render()

		if len(result.MissingAssets) > 0 {
			info("")
			info("Missing assets (run 'prebundle run' to restore):")
			for _, a := range result.MissingAssets {
				info("  %s", a)
			}
		}

		return nil
	},
}

func stateLabel(s engine.CacheState) string {
	switch s {
	case engine.StateReady:
		return color.New(color.FgGreen).Sprint(s)
	case engine.StateIncomplete:
		return color.New(color.FgRed).Sprint(s)
	default:
		return string(s)
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
