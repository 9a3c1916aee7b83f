package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"douyin-scribe/cmd/d2t/cmd/download"
	"douyin-scribe/cmd/d2t/cmd/export"
	"douyin-scribe/cmd/d2t/cmd/imports"
	"douyin-scribe/cmd/d2t/cmd/setting"
	"douyin-scribe/cmd/d2t/cmd/version"
	"douyin-scribe/internal/cmdutil"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "d2t",
	Short: "Batch download douyin videos and turn their speech into text",
	Long: `Batch download douyin videos and turn their speech into text.
- Paste share texts or collect them in a file, d2t resolves the real video
- Downloads are resumable and each file is verified with ffmpeg
- The audio track is extracted and run through the configured recognizer
- Every processed video is recorded to sqlite for export`,
	TraverseChildren: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(download.Cmd)
	rootCmd.AddCommand(imports.Cmd)
	rootCmd.AddCommand(export.Cmd)
	rootCmd.AddCommand(setting.Cmd)
	rootCmd.AddCommand(version.Cmd)

	rootCmd.PersistentFlags().StringVarP(&cmdutil.ConfigPath, "config", "c", "settings.json", "settings file path")
}
