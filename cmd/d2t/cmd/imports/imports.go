package imports

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"douyin-scribe/internal/app"
	"douyin-scribe/internal/cmdutil"
)

var (
	inputDir string
)

func init() {
	videoCmd.Flags().StringVarP(&inputDir, "dir", "d", "", "directory with media files")
	videoCmd.MarkFlagRequired("dir")
	audioCmd.Flags().StringVarP(&inputDir, "dir", "d", "", "directory with media files")
	audioCmd.MarkFlagRequired("dir")

	Cmd.AddCommand(videoCmd)
	Cmd.AddCommand(audioCmd)
}

// Cmd represents the import command
var Cmd = &cobra.Command{
	Use:   "import",
	Short: "Transcribe local files that were never downloaded",
	Long: `Transcribe local files that were never downloaded.

Digit-only file names are treated as video identifiers; anything else gets
a stable local identifier so re-imports are skipped.`,
}

var videoCmd = &cobra.Command{
	Use:   "video",
	Short: "Import local video files",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd, false, ".mp4", ".flv", ".webm", ".mov")
	},
}

var audioCmd = &cobra.Command{
	Use:   "audio",
	Short: "Import local audio files",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd, true, ".mp3", ".m4a", ".wav")
	},
}

func runImport(cmd *cobra.Command, isAudio bool, extensions ...string) error {
	paths, err := collectFiles(inputDir, extensions)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no %s files found in %s", strings.Join(extensions, "/"), inputDir)
	}

	orchestrator, cleanup, err := app.InitializeOrchestrator(cmdutil.ConfigPath)
	if err != nil {
		return err
	}
	defer cleanup()

	summary := orchestrator.RunLocal(cmd.Context(), paths, isAudio)
	fmt.Printf("total %d, success %d, failed %d, elapsed %s\n",
		summary.Total, summary.Success, summary.Failed, summary.Elapsed)
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", summary.Failed, summary.Total)
	}
	return nil
}

func collectFiles(dir string, extensions []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	wanted := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		wanted[ext] = true
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if wanted[strings.ToLower(filepath.Ext(entry.Name()))] {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
