package download

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"douyin-scribe/internal/app"
	"douyin-scribe/internal/cmdutil"
)

var (
	links     []string
	linksFile string
)

func init() {
	Cmd.Flags().StringArrayVarP(&links, "link", "l", nil, "share text or video link, repeatable")
	Cmd.Flags().StringVarP(&linksFile, "linksFile", "f", "", "file with one share text per line")
}

// Cmd represents the download command
var Cmd = &cobra.Command{
	Use:   "download",
	Short: "Download videos from share texts and extract their speech",
	Long: `Download videos from share texts and extract their speech.

Share texts may be full share messages copied from the app, short links or
canonical video URLs. Already-downloaded videos are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		inputs := append([]string{}, links...)
		if linksFile != "" {
			fromFile, err := readLines(linksFile)
			if err != nil {
				return err
			}
			inputs = append(inputs, fromFile...)
		}
		if len(inputs) == 0 {
			return fmt.Errorf("nothing to download, pass --link or --linksFile")
		}

		orchestrator, cleanup, err := app.InitializeOrchestrator(cmdutil.ConfigPath)
		if err != nil {
			return err
		}
		defer cleanup()

		summary := orchestrator.Run(cmd.Context(), inputs)
		fmt.Printf("total %d, success %d, skipped %d, failed %d, elapsed %s\n",
			summary.Total, summary.Success, summary.Skipped, summary.Failed, summary.Elapsed)
		if summary.Failed > 0 {
			return fmt.Errorf("%d of %d items failed", summary.Failed, summary.Total)
		}
		return nil
	},
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open links file: %w", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}
