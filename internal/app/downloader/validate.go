package downloader

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// minValidSize is the size below which a media file cannot possibly be a
// real download.
const minValidSize = 1024

// probablyValidSize is the size above which a file is given the benefit of
// the doubt when the probe tool itself cannot run.
const probablyValidSize = 100 * 1024

// fatalMarkers are the probe stderr substrings that name unrecoverable
// corruption. Anything else on stderr is warning-class and accepted.
var fatalMarkers = []string{
	"moov atom not found",
	"Invalid data found",
}

// Prober checks a downloaded media file for corruption.
type Prober interface {
	Validate(ctx context.Context, path string) error
}

// FFmpegProber validates files by running ffmpeg in verify-only mode
// (-v error -f null -) and scanning stderr for fatal markers.
type FFmpegProber struct {
	FFmpegPath string
}

func (p *FFmpegProber) Validate(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() < minValidSize {
		return fmt.Errorf("file too small to be valid media: %d bytes", info.Size())
	}

	cmd := exec.CommandContext(ctx, p.FFmpegPath,
		"-v", "error",
		"-i", path,
		"-f", "null",
		"-",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() == 0 {
			// The tool itself failed to run; fall back to a size
			// plausibility check rather than rejecting the file.
			if info.Size() > probablyValidSize {
				return nil
			}
			return fmt.Errorf("probe failed: %w", err)
		}
	}

	output := stderr.String()
	for _, marker := range fatalMarkers {
		if strings.Contains(output, marker) {
			return fmt.Errorf("media file corrupt: %s", strings.TrimSpace(output))
		}
	}
	return nil
}
