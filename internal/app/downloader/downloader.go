package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"douyin-scribe/internal/app/request"

	"go.uber.org/zap"
)

const (
	chunkSize = 1 << 20

	// maxRetries counts the re-attempts after the first failed transfer;
	// backoff doubles from initialBackoff between them.
	maxRetries     = 3
	initialBackoff = 2 * time.Second

	// CDN play URLs are usually redirectors; the shared client never
	// follows Location so the chase happens here, bounded.
	maxRedirects = 5

	// A transfer shorter than this fraction of the announced size is
	// treated as failed even when the connection closed cleanly.
	minCompleteRatio = 0.95

	partSuffix = ".part"
)

// ProgressFunc receives coalesced transfer progress as a percentage.
// It is only called when the total size is known.
type ProgressFunc func(percent int)

// Manager performs resumable, retried, validated transfers and keeps the
// already-downloaded ledger.
type Manager struct {
	client *request.Client
	ledger *Ledger
	prober Prober
	log    *zap.SugaredLogger
	sleep  func(time.Duration)
}

func NewManager(client *request.Client, ledger *Ledger, prober Prober, log *zap.SugaredLogger) *Manager {
	return &Manager{
		client: client,
		ledger: ledger,
		prober: prober,
		log:    log,
		sleep:  time.Sleep,
	}
}

// Fetch downloads the media for one identifier. It short-circuits when the
// artifact already exists and validates, re-downloads once when validation
// fails after transfer, and records the identifier in the ledger only
// after the file has been verified on disk.
func (m *Manager) Fetch(ctx context.Context, id, url, dest string, progress ProgressFunc) (skipped bool, err error) {
	if m.artifactComplete(ctx, id, dest) {
		m.log.Infow("artifact already downloaded", "id", id, "path", dest)
		if !m.ledger.Has(id) {
			if err := m.ledger.Add(id); err != nil {
				return false, err
			}
		}
		return true, nil
	}

	// One extra full cycle when the first transfer validates dirty.
	for cycle := 0; cycle < 2; cycle++ {
		if err = m.Transfer(ctx, url, dest, progress); err != nil {
			return false, err
		}

		if err = m.prober.Validate(ctx, dest); err == nil {
			if lerr := m.ledger.Add(id); lerr != nil {
				return false, lerr
			}
			return false, nil
		}

		m.log.Warnw("downloaded file failed validation, retrying from scratch",
			"id", id, "error", err)
		os.Remove(dest)
	}
	return false, fmt.Errorf("validation failed after re-download: %w", err)
}

// Transfer streams url into dest with resume and retry. Used directly for
// auxiliary assets that skip ledger bookkeeping, such as cover images.
// The file only ever appears at dest after a successful transfer.
func (m *Manager) Transfer(ctx context.Context, url, dest string, progress ProgressFunc) error {
	part := dest + partSuffix

	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = m.attempt(ctx, url, part, progress)
		if lastErr == nil {
			return promote(part, dest)
		}
		if attempt >= maxRetries {
			break
		}

		backoff := initialBackoff << attempt
		m.log.Warnw("transfer attempt failed",
			"attempt", attempt+1, "backoff", backoff, "error", lastErr)
		m.sleep(backoff)
	}

	os.Remove(part)
	return fmt.Errorf("transfer failed after %d attempts: %w", maxRetries+1, lastErr)
}

// artifactComplete reports whether dest already holds a verified artifact,
// consulting the ledger first as a cheap pre-check.
func (m *Manager) artifactComplete(ctx context.Context, id, dest string) bool {
	info, err := os.Stat(dest)
	if err != nil || info.Size() < minValidSize {
		return false
	}

	if err := m.prober.Validate(ctx, dest); err != nil {
		m.log.Warnw("existing artifact failed validation, will re-download",
			"id", id, "path", dest, "error", err)
		os.Remove(dest)
		return false
	}
	return true
}

// attempt runs one full HEAD+GET sequence into the partial file.
func (m *Manager) attempt(ctx context.Context, url, part string, progress ProgressFunc) error {
	total := m.headSize(ctx, url)

	var offset int64
	if info, err := os.Stat(part); err == nil {
		offset = info.Size()
	}

	resp, err := m.roundTrip(ctx, http.MethodGet, url, offset)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if offset > 0 {
			// The server ignored the range; the partial cannot be
			// trusted as a prefix of this response.
			m.log.Debugw("server does not honor range requests, restarting", "url", url)
			offset = 0
		}
	case http.StatusPartialContent:
	case http.StatusRequestedRangeNotSatisfiable:
		// The partial is already at or past what the server will
		// serve; drop it so the next attempt restarts from zero.
		os.Remove(part)
		return fmt.Errorf("range from %d not satisfiable, partial discarded", offset)
	default:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if total == 0 {
		total = contentLength(resp) + offset
	}

	flags := os.O_CREATE | os.O_WRONLY
	if offset > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	out, err := os.OpenFile(part, flags, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	written, err := m.stream(resp.Body, out, offset, total, progress)
	if err != nil {
		return err
	}

	if total > 0 && float64(offset+written) < float64(total)*minCompleteRatio {
		return fmt.Errorf("incomplete transfer: %d of %d bytes", offset+written, total)
	}
	return nil
}

// stream copies the body in fixed-size chunks, emitting progress only when
// the integer percentage moves so observers are never flooded.
func (m *Manager) stream(body io.Reader, out *os.File, offset, total int64, progress ProgressFunc) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64
	lastPercent := -1

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return written, err
			}
			written += int64(n)

			if progress != nil && total > 0 {
				percent := int((offset + written) * 100 / total)
				if percent > 100 {
					percent = 100
				}
				if percent != lastPercent {
					lastPercent = percent
					progress(percent)
				}
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

// roundTrip issues one request, chasing redirects itself. The Range header
// is re-applied on every hop so a resume survives the redirector.
func (m *Manager) roundTrip(ctx context.Context, method, url string, offset int64) (*http.Response, error) {
	for redirects := 0; ; redirects++ {
		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return nil, err
		}
		if offset > 0 {
			req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
		}

		resp, err := m.client.Do(req)
		if err != nil {
			return nil, err
		}
		if !isRedirect(resp.StatusCode) {
			return resp, nil
		}

		loc := resp.Header.Get("Location")
		request.DrainAndClose(resp.Body)
		if loc == "" {
			return nil, fmt.Errorf("redirect %d without Location", resp.StatusCode)
		}
		if redirects >= maxRedirects {
			return nil, fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		next, err := req.URL.Parse(loc)
		if err != nil {
			return nil, fmt.Errorf("bad redirect target %q: %w", loc, err)
		}
		url = next.String()
	}
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// headSize asks the server for the total size; absence is not an error.
func (m *Manager) headSize(ctx context.Context, url string) int64 {
	resp, err := m.roundTrip(ctx, http.MethodHead, url, 0)
	if err != nil {
		return 0
	}
	defer request.DrainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return 0
	}
	return contentLength(resp)
}

func contentLength(resp *http.Response) int64 {
	size, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	if err != nil || size < 0 {
		return 0
	}
	return size
}

// promote moves the finished partial onto the final name.
func promote(part, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("remove stale artifact: %w", err)
		}
	}
	if err := os.Rename(part, dest); err != nil {
		return fmt.Errorf("promote partial file: %w", err)
	}
	return nil
}
