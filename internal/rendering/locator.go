package rendering

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/humexxx/tech9-parserdf/internal/observability"
)

// DefaultChromiumPackURL is the remote Chromium pack used when no local browser is found.
const DefaultChromiumPackURL = "https://github.com/humexxx/tech9-parserdf/raw/refs/heads/main/public/chromium-pack.tar"

// knownBrowsers are looked up on PATH, in order.
var knownBrowsers = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"chrome",
	"headless-shell",
}

// LocatorState is the acquisition state of a BrowserLocator.
type LocatorState int

const (
	StateUnset LocatorState = iota
	StateAcquiring
	StateReady
)

func (s LocatorState) String() string {
	switch s {
	case StateAcquiring:
		return "acquiring"
	case StateReady:
		return "ready"
	default:
		return "unset"
	}
}

// LocatorConfig controls where a BrowserLocator looks for an executable.
type LocatorConfig struct {
	// ConfiguredPath wins when set (CHROME_PATH).
	ConfiguredPath string
	// PackURL is a tar archive containing a Chromium executable. Empty disables download.
	PackURL string
	// CacheDir receives the extracted pack.
	CacheDir string
	// HTTPClient downloads the pack; defaults to a client with a 5 minute timeout.
	HTTPClient *http.Client
	// LookPath resolves browser names on PATH; defaults to exec.LookPath.
	LookPath func(string) (string, error)
}

// acquisition is the shared result of one in-flight resolution.
type acquisition struct {
	done chan struct{}
	path string
	err  error
}

// BrowserLocator resolves the browser executable once per process.
// Concurrent callers share the in-flight resolution; a failure returns the
// locator to unset so the next call retries.
type BrowserLocator struct {
	cfg     LocatorConfig
	resolve func(ctx context.Context) (string, error)

	mu       sync.Mutex
	state    LocatorState
	path     string
	inflight *acquisition
}

// NewBrowserLocator creates a locator for the given configuration
func NewBrowserLocator(cfg LocatorConfig) *BrowserLocator {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 5 * time.Minute}
	}
	if cfg.LookPath == nil {
		cfg.LookPath = exec.LookPath
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(os.TempDir(), "parserdf-chromium")
	}
	l := &BrowserLocator{cfg: cfg}
	l.resolve = l.resolvePath
	return l
}

// State returns the current acquisition state
func (l *BrowserLocator) State() LocatorState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Acquire returns the browser executable path, resolving it on first use.
func (l *BrowserLocator) Acquire(ctx context.Context) (string, error) {
	l.mu.Lock()
	switch l.state {
	case StateReady:
		path := l.path
		l.mu.Unlock()
		return path, nil
	case StateAcquiring:
		a := l.inflight
		l.mu.Unlock()
		return wait(ctx, a)
	}

	a := &acquisition{done: make(chan struct{})}
	l.state = StateAcquiring
	l.inflight = a
	l.mu.Unlock()

	// The resolution outlives any single caller's cancellation.
	go l.run(context.WithoutCancel(ctx), a)

	return wait(ctx, a)
}

func (l *BrowserLocator) run(ctx context.Context, a *acquisition) {
	path, err := l.resolve(ctx)

	l.mu.Lock()
	if err != nil {
		l.state = StateUnset
		l.path = ""
	} else {
		l.state = StateReady
		l.path = path
	}
	l.inflight = nil
	a.path, a.err = path, err
	l.mu.Unlock()
	close(a.done)

	if err != nil {
		observability.Logger().WithError(err).Error("browser acquisition failed")
	} else {
		observability.Logger().WithField("path", path).Info("browser acquired")
	}
}

func wait(ctx context.Context, a *acquisition) (string, error) {
	select {
	case <-a.done:
		return a.path, a.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (l *BrowserLocator) resolvePath(ctx context.Context) (string, error) {
	if p := l.cfg.ConfiguredPath; p != "" {
		if isExecutable(p) {
			return p, nil
		}
		return "", &RenderError{Message: fmt.Sprintf("configured browser path %q is not executable", p)}
	}

	for _, name := range knownBrowsers {
		if p, err := l.cfg.LookPath(name); err == nil {
			return p, nil
		}
	}

	if l.cfg.PackURL == "" {
		return "", &RenderError{Message: "no browser found on PATH and no chromium pack configured"}
	}
	return l.downloadPack(ctx)
}

func (l *BrowserLocator) downloadPack(ctx context.Context) (string, error) {
	if p := findBrowser(l.cfg.CacheDir); p != "" {
		return p, nil
	}

	log := observability.Logger().WithFields(logrus.Fields{
		"url":   l.cfg.PackURL,
		"cache": l.cfg.CacheDir,
	})
	log.Info("downloading chromium pack")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.cfg.PackURL, nil)
	if err != nil {
		return "", &RenderError{Message: "invalid chromium pack URL", Cause: err}
	}
	resp, err := l.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", &RenderError{Message: "failed to download chromium pack", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &RenderError{Message: fmt.Sprintf("chromium pack download returned status %d", resp.StatusCode)}
	}

	if err := os.MkdirAll(l.cfg.CacheDir, 0o755); err != nil {
		return "", &RenderError{Message: "failed to create chromium cache dir", Cause: err}
	}
	if err := extractTar(resp.Body, l.cfg.CacheDir); err != nil {
		return "", &RenderError{Message: "failed to extract chromium pack", Cause: err}
	}

	p := findBrowser(l.cfg.CacheDir)
	if p == "" {
		return "", &RenderError{Message: "chromium pack contains no browser executable"}
	}
	log.WithField("path", p).Info("chromium pack extracted")
	return p, nil
}

// extractTar unpacks a plain or gzip-compressed tar stream into dir.
func extractTar(r io.Reader, dir string) error {
	br := bufio.NewReader(r)
	var src io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return err
		}
		defer func() { _ = gz.Close() }()
		src = gz
	}

	clean := filepath.Clean(dir)
	root := clean + string(os.PathSeparator)
	tr := tar.NewReader(src)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		target := filepath.Join(dir, hdr.Name)
		if target != clean && !strings.HasPrefix(target, root) {
			return fmt.Errorf("archive entry %q escapes cache dir", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		}
	}
}

func writeFile(path string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// findBrowser walks dir for the first executable with a known browser name.
func findBrowser(dir string) string {
	var found string
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || found != "" || d.IsDir() {
			return nil
		}
		for _, name := range knownBrowsers {
			if d.Name() == name && isExecutable(path) {
				found = path
				return filepath.SkipAll
			}
		}
		return nil
	})
	return found
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
