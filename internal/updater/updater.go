// Package updater replaces the running blogzin binary with the latest GitHub
// release built for this platform.
package updater

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	DefaultReleasesURL = "https://api.github.com/repos/thinkscotty/blogzin/releases/latest"
	userAgent          = "blogzin-updater"
)

// ErrInProgress is returned when another install holds the lock.
var ErrInProgress = errors.New("an update is already in progress")

// Release describes a newer release and the asset to download for it.
type Release struct {
	TagName     string
	Version     string // TagName without the leading "v"
	PublishedAt string
	HTMLURL     string
	Notes       string
	AssetURL    string
	AssetName   string
	AssetSize   int64
}

type ghRelease struct {
	TagName     string    `json:"tag_name"`
	Body        string    `json:"body"`
	HTMLURL     string    `json:"html_url"`
	PublishedAt string    `json:"published_at"`
	Assets      []ghAsset `json:"assets"`
}

type ghAsset struct {
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// Updater talks to the GitHub releases API. The zero value is not usable;
// call New.
type Updater struct {
	releasesURL string
	assetName   string
	client      *http.Client
	mu          sync.Mutex
}

// New returns an Updater for releasesURL (DefaultReleasesURL when empty)
// that looks for assets named blogzin-<goos>-<goarch>.
func New(releasesURL string) *Updater {
	if releasesURL == "" {
		releasesURL = DefaultReleasesURL
	}
	return &Updater{
		releasesURL: releasesURL,
		assetName:   AssetName(runtime.GOOS, runtime.GOARCH),
		client:      &http.Client{Timeout: 5 * time.Minute},
	}
}

// AssetName is the release asset expected for a platform.
func AssetName(goos, goarch string) string {
	name := fmt.Sprintf("blogzin-%s-%s", goos, goarch)
	if goos == "windows" {
		name += ".exe"
	}
	return name
}

// Check returns the latest release when it is newer than current, or nil
// when current is already up to date.
func (u *Updater) Check(ctx context.Context, current string) (*Release, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.releasesURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query releases: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("releases API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var release ghRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("decode release: %w", err)
	}

	latest := strings.TrimPrefix(release.TagName, "v")
	if !isNewer(current, latest) {
		return nil, nil
	}

	asset, ok := findAsset(release.Assets, u.assetName)
	if !ok {
		return nil, fmt.Errorf("release %s has no asset %s", release.TagName, u.assetName)
	}

	return &Release{
		TagName:     release.TagName,
		Version:     latest,
		PublishedAt: release.PublishedAt,
		HTMLURL:     release.HTMLURL,
		Notes:       release.Body,
		AssetURL:    asset.BrowserDownloadURL,
		AssetName:   asset.Name,
		AssetSize:   asset.Size,
	}, nil
}

// Install downloads rel next to target and renames it over target. The
// rename keeps the swap atomic on the same filesystem.
func (u *Updater) Install(ctx context.Context, rel *Release, target string) (int64, error) {
	if !u.mu.TryLock() {
		return 0, ErrInProgress
	}
	defer u.mu.Unlock()

	tmpPath := target + ".update.tmp"
	os.Remove(tmpPath)

	slog.Info("Downloading update", "url", rel.AssetURL, "target", target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rel.AssetURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create download request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := u.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	written, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("write download: %w", err)
	}

	if rel.AssetSize > 0 && written != rel.AssetSize {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("download size mismatch: expected %d bytes, got %d", rel.AssetSize, written)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("replace binary: %w", err)
	}

	slog.Info("Binary replaced", "path", target, "bytes", written)
	return written, nil
}

// Executable returns the resolved path of the running binary.
func Executable() (string, error) {
	path, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("find executable: %w", err)
	}
	path, err = filepath.EvalSymlinks(path)
	if err != nil {
		return "", fmt.Errorf("resolve symlinks: %w", err)
	}
	return path, nil
}

func findAsset(assets []ghAsset, name string) (ghAsset, bool) {
	for _, a := range assets {
		if a.Name == name {
			return a, true
		}
	}
	return ghAsset{}, false
}

// isNewer reports whether latest is newer than current. Builds that are not
// a plain release (dev, commit hashes) always update.
func isNewer(current, latest string) bool {
	current = strings.TrimPrefix(current, "v")
	latest = strings.TrimPrefix(latest, "v")

	current = strings.TrimSuffix(current, "-dirty")
	// git describe: "0.8.2-3-gabcdef1"
	if idx := strings.Index(current, "-"); idx > 0 {
		current = current[:idx]
	}

	if !isSemver(current) {
		return true
	}

	cur, lat := parseSemver(current), parseSemver(latest)
	for i := range 3 {
		if lat[i] != cur[i] {
			return lat[i] > cur[i]
		}
	}
	return false
}

func isSemver(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return false
	}
	for _, p := range parts {
		if _, err := strconv.Atoi(p); err != nil {
			return false
		}
	}
	return true
}

func parseSemver(s string) [3]int {
	var result [3]int
	parts := strings.Split(s, ".")
	for i := 0; i < len(parts) && i < 3; i++ {
		result[i], _ = strconv.Atoi(parts[i])
	}
	return result
}
