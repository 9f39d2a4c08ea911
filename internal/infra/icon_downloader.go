package infra

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

const (
	// IconWidth is the display width of a flag; height follows the aspect ratio
	IconWidth = 32
)

// IconDownloader handles downloading and caching currency flag icons
type IconDownloader struct {
	basePath string
	baseURL  string
	client   *http.Client
}

// NewIconDownloader creates a new IconDownloader. An empty path resolves to
// the per-user config directory.
func NewIconDownloader(path, baseURL string) (*IconDownloader, error) {
	if path == "" {
		resolved, err := getAssetsPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve assets path: %w", err)
		}
		path = resolved
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create assets directory: %w", err)
	}

	// Optimize HTTP Transport to prevent connection leaks
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxConnsPerHost = 10
	transport.IdleConnTimeout = 30 * time.Second

	return &IconDownloader{
		basePath: path,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}, nil
}

// Dir returns the directory icons are cached in
func (d *IconDownloader) Dir() string {
	return d.basePath
}

// DownloadIcon downloads the flag for a region code if it doesn't exist yet.
// Returns the local file path on success.
// Images are resized to IconWidth pixels wide for consistent UI display.
func (d *IconDownloader) DownloadIcon(ctx context.Context, region string) (string, error) {
	// Security: Sanitize to prevent path traversal
	safe := sanitizeSymbol(region)
	if safe == "" {
		return "", fmt.Errorf("invalid region: %s", region)
	}

	filePath := d.GetIconPath(safe)

	// Check if exists
	if _, err := os.Stat(filePath); err == nil {
		return filePath, nil // Already exists (Cache Hit)
	}

	url := fmt.Sprintf("%s/%s.png", d.baseURL, strings.ToLower(safe))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	srcImg, err := imaging.Decode(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	// Keep the flag's aspect ratio (height 0)
	resizedImg := imaging.Resize(srcImg, IconWidth, 0, imaging.Lanczos)

	if err := imaging.Save(resizedImg, filePath); err != nil {
		return "", fmt.Errorf("failed to save resized image: %w", err)
	}

	return filePath, nil
}

// GetIconPath returns the local path for a region's icon
func (d *IconDownloader) GetIconPath(region string) string {
	return filepath.Join(d.basePath, strings.ToLower(sanitizeSymbol(region))+".png")
}

func getAssetsPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "XOFConverter", "assets", "flags"), nil
}

func sanitizeSymbol(symbol string) string {
	res := make([]rune, 0, len(symbol))
	for _, r := range symbol {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			res = append(res, r)
		}
	}
	return string(res)
}
