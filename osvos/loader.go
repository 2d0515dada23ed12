package osvos

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/sugarme/gotch/nn"
)

// WeightLoader fills a VarStore with pretrained weights.
type WeightLoader interface {
	Load(vs *nn.VarStore) error
	String() string
}

// FileLoader loads a gotch weight file (.ot). Every variable of the store
// must be present in the file.
type FileLoader struct {
	Path string
}

// Load implements WeightLoader.
func (l FileLoader) Load(vs *nn.VarStore) error {
	if _, err := os.Stat(l.Path); err != nil {
		return err
	}
	if err := vs.Load(l.Path); err != nil {
		return fmt.Errorf("loading %q: %w", l.Path, err)
	}
	return nil
}

func (l FileLoader) String() string {
	return l.Path
}

// DefaultDownloadTimeout bounds a URLLoader download.
const DefaultDownloadTimeout = 10 * time.Minute

// URLLoader downloads a weight file once into CacheDir and loads the
// cached copy.
type URLLoader struct {
	URL      string
	CacheDir string
	Timeout  time.Duration
	Client   *http.Client
}

// CachePath returns where the weight file is cached.
func (l URLLoader) CachePath() (string, error) {
	u, err := url.Parse(l.URL)
	if err != nil {
		return "", fmt.Errorf("parsing %q: %w", l.URL, err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		return "", fmt.Errorf("no file name in %q", l.URL)
	}
	return filepath.Join(l.CacheDir, name), nil
}

// Load implements WeightLoader.
func (l URLLoader) Load(vs *nn.VarStore) error {
	cached, err := l.CachePath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(cached); os.IsNotExist(err) {
		if err := l.download(cached); err != nil {
			return err
		}
	}
	return FileLoader{Path: cached}.Load(vs)
}

func (l URLLoader) String() string {
	return l.URL
}

func (l URLLoader) download(dst string) error {
	client := l.Client
	if client == nil {
		timeout := l.Timeout
		if timeout <= 0 {
			timeout = DefaultDownloadTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	resp, err := client.Get(l.URL)
	if err != nil {
		return fmt.Errorf("downloading %q: %w", l.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %q: %s", l.URL, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".*.part")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("downloading %q: %w", l.URL, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), dst)
}

// NewWeightLoader returns a URLLoader for http(s) sources and a
// FileLoader otherwise.
func NewWeightLoader(src, cacheDir string, timeout time.Duration) WeightLoader {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return URLLoader{URL: src, CacheDir: cacheDir, Timeout: timeout}
	}
	return FileLoader{Path: src}
}
