// Package download fetches the WebDriver binaries the UI tests drive the
// browsers with.
package download

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blang/semver"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/wanmail/spacegame-uitests/driver"
)

// File describes how to download a driver from the Web.
type File struct {
	url string
	// Name is the local name of the downloaded archive.
	Name    string
	Browser driver.Browser
	// Version is the driver version the archive contains, if known.
	Version  semver.Version
	hash     string
	hashType string // default is sha256
	// Rename moves Rename[0] to Rename[1], both relative to the download
	// directory, after the archive is extracted.
	Rename []string
}

// URL returns where the file is downloaded from.
func (f File) URL() string { return f.url }

// Downloader stores driver binaries in a directory.
type Downloader struct {
	// Directory receives the archives and the extracted binaries. The current
	// directory is used when it is empty.
	Directory string
	// Force downloads files even if an up to date binary is present.
	Force bool
	// Client is used for the downloads. http.DefaultClient is used when nil.
	Client *http.Client

	binaryVersion func(path string) (semver.Version, error)
	newCommand    func(name string, args ...string) *exec.Cmd
}

func (d *Downloader) dir() string {
	if d.Directory == "" {
		return "."
	}
	return d.Directory
}

func (d *Downloader) path(name string) string {
	return filepath.Join(d.dir(), name)
}

// BinaryPath returns where the driver in f ends up.
func (d *Downloader) BinaryPath(f File) string {
	return d.path(f.Browser.DriverBinary())
}

// Download fetches and extracts f unless the directory already holds a
// driver of the same version, and returns the path of the driver binary.
func (d *Downloader) Download(ctx context.Context, f File) (string, error) {
	bin := d.BinaryPath(f)
	if !d.Force && d.upToDate(f, bin) {
		glog.Infof("Skipping %q: %s is already at version %s.", f.Name, bin, f.Version)
		return bin, nil
	}

	if f.hash != "" && d.fileSameHash(f) {
		glog.Infof("Skipping file %q which has already been downloaded.", f.Name)
	} else {
		glog.Infof("Downloading %q from %q", f.Name, f.url)
		if err := d.downloadFile(ctx, f); err != nil {
			return "", err
		}
	}

	if err := d.unzipArchive(f); err != nil {
		return "", err
	}

	if rename := f.Rename; len(rename) == 2 {
		from, to := d.path(rename[0]), d.path(rename[1])
		glog.Infof("Renaming %q to %q", from, to)
		os.RemoveAll(to) // Ignore error.
		if err := os.Rename(from, to); err != nil {
			return "", errors.Wrapf(err, "renaming %q to %q", from, to)
		}
	}
	if err := os.Chmod(bin, 0755); err != nil {
		return "", errors.Wrapf(err, "%s: archive did not contain %s", f.Name, f.Browser.DriverBinary())
	}
	return bin, nil
}

// DownloadAll downloads files concurrently and returns the driver binary of
// each browser.
func (d *Downloader) DownloadAll(ctx context.Context, files []File) (map[driver.Browser]string, error) {
	var (
		mu   sync.Mutex
		bins = make(map[driver.Browser]string)
	)
	g, ctx := errgroup.WithContext(ctx)
	for _, f := range files {
		f := f
		g.Go(func() error {
			bin, err := d.Download(ctx, f)
			if err != nil {
				return errors.Wrapf(err, "error handling %s", f.Name)
			}
			mu.Lock()
			bins[f.Browser] = bin
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bins, nil
}

func (d *Downloader) upToDate(f File, bin string) bool {
	if f.Version.Equals(semver.Version{}) {
		return false
	}
	if _, err := os.Stat(bin); err != nil {
		return false
	}
	probe := d.binaryVersion
	if probe == nil {
		probe = driver.BinaryVersion
	}
	v, err := probe(bin)
	if err != nil {
		glog.Warningf("Unable to determine the version of %q: %v", bin, err)
		return false
	}
	return driver.SameBuild(v, f.Version)
}

func (d *Downloader) downloadFile(ctx context.Context, file File) (err error) {
	p := d.path(file.Name)
	f, err := os.Create(p)
	if err != nil {
		return errors.Wrapf(err, "error creating %q", p)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = errors.Wrapf(closeErr, "error closing %q", p)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.url, nil)
	if err != nil {
		return errors.Wrapf(err, "%s: bad URL %q", file.Name, file.url)
	}
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s: error downloading %q", file.Name, file.url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("%s: error downloading %q: %s", file.Name, file.url, resp.Status)
	}

	if file.hash == "" {
		if _, err := io.Copy(f, resp.Body); err != nil {
			return errors.Wrapf(err, "%s: error downloading %q", file.Name, file.url)
		}
		return nil
	}
	h := newHash(file.hashType)
	if _, err := io.Copy(io.MultiWriter(f, h), resp.Body); err != nil {
		return errors.Wrapf(err, "%s: error downloading %q", file.Name, file.url)
	}
	if sum := hex.EncodeToString(h.Sum(nil)); sum != file.hash {
		return errors.Errorf("%s: got %s hash %q, want %q", file.Name, hashName(file.hashType), sum, file.hash)
	}
	return nil
}

func newHash(hashType string) hash.Hash {
	if strings.ToLower(hashType) == "md5" {
		return md5.New()
	}
	return sha256.New()
}

func hashName(hashType string) string {
	if hashType == "" {
		return "sha256"
	}
	return hashType
}

func (d *Downloader) fileSameHash(file File) bool {
	f, err := os.Open(d.path(file.Name))
	if err != nil {
		return false
	}
	defer f.Close()

	h := newHash(file.hashType)
	if _, err := io.Copy(h, f); err != nil {
		return false
	}
	sum := hex.EncodeToString(h.Sum(nil))
	if sum != file.hash {
		glog.Warningf("File %q: got hash %q, expect hash %q", file.Name, sum, file.hash)
		return false
	}
	return true
}

func (d *Downloader) unzipArchive(file File) error {
	var unzipCmd []string
	p := d.path(file.Name)
	switch path.Ext(file.Name) {
	case ".zip":
		unzipCmd = []string{"unzip", "-d", d.dir(), "-o", p}
	case ".gz":
		unzipCmd = []string{"tar", "-xzf", p, "-C", d.dir()}
	default:
		return nil
	}

	newCommand := d.newCommand
	if newCommand == nil {
		newCommand = exec.Command
	}
	glog.Infof("Unzipping %q", p)
	if out, err := newCommand(unzipCmd[0], unzipCmd[1:]...).CombinedOutput(); err != nil {
		return errors.Wrapf(err, "error unzipping %q: %s", file.Name, out)
	}
	return nil
}
