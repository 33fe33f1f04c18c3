package download

import (
	"context"
	"encoding/hex"
	"io"
	"net/http"
	"path"
	"regexp"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/blang/semver"
	"github.com/google/go-github/v27/github"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"google.golang.org/api/option"

	"github.com/wanmail/spacegame-uitests/driver"
)

// DefaultEdgeURL serves msedgedriver releases.
const DefaultEdgeURL = "https://msedgedriver.microsoft.com"

// Resolver finds the latest stable driver release of each browser. Only
// linux64 builds are resolved.
type Resolver struct {
	// HTTPClient is used for Edge and for the storage client.
	HTTPClient *http.Client
	// GitHub looks up geckodriver releases.
	GitHub *github.Client
	// EdgeURL is the base URL of the msedgedriver release server.
	EdgeURL string
	// StorageOptions are passed to storage.NewClient.
	StorageOptions []option.ClientOption
}

// NewResolver returns a Resolver for the public release locations.
func NewResolver() *Resolver {
	return &Resolver{
		HTTPClient: http.DefaultClient,
		GitHub:     github.NewClient(nil),
		EdgeURL:    DefaultEdgeURL,
	}
}

// File returns the latest driver release for b.
func (r *Resolver) File(ctx context.Context, b driver.Browser) (File, error) {
	switch b {
	case driver.Chrome:
		return r.ChromeDriverFile(ctx)
	case driver.Firefox:
		return r.GeckoDriverFile(ctx)
	case driver.Edge:
		return r.EdgeDriverFile(ctx)
	}
	return File{}, errors.Wrapf(driver.ErrUnknownBrowser, "%v", b)
}

// ChromeDriverFile describes the ChromeDriver of the current stable Chrome
// for Testing release.
func (r *Resolver) ChromeDriverFile(ctx context.Context) (File, error) {
	const (
		// Bucket URL: https://console.cloud.google.com/storage/browser/chrome-for-testing-public
		storageBktName = "chrome-for-testing-public"
		latestFile     = "LATEST_RELEASE_STABLE"
		platform       = "linux64"
	)

	gcsPath := "gs://" + storageBktName + "/"
	opts := append([]option.ClientOption{option.WithHTTPClient(r.httpClient())}, r.StorageOptions...)
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return File{}, errors.Wrap(err, "cannot create a storage client for downloading chromedriver")
	}
	defer client.Close()

	bkt := client.Bucket(storageBktName)
	rd, err := bkt.Object(latestFile).NewReader(ctx)
	if err != nil {
		return File{}, errors.Wrapf(err, "cannot create a reader for %s%s", gcsPath, latestFile)
	}
	defer rd.Close()
	data, err := io.ReadAll(rd)
	if err != nil {
		return File{}, errors.Wrapf(err, "cannot read from %s%s", gcsPath, latestFile)
	}

	build := strings.TrimSpace(string(data))
	pkg := path.Join(build, platform, "chromedriver-"+platform+".zip")
	attrs, err := bkt.Object(pkg).Attrs(ctx)
	if err != nil {
		return File{}, errors.Wrapf(err, "cannot get the chromedriver package %s%s attrs", gcsPath, pkg)
	}
	return chromeDriverFile(build, attrs)
}

func chromeDriverFile(build string, attrs *storage.ObjectAttrs) (File, error) {
	v, err := driver.ParseVersion(build)
	if err != nil {
		return File{}, errors.Wrapf(err, "Chrome for Testing build %q", build)
	}
	f := File{
		url:     attrs.MediaLink,
		Name:    "chromedriver.zip",
		Browser: driver.Chrome,
		Version: v,
		Rename:  []string{"chromedriver-linux64/" + driver.Chrome.DriverBinary(), driver.Chrome.DriverBinary()},
	}
	if len(attrs.MD5) > 0 {
		f.hash = hex.EncodeToString(attrs.MD5)
		f.hashType = "md5"
	}
	return f, nil
}

// geckoAsset matches the linux64 archive of a geckodriver release.
var geckoAsset = regexp.MustCompile(`^geckodriver-v[0-9.]+-linux64\.tar\.gz$`)

// GeckoDriverFile describes the geckodriver of the latest GitHub release.
func (r *Resolver) GeckoDriverFile(ctx context.Context) (File, error) {
	const owner, repo = "mozilla", "geckodriver"

	gh := r.GitHub
	if gh == nil {
		gh = github.NewClient(r.httpClient())
	}
	rel, _, err := gh.Repositories.GetLatestRelease(ctx, owner, repo)
	if err != nil {
		return File{}, errors.Wrapf(err, "looking up the latest %s/%s release", owner, repo)
	}
	v, err := semver.ParseTolerant(rel.GetTagName())
	if err != nil {
		return File{}, errors.Wrapf(err, "%s/%s release tag %q", owner, repo, rel.GetTagName())
	}
	for _, a := range rel.Assets {
		if !geckoAsset.MatchString(a.GetName()) {
			continue
		}
		u := a.GetBrowserDownloadURL()
		if u == "" {
			return File{}, errors.Errorf("%s does not have a download URL", a.GetName())
		}
		return File{
			url:     u,
			Name:    "geckodriver.tar.gz",
			Browser: driver.Firefox,
			Version: v,
		}, nil
	}
	return File{}, errors.Errorf("release for %s not found at https://github.com/%s/%s/releases", geckoAsset, owner, repo)
}

// EdgeDriverFile describes the msedgedriver of the current stable Edge.
func (r *Resolver) EdgeDriverFile(ctx context.Context) (File, error) {
	base := strings.TrimSuffix(r.EdgeURL, "/")
	if base == "" {
		base = DefaultEdgeURL
	}
	latest := base + "/LATEST_STABLE"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, latest, nil)
	if err != nil {
		return File{}, errors.Wrapf(err, "bad URL %q", latest)
	}
	resp, err := r.httpClient().Do(req)
	if err != nil {
		return File{}, errors.Wrapf(err, "fetching %q", latest)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return File{}, errors.Errorf("fetching %q: %s", latest, resp.Status)
	}

	// The file is UTF-16 with a byte order mark.
	data, err := io.ReadAll(transform.NewReader(resp.Body, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	if err != nil {
		return File{}, errors.Wrapf(err, "reading %q", latest)
	}
	build := strings.TrimSpace(string(data))
	v, err := driver.ParseVersion(build)
	if err != nil {
		return File{}, errors.Wrapf(err, "msedgedriver build %q", build)
	}
	return File{
		url:     base + "/" + build + "/edgedriver_linux64.zip",
		Name:    "edgedriver.zip",
		Browser: driver.Edge,
		Version: v,
	}, nil
}

func (r *Resolver) httpClient() *http.Client {
	if r.HTTPClient == nil {
		return http.DefaultClient
	}
	return r.HTTPClient
}
