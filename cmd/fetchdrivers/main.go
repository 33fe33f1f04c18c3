// Binary fetchdrivers downloads the latest stable chromedriver, geckodriver
// and msedgedriver and prints the environment bindings the UI tests read.
//
//	eval "$(go run ./cmd/fetchdrivers -dir=$HOME/drivers)"
//	SITE_URL=https://example.test go test .
package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/golang/glog"

	"github.com/wanmail/spacegame-uitests/driver"
	"github.com/wanmail/spacegame-uitests/internal/download"
)

var (
	dir      = flag.String("dir", ".", "Directory to store the drivers in.")
	browsers = flag.String("browsers", "Chrome,Firefox,Edge", "Comma-separated list of browsers to fetch drivers for.")
	force    = flag.Bool("force", false, "If true, download drivers even if an up to date one is present.")
)

func main() {
	flag.Parse()
	ctx := context.Background()

	var want []driver.Browser
	for _, name := range strings.Split(*browsers, ",") {
		b, err := driver.ParseBrowser(strings.TrimSpace(name))
		if err != nil {
			glog.Exitf("Invalid -browsers: %v", err)
		}
		want = append(want, b)
	}

	r := download.NewResolver()
	var files []download.File
	for _, b := range want {
		f, err := r.File(ctx, b)
		if err != nil {
			glog.Errorf("Unable to find the latest %s driver: %v", b, err)
			continue
		}
		glog.Infof("Latest %s driver is %s at %q", b, f.Version, f.URL())
		files = append(files, f)
	}

	d := &download.Downloader{Directory: *dir, Force: *force}
	bins, err := d.DownloadAll(ctx, files)
	if err != nil {
		glog.Exit(err)
	}
	for _, b := range want {
		if bin, ok := bins[b]; ok {
			fmt.Printf("export %s=%q\n", b.DriverEnv(), bin)
		}
	}
	if len(bins) != len(want) {
		glog.Exitf("Fetched %d of %d drivers", len(bins), len(want))
	}
}
