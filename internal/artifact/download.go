package artifact

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"helm.sh/helm/v3/pkg/chartutil"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/getter"
	"helm.sh/helm/v3/pkg/repo"
)

const manifestFile = "manifest.yaml"

func (f *Fetcher) providers() getter.Providers {
	if f.Getters != nil {
		return f.Getters
	}
	return getter.All(cli.New())
}

// download fetches rawURL with Helm's getters. The getters are not context
// aware, so the transfer runs aside and is abandoned on cancellation; its
// result is discarded and nothing reaches the staging directory.
func (f *Fetcher) download(ctx context.Context, rawURL string) (*bytes.Buffer, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	g, err := f.providers().ByScheme(u.Scheme)
	if err != nil {
		return nil, fmt.Errorf("unsupported URL scheme %q: %w", u.Scheme, err)
	}

	opts := []getter.Option{}
	if deadline, ok := ctx.Deadline(); ok {
		opts = append(opts, getter.WithTimeout(time.Until(deadline)))
	}

	type result struct {
		buf *bytes.Buffer
		err error
	}
	done := make(chan result, 1)
	go func() {
		buf, err := g.Get(rawURL, opts...)
		done <- result{buf, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("failed to download %s: %w", rawURL, r.err)
		}
		return r.buf, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("download of %s aborted: %w", rawURL, ctx.Err())
	}
}

func (f *Fetcher) fetchChartArchive(ctx context.Context, chartURL, staging string) error {
	buf, err := f.download(ctx, chartURL)
	if err != nil {
		return err
	}
	if err := chartutil.Expand(staging, buf); err != nil {
		return fmt.Errorf("failed to extract chart from %s: %w", chartURL, err)
	}
	return nil
}

func (f *Fetcher) fetchFromRepository(ctx context.Context, s Source, staging string) error {
	type result struct {
		url string
		err error
	}
	done := make(chan result, 1)
	go func() {
		u, err := repo.FindChartInRepoURL(s.URL, s.Name, s.Version, "", "", "", f.providers())
		done <- result{u, err}
	}()

	var chartURL string
	select {
	case r := <-done:
		if r.err != nil {
			return fmt.Errorf("failed to find chart %s in repo %s: %w", s.Name, s.URL, r.err)
		}
		chartURL = r.url
	case <-ctx.Done():
		return fmt.Errorf("repository lookup aborted: %w", ctx.Err())
	}
	return f.fetchChartArchive(ctx, chartURL, staging)
}

func (f *Fetcher) fetchManifest(ctx context.Context, manifestURL, staging string) error {
	buf, err := f.download(ctx, manifestURL)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(staging, manifestFile), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to store manifest: %w", err)
	}
	return nil
}

// latestVersion reads the repository index and returns the newest version
// of the chart.
func (f *Fetcher) latestVersion(ctx context.Context, s Source) (string, error) {
	indexURL := strings.TrimSuffix(s.URL, "/") + "/index.yaml"
	buf, err := f.download(ctx, indexURL)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp("", "k8stack-index-*.yaml")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	idx, err := repo.LoadIndexFile(tmp.Name())
	if err != nil {
		return "", fmt.Errorf("failed to load index of %s: %w", s.URL, err)
	}
	cv, err := idx.Get(s.Name, "")
	if err != nil {
		return "", fmt.Errorf("chart %s not found in %s: %w", s.Name, s.URL, err)
	}
	return cv.Version, nil
}
