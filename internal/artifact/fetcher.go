package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"helm.sh/helm/v3/pkg/getter"
)

// DefaultTimeout bounds a single fetch.
const DefaultTimeout = 5 * time.Minute

// Fetcher retrieves artifacts into the cache rooted at Root. A Fetcher is
// safe for concurrent use.
type Fetcher struct {
	Root string
	// Timeout bounds each fetch; zero means DefaultTimeout.
	Timeout time.Duration
	// Offline turns cache misses into errors instead of downloads.
	Offline bool
	// MaterializeManifests stores manifest sources locally instead of
	// referencing their URL.
	MaterializeManifests bool
	Log                  logr.Logger

	// Getters performs HTTP(S) transfers; defaults to Helm's providers.
	Getters getter.Providers

	locks keyedLock
}

// New returns a Fetcher rooted at root.
func New(root string, log logr.Logger) *Fetcher {
	return &Fetcher{Root: root, Log: log}
}

// Path returns the cache directory of s.
func (f *Fetcher) Path(s Source) string {
	return filepath.Join(f.Root, filepath.FromSlash(s.Key()))
}

// Fetch returns the local entry for s, downloading it at most once per key.
func (f *Fetcher) Fetch(ctx context.Context, s Source) (Entry, error) {
	if err := s.Validate(); err != nil {
		return Entry{}, &FetchError{Key: s.Key(), Cause: err}
	}
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var repin bool
	if s.Kind == KindHelmRepository && s.Version == "" {
		version, recorded, err := f.resolveLatest(ctx, s)
		if err != nil {
			recordFetch(s.Kind, ResultFailed, 0)
			return Entry{}, &FetchError{Key: s.Key(), Cause: err}
		}
		s.Version = version
		repin = !recorded
	}
	key := s.Key()
	log := f.logger().WithValues("key", key)

	if s.Kind == KindManifest && !f.MaterializeManifests {
		recordFetch(s.Kind, ResultReferenced, 0)
		return Entry{Source: s, Key: key}, nil
	}

	entry, err := f.fetchLocked(ctx, s, log)
	if err != nil {
		recordFetch(s.Kind, ResultFailed, 0)
		var fe *FetchError
		if errors.As(err, &fe) {
			return Entry{}, fe
		}
		return Entry{}, &FetchError{Key: key, Cause: err}
	}
	if repin {
		if err := f.pinLatest(s); err != nil {
			log.Error(err, "failed to record latest chart version")
		}
	}
	return entry, nil
}

// latestFile records, per repository chart, the version an unpinned source
// resolved to on its first fetch.
const latestFile = ".latest"

func (f *Fetcher) latestPath(s Source) string {
	return filepath.Join(f.Root, filepath.FromSlash(s.originKey()), latestFile)
}

// resolveLatest returns the version recorded for an unpinned repository
// chart when its artifact is still cached, and asks the repository index
// otherwise. recorded reports which of the two answered.
func (f *Fetcher) resolveLatest(ctx context.Context, s Source) (version string, recorded bool, err error) {
	if data, err := os.ReadFile(f.latestPath(s)); err == nil {
		pinned := s
		pinned.Version = strings.TrimSpace(string(data))
		if pinned.Version != "" && complete(f.Path(pinned)) {
			return pinned.Version, true, nil
		}
	}
	if f.Offline {
		return "", false, fmt.Errorf("chart %s has no cached version: %w", s.Name, ErrOffline)
	}
	version, err = f.latestVersion(ctx, s)
	return version, false, err
}

func (f *Fetcher) pinLatest(s Source) error {
	target := f.latestPath(s)
	tmp, err := os.CreateTemp(filepath.Dir(target), latestFile+"-")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.WriteString(s.Version + "\n"); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

func (f *Fetcher) fetchLocked(ctx context.Context, s Source, log logr.Logger) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	key := s.Key()
	dir := f.Path(s)

	release, err := f.locks.acquire(ctx, key)
	if err != nil {
		return Entry{}, err
	}
	defer release()

	unlock, err := lockFile(ctx, dir)
	if err != nil {
		return Entry{}, err
	}
	defer unlock()

	if complete(dir) {
		log.V(1).Info("artifact cache hit")
		recordFetch(s.Kind, ResultCached, 0)
		return f.entry(s, dir, true)
	}
	if f.Offline {
		return Entry{}, &FetchError{Key: key, Cause: ErrOffline}
	}

	// A directory without the marker is a leftover of an interrupted run.
	if _, err := os.Stat(dir); err == nil {
		log.Info("discarding incomplete artifact")
		if err := os.RemoveAll(dir); err != nil {
			return Entry{}, fmt.Errorf("failed to remove incomplete artifact: %w", err)
		}
	}

	staging, err := os.MkdirTemp(filepath.Dir(dir), ".staging-")
	if err != nil {
		return Entry{}, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(staging) }()

	start := time.Now()
	log.Info("fetching artifact", "url", s.URL)
	if err := f.retrieve(ctx, s, staging); err != nil {
		return Entry{}, err
	}
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	if err := os.WriteFile(filepath.Join(staging, MarkerFile), []byte(s.String()+"\n"), 0o644); err != nil {
		return Entry{}, fmt.Errorf("failed to write completion marker: %w", err)
	}
	if err := os.Rename(staging, dir); err != nil {
		return Entry{}, fmt.Errorf("failed to move artifact into place: %w", err)
	}
	recordFetch(s.Kind, ResultDownloaded, time.Since(start))
	log.V(1).Info("artifact fetched", "duration", time.Since(start).String())
	return f.entry(s, dir, false)
}

func (f *Fetcher) retrieve(ctx context.Context, s Source, staging string) error {
	switch s.Kind {
	case KindChartArchive:
		return f.fetchChartArchive(ctx, s.URL, staging)
	case KindHelmRepository:
		return f.fetchFromRepository(ctx, s, staging)
	case KindManifest:
		return f.fetchManifest(ctx, s.URL, staging)
	case KindGit:
		return cloneGit(ctx, s.URL, s.version(), staging)
	default:
		return fmt.Errorf("unknown source kind %q", s.Kind)
	}
}

func (f *Fetcher) entry(s Source, dir string, cached bool) (Entry, error) {
	e := Entry{Source: s, Key: s.Key(), Path: dir, Cached: cached}
	switch s.Kind {
	case KindChartArchive, KindHelmRepository:
		chartDir, err := findChartDir(dir)
		if err != nil {
			return Entry{}, err
		}
		e.ChartPath = chartDir
	case KindManifest:
		e.ManifestPath = filepath.Join(dir, manifestFile)
	}
	return e, nil
}

func (f *Fetcher) logger() logr.Logger {
	if f.Log.GetSink() == nil {
		return logr.Discard()
	}
	return f.Log
}

func complete(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, MarkerFile))
	return err == nil
}

// findChartDir returns the directory holding Chart.yaml directly under dir.
func findChartDir(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		candidate := filepath.Join(dir, e.Name())
		if _, err := os.Stat(filepath.Join(candidate, "Chart.yaml")); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no chart found in %s", dir)
}
