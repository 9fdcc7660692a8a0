package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Kind is the type of a remote artifact.
type Kind string

const (
	// KindChartArchive is a chart .tgz served over HTTP(S).
	KindChartArchive Kind = "chart-archive"
	// KindHelmRepository is a chart looked up in a Helm repository index.
	KindHelmRepository Kind = "helm-repository"
	// KindManifest is a raw multi-document YAML URL.
	KindManifest Kind = "manifest"
	// KindGit is a git repository checked out at a ref.
	KindGit Kind = "git"
)

// MarkerFile proves a cache entry was extracted completely.
const MarkerFile = ".k8stack-complete"

// Source describes one remote artifact.
type Source struct {
	Kind Kind
	URL  string
	// Name is the chart name for KindHelmRepository; for other kinds it
	// only names the cache directory and defaults to the URL's base name.
	Name string
	// Version is a semantic version for charts, a ref for git sources and
	// a free-form label for manifests. Repository charts without a version
	// resolve to the latest chart in the index.
	Version string
}

func (s Source) String() string {
	return fmt.Sprintf("%s %s@%s (%s)", s.Kind, s.name(), s.Version, s.URL)
}

func (s Source) name() string {
	if s.Name != "" {
		return s.Name
	}
	base := path.Base(strings.TrimSuffix(s.URL, "/"))
	for _, ext := range []string{".tgz", ".tar.gz", ".git", ".yaml", ".yml"} {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// Key is the cache-relative path of the source:
// <kind>/<name>-<origin hash>/<version>. The origin hash keeps sources with
// the same base name apart when they come from different places.
func (s Source) Key() string {
	return path.Join(s.originKey(), sanitize(s.version()))
}

// originKey is the cache-relative directory shared by all versions of s.
func (s Source) originKey() string {
	return path.Join(string(s.Kind), sanitize(s.name())+"-"+s.originHash())
}

func (s Source) originHash() string {
	origin := strings.TrimSuffix(s.URL, "/")
	if s.Kind == KindHelmRepository {
		origin += "#" + s.Name
	}
	sum := sha256.Sum256([]byte(origin))
	return hex.EncodeToString(sum[:])[:12]
}

func (s Source) version() string {
	if s.Version == "" && s.Kind == KindGit {
		return "HEAD"
	}
	return s.Version
}

// Validate checks the source is complete and chart versions are semver.
func (s Source) Validate() error {
	if s.URL == "" {
		return errors.New("source URL is required")
	}
	switch s.Kind {
	case KindChartArchive, KindHelmRepository:
		if s.Kind == KindHelmRepository && s.Name == "" {
			return errors.New("chart name is required for helm repository sources")
		}
		if s.Kind == KindHelmRepository && s.Version == "" {
			// latest chart, pinned by the fetcher on first use
			break
		}
		if _, err := semver.NewVersion(s.Version); err != nil {
			return fmt.Errorf("invalid chart version %q: %w", s.Version, err)
		}
	case KindManifest:
		if s.Version == "" {
			return errors.New("manifest version is required")
		}
	case KindGit:
	default:
		return fmt.Errorf("unknown source kind %q", s.Kind)
	}
	if s.name() == "" || s.name() == "." {
		return errors.New("cannot derive a name from the source URL")
	}
	return nil
}

// sanitize maps a name onto a single safe path segment.
func sanitize(s string) string {
	out := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_' || r == '+':
			return r
		default:
			return '_'
		}
	}, s)
	if out == "." || out == ".." {
		out = strings.Repeat("_", len(out))
	}
	return out
}

// Entry is a fetched artifact.
type Entry struct {
	Source Source
	Key    string
	// Path is the cache directory; empty for manifests referenced by URL.
	Path string
	// ChartPath is the extracted chart directory for chart sources.
	ChartPath string
	// ManifestPath is the local manifest file when manifests are
	// materialized.
	ManifestPath string
	// Cached is true when no network access was needed.
	Cached bool
}

// ManifestLocation returns the local manifest file, or the source URL when
// the manifest is referenced directly.
func (e Entry) ManifestLocation() string {
	if e.ManifestPath != "" {
		return e.ManifestPath
	}
	return e.Source.URL
}

// File returns a path inside the entry.
func (e Entry) File(rel ...string) string {
	return filepath.Join(append([]string{e.Path}, rel...)...)
}

// FetchError is returned for any failure to obtain an artifact. Fetches
// are never retried.
type FetchError struct {
	Component string
	Key       string
	Cause     error
}

func (e *FetchError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("component %q: fetch %s: %v", e.Component, e.Key, e.Cause)
	}
	return fmt.Sprintf("fetch %s: %v", e.Key, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// ErrOffline is the cause of a FetchError for cache misses in offline mode.
var ErrOffline = errors.New("artifact not cached and offline mode is enabled")
