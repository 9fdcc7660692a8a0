package artifact

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chartutil"
)

// chartArchive packages a minimal chart and returns the .tgz bytes.
func chartArchive(t *testing.T, name, version string) []byte {
	t.Helper()
	c := &chart.Chart{
		Metadata: &chart.Metadata{APIVersion: chart.APIVersionV2, Name: name, Version: version},
		Templates: []*chart.File{{
			Name: "templates/cm.yaml",
			Data: []byte("apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: {{ .Release.Name }}\n"),
		}},
	}
	path, err := chartutil.Save(c, t.TempDir())
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

type countingServer struct {
	*httptest.Server
	hits atomic.Int32
}

func newServer(t *testing.T, routes map[string][]byte) *countingServer {
	t.Helper()
	cs := &countingServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.hits.Add(1)
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(cs.Close)
	return cs
}

func TestFetch_ChartArchiveIdempotent(t *testing.T) {
	t.Parallel()
	srv := newServer(t, map[string][]byte{"/demo-1.0.0.tgz": chartArchive(t, "demo", "1.0.0")})
	f := New(t.TempDir(), testLogger(t))
	src := Source{Kind: KindChartArchive, URL: srv.URL + "/demo-1.0.0.tgz", Name: "demo", Version: "1.0.0"}

	first, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.FileExists(t, filepath.Join(first.ChartPath, "Chart.yaml"))
	assert.FileExists(t, filepath.Join(first.Path, MarkerFile))

	second, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Path, second.Path)
	assert.Equal(t, first.ChartPath, second.ChartPath)
	assert.Equal(t, int32(1), srv.hits.Load())
}

func TestFetch_ConcurrentSameKeySingleTransfer(t *testing.T) {
	t.Parallel()
	srv := newServer(t, map[string][]byte{"/demo.tgz": chartArchive(t, "demo", "1.0.0")})
	root := t.TempDir()
	src := Source{Kind: KindChartArchive, URL: srv.URL + "/demo.tgz", Name: "demo", Version: "1.0.0"}

	// two fetchers over one root behave like two processes sharing a cache
	fetchers := []*Fetcher{New(root, testLogger(t)), New(root, testLogger(t))}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fetchers[i%2].Fetch(context.Background(), src)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), srv.hits.Load())
}

func TestFetch_DistinctVersionsDistinctPaths(t *testing.T) {
	t.Parallel()
	srv := newServer(t, map[string][]byte{
		"/demo-1.0.0.tgz": chartArchive(t, "demo", "1.0.0"),
		"/demo-2.0.0.tgz": chartArchive(t, "demo", "2.0.0"),
	})
	f := New(t.TempDir(), testLogger(t))

	v1, err := f.Fetch(context.Background(), Source{Kind: KindChartArchive, URL: srv.URL + "/demo-1.0.0.tgz", Name: "demo", Version: "1.0.0"})
	require.NoError(t, err)
	v2, err := f.Fetch(context.Background(), Source{Kind: KindChartArchive, URL: srv.URL + "/demo-2.0.0.tgz", Name: "demo", Version: "2.0.0"})
	require.NoError(t, err)

	assert.NotEqual(t, v1.Path, v2.Path)
	assert.Equal(t, filepath.Dir(v1.Path), filepath.Dir(v2.Path))
	assert.Equal(t, "1.0.0", filepath.Base(v1.Path))
	assert.Equal(t, "2.0.0", filepath.Base(v2.Path))
	assert.Equal(t, int32(2), srv.hits.Load())
}

func TestFetch_SameNameDistinctOrigins(t *testing.T) {
	t.Parallel()
	alpha := newServer(t, map[string][]byte{"/chart.tgz": chartArchive(t, "alpha", "1.0.0")})
	beta := newServer(t, map[string][]byte{"/chart.tgz": chartArchive(t, "beta", "1.0.0")})
	f := New(t.TempDir(), testLogger(t))

	a, err := f.Fetch(context.Background(), Source{Kind: KindChartArchive, URL: alpha.URL + "/chart.tgz", Version: "1.0.0"})
	require.NoError(t, err)
	b, err := f.Fetch(context.Background(), Source{Kind: KindChartArchive, URL: beta.URL + "/chart.tgz", Version: "1.0.0"})
	require.NoError(t, err)

	assert.NotEqual(t, a.Path, b.Path)
	assert.False(t, b.Cached)
	assert.Equal(t, int32(1), alpha.hits.Load())
	assert.Equal(t, int32(1), beta.hits.Load())

	meta, err := os.ReadFile(filepath.Join(b.ChartPath, "Chart.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(meta), "name: beta")
}

func TestFetch_IncompleteEntryReplaced(t *testing.T) {
	t.Parallel()
	srv := newServer(t, map[string][]byte{"/demo.tgz": chartArchive(t, "demo", "1.0.0")})
	f := New(t.TempDir(), testLogger(t))
	src := Source{Kind: KindChartArchive, URL: srv.URL + "/demo.tgz", Name: "demo", Version: "1.0.0"}

	stale := f.Path(src)
	require.NoError(t, os.MkdirAll(filepath.Join(stale, "half"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(stale, "half", "junk"), []byte("x"), 0o644))

	entry, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.False(t, entry.Cached)
	assert.NoDirExists(t, filepath.Join(stale, "half"))
	assert.FileExists(t, filepath.Join(stale, MarkerFile))
	assert.Equal(t, int32(1), srv.hits.Load())
}

func TestFetch_Offline(t *testing.T) {
	t.Parallel()
	srv := newServer(t, map[string][]byte{"/demo.tgz": chartArchive(t, "demo", "1.0.0")})
	root := t.TempDir()
	src := Source{Kind: KindChartArchive, URL: srv.URL + "/demo.tgz", Name: "demo", Version: "1.0.0"}

	offline := New(root, testLogger(t))
	offline.Offline = true
	_, err := offline.Fetch(context.Background(), src)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, err, ErrOffline)
	assert.Equal(t, src.Key(), fe.Key)
	assert.Equal(t, int32(0), srv.hits.Load())

	_, err = New(root, testLogger(t)).Fetch(context.Background(), src)
	require.NoError(t, err)

	entry, err := offline.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, entry.Cached)
	assert.Equal(t, int32(1), srv.hits.Load())
}

func TestFetch_HTTPErrorNotCached(t *testing.T) {
	t.Parallel()
	srv := newServer(t, map[string][]byte{})
	f := New(t.TempDir(), testLogger(t))
	src := Source{Kind: KindChartArchive, URL: srv.URL + "/missing.tgz", Name: "missing", Version: "1.0.0"}

	_, err := f.Fetch(context.Background(), src)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.NoDirExists(t, f.Path(src))

	_, err = f.Fetch(context.Background(), src)
	require.Error(t, err)
	assert.Equal(t, int32(2), srv.hits.Load(), "failures are not cached")
}

func TestFetch_NotAChart(t *testing.T) {
	t.Parallel()
	srv := newServer(t, map[string][]byte{"/bad.tgz": []byte("not a tarball")})
	f := New(t.TempDir(), testLogger(t))
	src := Source{Kind: KindChartArchive, URL: srv.URL + "/bad.tgz", Name: "bad", Version: "1.0.0"}

	_, err := f.Fetch(context.Background(), src)
	require.Error(t, err)
	assert.NoDirExists(t, f.Path(src))
}

func TestFetch_Timeout(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		_, _ = w.Write([]byte("late"))
	}))
	t.Cleanup(srv.Close)

	f := New(t.TempDir(), testLogger(t))
	f.Timeout = 50 * time.Millisecond
	src := Source{Kind: KindManifest, URL: srv.URL + "/slow.yaml", Name: "slow", Version: "v1"}
	f.MaterializeManifests = true

	start := time.Now()
	_, err := f.Fetch(context.Background(), src)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
	assert.False(t, complete(f.Path(src)))
}

func TestFetch_Cancelled(t *testing.T) {
	t.Parallel()
	f := New(t.TempDir(), testLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := Source{Kind: KindChartArchive, URL: "http://127.0.0.1:1/demo.tgz", Name: "demo", Version: "1.0.0"}
	_, err := f.Fetch(ctx, src)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFetch_Manifest(t *testing.T) {
	t.Parallel()
	body := []byte("apiVersion: v1\nkind: Namespace\nmetadata:\n  name: metallb-system\n")
	srv := newServer(t, map[string][]byte{"/metallb.yaml": body})
	src := Source{Kind: KindManifest, URL: srv.URL + "/metallb.yaml", Name: "metallb", Version: "v0.9.3"}

	referenced, err := New(t.TempDir(), testLogger(t)).Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, src.URL, referenced.ManifestLocation())
	assert.Empty(t, referenced.Path)
	assert.Equal(t, int32(0), srv.hits.Load())

	f := New(t.TempDir(), testLogger(t))
	f.MaterializeManifests = true
	local, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.Path(src), "manifest.yaml"), local.ManifestLocation())
	data, err := os.ReadFile(local.ManifestLocation())
	require.NoError(t, err)
	assert.Equal(t, body, data)
}

func TestFetch_GitCloneFailure(t *testing.T) {
	t.Parallel()
	f := New(t.TempDir(), testLogger(t))
	src := Source{Kind: KindGit, URL: filepath.Join(t.TempDir(), "does-not-exist"), Name: "proxy", Version: "main"}

	_, err := f.Fetch(context.Background(), src)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, err.Error(), "failed to clone")
	assert.False(t, complete(f.Path(src)))
}

func TestFetch_RepositoryLatestVersion(t *testing.T) {
	t.Parallel()
	index := []byte(`apiVersion: v1
entries:
  demo:
  - name: demo
    version: 1.2.0
    urls:
    - charts/demo-1.2.0.tgz
  - name: demo
    version: 1.1.0
    urls:
    - charts/demo-1.1.0.tgz
`)
	srv := newServer(t, map[string][]byte{
		"/index.yaml":            index,
		"/charts/demo-1.2.0.tgz": chartArchive(t, "demo", "1.2.0"),
	})

	f := New(t.TempDir(), testLogger(t))
	src := Source{Kind: KindHelmRepository, URL: srv.URL, Name: "demo"}
	entry, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", entry.Source.Version)
	assert.True(t, strings.HasPrefix(entry.Key, "helm-repository/demo-"), entry.Key)
	assert.True(t, strings.HasSuffix(entry.Key, "/1.2.0"), entry.Key)
	assert.FileExists(t, filepath.Join(entry.ChartPath, "Chart.yaml"))
	hits := srv.hits.Load()

	again, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, entry.Path, again.Path)
	assert.Equal(t, hits, srv.hits.Load())

	f.Offline = true
	offline, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", offline.Source.Version)
	assert.Equal(t, hits, srv.hits.Load())
}

func TestFetch_RepositoryLatestOfflineWithoutCache(t *testing.T) {
	t.Parallel()
	f := New(t.TempDir(), testLogger(t))
	f.Offline = true
	_, err := f.Fetch(context.Background(), Source{Kind: KindHelmRepository, URL: "https://charts.example.com", Name: "demo"})
	require.ErrorIs(t, err, ErrOffline)
}

func TestSource_Validate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		src     Source
		wantErr string
	}{
		{"valid archive", Source{Kind: KindChartArchive, URL: "https://x/velero-2.12.0.tgz", Version: "2.12.0"}, ""},
		{"v-prefixed semver", Source{Kind: KindHelmRepository, URL: "https://charts.jetstack.io", Name: "cert-manager", Version: "v1.0.1"}, ""},
		{"non semver chart", Source{Kind: KindChartArchive, URL: "https://x/a.tgz", Version: "latest"}, "invalid chart version"},
		{"repo latest", Source{Kind: KindHelmRepository, URL: "https://x", Name: "redis"}, ""},
		{"repo without name", Source{Kind: KindHelmRepository, URL: "https://x", Version: "1.0.0"}, "chart name is required"},
		{"manifest without version", Source{Kind: KindManifest, URL: "https://x/m.yaml"}, "manifest version is required"},
		{"git free-form ref", Source{Kind: KindGit, URL: "https://github.com/a/b.git", Version: "feature/x"}, ""},
		{"missing url", Source{Kind: KindGit}, "URL is required"},
		{"unknown kind", Source{Kind: "oci", URL: "oci://x", Version: "1"}, "unknown source kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.src.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSource_Key(t *testing.T) {
	t.Parallel()
	tests := []struct {
		src  Source
		want string
	}{
		{Source{Kind: KindChartArchive, URL: "https://x/velero-2.12.0.tgz", Version: "2.12.0"}, "chart-archive/velero-2.12.0-*/2.12.0"},
		{Source{Kind: KindGit, URL: "https://github.com/vitobotta/redis-cluster-proxy-helm.git"}, "git/redis-cluster-proxy-helm-*/HEAD"},
		{Source{Kind: KindGit, URL: "https://x/r.git", Name: "r", Version: "feature/x"}, "git/r-*/feature_x"},
		{Source{Kind: KindManifest, URL: "https://x/y", Name: "../etc", Version: ".."}, "manifest/.._etc-*/__"},
	}
	for _, tt := range tests {
		ok, err := path.Match(tt.want, tt.src.Key())
		require.NoError(t, err)
		assert.True(t, ok, "%s does not match %s", tt.src.Key(), tt.want)
	}
}

func TestSource_KeyOrigin(t *testing.T) {
	t.Parallel()
	a := Source{Kind: KindChartArchive, URL: "https://a.example.com/chart.tgz", Version: "1.0.0"}
	b := Source{Kind: KindChartArchive, URL: "https://b.example.com/chart.tgz", Version: "1.0.0"}
	assert.NotEqual(t, a.Key(), b.Key())

	slash := a
	slash.URL += "/"
	assert.Equal(t, a.Key(), slash.Key())

	redis := Source{Kind: KindHelmRepository, URL: "https://charts.example.com", Name: "redis", Version: "1.0.0"}
	memcached := redis
	memcached.Name = "memcached"
	assert.NotEqual(t, path.Dir(redis.Key()), path.Dir(memcached.Key()))
}
