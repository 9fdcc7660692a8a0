package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/imamik/k8stack/internal/addons/helm"
	"github.com/imamik/k8stack/internal/graph"
	"github.com/imamik/k8stack/internal/secret"
	"github.com/imamik/k8stack/internal/util/retry"
)

type applyCall struct {
	namespace string
	manifest  string
}

// fakeClient records applies and serves readiness from a poll budget.
type fakeClient struct {
	mu         sync.Mutex
	calls      []applyCall
	flaky      map[string]int
	readyAfter map[graph.Object]int
	polls      map[graph.Object]int
	refreshes  int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		flaky:      map[string]int{},
		readyAfter: map[graph.Object]int{},
		polls:      map[graph.Object]int{},
	}
}

func (f *fakeClient) ApplyManifests(_ context.Context, manifests []byte, _, defaultNamespace string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for marker, left := range f.flaky {
		if left > 0 && strings.Contains(string(manifests), marker) {
			f.flaky[marker] = left - 1
			return 0, errors.New("connection refused")
		}
	}
	f.calls = append(f.calls, applyCall{namespace: defaultNamespace, manifest: string(manifests)})
	return len(helm.SplitDocuments(manifests)), nil
}

func (f *fakeClient) RefreshDiscovery(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return nil
}

func (f *fakeClient) ObjectReady(_ context.Context, obj graph.Object) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls[obj]++
	need, ok := f.readyAfter[obj]
	if !ok {
		return false, nil
	}
	return f.polls[obj] >= need, nil
}

func (f *fakeClient) appliedNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for _, c := range f.calls {
		for _, line := range strings.Split(c.manifest, "\n") {
			if strings.HasPrefix(line, "  name: ") {
				names = append(names, strings.TrimPrefix(line, "  name: "))
				break
			}
		}
	}
	return names
}

type fakeReleaser struct {
	released []string
}

func (r *fakeReleaser) Release(_ context.Context, n graph.Node, _ graph.ChartReleaseSpec) error {
	r.released = append(r.released, n.ID.Name)
	return nil
}

var fastRetry = []retry.Option{
	retry.WithMaxRetries(3),
	retry.WithInitialDelay(time.Millisecond),
	retry.WithMaxDelay(2 * time.Millisecond),
}

func mustBuild(b *graph.Builder) *graph.Graph {
	g, err := b.Build()
	Expect(err).NotTo(HaveOccurred())
	return g
}

func writeManifest(name, content string) string {
	path := filepath.Join(ginkgo.GinkgoT().TempDir(), name)
	Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
	return path
}

var _ = ginkgo.Describe("SSA engine", func() {
	var (
		ctx    context.Context
		client *fakeClient
		eng    *SSA
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		client = newFakeClient()
		eng = NewSSA(client, nil, Options{
			Retry:         fastRetry,
			ReadyInterval: time.Millisecond,
			ReadyTimeout:  50 * time.Millisecond,
			Log:           testLog,
		})
	})

	ginkgo.Context("with a healthy graph", func() {
		var g *graph.Graph

		ginkgo.BeforeEach(func() {
			b := graph.NewBuilder("demo")
			ns := b.Add("", "demo", graph.NamespaceSpec{})
			b.Add("demo", "creds", graph.SecretSpec{Data: map[string]secret.Value{"password": secret.New("hunter2")}}, ns)
			b.Add("demo", "settings", graph.ConfigMapSpec{Data: map[string]string{"mode": "prod"}}, ns)
			g = mustBuild(b)
		})

		ginkgo.It("applies every node after its dependencies", func() {
			report, err := eng.Apply(ctx, g)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Count(StatusApplied)).To(Equal(3))
			Expect(client.appliedNames()).To(Equal([]string{"demo", "creds", "settings"}))
		})

		ginkgo.It("applies secrets in plaintext into the node namespace", func() {
			_, err := eng.Apply(ctx, g)
			Expect(err).NotTo(HaveOccurred())
			Expect(client.calls[1].namespace).To(Equal("demo"))
			Expect(client.calls[1].manifest).To(ContainSubstring("hunter2"))
		})

		ginkgo.It("records object counts per node", func() {
			report, err := eng.Apply(ctx, g)
			Expect(err).NotTo(HaveOccurred())
			res, ok := report.Result(g.TopologicalOrder()[0])
			Expect(ok).To(BeTrue())
			Expect(res.Objects).To(Equal(1))
		})

		ginkgo.It("retries transient apply failures", func() {
			client.flaky["name: creds"] = 2
			report, err := eng.Apply(ctx, g)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Count(StatusApplied)).To(Equal(3))
		})

		ginkgo.It("stops when the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			report, err := eng.Apply(cctx, g)
			Expect(err).To(MatchError(context.Canceled))
			Expect(report.Results).To(BeEmpty())
		})
	})

	ginkgo.Context("when a node fails", func() {
		ginkgo.It("skips its dependents and keeps applying independent nodes", func() {
			b := graph.NewBuilder("pg")
			crds := b.Add("", "crds", graph.RawManifestSpec{Files: []string{filepath.Join(ginkgo.GinkgoT().TempDir(), "*.yaml")}})
			cluster := b.Add("db", "main", graph.CustomResourceSpec{APIVersion: "acid.zalan.do/v1", ResourceKind: "postgresql"}, crds)
			b.Add("db", "after-cluster", graph.ConfigMapSpec{}, cluster)
			b.Add("", "other", graph.NamespaceSpec{})
			g := mustBuild(b)

			report, err := eng.Apply(ctx, g)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("no manifest matches"))
			Expect(report.Count(StatusFailed)).To(Equal(1))
			Expect(report.Count(StatusSkipped)).To(Equal(2))
			Expect(report.Count(StatusApplied)).To(Equal(1))

			res, _ := report.Result(cluster)
			var skipped *SkippedError
			Expect(errors.As(res.Err, &skipped)).To(BeTrue())
			Expect(skipped.Dependency.ID).To(Equal(crds.ID))
			Expect(client.appliedNames()).To(Equal([]string{"other"}))
		})

		ginkgo.It("gives up on persistent apply failures", func() {
			b := graph.NewBuilder("web")
			b.Add("", "web", graph.NamespaceSpec{})
			client.flaky["name: web"] = 100

			report, err := eng.Apply(ctx, mustBuild(b))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("operation failed after 4 retries"))
			Expect(report.Count(StatusFailed)).To(Equal(1))
		})
	})

	ginkgo.Context("with a dependency on a rendered object", func() {
		var (
			g       *graph.Graph
			webhook graph.Object
		)

		ginkgo.BeforeEach(func() {
			b := graph.NewBuilder("tls")
			chartRef := b.Add("tls", "cert-manager", graph.ChartReleaseSpec{Chart: graph.ChartRef{Repository: "https://charts.jetstack.io", Name: "cert-manager"}})
			dep := chartRef.Sub("apps/v1/Deployment", "tls/cert-manager-webhook")
			webhook = dep.Obj
			b.Add("", "letsencrypt-prod", graph.CustomResourceSpec{APIVersion: "cert-manager.io/v1", ResourceKind: "ClusterIssuer", ClusterScoped: true}, dep)
			b.Add("", "letsencrypt-staging", graph.CustomResourceSpec{APIVersion: "cert-manager.io/v1", ResourceKind: "ClusterIssuer", ClusterScoped: true}, dep)
			g = mustBuild(b)
		})

		ginkgo.It("waits until the object is ready, once per run", func() {
			releaser := &fakeReleaser{}
			eng.opts.Releaser = releaser
			client.readyAfter[webhook] = 3

			report, err := eng.Apply(ctx, g)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Count(StatusApplied)).To(Equal(3))
			Expect(releaser.released).To(Equal([]string{"cert-manager"}))
			Expect(client.polls[webhook]).To(Equal(3))
			Expect(client.appliedNames()).To(Equal([]string{"letsencrypt-prod", "letsencrypt-staging"}))
		})

		ginkgo.It("fails dependents when the object never becomes ready", func() {
			eng.opts.Releaser = &fakeReleaser{}

			report, err := eng.Apply(ctx, g)
			Expect(err).To(MatchError(retry.ErrNotReady))
			Expect(report.Count(StatusFailed)).To(Equal(2))
			Expect(err.Error()).To(ContainSubstring("waiting for apps/v1/Deployment tls/cert-manager-webhook"))
		})
	})

	ginkgo.It("refreshes discovery after applying CRDs", func() {
		path := writeManifest("crds.yaml", "apiVersion: apiextensions.k8s.io/v1\nkind: CustomResourceDefinition\nmetadata:\n  name: widgets.example.com\n")
		b := graph.NewBuilder("widgets")
		crds := b.Add("", "crds", graph.RawManifestSpec{Files: []string{path}, DefaultNamespace: "widgets"})
		b.Add("widgets", "w", graph.CustomResourceSpec{APIVersion: "example.com/v1", ResourceKind: "Widget"}, crds)

		_, err := eng.Apply(ctx, mustBuild(b))
		Expect(err).NotTo(HaveOccurred())
		Expect(client.refreshes).To(Equal(1))
		Expect(client.calls[0].namespace).To(Equal("widgets"))
	})
})

var _ = ginkgo.Describe("Report", func() {
	ginkgo.It("joins node errors with their identity", func() {
		ref := graph.Ref{ID: graph.Identity{Component: "web", Kind: graph.KindNamespace, Name: "web"}}
		report := Report{Results: []NodeResult{
			{Ref: ref, Status: StatusFailed, Err: errors.New("boom")},
			{Ref: ref, Status: StatusSkipped, Err: &SkippedError{Dependency: ref}},
		}}
		Expect(report.Err()).To(MatchError("web:Namespace/web: boom"))
		Expect(Report{}.Err()).To(Succeed())
	})
})

var _ = ginkgo.Describe("definesCRDs", func() {
	ginkgo.DescribeTable("detects CustomResourceDefinition documents",
		func(manifest string, want bool) {
			Expect(definesCRDs([]byte(manifest))).To(Equal(want))
		},
		ginkgo.Entry("none", "apiVersion: v1\nkind: ConfigMap\n", false),
		ginkgo.Entry("second document", "kind: ConfigMap\n---\nkind: CustomResourceDefinition\n", true),
		ginkgo.Entry("empty", "", false),
	)
})
