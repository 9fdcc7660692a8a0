package resolve

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/imamik/k8stack/internal/secret"
	"github.com/imamik/k8stack/internal/util/ptr"
)

func TestResolve_Precedence(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		chain    Chain[string]
		want     string
		wantTier Tier
	}{
		{"explicit wins", Chain[string]{Explicit: ptr.To("e"), Stored: ptr.To("s"), Secret: ptr.To("x"), Default: ptr.To("d")}, "e", TierExplicit},
		{"stored before secret", Chain[string]{Stored: ptr.To("s"), Secret: ptr.To("x"), Default: ptr.To("d")}, "s", TierStored},
		{"secret before default", Chain[string]{Secret: ptr.To("x"), Default: ptr.To("d")}, "x", TierSecret},
		{"default last", Chain[string]{Default: ptr.To("d")}, "d", TierDefault},
		{"explicit empty string wins", Chain[string]{Explicit: ptr.To(""), Default: ptr.To("d")}, "", TierExplicit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := Resolve("c", "k", tt.chain, false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Value)
			assert.Equal(t, tt.wantTier, res.Tier)
		})
	}
}

func TestResolve_FalsyExplicitValues(t *testing.T) {
	t.Parallel()

	b, err := Resolve("c", "enabled", Chain[bool]{Explicit: ptr.To(false), Default: ptr.To(true)}, false)
	require.NoError(t, err)
	assert.False(t, b.Value)
	assert.Equal(t, TierExplicit, b.Tier)

	n, err := Resolve("c", "replicas", Chain[int]{Explicit: ptr.To(0), Default: ptr.To(3)}, false)
	require.NoError(t, err)
	assert.Equal(t, 0, n.Value)
}

func TestResolve_MissingRequired(t *testing.T) {
	t.Parallel()
	_, err := Resolve[string]("velero", "s3Bucket", Chain[string]{}, true)
	require.Error(t, err)

	var missing *MissingConfigurationError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "velero", missing.Component)
	assert.Equal(t, "s3Bucket", missing.Setting)
	assert.Contains(t, err.Error(), "s3Bucket")

	res, err := Resolve[string]("velero", "s3Bucket", Chain[string]{}, false)
	require.NoError(t, err)
	assert.False(t, res.Present())
}

func TestResolve_Deterministic(t *testing.T) {
	t.Parallel()
	chain := Chain[int]{Stored: ptr.To(7), Default: ptr.To(1)}
	first, err := Resolve("c", "k", chain, true)
	require.NoError(t, err)
	for range 10 {
		again, err := Resolve("c", "k", chain, true)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestResolver_Tiers(t *testing.T) {
	t.Parallel()
	stored := MapStore{
		"nginx-ingress": {
			"replicaCount": 2,
			"nodePortHTTP": "31080",
			"serviceType":  "NodePort",
		},
	}
	secrets := secret.MapStore{}
	secrets.Set("nginx-ingress", "token", "from-store")

	r := New("nginx-ingress", stored, secrets)

	replicas, err := Get(r, "replicaCount", nil, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, replicas)

	port, err := Get(r, "nodePortHTTP", nil, 30080)
	require.NoError(t, err)
	assert.Equal(t, 31080, port)

	svc, err := Get(r, "serviceType", ptr.To("ClusterIP"), "LoadBalancer")
	require.NoError(t, err)
	assert.Equal(t, "ClusterIP", svc)

	ns, err := Get(r, "namespace", nil, "nginx-ingress")
	require.NoError(t, err)
	assert.Equal(t, "nginx-ingress", ns)

	tok, err := RequireSecret(r, "token", nil)
	require.NoError(t, err)
	assert.Equal(t, "from-store", tok.Reveal())

	missing, err := Optional[string](r, "loadBalancerIP", nil)
	require.NoError(t, err)
	assert.Nil(t, missing)

	records := r.Records()
	require.Len(t, records, 5)
	assert.Equal(t, "replicaCount", records[0].Key)
	assert.Equal(t, TierStored, records[0].Tier)
	assert.Equal(t, TierExplicit, records[2].Tier)
	assert.Equal(t, TierDefault, records[3].Tier)
	assert.Equal(t, TierSecret, records[4].Tier)
	assert.True(t, records[4].Sensitive)
}

func TestResolver_RequireFailsClosed(t *testing.T) {
	t.Parallel()
	r := New("cert-manager", MapStore{}, secret.MapStore{})

	_, err := Require[string](r, "email", nil)
	var missing *MissingConfigurationError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "email", missing.Setting)

	_, err = RequireSecret(r, "cloudflareAPIKey", nil)
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "cloudflareAPIKey", missing.Setting)
	assert.Empty(t, r.Records())
}

func TestResolver_BadStoredValue(t *testing.T) {
	t.Parallel()
	r := New("redis", MapStore{"redis": {"replicas": "many"}}, nil)
	_, err := Get(r, "replicas", nil, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replicas")
}

func TestResolver_RecordsRedactSecrets(t *testing.T) {
	t.Parallel()
	r := New("velero", nil, nil)
	_, err := RequireSecret(r, "awsSecretAccessKey", secret.Ptr("plaintext"))
	require.NoError(t, err)

	out, err := yaml.Marshal(r.Records())
	require.NoError(t, err)
	assert.NotContains(t, string(out), "plaintext")
	assert.Contains(t, string(out), secret.Redacted)
}

func TestResolver_StoredNullIsAbsent(t *testing.T) {
	t.Parallel()
	stored := MapStore{"velero": {"s3Bucket": nil, "password": nil, "replicas": nil}}
	secrets := secret.MapStore{}
	secrets.Set("velero", "password", "abc")
	r := New("velero", stored, secrets)

	_, err := Require[string](r, "s3Bucket", nil)
	var missing *MissingConfigurationError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "s3Bucket", missing.Setting)

	pw, err := RequireSecret(r, "password", nil)
	require.NoError(t, err)
	assert.Equal(t, "abc", pw.Reveal())

	replicas, err := Get(r, "replicas", nil, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, replicas)

	records := r.Records()
	require.Len(t, records, 2)
	assert.Equal(t, TierSecret, records[0].Tier)
	assert.Equal(t, TierDefault, records[1].Tier)
}
