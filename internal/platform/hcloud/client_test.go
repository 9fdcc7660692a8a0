package hcloud

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return NewClient("test-token", WithHCloudClient(hcloud.NewClient(
		hcloud.WithToken("test-token"),
		hcloud.WithEndpoint(server.URL),
	)))
}

func jsonResponse(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestNetworkExists(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/networks", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("name") == "k8s" {
			jsonResponse(w, http.StatusOK, `{"networks":[{"id":7,"name":"k8s","ip_range":"10.0.0.0/16","subnets":[],"routes":[],"servers":[],"labels":{},"protection":{"delete":false},"created":"2024-01-01T00:00:00+00:00"}],`+
				`"meta":{"pagination":{"page":1,"per_page":50,"previous_page":null,"next_page":null,"last_page":1,"total_entries":1}}}`)
			return
		}
		jsonResponse(w, http.StatusOK, `{"networks":[],"meta":{"pagination":{"page":1,"per_page":50,"previous_page":null,"next_page":null,"last_page":1,"total_entries":0}}}`)
	})
	mux.HandleFunc("/networks/42", func(w http.ResponseWriter, _ *http.Request) {
		jsonResponse(w, http.StatusNotFound, `{"error":{"code":"not_found","message":"network not found"}}`)
	})
	c := testClient(t, mux)
	ctx := context.Background()

	ok, err := c.NetworkExists(ctx, "k8s")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.NetworkExists(ctx, "other")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.NetworkExists(ctx, "42")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNetworkExists_Unauthorized(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/networks", func(w http.ResponseWriter, _ *http.Request) {
		jsonResponse(w, http.StatusUnauthorized, `{"error":{"code":"unauthorized","message":"unable to authenticate"}}`)
	})

	_, err := testClient(t, mux).NetworkExists(context.Background(), "k8s")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "failed to get network k8s")
}

func TestMissingFloatingIPs(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/floating_ips", func(w http.ResponseWriter, _ *http.Request) {
		jsonResponse(w, http.StatusOK, `{"floating_ips":[`+
			`{"id":1,"name":"ingress","ip":"203.0.113.10","type":"ipv4","labels":{},"protection":{"delete":false},"dns_ptr":[],"blocked":false,"created":"2024-01-01T00:00:00+00:00"},`+
			`{"id":2,"name":"ingress-v6","ip":"2001:db8::/64","type":"ipv6","labels":{},"protection":{"delete":false},"dns_ptr":[],"blocked":false,"created":"2024-01-01T00:00:00+00:00"}],`+
			`"meta":{"pagination":{"page":1,"per_page":50,"previous_page":null,"next_page":null,"last_page":1,"total_entries":2}}}`)
	})

	missing, err := testClient(t, mux).MissingFloatingIPs(context.Background(), []string{"203.0.113.10", "203.0.113.11", "2001:db8::1", "not-an-ip"})
	require.NoError(t, err)
	assert.Equal(t, []string{"203.0.113.11", "not-an-ip"}, missing)
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()
	assert.False(t, IsNotFound(nil))
	assert.True(t, IsNotFound(hcloud.Error{Code: hcloud.ErrorCodeNotFound}))
	assert.False(t, IsNotFound(hcloud.Error{Code: hcloud.ErrorCodeConflict}))
}
