package hcloud

import (
	"context"
	"net"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// Client wraps the Hetzner Cloud API for read-only lookups.
type Client struct {
	client *hcloud.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHCloudClient sets a custom hcloud client (useful for testing).
func WithHCloudClient(hc *hcloud.Client) ClientOption {
	return func(c *Client) {
		c.client = hc
	}
}

// NewClient creates a Client for the project token belongs to.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		client: hcloud.NewClient(hcloud.WithToken(token), hcloud.WithApplication("k8stack", "")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NetworkExists reports whether a network with the given name or ID exists.
func (c *Client) NetworkExists(ctx context.Context, nameOrID string) (bool, error) {
	network, _, err := c.client.Network.Get(ctx, nameOrID)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, apiError("get network "+nameOrID, err)
	}
	return network != nil, nil
}

// MissingFloatingIPs returns the addresses that are not floating IPs of
// the project, in input order.
func (c *Client) MissingFloatingIPs(ctx context.Context, addresses []string) ([]string, error) {
	fips, err := c.client.FloatingIP.All(ctx)
	if err != nil {
		return nil, apiError("list floating IPs", err)
	}

	var missing []string
	for _, addr := range addresses {
		ip := net.ParseIP(addr)
		found := false
		for _, fip := range fips {
			if ip != nil && fip.IP.Equal(ip) {
				found = true
				break
			}
			if fip.Network != nil && ip != nil && fip.Network.Contains(ip) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, addr)
		}
	}
	return missing, nil
}
