package preflight

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/imamik/k8stack/internal/addons"
	"github.com/imamik/k8stack/internal/component"
	"github.com/imamik/k8stack/internal/platform/cloudflare"
	"github.com/imamik/k8stack/internal/platform/hcloud"
	"github.com/imamik/k8stack/internal/platform/s3"
)

// DefaultConcurrency bounds the checks running at once.
const DefaultConcurrency = 4

// HCloud looks up Hetzner Cloud resources.
type HCloud interface {
	NetworkExists(ctx context.Context, nameOrID string) (bool, error)
	MissingFloatingIPs(ctx context.Context, addresses []string) ([]string, error)
}

// Buckets looks up S3 buckets.
type Buckets interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	CheckWritable(ctx context.Context, bucket, key string) error
}

// writeProbeKey is written and removed again to prove backups can be stored.
const writeProbeKey = ".k8stack-preflight"

// Cloudflare verifies Cloudflare API credentials.
type Cloudflare interface {
	VerifyCredentials(ctx context.Context) (*cloudflare.User, error)
}

// MissingResourceError reports an external resource that does not exist.
type MissingResourceError struct {
	Kind string
	Name string
}

func (e *MissingResourceError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// Result is the outcome of one check.
type Result struct {
	Component string
	Check     string
	Err       error
}

// Report lists the results of every check that ran.
type Report struct {
	Results []Result
}

// Err joins the failed checks, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %s: %w", res.Component, res.Check, res.Err))
		}
	}
	return errors.Join(errs...)
}

// Checker runs preflight checks. The constructor fields are replaced in
// tests.
type Checker struct {
	NewHCloud     func(token string) HCloud
	NewBuckets    func(ctx context.Context, loc addons.BucketLocation) (Buckets, error)
	NewCloudflare func(email, apiKey string) Cloudflare
	Concurrency   int
	Log           logr.Logger
}

// New returns a Checker using the real cloud clients.
func New(log logr.Logger) *Checker {
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	return &Checker{
		NewHCloud: func(token string) HCloud { return hcloud.NewClient(token) },
		NewBuckets: func(ctx context.Context, loc addons.BucketLocation) (Buckets, error) {
			return s3.NewClient(ctx, s3.Options{
				Endpoint:        loc.Endpoint,
				Region:          loc.Region,
				AccessKeyID:     loc.AccessKeyID.Reveal(),
				SecretAccessKey: loc.SecretAccessKey.Reveal(),
				PathStyle:       loc.PathStyle,
			})
		},
		NewCloudflare: func(email, apiKey string) Cloudflare { return cloudflare.NewClient(email, apiKey) },
		Concurrency:   DefaultConcurrency,
		Log:           log,
	}
}

type check struct {
	component string
	name      string
	run       func(ctx context.Context) error
}

// Run checks every instance whose definition depends on external
// resources. Instances without such dependencies are ignored.
func (c *Checker) Run(ctx context.Context, instances []*component.Instance) Report {
	var checks []check
	for _, inst := range instances {
		checks = append(checks, c.checksFor(inst)...)
	}

	results := make([]Result, len(checks))
	g, gctx := errgroup.WithContext(ctx)
	limit := c.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	g.SetLimit(limit)
	for i, chk := range checks {
		g.Go(func() error {
			err := chk.run(gctx)
			results[i] = Result{Component: chk.component, Check: chk.name, Err: err}
			if err != nil {
				c.Log.Info("preflight check failed", "component", chk.component, "check", chk.name, "error", err.Error())
			} else {
				c.Log.V(1).Info("preflight check passed", "component", chk.component, "check", chk.name)
			}
			return nil
		})
	}
	_ = g.Wait()
	return Report{Results: results}
}

func (c *Checker) checksFor(inst *component.Instance) []check {
	var checks []check
	def := inst.Definition

	if u, ok := def.(addons.NetworkUser); ok {
		token, network := u.Network()
		if network != "" {
			checks = append(checks, check{inst.Name, "network", func(ctx context.Context) error {
				ok, err := c.NewHCloud(token.Reveal()).NetworkExists(ctx, network)
				if err != nil {
					return err
				}
				if !ok {
					return &MissingResourceError{Kind: "network", Name: network}
				}
				return nil
			}})
		}
	}

	if u, ok := def.(addons.FloatingIPUser); ok {
		token, addresses := u.FloatingIPs()
		checks = append(checks, check{inst.Name, "floating-ips", func(ctx context.Context) error {
			missing, err := c.NewHCloud(token.Reveal()).MissingFloatingIPs(ctx, addresses)
			if err != nil {
				return err
			}
			if len(missing) > 0 {
				return &MissingResourceError{Kind: "floating IP", Name: strings.Join(missing, ", ")}
			}
			return nil
		}})
	}

	if u, ok := def.(addons.BucketUser); ok {
		loc := u.Bucket()
		if loc.Bucket != "" {
			checks = append(checks, check{inst.Name, "bucket", func(ctx context.Context) error {
				buckets, err := c.NewBuckets(ctx, loc)
				if err != nil {
					return err
				}
				ok, err := buckets.BucketExists(ctx, loc.Bucket)
				if err != nil {
					return err
				}
				if !ok {
					return &MissingResourceError{Kind: "bucket", Name: loc.Bucket}
				}
				return buckets.CheckWritable(ctx, loc.Bucket, writeProbeKey)
			}})
		}
	}

	if u, ok := def.(addons.CloudflareUser); ok {
		email, key := u.Cloudflare()
		checks = append(checks, check{inst.Name, "cloudflare", func(ctx context.Context) error {
			_, err := c.NewCloudflare(email, key.Reveal()).VerifyCredentials(ctx)
			return err
		}})
	}
	return checks
}
