package addons

import (
	"fmt"

	"github.com/imamik/k8stack/internal/addons/helm"
	"github.com/imamik/k8stack/internal/artifact"
	"github.com/imamik/k8stack/internal/component"
	"github.com/imamik/k8stack/internal/graph"
	"github.com/imamik/k8stack/internal/resolve"
	"github.com/imamik/k8stack/internal/secret"
)

const veleroCredentialsSecret = "cloud-credentials"

// VeleroArgs configures velero with an S3-compatible backup location.
type VeleroArgs struct {
	ImageTag           *string       `yaml:"imageTag,omitempty"`
	ChartVersion       *string       `yaml:"chartVersion,omitempty"`
	Namespace          *string       `yaml:"namespace,omitempty"`
	S3Bucket           *string       `yaml:"s3Bucket,omitempty"`
	S3Region           *string       `yaml:"s3Region,omitempty"`
	S3URL              *string       `yaml:"s3Url,omitempty"`
	Prefix             *string       `yaml:"prefix,omitempty"`
	AWSAccessKeyID     *secret.Value `yaml:"awsAccessKeyId,omitempty"`
	AWSSecretAccessKey *secret.Value `yaml:"awsSecretAccessKey,omitempty"`
	AWSPluginVersion   *string       `yaml:"awsPluginVersion,omitempty"`
	DeployRestic       *bool         `yaml:"deployRestic,omitempty"`
}

// Velero installs velero from its released chart archive with the AWS
// object store plugin.
type Velero struct {
	Args VeleroArgs

	imageTag         string
	namespace        string
	bucket           string
	region           string
	s3URL            string
	prefix           string
	accessKeyID      secret.Value
	secretAccessKey  secret.Value
	awsPluginVersion string
	deployRestic     bool
	chart            artifact.Source
}

// NewVelero returns the velero definition.
func NewVelero(args VeleroArgs) *Velero {
	return &Velero{Args: args}
}

func (v *Velero) Type() string { return "velero" }

func (v *Velero) Resolve(r *resolve.Resolver) error {
	s := newSettings(r)
	v.imageTag = setting(s, "imageTag", v.Args.ImageTag, "v1.4.2")
	chartVersion := setting(s, "chartVersion", v.Args.ChartVersion, "2.12.0")
	v.namespace = setting(s, "namespace", v.Args.Namespace, "velero")
	v.bucket = requiredSetting(s, "s3Bucket", v.Args.S3Bucket)
	v.region = requiredSetting(s, "s3Region", v.Args.S3Region)
	v.s3URL = requiredSetting(s, "s3Url", v.Args.S3URL)
	v.prefix = setting(s, "prefix", v.Args.Prefix, "velero")
	v.accessKeyID = requiredSecret(s, "awsAccessKeyId", v.Args.AWSAccessKeyID)
	v.secretAccessKey = requiredSecret(s, "awsSecretAccessKey", v.Args.AWSSecretAccessKey)
	v.awsPluginVersion = setting(s, "awsPluginVersion", v.Args.AWSPluginVersion, "v1.1.0")
	v.deployRestic = setting(s, "deployRestic", v.Args.DeployRestic, true)
	if s.err != nil {
		return s.err
	}
	v.chart = artifact.Source{
		Kind:    artifact.KindChartArchive,
		URL:     fmt.Sprintf("https://github.com/vmware-tanzu/helm-charts/releases/download/velero-%[1]s/velero-%[1]s.tgz", chartVersion),
		Name:    "velero",
		Version: chartVersion,
	}
	return nil
}

func (v *Velero) Artifacts() []artifact.Source { return []artifact.Source{v.chart} }

// Bucket returns the resolved backup location for preflight checks.
func (v *Velero) Bucket() BucketLocation {
	return BucketLocation{
		Bucket:          v.bucket,
		Region:          v.region,
		Endpoint:        v.s3URL,
		AccessKeyID:     v.accessKeyID,
		SecretAccessKey: v.secretAccessKey,
	}
}

func (v *Velero) Build(b *graph.Builder, fetched component.Artifacts) error {
	ns := component.Namespace(b, v.namespace)
	creds := b.Add(v.namespace, veleroCredentialsSecret, graph.SecretSpec{
		Data: map[string]secret.Value{
			"cloud": secret.Sprintf("[default]\naws_access_key_id=%s\naws_secret_access_key=%s", v.accessKeyID, v.secretAccessKey),
		},
	}, ns)
	_, err := release(b, fetched, v.chart, v.namespace, graph.ChartReleaseSpec{Values: v.values()}, ns, creds)
	return err
}

func (v *Velero) values() helm.Values {
	return helm.Values{
		"image": helm.Values{"tag": v.imageTag},
		"configuration": helm.Values{
			"provider": "aws",
			"backupStorageLocation": helm.Values{
				"name":   "default",
				"bucket": v.bucket,
				"config": helm.Values{
					"region": v.region,
					"s3Url":  v.s3URL,
				},
				"prefix": v.prefix,
			},
		},
		"snapshotsEnabled": false,
		"deployRestic":     v.deployRestic,
		"metrics":          helm.Values{"enabled": true},
		"credentials":      helm.Values{"existingSecret": veleroCredentialsSecret},
		"initContainers": []helm.Values{
			{
				"name":  "velero-plugin-for-aws",
				"image": "velero/velero-plugin-for-aws:" + v.awsPluginVersion,
				"volumeMounts": []helm.Values{
					{"mountPath": "/target", "name": "plugins"},
				},
			},
		},
	}
}
