package addons

import (
	"fmt"
	"path/filepath"

	"github.com/imamik/k8stack/internal/addons/helm"
	"github.com/imamik/k8stack/internal/artifact"
	"github.com/imamik/k8stack/internal/component"
	"github.com/imamik/k8stack/internal/graph"
	"github.com/imamik/k8stack/internal/resolve"
	"github.com/imamik/k8stack/internal/secret"
)

// PostgresPodConfigMap is the ConfigMap the operator injects into every
// database pod's environment.
const PostgresPodConfigMap = "postgres-pod-config"

// ZalandoPostgresOperatorArgs configures the Zalando postgres operator.
type ZalandoPostgresOperatorArgs struct {
	Version                      *string       `yaml:"version,omitempty"`
	Namespace                    *string       `yaml:"namespace,omitempty"`
	S3Region                     *string       `yaml:"s3Region,omitempty"`
	S3Endpoint                   *string       `yaml:"s3Endpoint,omitempty"`
	S3Bucket                     *string       `yaml:"s3Bucket,omitempty"`
	S3AccessKeyID                *secret.Value `yaml:"s3AccessKeyId,omitempty"`
	S3SecretAccessKey            *secret.Value `yaml:"s3SecretAccessKey,omitempty"`
	LogicalBackupS3SSE           *string       `yaml:"logicalBackupS3SSE,omitempty"`
	LogicalBackupDefaultSchedule *string       `yaml:"logicalBackupDefaultSchedule,omitempty"`
	SpiloImage                   *string       `yaml:"spiloImage,omitempty"`
	LogicalBackupsImage          *string       `yaml:"logicalBackupsImage,omitempty"`
}

// ZalandoPostgresOperator installs the operator in CRD configuration mode:
// the chart's CRDs are applied first from the fetched archive and the
// chart renders with values-crd.yaml under the catalog's values.
type ZalandoPostgresOperator struct {
	Args ZalandoPostgresOperatorArgs

	namespace          string
	region             string
	endpoint           string
	bucket             string
	accessKeyID        secret.Value
	secretAccessKey    secret.Value
	backupSSE          string
	backupSchedule     string
	spiloImage         string
	logicalBackupImage string
	chart              artifact.Source
}

// NewZalandoPostgresOperator returns the zalando-postgres-operator
// definition.
func NewZalandoPostgresOperator(args ZalandoPostgresOperatorArgs) *ZalandoPostgresOperator {
	return &ZalandoPostgresOperator{Args: args}
}

func (z *ZalandoPostgresOperator) Type() string { return "zalando-postgres-operator" }

func (z *ZalandoPostgresOperator) Resolve(r *resolve.Resolver) error {
	s := newSettings(r)
	version := setting(s, "version", z.Args.Version, "1.4.0")
	z.namespace = setting(s, "namespace", z.Args.Namespace, "postgres-operator")
	z.region = setting(s, "s3Region", z.Args.S3Region, "")
	z.endpoint = setting(s, "s3Endpoint", z.Args.S3Endpoint, "")
	z.bucket = setting(s, "s3Bucket", z.Args.S3Bucket, "")
	z.backupSSE = setting(s, "logicalBackupS3SSE", z.Args.LogicalBackupS3SSE, "")
	z.backupSchedule = setting(s, "logicalBackupDefaultSchedule", z.Args.LogicalBackupDefaultSchedule, "00 05 * * *")
	z.accessKeyID = requiredSecret(s, "s3AccessKeyId", z.Args.S3AccessKeyID)
	z.secretAccessKey = requiredSecret(s, "s3SecretAccessKey", z.Args.S3SecretAccessKey)
	z.spiloImage = setting(s, "spiloImage", z.Args.SpiloImage, "registry.opensource.zalan.do/acid/spilo-12:1.6-p2")
	z.logicalBackupImage = setting(s, "logicalBackupsImage", z.Args.LogicalBackupsImage, "vitobotta/postgres-logical-backup:0.0.13")
	if s.err != nil {
		return s.err
	}
	z.chart = artifact.Source{
		Kind:    artifact.KindChartArchive,
		URL:     fmt.Sprintf("https://opensource.zalando.com/postgres-operator/charts/postgres-operator/postgres-operator-%s.tgz", version),
		Name:    "postgres-operator",
		Version: version,
	}
	return nil
}

func (z *ZalandoPostgresOperator) Artifacts() []artifact.Source { return []artifact.Source{z.chart} }

// Bucket returns the WAL and logical backup location for preflight
// checks. Bucket is empty when backups are not configured.
func (z *ZalandoPostgresOperator) Bucket() BucketLocation {
	return BucketLocation{
		Bucket:          z.bucket,
		Region:          z.region,
		Endpoint:        z.endpoint,
		AccessKeyID:     z.accessKeyID,
		SecretAccessKey: z.secretAccessKey,
	}
}

func (z *ZalandoPostgresOperator) Build(b *graph.Builder, fetched component.Artifacts) error {
	entry, err := fetched.Get(z.chart)
	if err != nil {
		return err
	}
	ns := component.Namespace(b, z.namespace)
	crds := b.Add("", b.Component()+"-crds", graph.RawManifestSpec{
		Files: []string{filepath.Join(entry.ChartPath, "crds", "*.yaml")},
	}, ns)
	_, err = release(b, fetched, z.chart, z.namespace, graph.ChartReleaseSpec{
		Values:      z.values(),
		ValuesFiles: []string{"values-crd.yaml"},
		SkipCRDs:    true,
	}, ns, crds)
	return err
}

func (z *ZalandoPostgresOperator) values() helm.Values {
	return helm.Values{
		"configTarget": "OperatorConfigurationCRD",
		"configKubernetes": helm.Values{
			"enable_pod_antiaffinity":      true,
			"pod_environment_configmap":    PostgresPodConfigMap,
			"watched_namespace":            "*",
			"enable_init_containers":       true,
			"enable_pod_disruption_budget": true,
			"enable_sidecars":              true,
			"spilo_privileged":             false,
		},
		"configAwsOrGcp": helm.Values{
			"aws_region":    z.region,
			"aws_endpoint":  z.endpoint,
			"wal_s3_bucket": z.bucket,
		},
		"configLoadBalancer": helm.Values{
			"enable_master_load_balancer":  false,
			"enable_replica_load_balancer": false,
		},
		"configDebug": helm.Values{
			"debug_logging":          true,
			"enable_database_access": true,
		},
		"configLogicalBackup": helm.Values{
			"logical_backup_docker_image":         z.logicalBackupImage,
			"logical_backup_s3_access_key_id":     z.accessKeyID,
			"logical_backup_s3_bucket":            z.bucket,
			"logical_backup_s3_region":            z.region,
			"logical_backup_s3_endpoint":          z.endpoint,
			"logical_backup_s3_secret_access_key": z.secretAccessKey,
			"logical_backup_s3_sse":               z.backupSSE,
			"logical_backup_schedule":             z.backupSchedule,
		},
		"configGeneral": helm.Values{
			"enable_crd_validation": true,
			"enable_shm_volume":     true,
			"workers":               4,
			"min_instances":         -1,
			"max_instances":         -1,
			"docker_image":          z.spiloImage,
		},
		"configTeamsApi": helm.Values{
			"enable_team_superuser": false,
			"enable_teams_api":      false,
		},
	}
}
