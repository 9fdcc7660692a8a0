package addons

import (
	"strconv"

	"github.com/imamik/k8stack/internal/artifact"
	"github.com/imamik/k8stack/internal/component"
	"github.com/imamik/k8stack/internal/graph"
	"github.com/imamik/k8stack/internal/resolve"
	"github.com/imamik/k8stack/internal/secret"
)

// ZalandoPostgresClusterArgs configures one postgres cluster managed by
// the Zalando operator.
type ZalandoPostgresClusterArgs struct {
	Namespace             *string             `yaml:"namespace,omitempty"`
	TeamID                *string             `yaml:"teamId,omitempty"`
	StorageClass          *string             `yaml:"storageClass,omitempty"`
	StorageSize           *string             `yaml:"storageSize,omitempty"`
	NumberOfInstances     *int                `yaml:"numberOfInstances,omitempty"`
	PodConfigMapName      *string             `yaml:"podConfigMapName,omitempty"`
	S3Region              *string             `yaml:"s3Region,omitempty"`
	S3Endpoint            *string             `yaml:"s3Endpoint,omitempty"`
	S3Bucket              *string             `yaml:"s3Bucket,omitempty"`
	S3AccessKeyID         *secret.Value       `yaml:"s3AccessKeyId,omitempty"`
	S3SecretAccessKey     *secret.Value       `yaml:"s3SecretAccessKey,omitempty"`
	S3ForcePathStyle      *bool               `yaml:"s3ForcePathStyle,omitempty"`
	Version               *string             `yaml:"version,omitempty"`
	SharedBuffers         *string             `yaml:"sharedBuffers,omitempty"`
	MaxConnections        *int                `yaml:"maxConnections,omitempty"`
	CPURequest            *string             `yaml:"cpuRequest,omitempty"`
	MemoryRequest         *string             `yaml:"memoryRequest,omitempty"`
	CPULimit              *string             `yaml:"cpuLimit,omitempty"`
	MemoryLimit           *string             `yaml:"memoryLimit,omitempty"`
	EnableLogicalBackups  *bool               `yaml:"enableLogicalBackups,omitempty"`
	EnableWalBackups      *bool               `yaml:"enableWalBackups,omitempty"`
	LogicalBackupSchedule *string             `yaml:"logicalBackupSchedule,omitempty"`
	WalBackupsToRetain    *string             `yaml:"walBackupsToRetain,omitempty"`
	WalBackupSchedule     *string             `yaml:"walBackupSchedule,omitempty"`
	Clone                 *bool               `yaml:"clone,omitempty"`
	CloneClusterID        *string             `yaml:"cloneClusterID,omitempty"`
	CloneClusterName      *string             `yaml:"cloneClusterName,omitempty"`
	CloneTargetTime       *string             `yaml:"cloneTargetTime,omitempty"`
	Users                 map[string][]string `yaml:"users,omitempty"`
	Databases             map[string]string   `yaml:"databases,omitempty"`
}

// ZalandoPostgresCluster creates the pod environment ConfigMap read by
// spilo and the postgresql resource. With Clone set the cluster restores
// from another cluster's WAL archive.
type ZalandoPostgresCluster struct {
	Args ZalandoPostgresClusterArgs

	namespace       string
	teamID          string
	storageClass    string
	storageSize     string
	instances       int
	podConfigMap    string
	region          string
	endpoint        string
	bucket          string
	accessKeyID     secret.Value
	secretAccessKey secret.Value
	forcePathStyle  bool
	version         string
	sharedBuffers   string
	maxConnections  int
	cpuRequest      string
	memoryRequest   string
	cpuLimit        string
	memoryLimit     string
	logicalBackups  bool
	walBackups      bool
	logicalSchedule string
	walRetain       string
	walSchedule     string
	clone           bool
	cloneClusterID  string
	cloneName       string
	cloneTargetTime string
	users           map[string][]string
	databases       map[string]string
}

// NewZalandoPostgresCluster returns the zalando-postgres-cluster
// definition.
func NewZalandoPostgresCluster(args ZalandoPostgresClusterArgs) *ZalandoPostgresCluster {
	return &ZalandoPostgresCluster{Args: args}
}

func (z *ZalandoPostgresCluster) Type() string { return "zalando-postgres-cluster" }

func (z *ZalandoPostgresCluster) Resolve(r *resolve.Resolver) error {
	s := newSettings(r)
	a := z.Args
	z.namespace = requiredSetting(s, "namespace", a.Namespace)
	z.teamID = requiredSetting(s, "teamId", a.TeamID)
	z.storageClass = requiredSetting(s, "storageClass", a.StorageClass)
	z.storageSize = requiredSetting(s, "storageSize", a.StorageSize)
	z.region = setting(s, "s3Region", a.S3Region, "")
	z.endpoint = setting(s, "s3Endpoint", a.S3Endpoint, "")
	z.bucket = setting(s, "s3Bucket", a.S3Bucket, "")
	z.accessKeyID = optionalSecret(s, "s3AccessKeyId", a.S3AccessKeyID)
	z.secretAccessKey = optionalSecret(s, "s3SecretAccessKey", a.S3SecretAccessKey)
	z.forcePathStyle = setting(s, "s3ForcePathStyle", a.S3ForcePathStyle, false)
	z.podConfigMap = setting(s, "podConfigMapName", a.PodConfigMapName, PostgresPodConfigMap)
	z.instances = setting(s, "numberOfInstances", a.NumberOfInstances, 1)
	z.version = setting(s, "version", a.Version, "12")
	z.sharedBuffers = setting(s, "sharedBuffers", a.SharedBuffers, "32MB")
	z.maxConnections = setting(s, "maxConnections", a.MaxConnections, 500)
	z.cpuRequest = setting(s, "cpuRequest", a.CPURequest, "10m")
	z.memoryRequest = setting(s, "memoryRequest", a.MemoryRequest, "100Mi")
	z.cpuLimit = setting(s, "cpuLimit", a.CPULimit, "500m")
	z.memoryLimit = setting(s, "memoryLimit", a.MemoryLimit, "500Mi")
	z.logicalBackups = setting(s, "enableLogicalBackups", a.EnableLogicalBackups, false)
	z.logicalSchedule = setting(s, "logicalBackupSchedule", a.LogicalBackupSchedule, "00 05 * * *")
	z.walBackups = setting(s, "enableWalBackups", a.EnableWalBackups, false)
	z.walRetain = setting(s, "walBackupsToRetain", a.WalBackupsToRetain, "14")
	z.walSchedule = setting(s, "walBackupSchedule", a.WalBackupSchedule, "0 */12 * * *")
	z.clone = setting(s, "clone", a.Clone, false)
	z.cloneClusterID = setting(s, "cloneClusterID", a.CloneClusterID, "")
	z.cloneTargetTime = setting(s, "cloneTargetTime", a.CloneTargetTime, "2050-02-04T12:49:03+00:00")
	z.cloneName = setting(s, "cloneClusterName", a.CloneClusterName, "")
	z.users = setting(s, "users", mapArg(a.Users), map[string][]string{})
	z.databases = setting(s, "databases", mapArg(a.Databases), map[string]string{})
	return s.err
}

func (z *ZalandoPostgresCluster) Artifacts() []artifact.Source { return nil }

// Bucket returns the WAL archive location for preflight checks.
func (z *ZalandoPostgresCluster) Bucket() BucketLocation {
	return BucketLocation{
		Bucket:          z.bucket,
		Region:          z.region,
		Endpoint:        z.endpoint,
		AccessKeyID:     z.accessKeyID,
		SecretAccessKey: z.secretAccessKey,
		PathStyle:       z.forcePathStyle,
	}
}

func (z *ZalandoPostgresCluster) Build(b *graph.Builder, _ component.Artifacts) error {
	ns := component.Namespace(b, z.namespace)
	data, secrets := z.podEnvironment()
	env := b.Add(z.namespace, z.podConfigMap, graph.ConfigMapSpec{Data: data, SecretData: secrets}, ns)
	b.Add(z.namespace, b.Component(), z.postgresql(), ns, env)
	return nil
}

// podEnvironment is the spilo environment: WAL-G backups to S3 and, when
// cloning, the archive to restore from.
func (z *ZalandoPostgresCluster) podEnvironment() (map[string]string, map[string]secret.Value) {
	data := map[string]string{
		"BACKUP_SCHEDULE":      z.walSchedule,
		"USE_WALG_BACKUP":      strconv.FormatBool(z.walBackups),
		"BACKUP_NUM_TO_RETAIN": z.walRetain,
		"WAL_S3_BUCKET":        z.bucket,
		"AWS_ENDPOINT":         z.endpoint,
		"AWS_REGION":           z.region,
		"WALG_DISABLE_S3_SSE":  "true",
	}
	secrets := map[string]secret.Value{
		"AWS_ACCESS_KEY_ID":     z.accessKeyID,
		"AWS_SECRET_ACCESS_KEY": z.secretAccessKey,
	}
	if !z.clone {
		return data, secrets
	}

	data["AWS_S3_FORCE_PATH_STYLE"] = strconv.FormatBool(z.forcePathStyle)
	data["USEWALG_RESTORE"] = "true"
	data["CLONE_METHOD"] = "CLONE_WITH_WALE"
	data["CLONE_AWS_ENDPOINT"] = z.endpoint
	data["CLONE_AWS_REGION"] = z.region
	data["CLONE_WAL_S3_BUCKET"] = z.bucket
	data["CLONE_WAL_BUCKET_SCOPE_SUFFIX"] = "/" + z.cloneClusterID
	data["CLONE_TARGET_TIME"] = z.cloneTargetTime
	data["CLONE_SCOPE"] = z.cloneName
	secrets["CLONE_AWS_ACCESS_KEY_ID"] = z.accessKeyID
	secrets["CLONE_AWS_SECRET_ACCESS_KEY"] = z.secretAccessKey
	return data, secrets
}

func (z *ZalandoPostgresCluster) postgresql() graph.CustomResourceSpec {
	users := make(map[string]any, len(z.users))
	for name, flags := range z.users {
		list := make([]any, len(flags))
		for i, f := range flags {
			list[i] = f
		}
		users[name] = list
	}
	databases := make(map[string]any, len(z.databases))
	for name, owner := range z.databases {
		databases[name] = owner
	}

	return graph.CustomResourceSpec{
		APIVersion:   "acid.zalan.do/v1",
		ResourceKind: "postgresql",
		Spec: map[string]any{
			"teamId": z.teamID,
			"volume": map[string]any{
				"size":         z.storageSize,
				"storageClass": z.storageClass,
			},
			"numberOfInstances": z.instances,
			"users":             users,
			"databases":         databases,
			"postgresql": map[string]any{
				"version": z.version,
				"parameters": map[string]any{
					"shared_buffers":  z.sharedBuffers,
					"max_connections": strconv.Itoa(z.maxConnections),
				},
			},
			"enableConnectionPooler": false,
			"resources": map[string]any{
				"requests": map[string]any{"cpu": z.cpuRequest, "memory": z.memoryRequest},
				"limits":   map[string]any{"cpu": z.cpuLimit, "memory": z.memoryLimit},
			},
			"enableLogicalBackup":   z.logicalBackups,
			"logicalBackupSchedule": z.logicalSchedule,
			"initContainers":        []any{},
			"sidecars":              []any{},
		},
	}
}
