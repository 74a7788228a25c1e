// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	ConfigFileName = "config.yaml"
	ConfigDirName  = "opskit"
	EnvPrefix      = "OPSKIT"
)

type AWSConfig struct {
	// Default region for single-region calls (S3 purge, STS)
	Region  string `mapstructure:"region" validate:"omitempty,aws_region"`
	Profile string `mapstructure:"profile"`
	// Regions scanned by multi-region commands; empty means every region enabled for the account
	Regions []string `mapstructure:"regions" validate:"omitempty,dive,aws_region"`
	// Custom endpoint, e.g. a LocalStack URL
	Endpoint    string `mapstructure:"endpoint" validate:"omitempty,url"`
	MaxAttempts int    `mapstructure:"max_attempts" validate:"gte=0,lte=20"`
}

type GCPConfig struct {
	Project string `mapstructure:"project"`
	// Service account key file; empty means Application Default Credentials
	CredentialsFile string `mapstructure:"credentials_file"`
}

type PurgeConfig struct {
	Provider       string        `mapstructure:"provider" validate:"omitempty,oneof=aws gcp"`
	Bucket         string        `mapstructure:"bucket"`
	PrefixFile     string        `mapstructure:"prefix_file"`
	BatchSize      int           `mapstructure:"batch_size" validate:"gte=1,lte=1000"`
	MaxRounds      int           `mapstructure:"max_rounds" validate:"gte=1"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff" validate:"gte=0"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff" validate:"gtefield=InitialBackoff"`
	Multiplier     float64       `mapstructure:"multiplier" validate:"gte=1"`
	Jitter         float64       `mapstructure:"jitter" validate:"gte=0,lte=1"`
	MaxElapsed     time.Duration `mapstructure:"max_elapsed" validate:"gte=0"`
}

type InventoryConfig struct {
	InstancesFile string `mapstructure:"instances_file" validate:"required"`
	// Empty means <account-id>_rds_resources.csv
	RDSFile     string `mapstructure:"rds_file"`
	Concurrency int    `mapstructure:"concurrency" validate:"gte=1,lte=32"`
}

type AlarmsConfig struct {
	NamePrefix         string  `mapstructure:"name_prefix" validate:"required"`
	Namespace          string  `mapstructure:"namespace" validate:"required"`
	MetricName         string  `mapstructure:"metric_name" validate:"required"`
	Statistic          string  `mapstructure:"statistic" validate:"oneof=Average Sum Minimum Maximum SampleCount"`
	Threshold          float64 `mapstructure:"threshold"`
	Period             int32   `mapstructure:"period" validate:"gte=10"`
	EvaluationPeriods  int32   `mapstructure:"evaluation_periods" validate:"gte=1"`
	ComparisonOperator string  `mapstructure:"comparison_operator" validate:"oneof=GreaterThanOrEqualToThreshold GreaterThanThreshold LessThanThreshold LessThanOrEqualToThreshold"`
	ManifestFile       string  `mapstructure:"manifest_file" validate:"required"`
}

type RulesConfig struct {
	// Empty means the caller's account
	AccountID    string `mapstructure:"account_id" validate:"omitempty,numeric,len=12"`
	DocumentName string `mapstructure:"document_name"`
	RoleARN      string `mapstructure:"role_arn" validate:"omitempty,startswith=arn:"`
}

type VolumesConfig struct {
	Start         time.Time `mapstructure:"start"`
	End           time.Time `mapstructure:"end"`
	OutputFile    string    `mapstructure:"output_file" validate:"required"`
	RawEventsFile string    `mapstructure:"raw_events_file" validate:"required"`
	MaxRetries    int       `mapstructure:"max_retries" validate:"gte=0,lte=10"`
}

type Config struct {
	AWS       *AWSConfig      `mapstructure:"aws"`
	GCP       *GCPConfig      `mapstructure:"gcp"`
	Purge     PurgeConfig     `mapstructure:"purge"`
	Inventory InventoryConfig `mapstructure:"inventory"`
	Alarms    AlarmsConfig    `mapstructure:"alarms"`
	Rules     RulesConfig     `mapstructure:"rules"`
	Volumes   VolumesConfig   `mapstructure:"volumes"`
}

// Defaults for every supported key. Only these keys can be set through 'opskit config set'
var defaults = map[string]any{
	"aws.region":       "",
	"aws.profile":      "",
	"aws.regions":      []string{},
	"aws.endpoint":     "",
	"aws.max_attempts": 5,

	"gcp.project":          "",
	"gcp.credentials_file": "",

	"purge.provider":        "aws",
	"purge.bucket":          "",
	"purge.prefix_file":     "files.txt",
	"purge.batch_size":      1000,
	"purge.max_rounds":      10,
	"purge.initial_backoff": 500 * time.Millisecond,
	"purge.max_backoff":     30 * time.Second,
	"purge.multiplier":      2.0,
	"purge.jitter":          0.5,
	"purge.max_elapsed":     time.Duration(0),

	"inventory.instances_file": "aws_instances.csv",
	"inventory.rds_file":       "",
	"inventory.concurrency":    4,

	"alarms.name_prefix":         "CPUThreadDump",
	"alarms.namespace":           "AWS/EC2",
	"alarms.metric_name":         "CPUUtilization",
	"alarms.statistic":           "Average",
	"alarms.threshold":           85.0,
	"alarms.period":              300,
	"alarms.evaluation_periods":  2,
	"alarms.comparison_operator": "GreaterThanThreshold",
	"alarms.manifest_file":       "alarm_manifest.yaml",

	"rules.account_id":    "",
	"rules.document_name": "",
	"rules.role_arn":      "",

	"volumes.start":           "",
	"volumes.end":             "",
	"volumes.output_file":     "volume_modifications.csv",
	"volumes.raw_events_file": "modify_volume_events.jsonl",
	"volumes.max_retries":     5,
}

// Returns whether the key is one of the supported configuration keys
func IsSupportedKey(key string) bool {
	_, ok := defaults[strings.ToLower(key)]
	return ok
}

var awsRegionPattern = regexp.MustCompile(`^[a-z]{2}(-gov|-iso[a-z]?)?-[a-z]+-\d+$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails on an empty tag or nil func
	_ = v.RegisterValidation("aws_region", func(fl validator.FieldLevel) bool {
		return awsRegionPattern.MatchString(fl.Field().String())
	})
	return v
}

// Validate checks field constraints and the cross-field rules the tags cannot express
func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed '%s' (value: %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if !c.Volumes.Start.IsZero() && !c.Volumes.End.IsZero() && !c.Volumes.End.After(c.Volumes.Start) {
		return fmt.Errorf("invalid configuration: volumes.end (%s) must be after volumes.start (%s)",
			c.Volumes.End.Format(time.RFC3339), c.Volumes.Start.Format(time.RFC3339))
	}
	return nil
}
