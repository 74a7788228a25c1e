// File: internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigPath = "/home/tester/.config/opskit/config.yaml"

func newTestManager(t *testing.T) (*ConfigManager, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	m, err := NewConfigManagerWithFs(fs, testConfigPath)
	require.NoError(t, err)
	return m, fs
}

func TestLoadConfig_Defaults(t *testing.T) {
	m, fs := newTestManager(t)

	cfg, err := m.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "aws", cfg.Purge.Provider)
	assert.Equal(t, "files.txt", cfg.Purge.PrefixFile)
	assert.Equal(t, 1000, cfg.Purge.BatchSize)
	assert.Equal(t, 10, cfg.Purge.MaxRounds)
	assert.Equal(t, 500*time.Millisecond, cfg.Purge.InitialBackoff)
	assert.Equal(t, 30*time.Second, cfg.Purge.MaxBackoff)
	assert.Equal(t, 2.0, cfg.Purge.Multiplier)
	assert.Equal(t, 4, cfg.Inventory.Concurrency)
	assert.Equal(t, "CPUUtilization", cfg.Alarms.MetricName)
	assert.Equal(t, int32(300), cfg.Alarms.Period)
	assert.True(t, cfg.Volumes.Start.IsZero())
	require.NotNil(t, cfg.AWS)
	assert.Empty(t, cfg.AWS.Region)

	exists, err := afero.Exists(fs, testConfigPath)
	require.NoError(t, err)
	assert.False(t, exists, "loading must not create the config file")
}

func TestSetValue_PersistsAndDecodes(t *testing.T) {
	m, fs := newTestManager(t)

	require.NoError(t, m.SetValue("aws.region", "eu-west-1"))
	require.NoError(t, m.SetValue("PURGE.Batch_Size", "250"))
	require.NoError(t, m.SetValue("purge.max_backoff", "1m"))
	require.NoError(t, m.SetValue("aws.regions", "us-east-1,us-west-2"))
	require.NoError(t, m.SetValue("volumes.start", "2024-01-01"))
	require.NoError(t, m.SetValue("volumes.end", "2024-02-01T12:00:00Z"))

	cfg, err := m.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.AWS.Region)
	assert.Equal(t, 250, cfg.Purge.BatchSize)
	assert.Equal(t, time.Minute, cfg.Purge.MaxBackoff)
	assert.Equal(t, []string{"us-east-1", "us-west-2"}, cfg.AWS.Regions)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), cfg.Volumes.Start)
	assert.Equal(t, time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC), cfg.Volumes.End)

	data, err := afero.ReadFile(fs, testConfigPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "region: eu-west-1")
	assert.NotContains(t, string(data), "max_rounds", "only explicitly set keys are written")

	// A second manager over the same file sees the persisted values
	reopened, err := NewConfigManagerWithFs(fs, testConfigPath)
	require.NoError(t, err)
	value, ok := reopened.GetValue("aws.region")
	assert.True(t, ok)
	assert.Equal(t, "eu-west-1", value)
}

func TestSetValue_RejectsUnknownKey(t *testing.T) {
	m, _ := newTestManager(t)

	err := m.SetValue("purge.speed", "fast")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported configuration key 'purge.speed'")
}

func TestGetValue(t *testing.T) {
	m, _ := newTestManager(t)

	_, ok := m.GetValue("purge.bucket")
	assert.False(t, ok, "empty default counts as unset")

	value, ok := m.GetValue("purge.max_rounds")
	assert.True(t, ok)
	assert.EqualValues(t, 10, value)

	_, ok = m.GetValue("nope.nothing")
	assert.False(t, ok)
}

func TestDeleteValue(t *testing.T) {
	m, fs := newTestManager(t)
	require.NoError(t, m.SetValue("purge.bucket", "logs-bucket"))
	require.NoError(t, m.SetValue("gcp.project", "proj-1"))

	deleted, err := m.DeleteValue("purge.bucket")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, ok := m.GetValue("purge.bucket")
	assert.False(t, ok)
	value, ok := m.GetValue("gcp.project")
	assert.True(t, ok)
	assert.Equal(t, "proj-1", value)

	deleted, err = m.DeleteValue("purge.bucket")
	require.NoError(t, err)
	assert.False(t, deleted)

	data, err := afero.ReadFile(fs, testConfigPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "purge", "emptied sections are pruned")
}

func TestGetFileSettings(t *testing.T) {
	m, _ := newTestManager(t)
	require.NoError(t, m.SetValue("rules.document_name", "AWS-RunShellScript"))
	require.NoError(t, m.SetValue("aws.profile", "ops"))

	settings, err := m.GetFileSettings()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"rules.document_name": "AWS-RunShellScript",
		"aws.profile":         "ops",
	}, settings)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	m, _ := newTestManager(t)
	require.NoError(t, m.SetValue("purge.bucket", "from-file"))
	t.Setenv("OPSKIT_PURGE_BUCKET", "from-env")

	cfg, err := m.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Purge.Bucket)
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{name: "batch size over limit", key: "purge.batch_size", value: "5000", wantErr: "BatchSize"},
		{name: "unknown provider", key: "purge.provider", value: "azure", wantErr: "Provider"},
		{name: "bad region", key: "aws.region", value: "mars-central", wantErr: "aws_region"},
		{name: "jitter out of range", key: "purge.jitter", value: "1.5", wantErr: "Jitter"},
		{name: "account id length", key: "rules.account_id", value: "1234", wantErr: "AccountID"},
		{name: "bad statistic", key: "alarms.statistic", value: "Median", wantErr: "Statistic"},
		{name: "max backoff below initial", key: "purge.max_backoff", value: "100ms", wantErr: "MaxBackoff"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, _ := newTestManager(t)
			require.NoError(t, m.SetValue(tc.key, tc.value))

			_, err := m.LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadConfig_VolumeWindowOrder(t *testing.T) {
	m, _ := newTestManager(t)
	require.NoError(t, m.SetValue("volumes.start", "2024-03-01"))
	require.NoError(t, m.SetValue("volumes.end", "2024-02-01"))

	_, err := m.LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "volumes.end")
}

func TestLoadConfig_BadTime(t *testing.T) {
	m, _ := newTestManager(t)
	require.NoError(t, m.SetValue("volumes.start", "yesterday"))

	_, err := m.LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode configuration")
}

func TestFlattenMap(t *testing.T) {
	nested := map[string]any{
		"aws": map[string]any{"region": "us-east-1", "max_attempts": 3},
		"top": "level",
	}
	assert.Equal(t, map[string]any{
		"aws.region":       "us-east-1",
		"aws.max_attempts": 3,
		"top":              "level",
	}, FlattenMap(nested))
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "", want: time.Time{}},
		{in: " 2024-11-28 ", want: time.Date(2024, 11, 28, 0, 0, 0, 0, time.UTC)},
		{in: "2024-11-30T23:59:59Z", want: time.Date(2024, 11, 30, 23, 59, 59, 0, time.UTC)},
		{in: "28/11/2024", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseTime(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "got %s", got)
		})
	}
}
