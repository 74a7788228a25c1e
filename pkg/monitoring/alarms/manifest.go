// File: pkg/monitoring/alarms/manifest.go
package alarms

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

var ErrManifestMissing = errors.New("alarm manifest not found")

// One alarm created by 'alarms create', consumed by 'rules create'
type ManifestEntry struct {
	Alarm      string `yaml:"alarm"`
	Region     string `yaml:"region"`
	InstanceID string `yaml:"instance_id"`
	// EventBridge event pattern (JSON) matching state changes of the alarm
	EventPattern string `yaml:"event_pattern"`
}

type Manifest struct {
	Alarms []ManifestEntry `yaml:"alarms"`
}

type eventPattern struct {
	Source     []string `json:"source"`
	DetailType []string `json:"detail-type"`
	Detail     struct {
		AlarmName []string `json:"alarmName"`
	} `json:"detail"`
}

// Returns the event pattern matching state changes of the named alarm
func EventPatternFor(alarmName string) (string, error) {
	p := eventPattern{
		Source:     []string{"aws.cloudwatch"},
		DetailType: []string{"CloudWatch Alarm State Change"},
	}
	p.Detail.AlarmName = []string{alarmName}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error encoding event pattern: %w", err)
	}
	return string(data), nil
}

// Validates that the entry has every field and a well-formed event pattern
func (e ManifestEntry) Validate() error {
	var missing []string
	if e.Alarm == "" {
		missing = append(missing, "alarm")
	}
	if e.Region == "" {
		missing = append(missing, "region")
	}
	if e.InstanceID == "" {
		missing = append(missing, "instance_id")
	}
	if e.EventPattern == "" {
		missing = append(missing, "event_pattern")
	}
	if len(missing) > 0 {
		return fmt.Errorf("manifest entry %q is missing %v", e.Alarm, missing)
	}
	if !json.Valid([]byte(e.EventPattern)) {
		return fmt.Errorf("manifest entry %q has an invalid event pattern", e.Alarm)
	}
	return nil
}

func WriteManifest(fs afero.Fs, path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("error encoding alarm manifest: %w", err)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("error writing alarm manifest %s: %w", path, err)
	}
	return nil
}

func ReadManifest(fs afero.Fs, path string) (Manifest, error) {
	var m Manifest
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return m, fmt.Errorf("%w: %s", ErrManifestMissing, path)
		}
		return m, fmt.Errorf("error reading alarm manifest %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("error parsing alarm manifest %s: %w", path, err)
	}
	return m, nil
}
