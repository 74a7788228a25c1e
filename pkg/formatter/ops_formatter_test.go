// File: pkg/formatter/ops_formatter_test.go
package formatter

import (
	"errors"
	"testing"

	"opskit/pkg/audit"
	"opskit/pkg/compute/ec2"
	"opskit/pkg/events"
	"opskit/pkg/monitoring/alarms"

	"github.com/stretchr/testify/assert"
)

func TestFormatTagResult(t *testing.T) {
	out := NewOpsFormatter().FormatTagResult(ec2.TagResult{
		Regions: []ec2.RegionTagging{
			{Region: "us-east-1", InstanceIDs: []string{"i-1", "i-2"}},
			{Region: "ap-south-1", InstanceIDs: []string{"i-3"}, Err: errors.New("AccessDenied")},
		},
		NotFound: []string{"i-ghost"},
	})

	assert.Contains(t, out, "i-1, i-2")
	assert.Contains(t, out, "OK")
	assert.Contains(t, out, "FAILED: AccessDenied")
	assert.Contains(t, out, "Not found in any region: i-ghost")
}

func TestFormatAlarmResult(t *testing.T) {
	f := NewOpsFormatter()
	out := f.FormatAlarmResult(alarms.Result{
		Entries:  []alarms.ManifestEntry{{Alarm: "CPUThreadDump_i-1", Region: "us-east-1", InstanceID: "i-1"}},
		NotFound: []string{"i-9"},
	}, "alarm_manifest.yaml")
	assert.Contains(t, out, "CPUThreadDump_i-1")
	assert.Contains(t, out, "NOT FOUND")
	assert.Contains(t, out, "Event patterns written to alarm_manifest.yaml")

	empty := f.FormatAlarmResult(alarms.Result{NotFound: []string{"i-9"}}, "alarm_manifest.yaml")
	assert.NotContains(t, empty, "Event patterns written")
	assert.Contains(t, empty, "No alarms created, alarm_manifest.yaml emptied")
}

func TestFormatRuleResult(t *testing.T) {
	out := NewOpsFormatter().FormatRuleResult(events.Result{
		Created: []events.Created{{Rule: "a_rule", Region: "us-east-1"}},
		Skipped: []events.Skipped{{Alarm: "b", Err: errors.New("missing [region]")}},
	})
	assert.Contains(t, out, "a_rule")
	assert.Contains(t, out, "b_rule")
	assert.Contains(t, out, "1 rules created, 1 skipped")
}

func TestFormatVolumeSummary(t *testing.T) {
	out := NewOpsFormatter().FormatVolumeSummary(audit.Summary{
		Volumes:       []audit.VolumeChange{{VolumeID: "vol-1", Region: "us-east-1", TotalIncrease: 50, Count: 2}},
		Events:        3,
		Skipped:       1,
		FailedRegions: []string{"eu-west-1"},
	}, "volume_modifications.csv")
	assert.Contains(t, out, "vol-1")
	assert.Contains(t, out, "3 events, 1 skipped, 1 volumes written to volume_modifications.csv")
	assert.Contains(t, out, "Regions skipped after repeated failures: eu-west-1")
}

func TestFormatExport(t *testing.T) {
	assert.Equal(t, "Wrote 3 EC2 instances to out.csv", NewOpsFormatter().FormatExport("EC2 instances", 3, "out.csv"))
}
