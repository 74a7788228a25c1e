// File: pkg/formatter/ops_formatter.go
package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"opskit/pkg/audit"
	"opskit/pkg/compute/ec2"
	"opskit/pkg/events"
	"opskit/pkg/monitoring/alarms"
)

// OpsFormatter renders the results of the EC2, RDS, alarm, rule and volume commands
type OpsFormatter struct{}

func NewOpsFormatter() *OpsFormatter {
	return &OpsFormatter{}
}

func (f *OpsFormatter) FormatExport(what string, count int, path string) string {
	return fmt.Sprintf("Wrote %d %s to %s", count, what, path)
}

func (f *OpsFormatter) FormatTagResult(result ec2.TagResult) string {
	var sb strings.Builder
	sb.WriteString(FormatSectionTitle("Tagging"))
	sb.WriteString("\n")

	t := NewTable([]string{"REGION", "INSTANCES", "STATUS"})
	for _, rt := range result.Regions {
		t.AddRow([]string{rt.Region, strings.Join(rt.InstanceIDs, ", "), statusOf(rt.Err)})
	}
	sb.WriteString(t.String())

	if len(result.NotFound) > 0 {
		fmt.Fprintf(&sb, "\nNot found in any region: %s", strings.Join(result.NotFound, ", "))
	}
	return sb.String()
}

func (f *OpsFormatter) FormatAlarmResult(result alarms.Result, manifestPath string) string {
	var sb strings.Builder
	sb.WriteString(FormatSectionTitle("CloudWatch alarms"))
	sb.WriteString("\n")

	t := NewTable([]string{"ALARM", "REGION", "INSTANCE", "STATUS"})
	for _, e := range result.Entries {
		t.AddRow([]string{e.Alarm, e.Region, e.InstanceID, "CREATED"})
	}
	for _, failure := range result.Failed {
		t.AddRow([]string{"-", failure.Region, failure.InstanceID, statusOf(failure.Err)})
	}
	for _, id := range result.NotFound {
		t.AddRow([]string{"-", "-", id, "NOT FOUND"})
	}
	sb.WriteString(t.String())

	if len(result.Entries) > 0 {
		fmt.Fprintf(&sb, "\nEvent patterns written to %s", manifestPath)
	} else {
		fmt.Fprintf(&sb, "\nNo alarms created, %s emptied", manifestPath)
	}
	return sb.String()
}

func (f *OpsFormatter) FormatRuleResult(result events.Result) string {
	var sb strings.Builder
	sb.WriteString(FormatSectionTitle("EventBridge rules"))
	sb.WriteString("\n")

	t := NewTable([]string{"RULE", "REGION", "STATUS"})
	for _, c := range result.Created {
		t.AddRow([]string{c.Rule, c.Region, "CREATED"})
	}
	for _, s := range result.Skipped {
		t.AddRow([]string{events.RuleName(s.Alarm), "-", statusOf(s.Err)})
	}
	sb.WriteString(t.String())
	fmt.Fprintf(&sb, "\n%d rules created, %d skipped", len(result.Created), len(result.Skipped))
	return sb.String()
}

func (f *OpsFormatter) FormatVolumeSummary(summary audit.Summary, path string) string {
	var sb strings.Builder
	sb.WriteString(FormatSectionTitle("EBS volume modifications"))
	sb.WriteString("\n")

	t := NewTable([]string{"VOLUME", "REGION", "INCREASE (GiB)", "MODIFICATIONS"})
	for _, v := range summary.Volumes {
		t.AddRow([]string{v.VolumeID, v.Region, strconv.FormatInt(v.TotalIncrease, 10), strconv.Itoa(v.Count)})
	}
	sb.WriteString(t.String())

	fmt.Fprintf(&sb, "\n%d events, %d skipped, %d volumes written to %s", summary.Events, summary.Skipped, len(summary.Volumes), path)
	if len(summary.FailedRegions) > 0 {
		fmt.Fprintf(&sb, "\nRegions skipped after repeated failures: %s", strings.Join(summary.FailedRegions, ", "))
	}
	return sb.String()
}

func statusOf(err error) string {
	if err == nil {
		return "OK"
	}
	return "FAILED: " + err.Error()
}
