// File: pkg/formatter/purge_formatter.go
package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"opskit/pkg/purge"
	"opskit/pkg/storage"
)

type PurgeFormatter struct{}

func NewPurgeFormatter() *PurgeFormatter {
	return &PurgeFormatter{}
}

func (f *PurgeFormatter) FormatUsage(provider, bucket string, usageBytes int64) string {
	return fmt.Sprintf("Bucket %s (%s) current usage: %s", bucket, strings.ToLower(provider), storage.FormatBytes(usageBytes))
}

func (f *PurgeFormatter) FormatRunReport(bucket string, report purge.RunReport) string {
	var sb strings.Builder
	sb.WriteString(FormatHeaderSection("Purge summary: " + bucket))
	sb.WriteString("\n\n")

	t := NewTable([]string{"PREFIX", "STATUS", "DELETED", "ROUNDS", "BATCHES", "FAILED", "PARTIAL", "REMAINING"})
	for _, p := range report.Prefixes {
		t.AddRow([]string{
			p.Prefix,
			prefixStatus(p),
			strconv.Itoa(p.Deleted),
			strconv.Itoa(p.Rounds),
			strconv.Itoa(p.Batches),
			strconv.Itoa(p.FailedBatches),
			strconv.Itoa(p.PartialBatches),
			strconv.Itoa(p.Remaining),
		})
	}
	sb.WriteString(t.String())
	sb.WriteString("\n")

	incomplete := len(report.Incomplete())
	fmt.Fprintf(&sb, "%d prefixes processed, %d objects deleted, %d incomplete", len(report.Prefixes), report.TotalDeleted(), incomplete)
	return sb.String()
}

func prefixStatus(p purge.PrefixReport) string {
	switch {
	case !p.Complete:
		return "INCOMPLETE"
	case p.Found:
		return "DELETED"
	default:
		return "EMPTY"
	}
}

func (f *PurgeFormatter) FormatPlan(bucket string, entries []purge.PlanEntry) string {
	var sb strings.Builder
	sb.WriteString(FormatHeaderSection("Dry run: " + bucket))
	sb.WriteString("\n\n")

	t := NewTable([]string{"PREFIX", "VERSIONS", "CURRENT", "TOTAL"})
	total := 0
	for _, e := range entries {
		t.AddRow([]string{e.Prefix, strconv.Itoa(e.Versions), strconv.Itoa(e.Current), strconv.Itoa(e.Total())})
		total += e.Total()
	}
	sb.WriteString(t.String())
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "%d candidates would be deleted across %d prefixes", total, len(entries))
	return sb.String()
}
