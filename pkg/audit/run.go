// File: pkg/audit/run.go
package audit

import (
	"context"
	"fmt"

	"opskit/pkg/report"
)

// Looks up ModifyVolume events in every region, writes the raw events and the per-volume CSV.
// A region whose lookups keep failing is logged and skipped. ErrNoEvents is returned, and no CSV
// is written, when nothing matched
func (s *Service) Run(ctx context.Context, window Window, regions []string, files Files) (Summary, error) {
	var summary Summary

	window, err := window.resolve(s.now())
	if err != nil {
		return summary, err
	}

	raw, err := s.fs.Create(files.RawEvents)
	if err != nil {
		return summary, fmt.Errorf("failed to create %s: %w", files.RawEvents, err)
	}
	defer raw.Close()

	var mods []Modification
	for _, region := range regions {
		s.logger.Info("Fetching ModifyVolume events", "region", region, "start", window.Start, "end", window.End)

		events, err := s.lookupRegion(ctx, region, window)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return summary, ctxErr
			}
			s.logger.Error("Exceeded retries, skipping region", "region", region, "error", err)
			summary.FailedRegions = append(summary.FailedRegions, region)
			continue
		}

		for _, line := range events.raw {
			if _, err := raw.Write(append(line, '\n')); err != nil {
				return summary, fmt.Errorf("failed to write %s: %w", files.RawEvents, err)
			}
		}
		summary.Events += len(events.raw)
		summary.Skipped += events.skipped
		mods = append(mods, events.modifications...)
	}

	if len(mods) == 0 {
		return summary, ErrNoEvents
	}

	summary.Volumes = Consolidate(mods)
	rows := make([][]string, 0, len(summary.Volumes))
	for _, v := range summary.Volumes {
		rows = append(rows, v.Row())
	}
	if err := report.WriteCSV(s.fs, files.Output, Header, rows); err != nil {
		return summary, err
	}
	s.logger.Info("Wrote volume modification report", "file", files.Output, "volumes", len(summary.Volumes))
	return summary, nil
}
