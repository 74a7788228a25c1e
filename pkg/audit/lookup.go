// File: pkg/audit/lookup.go
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail/types"
	"github.com/cenkalti/backoff/v4"
)

type regionEvents struct {
	raw           [][]byte
	modifications []Modification
	skipped       int
}

// Walks every LookupEvents page for the region. Each page gets its own retry budget
func (s *Service) lookupRegion(ctx context.Context, region string, window Window) (regionEvents, error) {
	client := s.clients(region)
	input := &cloudtrail.LookupEventsInput{
		LookupAttributes: []types.LookupAttribute{{
			AttributeKey:   types.LookupAttributeKeyEventName,
			AttributeValue: aws.String(EventName),
		}},
		StartTime: aws.Time(window.Start),
		EndTime:   aws.Time(window.End),
	}

	var result regionEvents
	for {
		page, err := s.fetchPage(ctx, client, region, input)
		if err != nil {
			return result, err
		}

		for _, event := range page.Events {
			s.collect(region, event, &result)
		}

		if aws.ToString(page.NextToken) == "" {
			return result, nil
		}
		input.NextToken = page.NextToken
	}
}

func (s *Service) fetchPage(ctx context.Context, client API, region string, input *cloudtrail.LookupEventsInput) (*cloudtrail.LookupEventsOutput, error) {
	var page *cloudtrail.LookupEventsOutput
	operation := func() error {
		out, err := client.LookupEvents(ctx, input)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		page = out
		return nil
	}
	notify := func(err error, wait time.Duration) {
		s.logger.Warn("Retrying CloudTrail lookup", "region", region, "wait", wait, "error", err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), uint64(s.maxRetries)), ctx)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, fmt.Errorf("error looking up %s events in %s: %w", EventName, region, err)
	}
	return page, nil
}

func (s *Service) collect(region string, event types.Event, into *regionEvents) {
	payload := []byte(aws.ToString(event.CloudTrailEvent))

	var compact bytes.Buffer
	if err := json.Compact(&compact, payload); err != nil {
		s.logger.Warn("Skipping undecodable CloudTrail event", "region", region, "event_id", aws.ToString(event.EventId), "error", err)
		into.skipped++
		return
	}
	into.raw = append(into.raw, compact.Bytes())

	mod, err := ParseModification(payload)
	if err != nil {
		s.logger.Warn("Skipping unparseable ModifyVolume event", "region", region, "event_id", aws.ToString(event.EventId), "error", err)
		into.skipped++
		return
	}
	into.modifications = append(into.modifications, mod)
}
