// File: pkg/events/rules.go
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"opskit/pkg/awsutil"
	"opskit/pkg/monitoring/alarms"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
)

// API is the subset of *eventbridge.Client used here
type API interface {
	PutRule(ctx context.Context, params *eventbridge.PutRuleInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutRuleOutput, error)
	PutTargets(ctx context.Context, params *eventbridge.PutTargetsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutTargetsOutput, error)
}

type ClientFactory func(region string) API

func NewClientFactory(loader *awsutil.Loader) ClientFactory {
	return func(region string) API {
		return eventbridge.NewFromConfig(loader.ForRegion(region))
	}
}

// Target of every rule: an SSM document run against the alarm's instance
type Target struct {
	AccountID    string
	DocumentName string
	RoleARN      string
}

func (t Target) Validate() error {
	var missing []string
	if t.AccountID == "" {
		missing = append(missing, "account id")
	}
	if t.DocumentName == "" {
		missing = append(missing, "document name")
	}
	if t.RoleARN == "" {
		missing = append(missing, "role ARN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("rule target is missing %v", missing)
	}
	return nil
}

func (t Target) DocumentARN(region string) string {
	return fmt.Sprintf("arn:aws:ssm:%s:%s:document/%s", region, t.AccountID, t.DocumentName)
}

func RuleName(alarmName string) string {
	return alarmName + "_rule"
}

type Created struct {
	Rule    string
	RuleARN string
	Region  string
}

type Skipped struct {
	Alarm string
	Err   error
}

type Result struct {
	Created []Created
	Skipped []Skipped
}

type Service struct {
	clients ClientFactory
	target  Target
	logger  *slog.Logger
}

func NewService(clients ClientFactory, target Target, logger *slog.Logger) *Service {
	return &Service{
		clients: clients,
		target:  target,
		logger:  logger.With("service", "RuleService"),
	}
}

// Creates one rule per manifest entry, each targeting the SSM document for the entry's instance.
// Invalid entries and failed calls are recorded as skipped and do not stop the remaining entries
func (s *Service) CreateRules(ctx context.Context, entries []alarms.ManifestEntry) (Result, error) {
	var result Result
	if err := s.target.Validate(); err != nil {
		return result, err
	}

	for _, entry := range entries {
		if err := entry.Validate(); err != nil {
			s.logger.Warn("Skipping manifest entry", "alarm", entry.Alarm, "error", err)
			result.Skipped = append(result.Skipped, Skipped{Alarm: entry.Alarm, Err: err})
			continue
		}

		created, err := s.createRule(ctx, entry)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			s.logger.Error("Error creating rule or setting target", "alarm", entry.Alarm, "region", entry.Region, "error", err)
			result.Skipped = append(result.Skipped, Skipped{Alarm: entry.Alarm, Err: err})
			continue
		}
		s.logger.Info("Created EventBridge rule", "rule", created.Rule, "region", created.Region, "instance", entry.InstanceID)
		result.Created = append(result.Created, created)
	}
	return result, nil
}

func (s *Service) createRule(ctx context.Context, entry alarms.ManifestEntry) (Created, error) {
	client := s.clients(entry.Region)
	name := RuleName(entry.Alarm)

	out, err := client.PutRule(ctx, &eventbridge.PutRuleInput{
		Name:         aws.String(name),
		EventPattern: aws.String(entry.EventPattern),
		Description:  aws.String(fmt.Sprintf("Event rule for alarm %s targeting instance %s", entry.Alarm, entry.InstanceID)),
	})
	if err != nil {
		return Created{}, fmt.Errorf("error putting rule %s: %w", name, err)
	}

	targets, err := client.PutTargets(ctx, &eventbridge.PutTargetsInput{
		Rule: aws.String(name),
		Targets: []types.Target{{
			Id:      aws.String("1"),
			Arn:     aws.String(s.target.DocumentARN(entry.Region)),
			RoleArn: aws.String(s.target.RoleARN),
			RunCommandParameters: &types.RunCommandParameters{
				RunCommandTargets: []types.RunCommandTarget{{
					Key:    aws.String("InstanceIds"),
					Values: []string{entry.InstanceID},
				}},
			},
		}},
	})
	if err != nil {
		return Created{}, fmt.Errorf("error putting targets on rule %s: %w", name, err)
	}
	if targets.FailedEntryCount > 0 {
		msg := "unknown error"
		if len(targets.FailedEntries) > 0 {
			msg = aws.ToString(targets.FailedEntries[0].ErrorMessage)
		}
		return Created{}, fmt.Errorf("target rejected on rule %s: %w", name, errors.New(msg))
	}

	return Created{Rule: name, RuleARN: aws.ToString(out.RuleArn), Region: entry.Region}, nil
}
