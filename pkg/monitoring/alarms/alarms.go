// File: pkg/monitoring/alarms/alarms.go
package alarms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"opskit/pkg/awsutil"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

var ErrNoInstances = errors.New("no instance IDs provided")

// API is the subset of *cloudwatch.Client used here
type API interface {
	PutMetricAlarm(ctx context.Context, params *cloudwatch.PutMetricAlarmInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricAlarmOutput, error)
}

type ClientFactory func(region string) API

func NewClientFactory(loader *awsutil.Loader) ClientFactory {
	return func(region string) API {
		return cloudwatch.NewFromConfig(loader.ForRegion(region))
	}
}

// Locator finds the region an instance lives in; "" means not found
type Locator interface {
	Locate(ctx context.Context, instanceID string, regions []string) (string, error)
}

type Settings struct {
	NamePrefix         string
	Namespace          string
	MetricName         string
	Statistic          string
	Threshold          float64
	Period             int32
	EvaluationPeriods  int32
	ComparisonOperator string
}

func (s Settings) AlarmName(instanceID string) string {
	return fmt.Sprintf("%s_%s", s.NamePrefix, instanceID)
}

type Failure struct {
	InstanceID string
	Region     string
	Err        error
}

type Result struct {
	Entries  []ManifestEntry
	NotFound []string
	Failed   []Failure
}

type Service struct {
	clients  ClientFactory
	locator  Locator
	settings Settings
	logger   *slog.Logger
}

func NewService(clients ClientFactory, locator Locator, settings Settings, logger *slog.Logger) *Service {
	return &Service{
		clients:  clients,
		locator:  locator,
		settings: settings,
		logger:   logger.With("service", "AlarmService"),
	}
}

// Creates one metric alarm per instance in the instance's own region and returns the manifest entries
func (s *Service) Create(ctx context.Context, instanceIDs []string, regions []string) (Result, error) {
	var result Result
	if len(instanceIDs) == 0 {
		return result, ErrNoInstances
	}

	for _, id := range instanceIDs {
		region, err := s.locator.Locate(ctx, id, regions)
		if err != nil {
			return result, err
		}
		if region == "" {
			s.logger.Warn("Instance not found in any region, skipping", "instance", id)
			result.NotFound = append(result.NotFound, id)
			continue
		}

		entry, err := s.createAlarm(ctx, id, region)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			s.logger.Error("Failed to create alarm", "instance", id, "region", region, "error", err)
			result.Failed = append(result.Failed, Failure{InstanceID: id, Region: region, Err: err})
			continue
		}
		s.logger.Info("Created alarm", "alarm", entry.Alarm, "instance", id, "region", region)
		result.Entries = append(result.Entries, entry)
	}
	return result, nil
}

func (s *Service) createAlarm(ctx context.Context, instanceID, region string) (ManifestEntry, error) {
	name := s.settings.AlarmName(instanceID)
	_, err := s.clients(region).PutMetricAlarm(ctx, &cloudwatch.PutMetricAlarmInput{
		AlarmName:          aws.String(name),
		Namespace:          aws.String(s.settings.Namespace),
		MetricName:         aws.String(s.settings.MetricName),
		Dimensions:         []types.Dimension{{Name: aws.String("InstanceId"), Value: aws.String(instanceID)}},
		Statistic:          types.Statistic(s.settings.Statistic),
		Period:             aws.Int32(s.settings.Period),
		EvaluationPeriods:  aws.Int32(s.settings.EvaluationPeriods),
		Threshold:          aws.Float64(s.settings.Threshold),
		ComparisonOperator: types.ComparisonOperator(s.settings.ComparisonOperator),
		AlarmDescription:   aws.String(fmt.Sprintf("High %s alarm for instance %s", s.settings.MetricName, instanceID)),
	})
	if err != nil {
		return ManifestEntry{}, fmt.Errorf("error creating alarm %s: %w", name, err)
	}

	pattern, err := EventPatternFor(name)
	if err != nil {
		return ManifestEntry{}, err
	}
	return ManifestEntry{Alarm: name, Region: region, InstanceID: instanceID, EventPattern: pattern}, nil
}
