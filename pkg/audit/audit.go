// File: pkg/audit/audit.go
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"opskit/pkg/awsutil"

	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/afero"
)

const (
	EventName         = "ModifyVolume"
	DefaultMaxRetries = 5
)

var ErrNoEvents = errors.New("no events found in the specified time window")

// API is the subset of *cloudtrail.Client used here
type API interface {
	LookupEvents(ctx context.Context, params *cloudtrail.LookupEventsInput, optFns ...func(*cloudtrail.Options)) (*cloudtrail.LookupEventsOutput, error)
}

type ClientFactory func(region string) API

func NewClientFactory(loader *awsutil.Loader) ClientFactory {
	return func(region string) API {
		return cloudtrail.NewFromConfig(loader.ForRegion(region))
	}
}

type Window struct {
	Start time.Time
	End   time.Time
}

// Fills a zero End with now and checks the window is usable
func (w Window) resolve(now time.Time) (Window, error) {
	if w.Start.IsZero() {
		return w, errors.New("start time is required")
	}
	if w.End.IsZero() {
		w.End = now
	}
	if !w.End.After(w.Start) {
		return w, fmt.Errorf("end time %s must be after start time %s", w.End.Format(time.RFC3339), w.Start.Format(time.RFC3339))
	}
	return w, nil
}

type Files struct {
	// Consolidated per-volume CSV
	Output string
	// Every matching CloudTrail event as one JSON document per line
	RawEvents string
}

type Summary struct {
	Volumes       []VolumeChange
	Events        int
	Skipped       int
	FailedRegions []string
}

type Option func(*Service)

func WithMaxRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// Replaces the backoff used between retries of a single page
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(s *Service) { s.newBackOff = newBackOff }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

type Service struct {
	clients    ClientFactory
	fs         afero.Fs
	logger     *slog.Logger
	maxRetries int
	newBackOff func() backoff.BackOff
	now        func() time.Time
}

func NewService(clients ClientFactory, fs afero.Fs, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		clients:    clients,
		fs:         fs,
		logger:     logger.With("service", "VolumeAuditService"),
		maxRetries: DefaultMaxRetries,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
