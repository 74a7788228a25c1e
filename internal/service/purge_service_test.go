// File: internal/service/purge_service_test.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"opskit/internal/config"
	"opskit/internal/provider/factory"
	"opskit/internal/provider/registry"
	"opskit/pkg/common"
	"opskit/pkg/purge"
	"opskit/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStorage keeps objects per bucket. Keys listed in locked can never be deleted
type memStorage struct {
	mu       sync.Mutex
	objects  map[string][]storage.Candidate
	locked   map[string]bool
	usage    int64
	usageErr error
	deletes  int
	closed   bool
}

func (m *memStorage) ProviderName() common.Provider { return "MEM" }

func (m *memStorage) filter(bucket, prefix string, versioned bool) []storage.Candidate {
	var out []storage.Candidate
	for _, c := range m.objects[bucket] {
		if strings.HasPrefix(c.Key, prefix) && (c.VersionID != "") == versioned {
			out = append(out, c)
		}
	}
	return out
}

func (m *memStorage) ListObjectVersions(_ context.Context, bucket, prefix string) ([]storage.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(bucket, prefix, true), nil
}

func (m *memStorage) ListObjects(_ context.Context, bucket, prefix string) ([]storage.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(bucket, prefix, false), nil
}

func (m *memStorage) DeleteObjects(_ context.Context, bucket string, batch []storage.Candidate) (storage.DeleteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++

	var result storage.DeleteResult
	remove := make(map[storage.Candidate]bool)
	for _, c := range batch {
		if m.locked[c.Key] {
			result.Errors = append(result.Errors, storage.DeleteError{Key: c.Key, VersionID: c.VersionID, Code: "AccessDenied", Message: "Access Denied"})
			continue
		}
		remove[c] = true
		result.Deleted++
	}
	kept := m.objects[bucket][:0]
	for _, c := range m.objects[bucket] {
		if !remove[c] {
			kept = append(kept, c)
		}
	}
	m.objects[bucket] = kept
	return result, nil
}

func (m *memStorage) BucketUsage(context.Context, string) (int64, error) {
	if m.usageErr != nil {
		return -1, m.usageErr
	}
	return m.usage, nil
}

func (m *memStorage) Close() error {
	m.closed = true
	return nil
}

// The registry is process-global, so the fake provider hands out whatever store the current test installed
var (
	currentStore   *memStorage
	currentStoreMu sync.Mutex
)

func init() {
	registry.RegisterProvider("svc-mem", registry.ProviderRegistration{
		ConfigCheck: func(*config.Config) error { return nil },
		Initializer: func(context.Context, *config.Config, *slog.Logger) (storage.Storage, error) {
			currentStoreMu.Lock()
			defer currentStoreMu.Unlock()
			if currentStore == nil {
				return nil, errors.New("no store installed")
			}
			return currentStore, nil
		},
	})
}

func installStore(t *testing.T, store *memStorage) {
	t.Helper()
	currentStoreMu.Lock()
	currentStore = store
	currentStoreMu.Unlock()
	t.Cleanup(func() {
		currentStoreMu.Lock()
		currentStore = nil
		currentStoreMu.Unlock()
	})
}

func newTestService() *PurgeService {
	logger := slog.New(slog.DiscardHandler)
	return NewPurgeService(factory.NewFactory(&config.Config{}, logger), logger)
}

func seed(bucket string, n int, prefix string, versioned bool) map[string][]storage.Candidate {
	objects := make(map[string][]storage.Candidate)
	for i := range n {
		c := storage.Candidate{Key: fmt.Sprintf("%s%04d", prefix, i)}
		if versioned {
			c.VersionID = fmt.Sprintf("v%d", i)
		}
		objects[bucket] = append(objects[bucket], c)
	}
	return objects
}

func fastPolicy() purge.Policy {
	return purge.Policy{MaxRounds: 3, InitialBackoff: 0, MaxBackoff: 0, Multiplier: 1}
}

func TestPurge_DeletesEverything(t *testing.T) {
	store := &memStorage{objects: seed("b", 1200, "logs/", false), usage: 4096}
	store.objects["b"] = append(store.objects["b"], seed("b", 30, "logs/", true)["b"]...)
	store.objects["b"] = append(store.objects["b"], storage.Candidate{Key: "keep/me"})
	installStore(t, store)

	var progress []string
	outcome, err := newTestService().Purge(context.Background(), PurgeRequest{
		Provider: "svc-mem",
		Bucket:   "b",
		Prefixes: []string{"logs/", "missing/"},
		Policy:   fastPolicy(),
		Progress: func(r purge.PrefixReport) { progress = append(progress, r.Message()) },
	})
	require.NoError(t, err)

	assert.Equal(t, int64(4096), outcome.UsageBytes)
	require.Len(t, outcome.Report.Prefixes, 2)
	assert.Equal(t, 1230, outcome.Report.TotalDeleted())
	assert.Equal(t, []string{
		"successfully deleted all objects for prefix: logs/",
		"no objects found for prefix: missing/",
	}, progress)
	assert.Equal(t, []storage.Candidate{{Key: "keep/me"}}, store.objects["b"])
	assert.Equal(t, 2, store.deletes)
	assert.True(t, store.closed)
}

func TestPurge_DryRunDeletesNothing(t *testing.T) {
	store := &memStorage{objects: seed("b", 5, "tmp/", false), usageErr: storage.ErrMetricsNotFound}
	store.objects["b"] = append(store.objects["b"], seed("b", 2, "tmp/", true)["b"]...)
	installStore(t, store)

	outcome, err := newTestService().Purge(context.Background(), PurgeRequest{
		Provider: "svc-mem",
		Bucket:   "b",
		Prefixes: []string{"tmp/"},
		DryRun:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-1), outcome.UsageBytes)
	assert.Equal(t, []purge.PlanEntry{{Prefix: "tmp/", Versions: 2, Current: 5}}, outcome.Plan)
	assert.Zero(t, store.deletes)
	assert.Len(t, store.objects["b"], 7)
}

func TestPurge_IncompletePrefixIsReported(t *testing.T) {
	store := &memStorage{
		objects:  seed("b", 3, "stuck/", false),
		locked:   map[string]bool{"stuck/0001": true},
		usageErr: errors.New("metrics unavailable"),
	}
	store.objects["b"] = append(store.objects["b"], seed("b", 2, "free/", false)["b"]...)
	installStore(t, store)

	outcome, err := newTestService().Purge(context.Background(), PurgeRequest{
		Provider: "svc-mem",
		Bucket:   "b",
		Prefixes: []string{"stuck/", "free/"},
		Policy:   fastPolicy(),
	})

	var incomplete *purge.IncompleteError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, "stuck/", incomplete.Prefix)
	assert.Equal(t, 1, incomplete.Remaining)
	assert.Equal(t, int64(-1), outcome.UsageBytes)

	require.Len(t, outcome.Report.Prefixes, 2)
	assert.True(t, outcome.Report.Prefixes[1].Complete)
	assert.Equal(t, []storage.Candidate{{Key: "stuck/0001"}}, store.objects["b"])
}

func TestPurge_Errors(t *testing.T) {
	svc := newTestService()

	_, err := svc.Purge(context.Background(), PurgeRequest{Provider: "svc-mem", Prefixes: []string{"a/"}})
	assert.EqualError(t, err, "bucket name is required")

	_, err = svc.Purge(context.Background(), PurgeRequest{Provider: "nope", Bucket: "b", Prefixes: []string{"a/"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error initializing provider: unsupported provider: nope")

	// No store installed: the initializer fails
	_, err = svc.Purge(context.Background(), PurgeRequest{Provider: "svc-mem", Bucket: "b", Prefixes: []string{"a/"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no store installed")
}

func TestPurge_ConfirmSeesUsageBeforeDeleting(t *testing.T) {
	store := &memStorage{objects: seed("b", 3, "logs/", false), usage: 1 << 20}
	installStore(t, store)

	tests := []struct {
		name        string
		answer      bool
		answerErr   error
		wantDeletes int
		wantErr     string
	}{
		{name: "declined", answer: false},
		{name: "prompt error", answerErr: errors.New("stdin closed"), wantErr: "stdin closed"},
		{name: "confirmed", answer: true, wantDeletes: 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var seen int64
			deletesBefore := store.deletes
			outcome, err := newTestService().Purge(context.Background(), PurgeRequest{
				Provider: "svc-mem",
				Bucket:   "b",
				Prefixes: []string{"logs/"},
				Policy:   fastPolicy(),
				Confirm: func(usage int64) (bool, error) {
					seen = usage
					assert.Zero(t, store.deletes-deletesBefore, "nothing is deleted before confirmation")
					return tc.answer, tc.answerErr
				},
			})
			assert.Equal(t, int64(1<<20), seen)
			assert.Equal(t, int64(1<<20), outcome.UsageBytes)
			assert.Equal(t, tc.wantDeletes, store.deletes-deletesBefore)
			if tc.wantErr != "" {
				assert.EqualError(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, !tc.answer, outcome.Cancelled)
		})
	}
}

func TestPurge_UnknownUsage(t *testing.T) {
	installStore(t, &memStorage{objects: map[string][]storage.Candidate{}, usageErr: errors.New("no metrics")})

	var seen int64
	outcome, err := newTestService().Purge(context.Background(), PurgeRequest{
		Provider: "svc-mem",
		Bucket:   "b",
		Prefixes: []string{"a/"},
		DryRun:   true,
		Confirm: func(usage int64) (bool, error) {
			seen = usage
			return true, nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-1), seen)
	assert.Equal(t, int64(-1), outcome.UsageBytes)
}
