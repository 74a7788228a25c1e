// File: internal/provider/registry/registry_test.go
package registry

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"opskit/internal/config"
	"opskit/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopRegistration() ProviderRegistration {
	return ProviderRegistration{
		ConfigCheck: func(*config.Config) error { return nil },
		Initializer: func(context.Context, *config.Config, *slog.Logger) (storage.Storage, error) { return nil, nil },
	}
}

func TestRegisterProvider(t *testing.T) {
	RegisterProvider(" Registry-Test-A ", noopRegistration())

	_, ok := GetRegistration("REGISTRY-TEST-A")
	assert.True(t, ok)
	entry, ok := GetRegistration(" registry-test-a")
	require.True(t, ok)
	assert.Equal(t, "registry-test-a", entry.Name)
	assert.NoError(t, entry.ConfigCheck(&config.Config{}))
	assert.Contains(t, GetSupportedProviders(), "registry-test-a")
}

func TestRegisterProvider_Panics(t *testing.T) {
	RegisterProvider("registry-test-dup", noopRegistration())

	assert.PanicsWithValue(t, "provider registry-test-dup already registered", func() {
		RegisterProvider("Registry-Test-Dup", noopRegistration())
	})
	assert.PanicsWithValue(t, "provider name cannot be empty", func() {
		RegisterProvider("  ", noopRegistration())
	})
	assert.Panics(t, func() {
		RegisterProvider("registry-test-nocheck", ProviderRegistration{Initializer: noopRegistration().Initializer})
	})
	assert.Panics(t, func() {
		RegisterProvider("registry-test-noinit", ProviderRegistration{ConfigCheck: noopRegistration().ConfigCheck})
	})
	_, ok := GetRegistration("registry-test-noinit")
	assert.False(t, ok)
}

func TestEntries_SortedSnapshot(t *testing.T) {
	RegisterProvider("registry-test-zz", ProviderRegistration{
		ConfigCheck: func(*config.Config) error { return errors.New("zz.key is not set") },
		Initializer: noopRegistration().Initializer,
	})
	RegisterProvider("registry-test-aa", noopRegistration())

	entries := Entries()
	for i := 1; i < len(entries); i++ {
		assert.Less(t, entries[i-1].Name, entries[i].Name)
	}

	entries[0].Name = "mutated"
	assert.NotEqual(t, "mutated", Entries()[0].Name)

	zz, ok := GetRegistration("registry-test-zz")
	require.True(t, ok)
	assert.EqualError(t, zz.ConfigCheck(&config.Config{}), "zz.key is not set")
}
