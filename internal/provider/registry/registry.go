// File: internal/provider/registry/registry.go
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"opskit/internal/config"
	"opskit/pkg/storage"
)

// Reports why the provider cannot be used with cfg, or nil when it can.
// The error should name the config keys that are missing
type ProviderConfigCheck func(cfg *config.Config) error

// Builds a ready storage client for a provider whose config check passed
type ProviderInitializer func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error)

type ProviderRegistration struct {
	ConfigCheck ProviderConfigCheck
	Initializer ProviderInitializer
}

// A registration together with the name it was registered under
type Entry struct {
	Name string
	ProviderRegistration
}

var (
	// Keyed by the lowercase provider name
	providerRegistry = make(map[string]ProviderRegistration)
	registryMu       sync.RWMutex
)

// Called from the init() of each storage backend package
func RegisterProvider(name string, registration ProviderRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()

	normalizedName := normalize(name)
	if normalizedName == "" {
		panic("provider name cannot be empty")
	}
	if _, exists := providerRegistry[normalizedName]; exists {
		panic(fmt.Sprintf("provider %s already registered", normalizedName))
	}
	if registration.ConfigCheck == nil {
		panic(fmt.Sprintf("provider %s registration missing ConfigCheck", normalizedName))
	}
	if registration.Initializer == nil {
		panic(fmt.Sprintf("provider %s registration missing Initializer", normalizedName))
	}

	providerRegistry[normalizedName] = registration
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Returns a sorted list of all registered provider names
func GetSupportedProviders() []string {
	entries := Entries()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// Looks a provider up by name, ignoring case and surrounding space
func GetRegistration(providerName string) (Entry, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	name := normalize(providerName)
	registration, exists := providerRegistry[name]
	return Entry{Name: name, ProviderRegistration: registration}, exists
}

// Returns a snapshot of every registration sorted by name
func Entries() []Entry {
	registryMu.RLock()
	defer registryMu.RUnlock()

	entries := make([]Entry, 0, len(providerRegistry))
	for name, registration := range providerRegistry {
		entries = append(entries, Entry{Name: name, ProviderRegistration: registration})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}
