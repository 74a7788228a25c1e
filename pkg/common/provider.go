// File: pkg/common/provider.go
package common

import "strings"

// Provider is the display name of a storage backend
type Provider string

const (
	GCP Provider = "GCP"
	AWS Provider = "AWS"
)

// Key is the lowercase name used on the command line, in config and in the provider registry
func (p Provider) Key() string {
	return strings.ToLower(string(p))
}
