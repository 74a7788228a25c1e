// File: internal/flags/flags.go
package flags

// Centralized definitions for CLI flags used across the application

const (
	// Provider flags select the storage backend for a purge (aws or gcp)
	Provider      = "provider"
	ProviderShort = "p"

	// Bucket flags are used to specify the target bucket for object-level operations
	Bucket      = "bucket"
	BucketShort = "b"

	// File flags point at a newline-delimited list of prefixes
	File      = "file"
	FileShort = "F"

	// Prefix flags add prefixes on the command line, in addition to or instead of --file
	Prefix = "prefix"

	// DryRun flags report what would be deleted without deleting
	DryRun = "dry-run"

	MaxRounds = "max-rounds"

	// Force flags are used to bypass interactive confirmation prompts for destructive operations
	Force      = "force"
	ForceShort = "f"

	// Config flags point at an alternate config file
	Config = "config"

	// Debug flags are used to enable verbose logging
	Debug      = "debug"
	DebugShort = "d"

	// Region flags restrict multi-region commands; repeatable or comma-separated
	Regions      = "regions"
	RegionsShort = "r"

	Output      = "output"
	OutputShort = "o"

	Instance = "instance"
	Tag      = "tag"

	// InstancesFile reads instance ids from the Instance ID column of an inventory CSV
	InstancesFile = "instances-file"

	// FileOnly limits config listing to the values stored in the config file
	FileOnly = "file-only"

	Manifest = "manifest"
	Account  = "account"

	Start = "start"
	End   = "end"
)
