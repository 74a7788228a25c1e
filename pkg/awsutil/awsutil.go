// File: pkg/awsutil/awsutil.go
package awsutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
)

// Region used for global lookups (DescribeRegions, STS) when none is configured
const FallbackRegion = "us-east-1"

type Options struct {
	Profile     string
	Region      string
	Endpoint    string
	MaxAttempts int
}

// Loader resolves credentials once and hands out per-region copies of the resulting config
type Loader struct {
	base aws.Config
}

func NewLoader(ctx context.Context, opts Options) (*Loader, error) {
	region := opts.Region
	if region == "" {
		region = FallbackRegion
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(opts.Profile))
	}
	if opts.MaxAttempts > 0 {
		loadOpts = append(loadOpts, awsconfig.WithRetryMaxAttempts(opts.MaxAttempts))
	}
	if opts.Endpoint != "" {
		loadOpts = append(loadOpts, awsconfig.WithBaseEndpoint(opts.Endpoint))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &Loader{base: cfg}, nil
}

func (l *Loader) Config() aws.Config {
	return l.base.Copy()
}

func (l *Loader) ForRegion(region string) aws.Config {
	cfg := l.base.Copy()
	cfg.Region = region
	return cfg
}

type RegionLister interface {
	DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
}

// Returns the configured regions when given, otherwise every region enabled for the account, sorted
func ResolveRegions(ctx context.Context, client RegionLister, configured []string) ([]string, error) {
	var regions []string
	for _, r := range configured {
		if r = strings.TrimSpace(r); r != "" {
			regions = append(regions, r)
		}
	}
	if len(regions) > 0 {
		return regions, nil
	}

	out, err := client.DescribeRegions(ctx, &ec2.DescribeRegionsInput{})
	if err != nil {
		return nil, fmt.Errorf("error describing regions: %w", err)
	}
	for _, r := range out.Regions {
		if name := aws.ToString(r.RegionName); name != "" {
			regions = append(regions, name)
		}
	}
	if len(regions) == 0 {
		return nil, errors.New("no regions returned by DescribeRegions")
	}
	sort.Strings(regions)
	return regions, nil
}

type IdentityGetter interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Returns the account id of the calling credentials
func AccountID(ctx context.Context, client IdentityGetter) (string, error) {
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("error getting caller identity: %w", err)
	}
	account := aws.ToString(out.Account)
	if account == "" {
		return "", errors.New("caller identity has no account id")
	}
	return account, nil
}

// Returns the service error code carried by err, or "" if err is not an API error
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// Reports whether err carries one of the given codes. A code ending in ".*" matches any code with that prefix
func IsErrorCode(err error, codes ...string) bool {
	code := ErrorCode(err)
	if code == "" {
		return false
	}
	for _, c := range codes {
		if prefix, ok := strings.CutSuffix(c, "*"); ok {
			if strings.HasPrefix(code, prefix) {
				return true
			}
			continue
		}
		if c == code {
			return true
		}
	}
	return false
}
