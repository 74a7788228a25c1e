// File: pkg/compute/ec2/tags.go
package ec2

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"opskit/pkg/awsutil"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

var (
	ErrNoInstances = errors.New("no instance IDs provided")
	ErrNoTags      = errors.New("no tags provided")
)

// Finds the region holding the instance by probing each region in order.
// Returns "" when no region knows the instance
func (s *Service) Locate(ctx context.Context, instanceID string, regions []string) (string, error) {
	for _, region := range regions {
		s.logger.Debug("Searching for instance", "instance", instanceID, "region", region)
		out, err := s.clients(region).DescribeInstances(ctx, &ec2.DescribeInstancesInput{
			InstanceIds: []string{instanceID},
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			if !awsutil.IsErrorCode(err, "InvalidInstanceID.*") {
				s.logger.Warn("Error searching for instance", "instance", instanceID, "region", region, "error", err)
			}
			continue
		}
		if len(out.Reservations) > 0 {
			return region, nil
		}
	}
	return "", nil
}

type RegionTagging struct {
	Region      string
	InstanceIDs []string
	Err         error
}

type TagResult struct {
	// One entry per region holding at least one requested instance, in discovery order
	Regions  []RegionTagging
	NotFound []string
}

func (r TagResult) Failed() []RegionTagging {
	var out []RegionTagging
	for _, rt := range r.Regions {
		if rt.Err != nil {
			out = append(out, rt)
		}
	}
	return out
}

// Applies tags to the instances, issuing one CreateTags call per region.
// Unknown instances and failing regions are recorded in the result without stopping the rest
func (s *Service) Tag(ctx context.Context, instanceIDs []string, tags map[string]string, regions []string) (TagResult, error) {
	var result TagResult
	if len(instanceIDs) == 0 {
		return result, ErrNoInstances
	}
	if len(tags) == 0 {
		return result, ErrNoTags
	}

	byRegion := make(map[string]int)
	for _, id := range instanceIDs {
		region, err := s.Locate(ctx, id, regions)
		if err != nil {
			return result, err
		}
		if region == "" {
			s.logger.Warn("Instance not found in any region, skipping", "instance", id)
			result.NotFound = append(result.NotFound, id)
			continue
		}
		idx, ok := byRegion[region]
		if !ok {
			idx = len(result.Regions)
			byRegion[region] = idx
			result.Regions = append(result.Regions, RegionTagging{Region: region})
		}
		result.Regions[idx].InstanceIDs = append(result.Regions[idx].InstanceIDs, id)
	}

	ec2Tags := toEC2Tags(tags)
	for i := range result.Regions {
		rt := &result.Regions[i]
		_, err := s.clients(rt.Region).CreateTags(ctx, &ec2.CreateTagsInput{
			Resources: rt.InstanceIDs,
			Tags:      ec2Tags,
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			rt.Err = err
			s.logger.Error("Failed to tag instances", "region", rt.Region, "instances", rt.InstanceIDs, "error", err)
			continue
		}
		s.logger.Info("Tagged instances", "region", rt.Region, "instances", rt.InstanceIDs)
	}
	return result, nil
}

func toEC2Tags(tags map[string]string) []types.Tag {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]types.Tag, 0, len(keys))
	for _, k := range keys {
		out = append(out, types.Tag{Key: aws.String(k), Value: aws.String(tags[k])})
	}
	return out
}

// Parses key=value pairs. Values may be empty and may contain '='
func ParseTags(pairs []string) (map[string]string, error) {
	tags := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid tag %q: expected key=value", pair)
		}
		tags[key] = value
	}
	return tags, nil
}
