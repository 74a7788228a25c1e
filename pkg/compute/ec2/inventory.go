// File: pkg/compute/ec2/inventory.go
package ec2

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"opskit/pkg/report"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// Lists every instance in every region. Regions are scanned concurrently but the result
// keeps region order; a region that fails is logged and left out
func (s *Service) Inventory(ctx context.Context, regions []string) ([]Instance, error) {
	perRegion := make([][]Instance, len(regions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, region := range regions {
		g.Go(func() error {
			instances, err := s.listRegion(gctx, region)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Error("Failed to list instances, skipping region", "region", region, "error", err)
				return nil
			}
			perRegion[i] = instances
			s.logger.Debug("Listed instances", "region", region, "count", len(instances))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Instance
	for _, instances := range perRegion {
		all = append(all, instances...)
	}
	return all, nil
}

func (s *Service) listRegion(ctx context.Context, region string) ([]Instance, error) {
	paginator := ec2.NewDescribeInstancesPaginator(s.clients(region), &ec2.DescribeInstancesInput{})

	var instances []Instance
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error describing instances in %s: %w", region, err)
		}
		for _, reservation := range page.Reservations {
			for _, inst := range reservation.Instances {
				instances = append(instances, mapInstance(region, inst))
			}
		}
	}
	return instances, nil
}

// Reads the Instance ID column of an inventory CSV, such as one written from Inventory.
// Blank cells are skipped and file order is kept
func ReadInstanceIDs(fs afero.Fs, path string) ([]string, error) {
	header, rows, err := report.ReadCSV(fs, path)
	if err != nil {
		return nil, err
	}
	idColumn := InventoryHeader[1]
	col := slices.Index(header, idColumn)
	if col < 0 {
		return nil, fmt.Errorf("%s has no %q column", path, idColumn)
	}

	var ids []string
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		if id := strings.TrimSpace(row[col]); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%s lists no instances: %w", path, ErrNoInstances)
	}
	return ids, nil
}
