// File: pkg/database/rds/rds.go
package rds

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"opskit/pkg/awsutil"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/rds/types"
	"golang.org/x/sync/errgroup"
)

// API is the subset of *rds.Client used here
type API interface {
	DescribeDBInstances(ctx context.Context, params *rds.DescribeDBInstancesInput, optFns ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error)
	DescribeDBClusters(ctx context.Context, params *rds.DescribeDBClustersInput, optFns ...func(*rds.Options)) (*rds.DescribeDBClustersOutput, error)
}

type ClientFactory func(region string) API

func NewClientFactory(loader *awsutil.Loader) ClientFactory {
	return func(region string) API {
		return rds.NewFromConfig(loader.ForRegion(region))
	}
}

const (
	ResourceInstance = "Instance"
	ResourceCluster  = "Cluster"

	RolePrimary = "Primary"
	RoleReplica = "Replica"
)

var Header = []string{"ResourceType", "Region", "Identifier", "Status", "Role", "Engine", "Size", "MultiAZ"}

type Resource struct {
	Type       string
	Region     string
	Identifier string
	Status     string
	// Primary, Replica, or the source instance of a read replica
	Role    string
	Engine  string
	Size    string
	MultiAZ string
}

func (r Resource) Row() []string {
	return []string{r.Type, r.Region, r.Identifier, r.Status, r.Role, r.Engine, r.Size, r.MultiAZ}
}

func OutputFileName(accountID string) string {
	return fmt.Sprintf("%s_rds_resources.csv", accountID)
}

type Service struct {
	clients     ClientFactory
	logger      *slog.Logger
	concurrency int
}

func NewService(clients ClientFactory, logger *slog.Logger, concurrency int) *Service {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{
		clients:     clients,
		logger:      logger.With("service", "RDSService"),
		concurrency: concurrency,
	}
}

// Lists DB instances then DB clusters for every region, in region order.
// Instance and cluster listings fail independently; a failure is logged and skipped
func (s *Service) Inventory(ctx context.Context, regions []string) ([]Resource, error) {
	perRegion := make([][]Resource, len(regions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, region := range regions {
		g.Go(func() error {
			s.logger.Info("Checking RDS resources", "region", region)
			client := s.clients(region)

			instances, err := s.listInstances(gctx, client, region)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Error("Could not retrieve RDS instances", "region", region, "error", err)
			}
			clusters, err := s.listClusters(gctx, client, region)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Error("Could not retrieve RDS clusters", "region", region, "error", err)
			}
			perRegion[i] = append(instances, clusters...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Resource
	for _, resources := range perRegion {
		all = append(all, resources...)
	}
	return all, nil
}

func (s *Service) listInstances(ctx context.Context, client API, region string) ([]Resource, error) {
	paginator := rds.NewDescribeDBInstancesPaginator(client, &rds.DescribeDBInstancesInput{})
	var out []Resource
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return out, err
		}
		for _, db := range page.DBInstances {
			out = append(out, mapInstance(region, db))
		}
	}
	return out, nil
}

func (s *Service) listClusters(ctx context.Context, client API, region string) ([]Resource, error) {
	paginator := rds.NewDescribeDBClustersPaginator(client, &rds.DescribeDBClustersInput{})
	var out []Resource
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return out, err
		}
		for _, c := range page.DBClusters {
			out = append(out, mapCluster(region, c))
		}
	}
	return out, nil
}

func mapInstance(region string, db types.DBInstance) Resource {
	role := RolePrimary
	if src := aws.ToString(db.ReadReplicaSourceDBInstanceIdentifier); src != "" {
		role = src
	}
	return Resource{
		Type:       ResourceInstance,
		Region:     region,
		Identifier: aws.ToString(db.DBInstanceIdentifier),
		Status:     aws.ToString(db.DBInstanceStatus),
		Role:       role,
		Engine:     aws.ToString(db.Engine),
		Size:       aws.ToString(db.DBInstanceClass),
		MultiAZ:    formatMultiAZ(db.MultiAZ),
	}
}

func mapCluster(region string, c types.DBCluster) Resource {
	role := RolePrimary
	if len(c.ReadReplicaIdentifiers) > 0 {
		role = RoleReplica
	}
	return Resource{
		Type:       ResourceCluster,
		Region:     region,
		Identifier: aws.ToString(c.DBClusterIdentifier),
		Status:     aws.ToString(c.Status),
		Role:       role,
		Engine:     aws.ToString(c.Engine),
		// Cluster members carry their own instance classes
		Size:    "N/A",
		MultiAZ: formatMultiAZ(c.MultiAZ),
	}
}

func formatMultiAZ(v *bool) string {
	if v == nil {
		return "Unknown"
	}
	return strconv.FormatBool(*v)
}
