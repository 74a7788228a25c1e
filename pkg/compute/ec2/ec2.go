// File: pkg/compute/ec2/ec2.go
package ec2

import (
	"context"
	"log/slog"
	"time"

	"opskit/pkg/awsutil"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

const notAvailable = "N/A"

// API is the subset of *ec2.Client used here
type API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	CreateTags(ctx context.Context, params *ec2.CreateTagsInput, optFns ...func(*ec2.Options)) (*ec2.CreateTagsOutput, error)
}

// Returns a client bound to the given region
type ClientFactory func(region string) API

// Builds a ClientFactory from the shared loader
func NewClientFactory(loader *awsutil.Loader) ClientFactory {
	return func(region string) API {
		return ec2.NewFromConfig(loader.ForRegion(region))
	}
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
		logger:      logger.With("service", "EC2Service"),
		concurrency: concurrency,
	}
}

type Instance struct {
	Region     string
	ID         string
	Name       string
	Type       string
	State      string
	PublicIP   string
	PrivateIP  string
	LaunchTime time.Time
}

var InventoryHeader = []string{"Region", "Instance ID", "Instance Name", "Instance Type", "State", "Public IP", "Private IP", "Launch Time"}

func (i Instance) Row() []string {
	launch := notAvailable
	if !i.LaunchTime.IsZero() {
		launch = i.LaunchTime.UTC().Format(time.RFC3339)
	}
	return []string{i.Region, i.ID, i.Name, i.Type, i.State, i.PublicIP, i.PrivateIP, launch}
}

func mapInstance(region string, inst types.Instance) Instance {
	out := Instance{
		Region:    region,
		ID:        aws.ToString(inst.InstanceId),
		Name:      instanceName(inst.Tags),
		Type:      string(inst.InstanceType),
		PublicIP:  orNotAvailable(aws.ToString(inst.PublicIpAddress)),
		PrivateIP: orNotAvailable(aws.ToString(inst.PrivateIpAddress)),
	}
	if inst.State != nil {
		out.State = string(inst.State.Name)
	}
	if inst.LaunchTime != nil {
		out.LaunchTime = *inst.LaunchTime
	}
	return out
}

func instanceName(tags []types.Tag) string {
	for _, tag := range tags {
		if aws.ToString(tag.Key) == "Name" {
			return aws.ToString(tag.Value)
		}
	}
	return notAvailable
}

func orNotAvailable(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
