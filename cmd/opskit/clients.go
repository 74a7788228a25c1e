// File: cmd/opskit/clients.go
package main

import (
	"context"

	"opskit/pkg/audit"
	"opskit/pkg/awsutil"
	"opskit/pkg/compute/ec2"
	"opskit/pkg/database/rds"
	"opskit/pkg/events"
	"opskit/pkg/monitoring/alarms"

	ec2sdk "github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// awsClients holds the per-region client factories used by the AWS commands
type awsClients struct {
	EC2        ec2.ClientFactory
	RDS        rds.ClientFactory
	CloudWatch alarms.ClientFactory
	Events     events.ClientFactory
	CloudTrail audit.ClientFactory
	Regions    func(region string) awsutil.RegionLister
	Identity   func(region string) awsutil.IdentityGetter
}

func newAWSClients(loader *awsutil.Loader) awsClients {
	return awsClients{
		EC2:        ec2.NewClientFactory(loader),
		RDS:        rds.NewClientFactory(loader),
		CloudWatch: alarms.NewClientFactory(loader),
		Events:     events.NewClientFactory(loader),
		CloudTrail: audit.NewClientFactory(loader),
		Regions: func(region string) awsutil.RegionLister {
			return ec2sdk.NewFromConfig(loader.ForRegion(region))
		},
		Identity: func(region string) awsutil.IdentityGetter {
			return sts.NewFromConfig(loader.ForRegion(region))
		},
	}
}

// Resolves credentials and builds the client factories. Tests replace it with fakes
var connectAWS = func(ctx context.Context, opts awsutil.Options) (awsClients, error) {
	loader, err := awsutil.NewLoader(ctx, opts)
	if err != nil {
		return awsClients{}, err
	}
	return newAWSClients(loader), nil
}
