// File: cmd/opskit/aws_fake_test.go
package main

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"opskit/pkg/audit"
	"opskit/pkg/awsutil"
	"opskit/pkg/compute/ec2"
	"opskit/pkg/database/rds"
	"opskit/pkg/events"
	"opskit/pkg/monitoring/alarms"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	cttypes "github.com/aws/aws-sdk-go-v2/service/cloudtrail/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	ec2sdk "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	rdssdk "github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// fakeAWS is one account whose resources live in memory, keyed by region
type fakeAWS struct {
	mu sync.Mutex

	account   string
	regions   []string
	instances map[string][]ec2types.Instance
	databases map[string][]rdstypes.DBInstance
	clusters  map[string][]rdstypes.DBCluster
	trail     map[string][]cttypes.Event
	failAlarm map[string]error

	tagged  map[string][]*ec2sdk.CreateTagsInput
	alarms  map[string][]*cloudwatch.PutMetricAlarmInput
	rules   map[string][]*eventbridge.PutRuleInput
	targets map[string][]*eventbridge.PutTargetsInput
}

func newFakeAWS() *fakeAWS {
	return &fakeAWS{
		account:   "123456789012",
		regions:   []string{"us-east-1"},
		instances: map[string][]ec2types.Instance{},
		databases: map[string][]rdstypes.DBInstance{},
		clusters:  map[string][]rdstypes.DBCluster{},
		trail:     map[string][]cttypes.Event{},
		failAlarm: map[string]error{},
		tagged:    map[string][]*ec2sdk.CreateTagsInput{},
		alarms:    map[string][]*cloudwatch.PutMetricAlarmInput{},
		rules:     map[string][]*eventbridge.PutRuleInput{},
		targets:   map[string][]*eventbridge.PutTargetsInput{},
	}
}

func (f *fakeAWS) addInstance(region, id, name string) {
	inst := ec2types.Instance{
		InstanceId:   aws.String(id),
		InstanceType: ec2types.InstanceTypeT3Micro,
		State:        &ec2types.InstanceState{Name: ec2types.InstanceStateNameRunning},
	}
	if name != "" {
		inst.Tags = []ec2types.Tag{{Key: aws.String("Name"), Value: aws.String(name)}}
	}
	f.instances[region] = append(f.instances[region], inst)
}

func (f *fakeAWS) addVolumeChange(region, volume, at string, from, to int) {
	doc := fmt.Sprintf(`{"eventName":"ModifyVolume","awsRegion":%q,"eventTime":%q,`+
		`"requestParameters":{"ModifyVolumeRequest":{"VolumeId":%q,"Size":%d}},`+
		`"responseElements":{"ModifyVolumeResponse":{"volumeModification":{"originalSize":%d,"targetSize":%d}}}}`,
		region, at, volume, to, from, to)
	f.trail[region] = append(f.trail[region], cttypes.Event{EventId: aws.String(volume + at), CloudTrailEvent: aws.String(doc)})
}

func (f *fakeAWS) clients() awsClients {
	return awsClients{
		EC2:        func(region string) ec2.API { return &fakeRegion{f, region} },
		RDS:        func(region string) rds.API { return &fakeRegion{f, region} },
		CloudWatch: func(region string) alarms.API { return &fakeRegion{f, region} },
		Events:     func(region string) events.API { return &fakeRegion{f, region} },
		CloudTrail: func(region string) audit.API { return &fakeRegion{f, region} },
		Regions:    func(region string) awsutil.RegionLister { return &fakeRegion{f, region} },
		Identity:   func(region string) awsutil.IdentityGetter { return &fakeRegion{f, region} },
	}
}

// Routes the AWS commands of the current test to the fake
func useFakeAWS(t *testing.T, f *fakeAWS) {
	t.Helper()
	prev := connectAWS
	connectAWS = func(context.Context, awsutil.Options) (awsClients, error) {
		return f.clients(), nil
	}
	t.Cleanup(func() { connectAWS = prev })
}

// fakeRegion is a client of one service endpoint; it implements every API interface the commands use
type fakeRegion struct {
	f      *fakeAWS
	region string
}

func (c *fakeRegion) DescribeRegions(context.Context, *ec2sdk.DescribeRegionsInput, ...func(*ec2sdk.Options)) (*ec2sdk.DescribeRegionsOutput, error) {
	out := &ec2sdk.DescribeRegionsOutput{}
	for _, r := range c.f.regions {
		out.Regions = append(out.Regions, ec2types.Region{RegionName: aws.String(r)})
	}
	return out, nil
}

func (c *fakeRegion) GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return &sts.GetCallerIdentityOutput{Account: aws.String(c.f.account)}, nil
}

func (c *fakeRegion) DescribeInstances(_ context.Context, params *ec2sdk.DescribeInstancesInput, _ ...func(*ec2sdk.Options)) (*ec2sdk.DescribeInstancesOutput, error) {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()

	var matched []ec2types.Instance
	for _, inst := range c.f.instances[c.region] {
		if len(params.InstanceIds) == 0 || aws.ToString(inst.InstanceId) == params.InstanceIds[0] {
			matched = append(matched, inst)
		}
	}
	out := &ec2sdk.DescribeInstancesOutput{}
	if len(matched) > 0 {
		out.Reservations = []ec2types.Reservation{{Instances: matched}}
	}
	return out, nil
}

func (c *fakeRegion) CreateTags(_ context.Context, params *ec2sdk.CreateTagsInput, _ ...func(*ec2sdk.Options)) (*ec2sdk.CreateTagsOutput, error) {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	c.f.tagged[c.region] = append(c.f.tagged[c.region], params)
	return &ec2sdk.CreateTagsOutput{}, nil
}

func (c *fakeRegion) DescribeDBInstances(context.Context, *rdssdk.DescribeDBInstancesInput, ...func(*rdssdk.Options)) (*rdssdk.DescribeDBInstancesOutput, error) {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	return &rdssdk.DescribeDBInstancesOutput{DBInstances: c.f.databases[c.region]}, nil
}

func (c *fakeRegion) DescribeDBClusters(context.Context, *rdssdk.DescribeDBClustersInput, ...func(*rdssdk.Options)) (*rdssdk.DescribeDBClustersOutput, error) {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	return &rdssdk.DescribeDBClustersOutput{DBClusters: c.f.clusters[c.region]}, nil
}

func (c *fakeRegion) PutMetricAlarm(_ context.Context, params *cloudwatch.PutMetricAlarmInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricAlarmOutput, error) {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	if err := c.f.failAlarm[c.region]; err != nil {
		return nil, err
	}
	c.f.alarms[c.region] = append(c.f.alarms[c.region], params)
	return &cloudwatch.PutMetricAlarmOutput{}, nil
}

func (c *fakeRegion) PutRule(_ context.Context, params *eventbridge.PutRuleInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutRuleOutput, error) {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	c.f.rules[c.region] = append(c.f.rules[c.region], params)
	arn := fmt.Sprintf("arn:aws:events:%s:%s:rule/%s", c.region, c.f.account, aws.ToString(params.Name))
	return &eventbridge.PutRuleOutput{RuleArn: aws.String(arn)}, nil
}

func (c *fakeRegion) PutTargets(_ context.Context, params *eventbridge.PutTargetsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutTargetsOutput, error) {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	c.f.targets[c.region] = append(c.f.targets[c.region], params)
	return &eventbridge.PutTargetsOutput{}, nil
}

func (c *fakeRegion) LookupEvents(context.Context, *cloudtrail.LookupEventsInput, ...func(*cloudtrail.Options)) (*cloudtrail.LookupEventsOutput, error) {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	return &cloudtrail.LookupEventsOutput{Events: c.f.trail[c.region]}, nil
}
