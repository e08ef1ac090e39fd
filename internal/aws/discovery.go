package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
)

// targetVersionPrefix selects the engine versions this tool assesses.
const targetVersionPrefix = "5.7"

// DiscoverAuroraClusters lists Aurora MySQL 5.7.x clusters in the account.
// When tags is non-empty, only clusters carrying every given tag are kept.
func (c *Client) DiscoverAuroraClusters(ctx context.Context, tags map[string]string) ([]Database, error) {
	var clusters []rdstypes.DBCluster

	var marker *string
	for {
		out, err := c.rds.DescribeDBClusters(ctx, &rds.DescribeDBClustersInput{Marker: marker})
		if err != nil {
			return nil, fmt.Errorf("describe db clusters: %w", err)
		}
		clusters = append(clusters, out.DBClusters...)
		if out.Marker == nil {
			break
		}
		marker = out.Marker
	}

	var databases []Database
	for _, cluster := range clusters {
		engine := aws.ToString(cluster.Engine)
		version := aws.ToString(cluster.EngineVersion)

		if !strings.Contains(engine, "aurora-mysql") && engine != "mysql" {
			continue
		}
		if !strings.HasPrefix(version, targetVersionPrefix) {
			continue
		}

		clusterType := TypeAurora
		if !strings.Contains(engine, "aurora") {
			clusterType = TypeRDS
		}

		if len(tags) > 0 && !c.matchesTags(ctx, aws.ToString(cluster.DBClusterArn), tags) {
			continue
		}

		databases = append(databases, clusterInfo(cluster, clusterType))
	}

	return databases, nil
}

// DiscoverRDSInstances lists non-Aurora RDS MySQL 5.7.x instances.
func (c *Client) DiscoverRDSInstances(ctx context.Context, tags map[string]string) ([]Database, error) {
	var instances []rdstypes.DBInstance

	var marker *string
	for {
		out, err := c.rds.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{Marker: marker})
		if err != nil {
			return nil, fmt.Errorf("describe db instances: %w", err)
		}
		instances = append(instances, out.DBInstances...)
		if out.Marker == nil {
			break
		}
		marker = out.Marker
	}

	var databases []Database
	for _, instance := range instances {
		engine := aws.ToString(instance.Engine)
		version := aws.ToString(instance.EngineVersion)

		if engine != "mysql" || !strings.HasPrefix(version, targetVersionPrefix) {
			continue
		}

		if len(tags) > 0 && !c.matchesTags(ctx, aws.ToString(instance.DBInstanceArn), tags) {
			continue
		}

		databases = append(databases, instanceInfo(instance))
	}

	return databases, nil
}

func (c *Client) matchesTags(ctx context.Context, arn string, want map[string]string) bool {
	out, err := c.rds.ListTagsForResource(ctx, &rds.ListTagsForResourceInput{ResourceName: aws.String(arn)})
	if err != nil {
		c.log.WithError(err).Debugf("Could not list tags for %s", arn)
		return false
	}

	have := make(map[string]string, len(out.TagList))
	for _, tag := range out.TagList {
		have[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}

func clusterInfo(cluster rdstypes.DBCluster, clusterType string) Database {
	db := Database{
		Identifier:       aws.ToString(cluster.DBClusterIdentifier),
		Type:             clusterType,
		Engine:           aws.ToString(cluster.Engine),
		Version:          aws.ToString(cluster.EngineVersion),
		Endpoint:         aws.ToString(cluster.Endpoint),
		ReaderEndpoint:   aws.ToString(cluster.ReaderEndpoint),
		Port:             int(aws.ToInt32(cluster.Port)),
		Status:           aws.ToString(cluster.Status),
		MultiAZ:          aws.ToBool(cluster.MultiAZ),
		StorageEncrypted: aws.ToBool(cluster.StorageEncrypted),
		ARN:              aws.ToString(cluster.DBClusterArn),
	}
	if db.Port == 0 {
		db.Port = 3306
	}
	for _, member := range cluster.DBClusterMembers {
		db.Members = append(db.Members, Member{
			InstanceID: aws.ToString(member.DBInstanceIdentifier),
			IsWriter:   aws.ToBool(member.IsClusterWriter),
		})
	}
	return db
}

func instanceInfo(instance rdstypes.DBInstance) Database {
	db := Database{
		Identifier:       aws.ToString(instance.DBInstanceIdentifier),
		Type:             TypeRDS,
		Engine:           aws.ToString(instance.Engine),
		Version:          aws.ToString(instance.EngineVersion),
		Status:           aws.ToString(instance.DBInstanceStatus),
		InstanceClass:    aws.ToString(instance.DBInstanceClass),
		MultiAZ:          aws.ToBool(instance.MultiAZ),
		StorageEncrypted: aws.ToBool(instance.StorageEncrypted),
		ARN:              aws.ToString(instance.DBInstanceArn),
		Port:             3306,
	}
	if instance.Endpoint != nil {
		db.Endpoint = aws.ToString(instance.Endpoint.Address)
		if port := int(aws.ToInt32(instance.Endpoint.Port)); port != 0 {
			db.Port = port
		}
	}
	return db
}
