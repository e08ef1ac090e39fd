package aws

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarlsen/aurora-preflight/internal/config"
)

type mockRDS struct {
	describeClusters  func(*rds.DescribeDBClustersInput) (*rds.DescribeDBClustersOutput, error)
	describeInstances func(*rds.DescribeDBInstancesInput) (*rds.DescribeDBInstancesOutput, error)
	listTags          func(*rds.ListTagsForResourceInput) (*rds.ListTagsForResourceOutput, error)
}

func (m *mockRDS) DescribeDBClusters(_ context.Context, params *rds.DescribeDBClustersInput, _ ...func(*rds.Options)) (*rds.DescribeDBClustersOutput, error) {
	return m.describeClusters(params)
}

func (m *mockRDS) DescribeDBInstances(_ context.Context, params *rds.DescribeDBInstancesInput, _ ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error) {
	return m.describeInstances(params)
}

func (m *mockRDS) ListTagsForResource(_ context.Context, params *rds.ListTagsForResourceInput, _ ...func(*rds.Options)) (*rds.ListTagsForResourceOutput, error) {
	return m.listTags(params)
}

type mockSecrets struct {
	getSecret func(*secretsmanager.GetSecretValueInput) (*secretsmanager.GetSecretValueOutput, error)
}

func (m *mockSecrets) GetSecretValue(_ context.Context, params *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	return m.getSecret(params)
}

func newTestClient(rdsAPI RDSAPI, secretsAPI SecretsAPI) *Client {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Client{region: "eu-west-1", rds: rdsAPI, secrets: secretsAPI, log: log}
}

func cluster(id, engine, version string) rdstypes.DBCluster {
	return rdstypes.DBCluster{
		DBClusterIdentifier: sdkaws.String(id),
		DBClusterArn:        sdkaws.String("arn:aws:rds:eu-west-1:123456789012:cluster:" + id),
		Engine:              sdkaws.String(engine),
		EngineVersion:       sdkaws.String(version),
		Endpoint:            sdkaws.String(id + ".cluster-abc.eu-west-1.rds.amazonaws.com"),
		Port:                sdkaws.Int32(3306),
		Status:              sdkaws.String("available"),
	}
}

func TestDiscoverAuroraClustersFiltersEngineAndVersion(t *testing.T) {
	mock := &mockRDS{
		describeClusters: func(*rds.DescribeDBClustersInput) (*rds.DescribeDBClustersOutput, error) {
			return &rds.DescribeDBClustersOutput{DBClusters: []rdstypes.DBCluster{
				cluster("orders", "aurora-mysql", "5.7.mysql_aurora.2.11.2"),
				cluster("payments", "aurora-mysql", "8.0.mysql_aurora.3.04.0"),
				cluster("docs", "aurora-postgresql", "14.9"),
			}}, nil
		},
	}

	dbs, err := newTestClient(mock, nil).DiscoverAuroraClusters(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, dbs, 1)
	assert.Equal(t, "orders", dbs[0].Identifier)
	assert.Equal(t, TypeAurora, dbs[0].Type)
	assert.Equal(t, 3306, dbs[0].Port)
}

func TestDiscoverAuroraClustersPaginates(t *testing.T) {
	var calls int
	mock := &mockRDS{
		describeClusters: func(params *rds.DescribeDBClustersInput) (*rds.DescribeDBClustersOutput, error) {
			calls++
			if params.Marker == nil {
				return &rds.DescribeDBClustersOutput{
					DBClusters: []rdstypes.DBCluster{cluster("page1", "aurora-mysql", "5.7.mysql_aurora.2.11.2")},
					Marker:     sdkaws.String("next"),
				}, nil
			}
			return &rds.DescribeDBClustersOutput{
				DBClusters: []rdstypes.DBCluster{cluster("page2", "aurora-mysql", "5.7.mysql_aurora.2.11.2")},
			}, nil
		},
	}

	dbs, err := newTestClient(mock, nil).DiscoverAuroraClusters(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, dbs, 2)
}

func TestDiscoverAuroraClustersTagFilter(t *testing.T) {
	mock := &mockRDS{
		describeClusters: func(*rds.DescribeDBClustersInput) (*rds.DescribeDBClustersOutput, error) {
			return &rds.DescribeDBClustersOutput{DBClusters: []rdstypes.DBCluster{
				cluster("tagged", "aurora-mysql", "5.7.mysql_aurora.2.11.2"),
				cluster("untagged", "aurora-mysql", "5.7.mysql_aurora.2.11.2"),
			}}, nil
		},
		listTags: func(params *rds.ListTagsForResourceInput) (*rds.ListTagsForResourceOutput, error) {
			if *params.ResourceName == "arn:aws:rds:eu-west-1:123456789012:cluster:tagged" {
				return &rds.ListTagsForResourceOutput{TagList: []rdstypes.Tag{
					{Key: sdkaws.String("env"), Value: sdkaws.String("prod")},
				}}, nil
			}
			return &rds.ListTagsForResourceOutput{}, nil
		},
	}

	dbs, err := newTestClient(mock, nil).DiscoverAuroraClusters(context.Background(), map[string]string{"env": "prod"})
	require.NoError(t, err)
	require.Len(t, dbs, 1)
	assert.Equal(t, "tagged", dbs[0].Identifier)
}

func TestDiscoverRDSInstancesFilters(t *testing.T) {
	mock := &mockRDS{
		describeInstances: func(*rds.DescribeDBInstancesInput) (*rds.DescribeDBInstancesOutput, error) {
			return &rds.DescribeDBInstancesOutput{DBInstances: []rdstypes.DBInstance{
				{
					DBInstanceIdentifier: sdkaws.String("legacy"),
					DBInstanceArn:        sdkaws.String("arn:aws:rds:eu-west-1:123456789012:db:legacy"),
					Engine:               sdkaws.String("mysql"),
					EngineVersion:        sdkaws.String("5.7.44"),
					DBInstanceStatus:     sdkaws.String("available"),
					Endpoint: &rdstypes.Endpoint{
						Address: sdkaws.String("legacy.abc.eu-west-1.rds.amazonaws.com"),
						Port:    sdkaws.Int32(3307),
					},
				},
				{
					DBInstanceIdentifier: sdkaws.String("maria"),
					Engine:               sdkaws.String("mariadb"),
					EngineVersion:        sdkaws.String("10.6.14"),
				},
				{
					DBInstanceIdentifier: sdkaws.String("modern"),
					Engine:               sdkaws.String("mysql"),
					EngineVersion:        sdkaws.String("8.0.35"),
				},
			}}, nil
		},
	}

	dbs, err := newTestClient(mock, nil).DiscoverRDSInstances(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, dbs, 1)
	assert.Equal(t, "legacy", dbs[0].Identifier)
	assert.Equal(t, TypeRDS, dbs[0].Type)
	assert.Equal(t, 3307, dbs[0].Port)
}

func TestDiscoverAuroraClustersPropagatesError(t *testing.T) {
	mock := &mockRDS{
		describeClusters: func(*rds.DescribeDBClustersInput) (*rds.DescribeDBClustersOutput, error) {
			return nil, errors.New("throttled")
		},
	}

	_, err := newTestClient(mock, nil).DiscoverAuroraClusters(context.Background(), nil)
	require.ErrorContains(t, err, "throttled")
}

func TestGetSecret(t *testing.T) {
	secrets := &mockSecrets{
		getSecret: func(params *secretsmanager.GetSecretValueInput) (*secretsmanager.GetSecretValueOutput, error) {
			assert.Equal(t, "prod/orders/mysql", *params.SecretId)
			return &secretsmanager.GetSecretValueOutput{
				SecretString: sdkaws.String(`{"username":"admin","password":"hunter2","host":"db.internal","port":3306}`),
			}, nil
		},
	}

	creds, err := newTestClient(nil, secrets).GetSecret(context.Background(), "prod/orders/mysql")
	require.NoError(t, err)
	assert.Equal(t, "admin", creds.User)
	assert.Equal(t, "hunter2", creds.Password)
	assert.Equal(t, "db.internal", creds.Host)
	assert.Equal(t, 3306, creds.Port)
}

func TestGetSecretRejectsBinarySecret(t *testing.T) {
	secrets := &mockSecrets{
		getSecret: func(*secretsmanager.GetSecretValueInput) (*secretsmanager.GetSecretValueOutput, error) {
			return &secretsmanager.GetSecretValueOutput{}, nil
		},
	}

	_, err := newTestClient(nil, secrets).GetSecret(context.Background(), "s")
	require.ErrorContains(t, err, "SecretString")
}

func TestGetSecretRejectsInvalidJSON(t *testing.T) {
	secrets := &mockSecrets{
		getSecret: func(*secretsmanager.GetSecretValueInput) (*secretsmanager.GetSecretValueOutput, error) {
			return &secretsmanager.GetSecretValueOutput{SecretString: sdkaws.String("not json")}, nil
		},
	}

	_, err := newTestClient(nil, secrets).GetSecret(context.Background(), "s")
	require.ErrorContains(t, err, "not valid JSON")
}

func TestResolveCredentialsSecretsManagerFallback(t *testing.T) {
	secrets := &mockSecrets{
		getSecret: func(*secretsmanager.GetSecretValueInput) (*secretsmanager.GetSecretValueOutput, error) {
			return &secretsmanager.GetSecretValueOutput{
				SecretString: sdkaws.String(`{"username":"admin","password":"hunter2"}`),
			}, nil
		},
	}
	cfg := &config.Config{Authentication: config.AuthConfig{
		Method:  config.AuthMethodSecretsManager,
		Secrets: map[string]string{"orders": "prod/orders/mysql"},
	}}
	db := Database{Identifier: "orders", Endpoint: "orders.cluster.internal", Port: 3306}

	creds, err := newTestClient(nil, secrets).ResolveCredentials(context.Background(), cfg, db)
	require.NoError(t, err)
	assert.Equal(t, "orders.cluster.internal", creds.Host)
	assert.Equal(t, 3306, creds.Port)
}

func TestResolveCredentialsSecretsManagerUnmapped(t *testing.T) {
	cfg := &config.Config{Authentication: config.AuthConfig{
		Method:  config.AuthMethodSecretsManager,
		Secrets: map[string]string{},
	}}

	_, err := newTestClient(nil, nil).ResolveCredentials(context.Background(), cfg, Database{Identifier: "orders"})
	require.ErrorContains(t, err, "no secret configured")
}

func TestResolveCredentialsFromConfig(t *testing.T) {
	cfg := &config.Config{Authentication: config.AuthConfig{
		Method: config.AuthMethodConfig,
		Databases: []config.DatabaseConfig{
			{Identifier: "orders", User: "app", Password: "pw"},
		},
	}}
	db := Database{Identifier: "orders", Endpoint: "orders.cluster.internal", Port: 3306}

	creds, err := newTestClient(nil, nil).ResolveCredentials(context.Background(), cfg, db)
	require.NoError(t, err)
	assert.Equal(t, "app", creds.User)
	assert.Equal(t, "orders.cluster.internal", creds.Host)
}

func TestTestConnectivity(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, TestConnectivity("127.0.0.1", port, time.Second))

	ln.Close()
	require.Error(t, TestConnectivity("127.0.0.1", port, 200*time.Millisecond))
}
