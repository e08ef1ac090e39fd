package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/rds/auth"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/mkarlsen/aurora-preflight/internal/config"
)

// ResolveCredentials produces connection credentials for the given
// database according to the configured authentication method.
func (c *Client) ResolveCredentials(ctx context.Context, cfg *config.Config, db Database) (*Credentials, error) {
	switch cfg.Authentication.Method {
	case config.AuthMethodSecretsManager:
		secretName, ok := cfg.Authentication.Secrets[db.Identifier]
		if !ok {
			return nil, fmt.Errorf("no secret configured for cluster %q; add it under authentication.secrets", db.Identifier)
		}
		creds, err := c.GetSecret(ctx, secretName)
		if err != nil {
			return nil, err
		}
		if creds.Host == "" {
			creds.Host = db.Endpoint
		}
		if creds.Port == 0 {
			creds.Port = db.Port
		}
		return creds, nil

	case config.AuthMethodIAM:
		username := cfg.Authentication.IAM.Username
		token, err := c.BuildIAMAuthToken(ctx, db.Endpoint, db.Port, username)
		if err != nil {
			return nil, err
		}
		return &Credentials{User: username, Password: token, Host: db.Endpoint, Port: db.Port}, nil

	case config.AuthMethodConfig:
		dbCfg := cfg.DatabaseCredentials(db.Identifier)
		if dbCfg == nil {
			return nil, fmt.Errorf("no credentials configured for cluster %q; add it under authentication.databases", db.Identifier)
		}
		creds := &Credentials{
			User:     dbCfg.User,
			Password: dbCfg.Password,
			Host:     dbCfg.Endpoint,
			Port:     dbCfg.Port,
		}
		if creds.Host == "" {
			creds.Host = db.Endpoint
		}
		if creds.Port == 0 {
			creds.Port = db.Port
		}
		return creds, nil

	default:
		return nil, fmt.Errorf("unknown authentication method: %s", cfg.Authentication.Method)
	}
}

// GetSecret fetches database credentials from Secrets Manager. The secret
// body is expected to be JSON with username/password and optional
// host/port keys, the shape RDS-managed secrets use.
func (c *Client) GetSecret(ctx context.Context, secretName string) (*Credentials, error) {
	out, err := c.secrets.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve secret %q: %w", secretName, err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("secret %q does not contain a SecretString", secretName)
	}

	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Host     string `json:"host"`
		Port     int    `json:"port"`
	}
	if err := json.Unmarshal([]byte(*out.SecretString), &body); err != nil {
		return nil, fmt.Errorf("secret %q is not valid JSON: %w", secretName, err)
	}

	return &Credentials{
		User:     body.Username,
		Password: body.Password,
		Host:     body.Host,
		Port:     body.Port,
	}, nil
}

// BuildIAMAuthToken generates a short-lived IAM database auth token for
// the endpoint.
func (c *Client) BuildIAMAuthToken(ctx context.Context, endpoint string, port int, username string) (string, error) {
	token, err := auth.BuildAuthToken(ctx,
		net.JoinHostPort(endpoint, strconv.Itoa(port)),
		c.region, username, c.credentials)
	if err != nil {
		return "", fmt.Errorf("generate IAM auth token: %w", err)
	}
	return token, nil
}

// TestConnectivity probes TCP reachability of the endpoint before a real
// connection attempt, so security group problems surface with a clear
// message instead of a driver timeout.
func TestConnectivity(endpoint string, port int, timeout time.Duration) error {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(endpoint, strconv.Itoa(port)), timeout)
	if err != nil {
		return fmt.Errorf("cannot connect to %s:%d (check security groups, network ACLs, and VPC routing): %w", endpoint, port, err)
	}
	return conn.Close()
}
