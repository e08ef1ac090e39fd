package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	AuthMethodIAM            = "iam"
	AuthMethodSecretsManager = "secrets_manager"
	AuthMethodConfig         = "config"
)

type Config struct {
	AWS            AWSConfig        `yaml:"aws"`
	Authentication AuthConfig       `yaml:"authentication"`
	Assessment     AssessmentConfig `yaml:"assessment"`
	Report         ReportConfig     `yaml:"report"`
}

type AWSConfig struct {
	Region  string `yaml:"region"`
	Profile string `yaml:"profile"`
}

type AuthConfig struct {
	Method string `yaml:"method"`
	// Secrets maps cluster identifiers to Secrets Manager secret names or ARNs.
	Secrets   map[string]string `yaml:"secrets"`
	IAM       IAMAuthConfig     `yaml:"iam"`
	Databases []DatabaseConfig  `yaml:"databases"`
}

type IAMAuthConfig struct {
	Username string `yaml:"username"`
}

type DatabaseConfig struct {
	Identifier string `yaml:"identifier"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Endpoint   string `yaml:"endpoint"`
	Port       int    `yaml:"port"`
}

type AssessmentConfig struct {
	ConnectTimeoutSeconds int `yaml:"connect_timeout"`
	QueryTimeoutSeconds   int `yaml:"query_timeout"`
}

type ReportConfig struct {
	OutputDir string       `yaml:"output_dir"`
	Formats   []string     `yaml:"formats"`
	Kafka     *KafkaConfig `yaml:"kafka"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file not found: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Assessment.ConnectTimeoutSeconds <= 0 {
		c.Assessment.ConnectTimeoutSeconds = 10
	}
	if c.Assessment.QueryTimeoutSeconds <= 0 {
		c.Assessment.QueryTimeoutSeconds = 300
	}
	if c.Report.OutputDir == "" {
		c.Report.OutputDir = "reports"
	}
	if len(c.Report.Formats) == 0 {
		c.Report.Formats = []string{"json", "html", "markdown"}
	}
}

func (c *Config) validate() error {
	if c.AWS.Region == "" {
		return errors.New("aws.region is required")
	}

	switch c.Authentication.Method {
	case AuthMethodSecretsManager:
		if len(c.Authentication.Secrets) == 0 {
			return errors.New("authentication method secrets_manager requires at least one entry under authentication.secrets")
		}
	case AuthMethodIAM:
		if c.Authentication.IAM.Username == "" {
			return errors.New("authentication method iam requires authentication.iam.username")
		}
	case AuthMethodConfig:
		if len(c.Authentication.Databases) == 0 {
			return errors.New("authentication method config requires at least one entry under authentication.databases")
		}
		for _, db := range c.Authentication.Databases {
			if db.Identifier == "" {
				return errors.New("authentication.databases entries must set identifier")
			}
			if db.User == "" {
				return fmt.Errorf("database %s must set user", db.Identifier)
			}
		}
	case "":
		return errors.New("authentication.method is required")
	default:
		return fmt.Errorf("invalid authentication method %q (valid: iam, secrets_manager, config)", c.Authentication.Method)
	}

	for _, format := range c.Report.Formats {
		switch format {
		case "json", "html", "markdown":
		default:
			return fmt.Errorf("invalid report format %q (valid: json, html, markdown)", format)
		}
	}

	if c.Report.Kafka != nil {
		if len(c.Report.Kafka.Brokers) == 0 {
			return errors.New("report.kafka requires at least one broker")
		}
		if c.Report.Kafka.Topic == "" {
			return errors.New("report.kafka requires a topic")
		}
	}

	return nil
}

// ConnectTimeout returns the MySQL dial timeout.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Assessment.ConnectTimeoutSeconds) * time.Second
}

// QueryTimeout returns the per-check query deadline.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.Assessment.QueryTimeoutSeconds) * time.Second
}

// DatabaseCredentials returns the static credentials configured for the
// given identifier, or nil when none exist.
func (c *Config) DatabaseCredentials(identifier string) *DatabaseConfig {
	for i := range c.Authentication.Databases {
		if c.Authentication.Databases[i].Identifier == identifier {
			return &c.Authentication.Databases[i]
		}
	}
	return nil
}
