package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"

	"github.com/mkarlsen/aurora-preflight/internal/aws"
	"github.com/mkarlsen/aurora-preflight/internal/check"
	"github.com/mkarlsen/aurora-preflight/internal/config"
	"github.com/mkarlsen/aurora-preflight/internal/logging"
	"github.com/mkarlsen/aurora-preflight/internal/report"
	"github.com/mkarlsen/aurora-preflight/pkg/types"
)

type options struct {
	configPath string
	cluster    string
	customer   string
	region     string
	profile    string
	verbose    bool
}

func main() {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "aurora-preflight",
		Short:         "Assess MySQL 5.7 Aurora clusters and RDS instances for 8.0 upgrade readiness",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "config.yaml", "Path to configuration file")
	cmd.Flags().StringVar(&opts.cluster, "cluster", "", "Specific cluster ID to assess")
	cmd.Flags().StringVar(&opts.customer, "customer", "", "Customer name for the report header")
	cmd.Flags().StringVar(&opts.region, "region", "", "AWS region (overrides config)")
	cmd.Flags().StringVar(&opts.profile, "profile", "", "AWS CLI profile (overrides config)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts *options) error {
	log := logging.NewLogger(opts.verbose)

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if opts.region != "" {
		cfg.AWS.Region = opts.region
	}
	if opts.profile != "" {
		cfg.AWS.Profile = opts.profile
	}

	client, err := aws.NewClient(ctx, cfg.AWS.Region, cfg.AWS.Profile, log)
	if err != nil {
		return fmt.Errorf("initializing AWS client: %w", err)
	}

	databases, err := discoverDatabases(ctx, client, log)
	if err != nil {
		return err
	}

	if opts.cluster != "" {
		databases, err = selectCluster(databases, opts.cluster)
		if err != nil {
			return err
		}
	}

	log.WithField("count", len(databases)).Info("Starting assessment")

	result := &types.AssessmentResult{
		Databases:   make(map[string]*types.DatabaseResult, len(databases)),
		GeneratedAt: time.Now(),
	}

	for _, db := range databases {
		dbResult := assessDatabase(ctx, client, cfg, db, log)
		result.Databases[db.Identifier] = dbResult

		result.Summary.TotalDatabases++
		switch dbResult.Summary.Status {
		case types.StatusGreen:
			result.Summary.GreenDatabases++
		case types.StatusAmber:
			result.Summary.AmberDatabases++
		case types.StatusRed:
			result.Summary.RedDatabases++
		case types.StatusError:
			result.Summary.ErrorDatabases++
		}
	}

	result.DetailedSummary = report.BuildDetailedSummary(result)
	report.FilterFeatureRecommendations(result)

	writer := report.NewWriter(cfg.Report.OutputDir, cfg.Report.Formats, opts.cluster, opts.customer, log)
	if err := writer.Write(result); err != nil {
		return fmt.Errorf("writing reports: %w", err)
	}

	if kc := cfg.Report.Kafka; kc != nil {
		publisher := report.NewPublisher(kc.Brokers, kc.Topic, log)
		if err := publisher.Publish(ctx, result); err != nil {
			log.WithError(err).Warn("Kafka publish failed, reports were still written")
		}
		if err := publisher.Close(); err != nil {
			log.WithError(err).Debug("closing Kafka writer")
		}
	}

	log.WithFields(logging.Fields{
		"status":    result.DetailedSummary.Overview.Status,
		"databases": result.Summary.TotalDatabases,
		"issues":    result.DetailedSummary.Overview.TotalIssues,
	}).Info("Assessment complete")

	return nil
}

// discoverDatabases collects Aurora clusters and RDS instances running
// MySQL 5.7. Failure of one discovery class is tolerated as long as the
// other produces candidates.
func discoverDatabases(ctx context.Context, client *aws.Client, log logging.Logger) ([]aws.Database, error) {
	var databases []aws.Database

	clusters, err := client.DiscoverAuroraClusters(ctx, nil)
	if err != nil {
		log.WithError(err).Error("Aurora cluster discovery failed")
	} else {
		databases = append(databases, clusters...)
	}

	instances, err := client.DiscoverRDSInstances(ctx, nil)
	if err != nil {
		log.WithError(err).Error("RDS instance discovery failed")
	} else {
		databases = append(databases, instances...)
	}

	if len(databases) == 0 {
		return nil, fmt.Errorf("no MySQL 5.7 databases found")
	}
	return databases, nil
}

func selectCluster(databases []aws.Database, cluster string) ([]aws.Database, error) {
	for _, db := range databases {
		if db.Identifier == cluster {
			return []aws.Database{db}, nil
		}
	}
	known := make([]string, 0, len(databases))
	for _, db := range databases {
		known = append(known, db.Identifier)
	}
	return nil, fmt.Errorf("cluster %q not found, discovered: %v", cluster, known)
}

// assessDatabase runs the full check battery against one database. Any
// failure before the battery starts is recorded as an ERROR result so
// the remaining databases still get assessed.
func assessDatabase(ctx context.Context, client *aws.Client, cfg *config.Config, db aws.Database, log logging.Logger) *types.DatabaseResult {
	log.WithFields(logging.Fields{
		"identifier": db.Identifier,
		"engine":     db.Engine,
		"version":    db.Version,
	}).Info("Assessing database")

	creds, err := client.ResolveCredentials(ctx, cfg, db)
	if err != nil {
		return errorResult(db, fmt.Sprintf("resolving credentials: %v", err))
	}

	if err := aws.TestConnectivity(creds.Host, creds.Port, cfg.ConnectTimeout()); err != nil {
		return errorResult(db, fmt.Sprintf("connectivity test failed: %v", err))
	}

	conn, err := openDatabase(creds, cfg)
	if err != nil {
		return errorResult(db, fmt.Sprintf("opening connection: %v", err))
	}
	defer conn.Close()

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout())
	err = conn.PingContext(pingCtx)
	cancel()
	if err != nil {
		return errorResult(db, fmt.Sprintf("mysql ping failed: %v", err))
	}

	checker := check.New(conn, check.Target{
		Identifier: db.Identifier,
		Engine:     db.Engine,
		Version:    db.Version,
		Type:       db.Type,
	}, cfg.QueryTimeout(), log)

	return checker.Run(ctx)
}

func buildDSN(creds *aws.Credentials, cfg *config.Config) string {
	mysqlCfg := mysql.NewConfig()
	mysqlCfg.User = creds.User
	mysqlCfg.Passwd = creds.Password
	mysqlCfg.Net = "tcp"
	mysqlCfg.Addr = creds.Host + ":" + strconv.Itoa(creds.Port)
	mysqlCfg.Timeout = cfg.ConnectTimeout()
	mysqlCfg.ParseTime = true
	mysqlCfg.Collation = "utf8mb4_general_ci"
	if cfg.Authentication.Method == config.AuthMethodIAM {
		// IAM auth tokens are sent in cleartext and require TLS.
		mysqlCfg.AllowCleartextPasswords = true
		mysqlCfg.TLSConfig = "true"
	}
	return mysqlCfg.FormatDSN()
}

func openDatabase(creds *aws.Credentials, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", buildDSN(creds, cfg))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(10 * time.Minute)
	return db, nil
}

func errorResult(db aws.Database, message string) *types.DatabaseResult {
	return &types.DatabaseResult{
		ClusterID: db.Identifier,
		Engine:    db.Engine,
		Version:   db.Version,
		Type:      db.Type,
		Checks:    []types.CheckResult{},
		Summary:   types.Summary{Status: types.StatusError},
		Message:   message,
	}
}
