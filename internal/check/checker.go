package check

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mkarlsen/aurora-preflight/pkg/types"
)

// Target identifies the database a Checker runs against.
type Target struct {
	Identifier string
	Engine     string
	Version    string
	Type       string
}

// IsAurora reports whether the target engine is Aurora MySQL. Parameter
// handling differs between Aurora and plain RDS MySQL.
func (t Target) IsAurora() bool {
	return strings.HasPrefix(t.Engine, "aurora")
}

// Checker runs the diagnostic battery against one database. All checks
// are read-only and execute sequentially, each under its own query
// deadline.
type Checker struct {
	db      *sql.DB
	target  Target
	timeout time.Duration
	log     *logrus.Logger
}

func New(db *sql.DB, target Target, timeout time.Duration, log *logrus.Logger) *Checker {
	return &Checker{db: db, target: target, timeout: timeout, log: log}
}

type registeredCheck struct {
	name        string
	description string
	run         func(ctx context.Context) (*types.CheckResult, error)
}

func (c *Checker) battery() []registeredCheck {
	return []registeredCheck{
		{"Schema Information", "Analyzes database schemas, table counts, sizes, and storage engines to assess overall database complexity", c.checkSchemaInfo},
		{"Version Compatibility", "Validates current MySQL 5.7 version and identifies version-specific compatibility issues for MySQL 8.0 upgrade", c.checkVersionCompatibility},
		{"Character Set Check", "Reviews character set configuration and identifies compatibility considerations for MySQL 8.0", c.checkCharacterSets},
		{"Binary Log Settings", "Verifies binary logging configuration and format requirements for MySQL 8.0 replication compatibility", c.checkBinlogSettings},
		{"Deprecated Features Check", "Detects deprecated functions, authentication methods, and SQL modes that are removed in MySQL 8.0", c.checkDeprecatedFeatures},
		{"Parameter Compatibility Check", "Identifies removed or changed system variables that require configuration updates before upgrading", c.checkParameters},
		{"Foreign Key Check", "Analyzes foreign key constraints for potential compatibility issues and validates referential integrity", c.checkForeignKeys},
		{"Triggers and Views Check", "Examines triggers and views for syntax changes, deprecated features, and complexity issues", c.checkTriggersViews},
		{"New Features Compatibility", "Highlights MySQL 8.0 features (CTEs, window functions, JSON) available after upgrade", c.checkNewFeatures},
		{"Reserved Keywords Conflicts", "Identifies table and column names that conflict with new MySQL 8.0 reserved keywords", c.checkReservedKeywords},
		{"Partition Compatibility", "Validates partitioned tables for compatibility with MySQL 8.0 partitioning changes", c.checkPartitions},
		{"User Privileges and Security", "Reviews user accounts, authentication plugins, and privilege mappings for MySQL 8.0 security model", c.checkUserPrivileges},
		{"JSON Usage and Optimization", "Analyzes JSON column usage and recommends MySQL 8.0 JSON optimization opportunities", c.checkJSONUsage},
		{"Stored Routine Complexity", "Evaluates stored procedures and functions for size, complexity, and potential upgrade issues", c.checkRoutineComplexity},
		{"Spatial Data SRID Requirements", "Identifies spatial columns missing explicit SRID declarations required by MySQL 8.0", c.checkSpatialSRID},
		{"Functional Index Opportunities", "Suggests MySQL 8.0 functional indexes for expressions commonly used in WHERE clauses", c.checkFunctionalIndexes},
		{"Index Statistics and Duplication", "Detects duplicate indexes and low-cardinality indexes that impact performance", c.checkIndexStatistics},
		{"Auto-Increment Exhaustion", "Identifies auto-increment columns approaching their maximum values based on data type limits", c.checkAutoIncExhaustion},
		{"Replication Topology", "Analyzes replication configuration, lag, and readiness for upgrade with minimal downtime", c.checkReplication},
		{"Connection Configuration", "Reviews connection limits, thread cache, and connection-related settings for optimal upgrade performance", c.checkConnections},
	}
}

// Run executes every check in order. A failing check is recorded as an
// ERROR entry and never aborts the battery.
func (c *Checker) Run(ctx context.Context) *types.DatabaseResult {
	result := &types.DatabaseResult{
		ClusterID: c.target.Identifier,
		Engine:    c.target.Engine,
		Version:   c.target.Version,
		Type:      c.target.Type,
		Summary:   types.Summary{Status: types.StatusGreen},
	}

	for _, chk := range c.battery() {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		res, err := chk.run(checkCtx)
		cancel()

		if err != nil {
			c.log.WithError(err).Errorf("Check %q failed", chk.name)
			res = &types.CheckResult{
				Name:            chk.name,
				Description:     chk.description,
				Status:          types.StatusError,
				Issues:          []string{err.Error()},
				Recommendations: []string{"Check database permissions and connectivity"},
			}
		}

		result.Checks = append(result.Checks, *res)

		switch res.Status {
		case types.StatusRed:
			result.Summary.Status = types.StatusRed
			result.Summary.BlockingIssues += len(res.Issues)
		case types.StatusAmber:
			if result.Summary.Status != types.StatusRed {
				result.Summary.Status = types.StatusAmber
			}
			result.Summary.Warnings += len(res.Issues)
		}
		if res.Status != types.StatusGreen {
			result.Summary.TotalIssues += len(res.Issues)
		}
	}

	return result
}

// newResult seeds a GREEN check result for the named check.
func newResult(name, description string) *types.CheckResult {
	return &types.CheckResult{
		Name:            name,
		Description:     description,
		Status:          types.StatusGreen,
		Issues:          []string{},
		Recommendations: []string{},
		Details:         map[string]any{},
	}
}

// raise escalates the result status, never downgrading.
func raise(r *types.CheckResult, s types.Status) {
	r.Status = r.Status.Escalate(s)
}

// systemSchemas are excluded from every inventory query.
const systemSchemas = "'information_schema', 'performance_schema', 'mysql', 'sys'"
