package check

import (
	"context"
	"fmt"

	"github.com/mkarlsen/aurora-preflight/pkg/types"
)

type parameterChange struct {
	Parameter string `json:"parameter"`
	Current   string `json:"current"`
	Required  string `json:"required,omitempty"`
	Suggested string `json:"recommended,omitempty"`
}

func (c *Checker) checkBinlogSettings(ctx context.Context) (*types.CheckResult, error) {
	result := newResult("Binary Log Settings",
		"Verifies binary logging configuration and format requirements for MySQL 8.0 replication compatibility")

	var (
		binlogFormat  string
		gtidMode      string
		logBin        string
		syncBinlog    int
		flushAtCommit int
	)
	err := c.db.QueryRowContext(ctx, `
		SELECT
			@@binlog_format,
			@@gtid_mode,
			@@log_bin,
			@@sync_binlog,
			@@innodb_flush_log_at_trx_commit`).Scan(
		&binlogFormat, &gtidMode, &logBin, &syncBinlog, &flushAtCommit)
	if err != nil {
		return nil, fmt.Errorf("binary log check failed: %w", err)
	}

	result.Details["current_settings"] = map[string]any{
		"binlog_format":                  binlogFormat,
		"gtid_mode":                      gtidMode,
		"log_bin":                        logBin,
		"sync_binlog":                    syncBinlog,
		"innodb_flush_log_at_trx_commit": flushAtCommit,
	}

	var required, optional []parameterChange

	if binlogFormat != "ROW" {
		raise(result, types.StatusAmber)
		result.Issues = append(result.Issues, fmt.Sprintf(
			"binlog_format is '%s' - ROW format is strongly recommended for MySQL 8.0", binlogFormat))
		required = append(required, parameterChange{
			Parameter: "binlog_format", Current: binlogFormat, Required: "ROW"})
		result.Recommendations = append(result.Recommendations,
			"ROW format is required for row-based triggers, Group Replication, and certain MySQL 8.0 features",
			"If none of these apply, STATEMENT or MIXED may be acceptable")
	}

	if gtidMode != "ON" {
		raise(result, types.StatusAmber)
		result.Issues = append(result.Issues, fmt.Sprintf(
			"GTID mode is %s, recommended to be ON", gtidMode))
		required = append(required, parameterChange{
			Parameter: "gtid_mode", Current: gtidMode, Required: "ON"})
	}

	if syncBinlog != 1 {
		result.Issues = append(result.Issues, fmt.Sprintf(
			"sync_binlog is set to %d, recommended value is 1", syncBinlog))
		optional = append(optional, parameterChange{
			Parameter: "sync_binlog", Current: fmt.Sprint(syncBinlog), Suggested: "1"})
	}

	if flushAtCommit != 1 {
		result.Issues = append(result.Issues, fmt.Sprintf(
			"innodb_flush_log_at_trx_commit is %d, recommended value is 1", flushAtCommit))
		optional = append(optional, parameterChange{
			Parameter: "innodb_flush_log_at_trx_commit", Current: fmt.Sprint(flushAtCommit), Suggested: "1"})
	}

	result.Details["required_changes"] = required
	result.Details["optional_changes"] = optional

	if len(result.Issues) > 0 {
		result.Recommendations = append(result.Recommendations,
			"Update parameter group with the required changes")
		for _, ch := range required {
			result.Recommendations = append(result.Recommendations,
				fmt.Sprintf("Set %s = %s", ch.Parameter, ch.Required))
		}
		for _, ch := range optional {
			result.Recommendations = append(result.Recommendations,
				fmt.Sprintf("Consider setting %s = %s for better durability", ch.Parameter, ch.Suggested))
		}
		result.Recommendations = append(result.Recommendations,
			"Review replication topology before making changes",
			"Test application performance with new settings")
	}

	return result, nil
}
