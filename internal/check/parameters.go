package check

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/mkarlsen/aurora-preflight/pkg/types"
)

var removedParameters = []struct {
	Name string
	Note string
}{
	{"innodb_file_format", "Removed - Only Barracuda format supported"},
	{"innodb_file_format_check", "Removed - Only Barracuda format supported"},
	{"innodb_file_format_max", "Removed - Only Barracuda format supported"},
	{"innodb_large_prefix", "Removed - Large prefix is always enabled"},
	{"sync_frm", "Removed - .frm files no longer used"},
	{"secure_auth", "Removed - Secure authentication is mandatory"},
	{"multi_range_count", "Removed - No longer used"},
	{"log_warnings", "Use log_error_verbosity instead"},
	{"ignore_builtin_innodb", "Removed - InnoDB cannot be disabled"},
	{"innodb_support_xa", "Removed - XA support is always enabled"},
	{"query_cache_size", "Removed - Query cache is removed"},
	{"query_cache_type", "Removed - Query cache is removed"},
	{"innodb_undo_tablespaces", "Removed in 8.0.4 - See innodb_undo_tablespaces_implicit"},
	{"max_tmp_tables", "Removed - No longer used"},
}

var defaultChanges = []struct {
	Name       string
	NewDefault string
	Note       string
}{
	{"explicit_defaults_for_timestamp", "1", "Affects timestamp column behavior"},
	{"binlog_expire_logs_seconds", "2592000", "Replaces expire_logs_days"},
	{"completion_type", "NO_CHAIN", "Affects transaction completion behavior"},
	{"transaction_isolation", "REPEATABLE-READ", "Replaces tx_isolation"},
	{"innodb_autoinc_lock_mode", "2", "Affects auto-increment locking behavior"},
}

var criticalParameters = []struct {
	Name     string
	Expected string
	Note     string
}{
	{"log_bin_trust_function_creators", "1", "Required for stored function creation with binary logging"},
	{"enforce_gtid_consistency", "ON", "Required for GTID-based replication"},
	{"innodb_strict_mode", "1", "Recommended for data integrity"},
	{"binlog_format", "ROW", "Required for safe replication"},
}

func (c *Checker) checkParameters(ctx context.Context) (*types.CheckResult, error) {
	result := newResult("Parameter Compatibility Check",
		"Identifies removed or changed system variables that require configuration updates before upgrading")

	isAurora := c.target.IsAurora()
	result.Details["is_aurora"] = isAurora

	var foundRemoved []map[string]string
	for _, p := range removedParameters {
		value, ok := c.queryVariable(ctx, p.Name)
		if !ok {
			continue
		}
		foundRemoved = append(foundRemoved, map[string]string{
			"parameter": p.Name,
			"value":     value,
			"note":      p.Note,
		})
	}
	if isAurora {
		// Aurora replaces the parameter group at upgrade time.
		result.Recommendations = append(result.Recommendations,
			"Aurora automatically manages parameter group compatibility during upgrades, "+
				"a MySQL 8.0-compatible parameter group is required")
		if len(foundRemoved) > 0 {
			result.Recommendations = append(result.Recommendations, fmt.Sprintf(
				"Detected %d parameters that will be removed in 8.0, Aurora handles this automatically", len(foundRemoved)))
		}
	} else if len(foundRemoved) > 0 {
		raise(result, types.StatusRed)
		result.Details["removed_parameters"] = foundRemoved
		for _, p := range foundRemoved {
			result.Issues = append(result.Issues, fmt.Sprintf(
				"Parameter will be removed in 8.0: %s", p["parameter"]))
		}
		result.Recommendations = append(result.Recommendations,
			"Remove or replace parameters that will be removed in 8.0")
	}

	var changedDefaults []map[string]string
	for _, p := range defaultChanges {
		value, ok := c.queryVariable(ctx, p.Name)
		if !ok {
			continue
		}
		if value != p.NewDefault {
			changedDefaults = append(changedDefaults, map[string]string{
				"parameter":     p.Name,
				"current_value": value,
				"new_default":   p.NewDefault,
				"note":          p.Note,
			})
			raise(result, types.StatusAmber)
			result.Issues = append(result.Issues, fmt.Sprintf(
				"Parameter %s default changing to %s", p.Name, p.NewDefault))
		}
	}
	if len(changedDefaults) > 0 {
		result.Details["new_default_values"] = changedDefaults
		result.Recommendations = append(result.Recommendations,
			"Review and test with new parameter default values")
	}

	behavioral := c.queryBehavioralChanges(ctx)
	if len(behavioral) > 0 {
		raise(result, types.StatusAmber)
		result.Details["behavioral_changes"] = behavioral
		for _, b := range behavioral {
			result.Issues = append(result.Issues, fmt.Sprintf(
				"Parameter %s behavior changes in 8.0", b["parameter"]))
		}
		result.Recommendations = append(result.Recommendations,
			"Test applications with changed parameter behaviors")
	}

	var critical []map[string]string
	for _, p := range criticalParameters {
		value, ok := c.queryVariable(ctx, p.Name)
		if !ok {
			continue
		}
		if !strings.EqualFold(value, p.Expected) {
			critical = append(critical, map[string]string{
				"parameter":      p.Name,
				"current_value":  value,
				"required_value": p.Expected,
				"note":           p.Note,
			})
			raise(result, types.StatusRed)
			result.Issues = append(result.Issues, fmt.Sprintf(
				"Critical parameter %s not set to required value %s", p.Name, p.Expected))
		}
	}
	if len(critical) > 0 {
		result.Details["critical_parameters"] = critical
		result.Recommendations = append(result.Recommendations,
			"Update critical parameters to required values")
	}

	xaCount, err := c.countXATransactions(ctx)
	if err != nil {
		result.Issues = append(result.Issues, "Could not check XA transactions status")
	} else if xaCount > 0 {
		raise(result, types.StatusRed)
		result.Issues = append(result.Issues, fmt.Sprintf(
			"Found %d prepared XA transactions that must be resolved before upgrade", xaCount))
	}

	return result, nil
}

// queryVariable reads a server variable by name. Variables unknown to the
// running server version report ok=false rather than an error.
func (c *Checker) queryVariable(ctx context.Context, name string) (string, bool) {
	var value string
	err := c.db.QueryRowContext(ctx, "SELECT @@"+name).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

func (c *Checker) queryBehavioralChanges(ctx context.Context) []map[string]string {
	var found []map[string]string

	if mode, ok := c.queryVariable(ctx, "sql_mode"); ok {
		for _, m := range strings.Split(mode, ",") {
			if m == "NO_AUTO_CREATE_USER" {
				found = append(found, map[string]string{
					"parameter":     "sql_mode",
					"current_value": mode,
					"note":          "NO_AUTO_CREATE_USER removed, use CREATE USER statement",
				})
				break
			}
		}
	}

	if method, ok := c.queryVariable(ctx, "innodb_flush_method"); ok && method == "ALL_O_DIRECT" {
		found = append(found, map[string]string{
			"parameter":     "innodb_flush_method",
			"current_value": method,
			"note":          "ALL_O_DIRECT replaced by O_DIRECT_NO_FSYNC",
		})
	}

	if raw, ok := c.queryVariable(ctx, "max_length_for_sort_data"); ok {
		if n, err := strconv.Atoi(raw); err == nil && n > 4096 {
			found = append(found, map[string]string{
				"parameter":     "max_length_for_sort_data",
				"current_value": raw,
				"note":          "Default reduced to 4096 to avoid memory issues",
			})
		}
	}

	return found
}

func (c *Checker) countXATransactions(ctx context.Context) (int, error) {
	rows, err := c.db.QueryContext(ctx, "XA RECOVER")
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return 0, err
	}
	count := 0
	scratch := make([]any, len(cols))
	for i := range scratch {
		scratch[i] = new(sql.RawBytes)
	}
	for rows.Next() {
		if err := rows.Scan(scratch...); err != nil {
			return 0, err
		}
		count++
	}
	return count, rows.Err()
}
