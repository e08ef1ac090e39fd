package check

import (
	"context"
	"fmt"

	"github.com/mkarlsen/aurora-preflight/pkg/types"
)

type autoIncTable struct {
	Schema      string  `json:"schema"`
	Table       string  `json:"table"`
	Column      string  `json:"column"`
	ColumnType  string  `json:"column_type"`
	Current     float64 `json:"current"`
	Max         float64 `json:"max"`
	PercentUsed float64 `json:"percent_used"`
}

func (c *Checker) checkAutoIncExhaustion(ctx context.Context) (*types.CheckResult, error) {
	result := newResult("Auto-Increment Exhaustion",
		"Identifies auto-increment columns approaching their maximum values based on data type limits")

	// Max values depend on the column type signedness, bigint unsigned
	// exceeds int64 so everything is handled as float64.
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT
			t.table_schema,
			t.table_name,
			t.auto_increment,
			c.column_name,
			c.column_type,
			CASE
				WHEN c.column_type LIKE '%%unsigned%%' AND c.data_type = 'tinyint' THEN 255
				WHEN c.column_type LIKE '%%unsigned%%' AND c.data_type = 'smallint' THEN 65535
				WHEN c.column_type LIKE '%%unsigned%%' AND c.data_type = 'mediumint' THEN 16777215
				WHEN c.column_type LIKE '%%unsigned%%' AND c.data_type = 'int' THEN 4294967295
				WHEN c.column_type LIKE '%%unsigned%%' AND c.data_type = 'bigint' THEN 18446744073709551615
				WHEN c.data_type = 'tinyint' THEN 127
				WHEN c.data_type = 'smallint' THEN 32767
				WHEN c.data_type = 'mediumint' THEN 8388607
				WHEN c.data_type = 'int' THEN 2147483647
				WHEN c.data_type = 'bigint' THEN 9223372036854775807
			END AS max_value
		FROM information_schema.tables t
		JOIN information_schema.columns c
			ON t.table_schema = c.table_schema
			AND t.table_name = c.table_name
		WHERE t.table_schema NOT IN (%s)
		AND t.auto_increment IS NOT NULL
		AND c.extra LIKE '%%auto_increment%%'
		ORDER BY t.table_schema, t.table_name`, systemSchemas))
	if err != nil {
		return nil, fmt.Errorf("auto-increment check failed: %w", err)
	}
	defer rows.Close()

	var highUsage []autoIncTable
	total, criticalCount, warningCount := 0, 0, 0
	for rows.Next() {
		var t autoIncTable
		if err := rows.Scan(&t.Schema, &t.Table, &t.Current, &t.Column, &t.ColumnType, &t.Max); err != nil {
			return nil, fmt.Errorf("auto-increment check failed: %w", err)
		}
		total++
		if t.Max <= 0 {
			continue
		}
		t.PercentUsed = t.Current / t.Max * 100

		switch {
		case t.PercentUsed > 90:
			raise(result, types.StatusRed)
			criticalCount++
			highUsage = append(highUsage, t)
			result.Issues = append(result.Issues, fmt.Sprintf(
				"CRITICAL: Table '%s.%s' column '%s' (%s) at %.1f%% capacity (%.0f of %.0f)",
				t.Schema, t.Table, t.Column, t.ColumnType, t.PercentUsed, t.Current, t.Max))
		case t.PercentUsed > 70:
			raise(result, types.StatusAmber)
			warningCount++
			highUsage = append(highUsage, t)
			result.Issues = append(result.Issues, fmt.Sprintf(
				"WARNING: Table '%s.%s' column '%s' (%s) at %.1f%% capacity (%.0f of %.0f)",
				t.Schema, t.Table, t.Column, t.ColumnType, t.PercentUsed, t.Current, t.Max))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("auto-increment check failed: %w", err)
	}

	result.Details["high_usage_tables"] = highUsage
	result.Details["summary"] = map[string]int{
		"total_autoinc_tables": total,
		"critical_count":       criticalCount,
		"warning_count":        warningCount,
	}

	if total == 0 {
		result.Recommendations = append(result.Recommendations, "No auto-increment tables found")
		return result, nil
	}

	switch result.Status {
	case types.StatusRed:
		result.Recommendations = append(result.Recommendations,
			"CRITICAL: Auto-increment exhaustion detected",
			"Convert auto-increment columns to BIGINT: ALTER TABLE t MODIFY COLUMN id BIGINT UNSIGNED AUTO_INCREMENT",
			"Run ANALYZE TABLE after modification",
			"Consider data archiving to reset auto-increment",
			fmt.Sprintf("Found %d tables requiring immediate attention", criticalCount))
	case types.StatusAmber:
		result.Recommendations = append(result.Recommendations,
			"Plan to convert columns to larger data types before 90% capacity",
			"Consider implementing a data archiving strategy",
			"Monitor growth rate and project exhaustion timeline",
			fmt.Sprintf("Found %d tables approaching capacity limits", warningCount))
	default:
		result.Recommendations = append(result.Recommendations, fmt.Sprintf(
			"Analyzed %d auto-increment tables - all within safe limits", total))
	}

	return result, nil
}

func (c *Checker) checkConnections(ctx context.Context) (*types.CheckResult, error) {
	result := newResult("Connection Configuration",
		"Reviews connection limits, thread cache, and connection-related settings for optimal upgrade performance")

	type connectionStat struct {
		User        string `json:"user"`
		Host        string `json:"host"`
		Connections int    `json:"connection_count"`
		Sleeping    int    `json:"sleeping"`
		LongRunning int    `json:"long_running"`
	}
	var stats []connectionStat
	totalConn, totalSleeping := 0, 0

	statRows, err := c.db.QueryContext(ctx, `
		SELECT
			processlist_user,
			processlist_host,
			COUNT(*) AS connection_count,
			SUM(IF(processlist_command = 'Sleep', 1, 0)) AS sleeping,
			SUM(IF(processlist_time > 30, 1, 0)) AS long_running
		FROM performance_schema.threads
		WHERE processlist_user IS NOT NULL
		AND processlist_user NOT IN ('system user', 'rdsadmin')
		GROUP BY processlist_user, processlist_host
		ORDER BY connection_count DESC
		LIMIT 10`)
	if err == nil {
		for statRows.Next() {
			var s connectionStat
			if err := statRows.Scan(&s.User, &s.Host, &s.Connections, &s.Sleeping, &s.LongRunning); err != nil {
				statRows.Close()
				return nil, fmt.Errorf("connection configuration check failed: %w", err)
			}
			stats = append(stats, s)
			totalConn += s.Connections
			totalSleeping += s.Sleeping
		}
		if err := statRows.Err(); err != nil {
			statRows.Close()
			return nil, fmt.Errorf("connection configuration check failed: %w", err)
		}
		statRows.Close()
	} else {
		// performance_schema can be disabled, continue with variables only
		c.log.WithField("error", err).Debug("performance_schema thread stats unavailable")
	}

	var maxConnections, threadCacheSize, connectTimeout, waitTimeout int
	err = c.db.QueryRowContext(ctx, `
		SELECT
			@@max_connections,
			@@thread_cache_size,
			@@connect_timeout,
			@@wait_timeout`).Scan(&maxConnections, &threadCacheSize, &connectTimeout, &waitTimeout)
	if err != nil {
		return nil, fmt.Errorf("connection configuration check failed: %w", err)
	}

	usagePercent := 0.0
	if totalConn > 0 && maxConnections > 0 {
		usagePercent = float64(totalConn) / float64(maxConnections) * 100
		if usagePercent > 80 {
			raise(result, types.StatusAmber)
			result.Issues = append(result.Issues, fmt.Sprintf(
				"Connection usage at %.1f%% of max_connections (%d/%d)",
				usagePercent, totalConn, maxConnections))
		}
	}

	result.Details["connection_stats"] = stats
	result.Details["system_variables"] = map[string]int{
		"max_connections":   maxConnections,
		"thread_cache_size": threadCacheSize,
		"connect_timeout":   connectTimeout,
		"wait_timeout":      waitTimeout,
	}
	result.Details["summary"] = map[string]any{
		"total_connections":    totalConn,
		"sleeping_connections": totalSleeping,
		"active_connections":   totalConn - totalSleeping,
		"max_connections":      maxConnections,
		"usage_percent":        usagePercent,
	}

	if result.Status != types.StatusGreen {
		result.Recommendations = append(result.Recommendations,
			"Consider increasing max_connections for MySQL 8.0 via the parameter group",
			"Review application connection pooling for sizing and leaks",
			"Optimize thread_cache_size (recommended: 8 + max_connections/100)",
			"Test connection setup time with caching_sha2_password before production upgrade")
	} else {
		result.Recommendations = append(result.Recommendations, fmt.Sprintf(
			"Connection configuration is healthy - %.2f%% utilization", usagePercent))
	}

	return result, nil
}
