package check

import (
	"context"
	"fmt"

	"github.com/mkarlsen/aurora-preflight/pkg/types"
)

func (c *Checker) checkNewFeatures(ctx context.Context) (*types.CheckResult, error) {
	result := newResult("New Features Compatibility",
		"Highlights MySQL 8.0 features (CTEs, window functions, JSON) available after upgrade")

	var tableCount int
	err := c.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema NOT IN (%s)
		AND table_type = 'BASE TABLE'`, systemSchemas)).Scan(&tableCount)
	if err != nil {
		return nil, fmt.Errorf("new features check failed: %w", err)
	}

	var largeTables int
	err = c.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema NOT IN (%s)
		AND table_type = 'BASE TABLE'
		AND (table_rows > 10000 OR table_rows IS NULL)`, systemSchemas)).Scan(&largeTables)
	if err != nil {
		return nil, fmt.Errorf("new features check failed: %w", err)
	}

	var jsonColumns int
	err = c.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(*)
		FROM information_schema.columns
		WHERE data_type = 'json'
		AND table_schema NOT IN (%s)`, systemSchemas)).Scan(&jsonColumns)
	if err != nil {
		return nil, fmt.Errorf("new features check failed: %w", err)
	}

	result.Details["table_count"] = tableCount
	result.Details["large_tables"] = largeTables
	result.Details["json_columns"] = jsonColumns

	if tableCount > 10 {
		result.Recommendations = append(result.Recommendations,
			"Review queries with mixed ORDER BY directions for descending index benefits")
	}
	if largeTables > 0 {
		result.Recommendations = append(result.Recommendations,
			"Consider window functions for analytical queries on large tables")
	}
	if jsonColumns > 0 {
		result.Recommendations = append(result.Recommendations, fmt.Sprintf(
			"Found %d JSON columns - review new JSON functions and multi-valued indexes", jsonColumns))
	}

	result.Recommendations = append(result.Recommendations,
		"Hash joins improve performance for large joins without indexes",
		"Invisible indexes allow safe index management in production",
		"Instant DDL reduces downtime for supported schema changes",
		"SQL roles simplify privilege management",
		"Check constraints improve data integrity",
		"caching_sha2_password is the new default authentication plugin")

	return result, nil
}
