package check

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mkarlsen/aurora-preflight/pkg/types"
)

const highPartitionCount = 100

func (c *Checker) checkPartitions(ctx context.Context) (*types.CheckResult, error) {
	result := newResult("Partition Compatibility",
		"Validates partitioned tables for compatibility with MySQL 8.0 partitioning changes")

	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT
			t.table_schema,
			t.table_name,
			t.partition_method,
			(SELECT COUNT(*)
			 FROM information_schema.partitions p
			 WHERE p.table_schema = t.table_schema
			 AND p.table_name = t.table_name
			 AND p.partition_name IS NOT NULL) AS partition_count
		FROM information_schema.partitions t
		WHERE t.table_schema NOT IN (%s)
		AND t.partition_name IS NOT NULL
		ORDER BY t.table_schema, t.table_name, t.partition_ordinal_position`, systemSchemas))
	if err != nil {
		return nil, fmt.Errorf("partition compatibility check failed: %w", err)
	}
	defer rows.Close()

	type partitionedTable struct {
		Schema         string `json:"schema"`
		Table          string `json:"table"`
		Method         string `json:"method"`
		PartitionCount int    `json:"partition_count"`
	}
	var tables []partitionedTable
	var highPartition []string
	seen := map[string]struct{}{}
	totalPartitions := 0
	for rows.Next() {
		var t partitionedTable
		var method sql.NullString
		if err := rows.Scan(&t.Schema, &t.Table, &method, &t.PartitionCount); err != nil {
			return nil, fmt.Errorf("partition compatibility check failed: %w", err)
		}
		t.Method = method.String
		totalPartitions++

		key := t.Schema + "." + t.Table
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		tables = append(tables, t)
		if t.PartitionCount > highPartitionCount {
			raise(result, types.StatusAmber)
			highPartition = append(highPartition, key)
			result.Issues = append(result.Issues, fmt.Sprintf(
				"Table %s has %d partitions (>100)", key, t.PartitionCount))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("partition compatibility check failed: %w", err)
	}

	result.Details["partitioned_tables"] = tables
	result.Details["high_partition_count"] = highPartition
	result.Details["summary"] = map[string]int{
		"total_partitioned_tables": len(tables),
		"total_partitions":         totalPartitions,
	}

	switch {
	case len(tables) == 0:
		result.Recommendations = append(result.Recommendations, "No partitioned tables found")
	case result.Status != types.StatusGreen:
		result.Recommendations = append(result.Recommendations,
			"Test partition pruning effectiveness before upgrade",
			"Consider partition consolidation for tables with >100 partitions",
			"Verify partition maintenance operations in non-production first",
			"Monitor partition-related performance post-upgrade")
	default:
		result.Recommendations = append(result.Recommendations, fmt.Sprintf(
			"Found %d partitioned tables - verify compatibility during testing", len(tables)))
	}

	return result, nil
}
