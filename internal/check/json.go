package check

import (
	"context"
	"fmt"

	"github.com/mkarlsen/aurora-preflight/pkg/types"
)

type jsonColumn struct {
	Schema   string `json:"schema"`
	Table    string `json:"table"`
	Column   string `json:"column"`
	HasIndex bool   `json:"has_index"`
}

func (c *Checker) checkJSONUsage(ctx context.Context) (*types.CheckResult, error) {
	result := newResult("JSON Usage and Optimization",
		"Analyzes JSON column usage and recommends MySQL 8.0 JSON optimization opportunities")

	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT
			c.table_schema,
			c.table_name,
			c.column_name,
			(
				SELECT COUNT(*)
				FROM information_schema.statistics s
				WHERE s.table_schema = c.table_schema
				AND s.table_name = c.table_name
				AND s.column_name = c.column_name
			) AS has_index
		FROM information_schema.columns c
		WHERE c.data_type = 'json'
		AND c.table_schema NOT IN (%s)
		ORDER BY c.table_schema, c.table_name, c.column_name`, systemSchemas))
	if err != nil {
		return nil, fmt.Errorf("json usage check failed: %w", err)
	}
	defer rows.Close()

	var columns []jsonColumn
	withoutIndex := 0
	for rows.Next() {
		var col jsonColumn
		var indexCount int
		if err := rows.Scan(&col.Schema, &col.Table, &col.Column, &indexCount); err != nil {
			return nil, fmt.Errorf("json usage check failed: %w", err)
		}
		col.HasIndex = indexCount > 0
		if !col.HasIndex {
			withoutIndex++
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("json usage check failed: %w", err)
	}

	result.Details["json_columns"] = columns
	result.Details["summary"] = map[string]int{
		"total_json_columns":      len(columns),
		"columns_without_indexes": withoutIndex,
	}

	if len(columns) == 0 {
		result.Recommendations = append(result.Recommendations, "No JSON columns found in database")
		return result, nil
	}

	raise(result, types.StatusAmber)
	result.Issues = append(result.Issues, fmt.Sprintf(
		"Found %d JSON columns (%d without indexes)", len(columns), withoutIndex))
	result.Recommendations = append(result.Recommendations,
		"Consider multi-valued indexes for JSON array fields in 8.0",
		"Use JSON_TABLE() for better query performance",
		"Consider functional indexes for frequently queried JSON paths",
		"Test new JSON functions: JSON_OVERLAPS(), JSON_VALUE()")

	routineRows, err := c.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT routine_schema, routine_name, routine_type
		FROM information_schema.routines
		WHERE routine_schema NOT IN (%s)
		AND (
			routine_definition LIKE '%%JSON_%%'
			OR routine_definition LIKE '%%->%%'
		)`, systemSchemas))
	if err != nil {
		return nil, fmt.Errorf("json usage check failed: %w", err)
	}
	defer routineRows.Close()

	type jsonRoutine struct {
		Schema string `json:"routine_schema"`
		Name   string `json:"routine_name"`
		Type   string `json:"routine_type"`
	}
	var routines []jsonRoutine
	for routineRows.Next() {
		var r jsonRoutine
		if err := routineRows.Scan(&r.Schema, &r.Name, &r.Type); err != nil {
			return nil, fmt.Errorf("json usage check failed: %w", err)
		}
		routines = append(routines, r)
	}
	if err := routineRows.Err(); err != nil {
		return nil, fmt.Errorf("json usage check failed: %w", err)
	}

	result.Details["json_in_routines"] = routines
	if len(routines) > 0 {
		result.Recommendations = append(result.Recommendations, fmt.Sprintf(
			"Review %d stored routines using JSON functions for compatibility", len(routines)))
	}

	return result, nil
}
