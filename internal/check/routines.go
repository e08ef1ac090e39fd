package check

import (
	"context"
	"fmt"

	"github.com/mkarlsen/aurora-preflight/pkg/types"
)

const complexRoutineBytes = 10240

func (c *Checker) checkRoutineComplexity(ctx context.Context) (*types.CheckResult, error) {
	result := newResult("Stored Routine Complexity",
		"Evaluates stored procedures and functions for size, complexity, and potential upgrade issues")

	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT
			routine_schema,
			routine_name,
			routine_type,
			LENGTH(routine_definition) AS definition_length
		FROM information_schema.routines
		WHERE routine_schema NOT IN (%s)
		ORDER BY definition_length DESC`, systemSchemas))
	if err != nil {
		return nil, fmt.Errorf("stored routine check failed: %w", err)
	}
	defer rows.Close()

	type complexRoutine struct {
		Schema string  `json:"schema"`
		Name   string  `json:"name"`
		Type   string  `json:"type"`
		SizeKB float64 `json:"size_kb"`
	}
	var oversized []complexRoutine
	totalRoutines := 0
	for rows.Next() {
		var schema, name, typ string
		var length int64
		if err := rows.Scan(&schema, &name, &typ, &length); err != nil {
			return nil, fmt.Errorf("stored routine check failed: %w", err)
		}
		totalRoutines++
		if length > complexRoutineBytes {
			raise(result, types.StatusAmber)
			sizeKB := float64(length) / 1024
			oversized = append(oversized, complexRoutine{Schema: schema, Name: name, Type: typ, SizeKB: sizeKB})
			result.Issues = append(result.Issues, fmt.Sprintf(
				"%s '%s.%s' is %.2fKB (large/complex)", typ, schema, name, sizeKB))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stored routine check failed: %w", err)
	}

	if totalRoutines == 0 {
		result.Details["summary"] = map[string]int{"total_routines": 0}
		result.Recommendations = append(result.Recommendations, "No stored routines found")
		return result, nil
	}

	dynRows, err := c.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT routine_schema, routine_name, routine_type
		FROM information_schema.routines
		WHERE routine_schema NOT IN (%s)
		AND routine_definition LIKE '%%PREPARE%%'
		AND routine_definition LIKE '%%EXECUTE%%'`, systemSchemas))
	if err != nil {
		return nil, fmt.Errorf("stored routine check failed: %w", err)
	}
	defer dynRows.Close()

	type dynamicRoutine struct {
		Schema string `json:"routine_schema"`
		Name   string `json:"routine_name"`
		Type   string `json:"routine_type"`
	}
	var dynamic []dynamicRoutine
	for dynRows.Next() {
		var r dynamicRoutine
		if err := dynRows.Scan(&r.Schema, &r.Name, &r.Type); err != nil {
			return nil, fmt.Errorf("stored routine check failed: %w", err)
		}
		dynamic = append(dynamic, r)
		result.Issues = append(result.Issues, fmt.Sprintf(
			"%s '%s.%s' uses dynamic SQL", r.Type, r.Schema, r.Name))
	}
	if err := dynRows.Err(); err != nil {
		return nil, fmt.Errorf("stored routine check failed: %w", err)
	}
	if len(dynamic) > 0 {
		raise(result, types.StatusAmber)
	}

	result.Details["complex_routines"] = oversized
	result.Details["routines_with_dynamic_sql"] = dynamic
	result.Details["summary"] = map[string]int{
		"total_routines":         totalRoutines,
		"complex_routines_count": len(oversized),
		"dynamic_sql_count":      len(dynamic),
	}

	if result.Status != types.StatusGreen {
		result.Recommendations = append(result.Recommendations,
			"Test all stored procedures and functions thoroughly in a MySQL 8.0 environment",
			"Consider refactoring large routines (>10KB) into smaller units",
			"Review dynamic SQL execution with the new 8.0 parser",
			"Document routine dependencies before upgrade")
	} else {
		result.Recommendations = append(result.Recommendations, fmt.Sprintf(
			"Found %d stored routines - all appear compatible", totalRoutines))
	}

	return result, nil
}
