package check

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mkarlsen/aurora-preflight/pkg/types"
)

type candidateColumn struct {
	Schema   string `json:"table_schema"`
	Table    string `json:"table_name"`
	Column   string `json:"column_name"`
	DataType string `json:"data_type"`
}

func (c *Checker) checkFunctionalIndexes(ctx context.Context) (*types.CheckResult, error) {
	result := newResult("Functional Index Opportunities",
		"Suggests MySQL 8.0 functional indexes for expressions commonly used in WHERE clauses")

	stringColumns, err := c.queryCandidateColumns(ctx, fmt.Sprintf(`
		SELECT table_schema, table_name, column_name, data_type
		FROM information_schema.columns
		WHERE table_schema NOT IN (%s)
		AND data_type IN ('varchar', 'char', 'text')
		AND character_maximum_length IS NOT NULL
		ORDER BY table_schema, table_name, column_name
		LIMIT 20`, systemSchemas))
	if err != nil {
		return nil, fmt.Errorf("functional index check failed: %w", err)
	}

	datetimeColumns, err := c.queryCandidateColumns(ctx, fmt.Sprintf(`
		SELECT table_schema, table_name, column_name, data_type
		FROM information_schema.columns
		WHERE table_schema NOT IN (%s)
		AND data_type IN ('datetime', 'timestamp', 'date')
		ORDER BY table_schema, table_name, column_name
		LIMIT 20`, systemSchemas))
	if err != nil {
		return nil, fmt.Errorf("functional index check failed: %w", err)
	}

	jsonColumns, err := c.queryCandidateColumns(ctx, fmt.Sprintf(`
		SELECT table_schema, table_name, column_name, data_type
		FROM information_schema.columns
		WHERE table_schema NOT IN (%s)
		AND data_type = 'json'
		ORDER BY table_schema, table_name, column_name`, systemSchemas))
	if err != nil {
		return nil, fmt.Errorf("functional index check failed: %w", err)
	}

	result.Details["string_columns"] = stringColumns
	result.Details["datetime_columns"] = datetimeColumns
	result.Details["json_columns"] = jsonColumns

	total := len(stringColumns) + len(datetimeColumns) + len(jsonColumns)
	result.Details["summary"] = map[string]int{"total_opportunities": total}

	if total > 0 {
		result.Issues = append(result.Issues, fmt.Sprintf(
			"Found %d columns that could benefit from functional indexes", total))
		result.Recommendations = append(result.Recommendations,
			"Case-insensitive searches: CREATE INDEX idx ON t ((LOWER(name)))",
			"Date-based queries: CREATE INDEX idx ON t ((DATE(created_at)))",
			"JSON path expressions: CREATE INDEX idx ON t ((json_col->'$.field'))",
			"Test performance before deploying functional indexes to production")
	} else {
		result.Recommendations = append(result.Recommendations,
			"No obvious functional index opportunities identified")
	}

	return result, nil
}

func (c *Checker) queryCandidateColumns(ctx context.Context, query string) ([]candidateColumn, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []candidateColumn
	for rows.Next() {
		var col candidateColumn
		if err := rows.Scan(&col.Schema, &col.Table, &col.Column, &col.DataType); err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

type indexEntry struct {
	Schema      string
	Table       string
	Name        string
	Columns     string
	NonUnique   int
	Cardinality sql.NullInt64
}

func (c *Checker) checkIndexStatistics(ctx context.Context) (*types.CheckResult, error) {
	result := newResult("Index Statistics and Duplication",
		"Detects duplicate indexes and low-cardinality indexes that impact performance")

	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT
			table_schema,
			table_name,
			index_name,
			GROUP_CONCAT(column_name ORDER BY seq_in_index) AS columns,
			non_unique,
			MAX(cardinality) AS max_cardinality
		FROM information_schema.statistics
		WHERE table_schema NOT IN (%s)
		AND index_name != 'PRIMARY'
		GROUP BY table_schema, table_name, index_name, non_unique
		ORDER BY table_schema, table_name, index_name`, systemSchemas))
	if err != nil {
		return nil, fmt.Errorf("index statistics check failed: %w", err)
	}
	defer rows.Close()

	var indexes []indexEntry
	for rows.Next() {
		var idx indexEntry
		if err := rows.Scan(&idx.Schema, &idx.Table, &idx.Name, &idx.Columns, &idx.NonUnique, &idx.Cardinality); err != nil {
			return nil, fmt.Errorf("index statistics check failed: %w", err)
		}
		indexes = append(indexes, idx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("index statistics check failed: %w", err)
	}

	if len(indexes) == 0 {
		result.Details["summary"] = map[string]int{"total_indexes": 0}
		result.Recommendations = append(result.Recommendations, "No secondary indexes found")
		return result, nil
	}

	type duplicateIndex struct {
		Table   string `json:"table"`
		Index1  string `json:"index1"`
		Index2  string `json:"index2"`
		Columns string `json:"columns"`
	}
	var duplicates []duplicateIndex
	byTable := map[string][]indexEntry{}
	for _, idx := range indexes {
		key := idx.Schema + "." + idx.Table
		byTable[key] = append(byTable[key], idx)
	}
	for table, tableIndexes := range byTable {
		for i := 0; i < len(tableIndexes); i++ {
			for j := i + 1; j < len(tableIndexes); j++ {
				if tableIndexes[i].Columns == tableIndexes[j].Columns {
					raise(result, types.StatusAmber)
					duplicates = append(duplicates, duplicateIndex{
						Table:   table,
						Index1:  tableIndexes[i].Name,
						Index2:  tableIndexes[j].Name,
						Columns: tableIndexes[i].Columns,
					})
					result.Issues = append(result.Issues, fmt.Sprintf(
						"Duplicate indexes on %s: '%s' and '%s' (both on %s)",
						table, tableIndexes[i].Name, tableIndexes[j].Name, tableIndexes[i].Columns))
				}
			}
		}
	}

	type lowCardinalityIndex struct {
		Table       string `json:"table"`
		Index       string `json:"index"`
		Cardinality int64  `json:"cardinality"`
	}
	var lowCardinality []lowCardinalityIndex
	for _, idx := range indexes {
		if idx.Cardinality.Valid && idx.Cardinality.Int64 < 10 && idx.NonUnique == 1 {
			raise(result, types.StatusAmber)
			lowCardinality = append(lowCardinality, lowCardinalityIndex{
				Table:       idx.Schema + "." + idx.Table,
				Index:       idx.Name,
				Cardinality: idx.Cardinality.Int64,
			})
		}
	}

	result.Details["duplicate_indexes"] = duplicates
	result.Details["low_cardinality_indexes"] = lowCardinality
	result.Details["summary"] = map[string]int{
		"total_indexes":         len(indexes),
		"duplicate_count":       len(duplicates),
		"low_cardinality_count": len(lowCardinality),
	}

	if len(duplicates) > 0 {
		result.Recommendations = append(result.Recommendations,
			"Remove duplicate indexes to improve performance",
			"Use MySQL 8.0 invisible indexes to test before dropping: ALTER TABLE t ALTER INDEX idx INVISIBLE")
	}
	if len(lowCardinality) > 0 {
		result.Recommendations = append(result.Recommendations, fmt.Sprintf(
			"Review %d low-cardinality indexes for effectiveness", len(lowCardinality)))
	}
	if result.Status == types.StatusGreen {
		result.Recommendations = append(result.Recommendations, fmt.Sprintf(
			"Analyzed %d indexes - no obvious issues found", len(indexes)))
	}

	return result, nil
}
