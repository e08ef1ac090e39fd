package check

import (
	"context"
	"fmt"

	"github.com/mkarlsen/aurora-preflight/pkg/types"
)

type spatialColumn struct {
	Schema          string `json:"schema"`
	Table           string `json:"table"`
	Column          string `json:"column"`
	Type            string `json:"type"`
	HasSpatialIndex bool   `json:"has_spatial_index"`
}

func (c *Checker) checkSpatialSRID(ctx context.Context) (*types.CheckResult, error) {
	result := newResult("Spatial Data SRID Requirements",
		"Identifies spatial columns missing explicit SRID declarations required by MySQL 8.0")

	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT
			c.table_schema,
			c.table_name,
			c.column_name,
			c.data_type,
			(
				SELECT COUNT(*)
				FROM information_schema.statistics s
				WHERE s.table_schema = c.table_schema
				AND s.table_name = c.table_name
				AND s.column_name = c.column_name
				AND s.index_type = 'SPATIAL'
			) AS has_spatial_index
		FROM information_schema.columns c
		WHERE c.data_type IN (
			'geometry', 'point', 'linestring', 'polygon',
			'multipoint', 'multilinestring', 'multipolygon',
			'geometrycollection'
		)
		AND c.table_schema NOT IN (%s)
		ORDER BY c.table_schema, c.table_name, c.column_name`, systemSchemas))
	if err != nil {
		return nil, fmt.Errorf("spatial srid check failed: %w", err)
	}
	defer rows.Close()

	var columns []spatialColumn
	indexed := 0
	for rows.Next() {
		var col spatialColumn
		var indexCount int
		if err := rows.Scan(&col.Schema, &col.Table, &col.Column, &col.Type, &indexCount); err != nil {
			return nil, fmt.Errorf("spatial srid check failed: %w", err)
		}
		col.HasSpatialIndex = indexCount > 0
		if col.HasSpatialIndex {
			indexed++
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("spatial srid check failed: %w", err)
	}

	result.Details["spatial_columns"] = columns
	result.Details["summary"] = map[string]int{
		"total_spatial_columns":        len(columns),
		"columns_with_spatial_indexes": indexed,
	}

	if len(columns) == 0 {
		result.Recommendations = append(result.Recommendations, "No spatial data columns found")
		return result, nil
	}

	// MySQL 8.0 rejects spatial indexes on columns without an explicit SRID.
	raise(result, types.StatusRed)
	for _, col := range columns {
		result.Issues = append(result.Issues, fmt.Sprintf(
			"Spatial column '%s.%s.%s' (%s) requires explicit SRID for MySQL 8.0",
			col.Schema, col.Table, col.Column, col.Type))
	}
	result.Recommendations = append(result.Recommendations,
		"CRITICAL: All spatial columns require explicit SRID in MySQL 8.0",
		"Add SRID to spatial columns: ALTER TABLE t MODIFY COLUMN location POINT SRID 4326",
		"Common SRIDs: 4326 for WGS84 GPS coordinates, 0 for Cartesian",
		"Rebuild all spatial indexes after adding SRID",
		"Update application code to specify SRID: ST_GeomFromText('POINT(1 1)', 4326)",
		fmt.Sprintf("Found %d spatial columns requiring SRID specification", len(columns)))

	return result, nil
}
