package check

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mkarlsen/aurora-preflight/pkg/types"
)

const largeTableBytes = 10 * 1024 * 1024 * 1024

func (c *Checker) checkSchemaInfo(ctx context.Context) (*types.CheckResult, error) {
	result := newResult("Schema Information",
		"Analyzes database schemas, table counts, sizes, and storage engines to assess overall database complexity")

	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT
			table_schema,
			COUNT(DISTINCT table_name) AS table_count,
			COALESCE(SUM(data_length + index_length) / 1024 / 1024, 0) AS size_mb,
			GROUP_CONCAT(DISTINCT engine) AS engines
		FROM information_schema.tables
		WHERE table_schema NOT IN (%s)
		GROUP BY table_schema`, systemSchemas))
	if err != nil {
		return nil, fmt.Errorf("schema information check failed: %w", err)
	}
	defer rows.Close()

	type schemaRow struct {
		Schema     string  `json:"schema"`
		TableCount int     `json:"table_count"`
		SizeMB     float64 `json:"size_mb"`
		Engines    string  `json:"engines"`
	}
	var schemas []schemaRow
	var totalSizeMB float64
	engines := map[string]struct{}{}
	for rows.Next() {
		var s schemaRow
		var eng sql.NullString
		if err := rows.Scan(&s.Schema, &s.TableCount, &s.SizeMB, &eng); err != nil {
			return nil, fmt.Errorf("schema information check failed: %w", err)
		}
		s.Engines = eng.String
		for _, e := range strings.Split(eng.String, ",") {
			if e != "" {
				engines[e] = struct{}{}
			}
		}
		totalSizeMB += s.SizeMB
		schemas = append(schemas, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schema information check failed: %w", err)
	}

	tableRows, err := c.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT
			table_schema,
			table_name,
			COALESCE(engine, ''),
			COALESCE(table_rows, 0),
			COALESCE(data_length + index_length, 0) AS size_bytes
		FROM information_schema.tables
		WHERE table_schema NOT IN (%s)
		AND table_type = 'BASE TABLE'
		ORDER BY (data_length + index_length) DESC`, systemSchemas))
	if err != nil {
		return nil, fmt.Errorf("schema information check failed: %w", err)
	}
	defer tableRows.Close()

	type tableRow struct {
		Schema    string `json:"schema"`
		Table     string `json:"table"`
		Engine    string `json:"engine"`
		TableRows int64  `json:"table_rows"`
		SizeBytes int64  `json:"size_bytes"`
	}
	var tables []tableRow
	var largeTables []tableRow
	for tableRows.Next() {
		var t tableRow
		if err := tableRows.Scan(&t.Schema, &t.Table, &t.Engine, &t.TableRows, &t.SizeBytes); err != nil {
			return nil, fmt.Errorf("schema information check failed: %w", err)
		}
		tables = append(tables, t)
		if t.SizeBytes > largeTableBytes {
			largeTables = append(largeTables, t)
		}
	}
	if err := tableRows.Err(); err != nil {
		return nil, fmt.Errorf("schema information check failed: %w", err)
	}

	engineList := make([]string, 0, len(engines))
	for e := range engines {
		engineList = append(engineList, e)
	}
	result.Details["schemas"] = schemas
	result.Details["tables"] = tables
	result.Details["summary"] = map[string]any{
		"total_schemas": len(schemas),
		"total_tables":  len(tables),
		"total_size_mb": totalSizeMB,
		"engines_used":  engineList,
	}

	if len(largeTables) > 0 {
		raise(result, types.StatusAmber)
		for _, t := range largeTables {
			result.Issues = append(result.Issues, fmt.Sprintf(
				"Large table detected: %s.%s (%.2f GB)",
				t.Schema, t.Table, float64(t.SizeBytes)/1024/1024/1024))
		}
		result.Recommendations = append(result.Recommendations,
			"Consider partitioning large tables before upgrade",
			fmt.Sprintf("Total large tables (>10GB): %d", len(largeTables)),
			"Review table statistics and index usage")
	}

	return result, nil
}

func (c *Checker) checkVersionCompatibility(ctx context.Context) (*types.CheckResult, error) {
	result := newResult("Version Compatibility",
		"Validates current MySQL 5.7 version and identifies version-specific compatibility issues for MySQL 8.0 upgrade")

	var version, comment, charset, collation string
	err := c.db.QueryRowContext(ctx, `
		SELECT
			@@version,
			@@version_comment,
			@@character_set_server,
			@@collation_server`).Scan(&version, &comment, &charset, &collation)
	if err != nil {
		return nil, fmt.Errorf("version check failed: %w", err)
	}

	result.Details["version"] = version
	result.Details["version_comment"] = comment
	result.Details["charset_server"] = charset
	result.Details["collation_server"] = collation

	if strings.Contains(version, "5.7") {
		raise(result, types.StatusAmber)
		result.Issues = append(result.Issues,
			fmt.Sprintf("Current version %s needs upgrade to 8.0", version),
			fmt.Sprintf("Server character set: %s", charset),
			fmt.Sprintf("Server collation: %s", collation))
		result.Recommendations = append(result.Recommendations,
			"Plan upgrade to MySQL 8.0",
			"Review MySQL 8.0 compatibility requirements",
			"Review character set and collation settings for 8.0 compatibility")
	}

	return result, nil
}
