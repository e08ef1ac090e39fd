package check

import (
	"context"
	"fmt"

	"github.com/mkarlsen/aurora-preflight/pkg/types"
)

func (c *Checker) checkCharacterSets(ctx context.Context) (*types.CheckResult, error) {
	result := newResult("Character Set Check",
		"Reviews character set configuration and identifies compatibility considerations for MySQL 8.0")

	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT
			table_schema,
			table_name,
			column_name,
			character_set_name,
			collation_name
		FROM information_schema.columns
		WHERE table_schema NOT IN (%s)
		AND character_set_name IN ('utf8', 'utf8mb3', 'latin1')`, systemSchemas))
	if err != nil {
		return nil, fmt.Errorf("character set check failed: %w", err)
	}
	defer rows.Close()

	type columnRow struct {
		Schema    string `json:"schema"`
		Table     string `json:"table"`
		Column    string `json:"column"`
		Charset   string `json:"charset"`
		Collation string `json:"collation"`
	}
	var deprecated []columnRow
	for rows.Next() {
		var col columnRow
		if err := rows.Scan(&col.Schema, &col.Table, &col.Column, &col.Charset, &col.Collation); err != nil {
			return nil, fmt.Errorf("character set check failed: %w", err)
		}
		deprecated = append(deprecated, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("character set check failed: %w", err)
	}

	var serverCharset, serverCollation string
	if err := c.db.QueryRowContext(ctx,
		"SELECT @@character_set_server, @@collation_server").Scan(&serverCharset, &serverCollation); err != nil {
		return nil, fmt.Errorf("character set check failed: %w", err)
	}

	result.Details["deprecated_columns"] = deprecated
	result.Details["server_charset"] = serverCharset
	result.Details["server_collation"] = serverCollation

	if len(deprecated) > 0 {
		raise(result, types.StatusAmber)
		result.Issues = append(result.Issues, fmt.Sprintf(
			"%d columns use deprecated character sets (utf8/utf8mb3/latin1)", len(deprecated)))
		result.Recommendations = append(result.Recommendations,
			"Convert columns to utf8mb4 character set before upgrade",
			"Test application compatibility with utf8mb4",
			"Review collation changes: utf8mb4_0900_ai_ci is the 8.0 default")
	}

	if serverCharset != "utf8mb4" {
		raise(result, types.StatusAmber)
		result.Issues = append(result.Issues, fmt.Sprintf(
			"Server character set is %s, MySQL 8.0 defaults to utf8mb4", serverCharset))
		result.Recommendations = append(result.Recommendations,
			"Update character_set_server to utf8mb4 in parameter group")
	}

	return result, nil
}
