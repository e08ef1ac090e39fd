package check

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mkarlsen/aurora-preflight/pkg/types"
)

type affectedUser struct {
	User   string `json:"user"`
	Host   string `json:"host"`
	Plugin string `json:"plugin"`
}

type affectedRoutine struct {
	Schema      string `json:"schema"`
	Name        string `json:"object_name"`
	Type        string `json:"object_type"`
	Function    string `json:"deprecated_function"`
	Replacement string `json:"replacement"`
}

var deprecatedFunctions = []struct {
	Name        string
	Replacement string
}{
	{"PASSWORD", "Use SHA2() instead"},
	{"OLD_PASSWORD", "Remove usage"},
	{"ENCODE", "Use AES_ENCRYPT()"},
	{"DECODE", "Use AES_DECRYPT()"},
	{"ENCRYPT", "Use SHA2() or AES_ENCRYPT()"},
	{"DES_ENCRYPT", "Use AES_ENCRYPT()"},
	{"DES_DECRYPT", "Use AES_DECRYPT()"},
}

var deprecatedVariables = []struct {
	Name           string
	Recommendation string
}{
	{"query_cache_size", "Remove - query cache is deprecated"},
	{"query_cache_type", "Remove - query cache is deprecated"},
	{"innodb_file_format", "Remove - only Barracuda format supported"},
	{"innodb_file_format_check", "Remove - only Barracuda format supported"},
	{"innodb_file_format_max", "Remove - only Barracuda format supported"},
	{"tx_isolation", "Use transaction_isolation instead"},
	{"tx_read_only", "Use transaction_read_only instead"},
	{"secure_auth", "Remove - secure auth is mandatory"},
	{"multi_range_count", "Remove - no longer used"},
}

var deprecatedSQLModes = []string{"NO_AUTO_CREATE_USER", "NO_ZERO_DATE", "ERROR_FOR_DIVISION_BY_ZERO"}

func (c *Checker) checkDeprecatedFeatures(ctx context.Context) (*types.CheckResult, error) {
	result := newResult("Deprecated Features Check",
		"Detects deprecated functions, authentication methods, and SQL modes that are removed in MySQL 8.0")

	oldAuthUsers, err := c.queryUsersByPlugin(ctx,
		"SELECT user, host, plugin FROM mysql.user WHERE plugin IN ('mysql_old_password')")
	if err != nil {
		return nil, fmt.Errorf("deprecated features check failed: %w", err)
	}
	if len(oldAuthUsers) > 0 {
		raise(result, types.StatusRed)
		result.Details["old_password_users"] = oldAuthUsers
		result.Issues = append(result.Issues, fmt.Sprintf(
			"Found %d users with mysql_old_password (removed in MySQL 8.0)", len(oldAuthUsers)))
		result.Recommendations = append(result.Recommendations,
			"CRITICAL: mysql_old_password is removed in MySQL 8.0",
			"Migrate these users to mysql_native_password or caching_sha2_password before upgrade")
	}

	nativeUsers, err := c.queryUsersByPlugin(ctx, `
		SELECT user, host, plugin FROM mysql.user
		WHERE plugin IN ('mysql_native_password')
		AND user NOT IN ('mysql.sys', 'mysql.session', 'mysql.infoschema', 'rdsadmin')`)
	if err != nil {
		return nil, fmt.Errorf("deprecated features check failed: %w", err)
	}
	if len(nativeUsers) > 0 {
		raise(result, types.StatusAmber)
		result.Details["native_password_users"] = nativeUsers
		result.Issues = append(result.Issues, fmt.Sprintf(
			"Found %d users with mysql_native_password (informational)", len(nativeUsers)))
		result.Recommendations = append(result.Recommendations,
			"mysql_native_password remains supported in MySQL 8.0, no pre-upgrade action required",
			"Consider migrating to caching_sha2_password after upgrade, it is the 8.0 default",
			"Verify client library compatibility before migrating authentication plugins")
	}

	var affected []affectedRoutine
	for _, fn := range deprecatedFunctions {
		rows, err := c.db.QueryContext(ctx, `
			SELECT routine_schema, routine_name, routine_type
			FROM information_schema.routines
			WHERE routine_definition REGEXP ?
			AND routine_schema NOT IN ('mysql', 'sys', 'information_schema', 'performance_schema')`,
			fn.Name+`[[:space:]]*\(`)
		if err != nil {
			return nil, fmt.Errorf("deprecated features check failed: %w", err)
		}
		for rows.Next() {
			var r affectedRoutine
			if err := rows.Scan(&r.Schema, &r.Name, &r.Type); err != nil {
				rows.Close()
				return nil, fmt.Errorf("deprecated features check failed: %w", err)
			}
			r.Function = fn.Name
			r.Replacement = fn.Replacement
			affected = append(affected, r)
			result.Issues = append(result.Issues, fmt.Sprintf(
				"Deprecated function %s used in %s.%s", fn.Name, r.Schema, r.Name))
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("deprecated features check failed: %w", err)
		}
		rows.Close()
	}
	if len(affected) > 0 {
		raise(result, types.StatusRed)
		result.Details["deprecated_function_usage"] = affected
		result.Recommendations = append(result.Recommendations,
			"Remove or replace deprecated function usage in stored procedures and functions")
	}

	var deprecatedVars []map[string]string
	for _, v := range deprecatedVariables {
		var name, value string
		err := c.db.QueryRowContext(ctx, "SHOW VARIABLES LIKE ?", v.Name).Scan(&name, &value)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("deprecated features check failed: %w", err)
		}
		deprecatedVars = append(deprecatedVars, map[string]string{
			"variable":       v.Name,
			"current_value":  value,
			"recommendation": v.Recommendation,
		})
		result.Issues = append(result.Issues, fmt.Sprintf("Deprecated system variable in use: %s", v.Name))
	}
	if len(deprecatedVars) > 0 {
		raise(result, types.StatusAmber)
		result.Details["deprecated_variables"] = deprecatedVars
		result.Recommendations = append(result.Recommendations,
			"Update system variables to use new names and remove deprecated ones")
	}

	cacheRows, err := c.db.QueryContext(ctx, "SHOW VARIABLES LIKE 'query_cache%'")
	if err != nil {
		return nil, fmt.Errorf("deprecated features check failed: %w", err)
	}
	var enabledCache []map[string]string
	for cacheRows.Next() {
		var name, value string
		if err := cacheRows.Scan(&name, &value); err != nil {
			cacheRows.Close()
			return nil, fmt.Errorf("deprecated features check failed: %w", err)
		}
		if value != "0" && strings.ToLower(value) != "off" {
			enabledCache = append(enabledCache, map[string]string{"variable": name, "value": value})
		}
	}
	if err := cacheRows.Err(); err != nil {
		cacheRows.Close()
		return nil, fmt.Errorf("deprecated features check failed: %w", err)
	}
	cacheRows.Close()
	if len(enabledCache) > 0 {
		raise(result, types.StatusRed)
		result.Details["query_cache_settings"] = enabledCache
		result.Issues = append(result.Issues, "Query cache is enabled but will be removed in 8.0")
		result.Recommendations = append(result.Recommendations,
			"Disable query cache and remove related settings")
	}

	oldTemporal, err := c.queryOldTemporalColumns(ctx)
	if err != nil {
		return nil, fmt.Errorf("deprecated features check failed: %w", err)
	}
	if len(oldTemporal) > 0 {
		raise(result, types.StatusAmber)
		result.Details["temporal_columns"] = oldTemporal
		result.Issues = append(result.Issues, fmt.Sprintf(
			"Found %d temporal columns without fractional seconds", len(oldTemporal)))
		result.Recommendations = append(result.Recommendations,
			"Review temporal columns for fractional seconds support")
	}

	spatialCols, err := c.querySpatialColumnInventory(ctx)
	if err != nil {
		return nil, fmt.Errorf("deprecated features check failed: %w", err)
	}
	if len(spatialCols) > 0 {
		raise(result, types.StatusAmber)
		result.Details["spatial_columns"] = spatialCols
		result.Issues = append(result.Issues, fmt.Sprintf(
			"Found %d spatial columns - review SRID requirements", len(spatialCols)))
	}

	var sqlMode string
	if err := c.db.QueryRowContext(ctx, "SELECT @@sql_mode").Scan(&sqlMode); err != nil {
		return nil, fmt.Errorf("deprecated features check failed: %w", err)
	}
	var foundModes []string
	for _, mode := range strings.Split(sqlMode, ",") {
		for _, dep := range deprecatedSQLModes {
			if mode == dep {
				foundModes = append(foundModes, mode)
			}
		}
	}
	if len(foundModes) > 0 {
		raise(result, types.StatusAmber)
		result.Details["deprecated_sql_modes"] = foundModes
		result.Issues = append(result.Issues, fmt.Sprintf(
			"Deprecated SQL modes in use: %s", strings.Join(foundModes, ", ")))
		result.Recommendations = append(result.Recommendations,
			"Update SQL modes to remove deprecated options")
	}

	return result, nil
}

func (c *Checker) queryUsersByPlugin(ctx context.Context, query string) ([]affectedUser, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []affectedUser
	for rows.Next() {
		var u affectedUser
		if err := rows.Scan(&u.User, &u.Host, &u.Plugin); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type temporalColumn struct {
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Column string `json:"column"`
	Type   string `json:"column_type"`
}

type spatialInventoryColumn struct {
	Schema          string `json:"schema"`
	Table           string `json:"table"`
	Column          string `json:"column"`
	Type            string `json:"column_type"`
	HasSpatialIndex int    `json:"has_spatial_index"`
}

func (c *Checker) querySpatialColumnInventory(ctx context.Context) ([]spatialInventoryColumn, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT
			c.table_schema,
			c.table_name,
			c.column_name,
			c.column_type,
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
		AND c.table_schema NOT IN (%s)`, systemSchemas))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []spatialInventoryColumn
	for rows.Next() {
		var col spatialInventoryColumn
		if err := rows.Scan(&col.Schema, &col.Table, &col.Column, &col.Type, &col.HasSpatialIndex); err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

func (c *Checker) queryOldTemporalColumns(ctx context.Context) ([]temporalColumn, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT table_schema, table_name, column_name, column_type
		FROM information_schema.columns
		WHERE data_type IN ('timestamp', 'datetime', 'time')
		AND datetime_precision IS NULL
		AND table_schema NOT IN (%s)`, systemSchemas))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []temporalColumn
	for rows.Next() {
		var col temporalColumn
		if err := rows.Scan(&col.Schema, &col.Table, &col.Column, &col.Type); err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}
