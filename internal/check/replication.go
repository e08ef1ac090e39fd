package check

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mkarlsen/aurora-preflight/pkg/types"
)

const longTransactionSeconds = 300

func (c *Checker) checkReplication(ctx context.Context) (*types.CheckResult, error) {
	result := newResult("Replication Topology",
		"Analyzes replication configuration, lag, and readiness for upgrade with minimal downtime")

	isReplica := false
	var lagSeconds sql.NullInt64
	status, err := c.querySlaveStatus(ctx)
	if err == nil && status != nil {
		isReplica = true
		result.Details["replication_status"] = map[string]any{
			"slave_io_running":      status["Slave_IO_Running"],
			"slave_sql_running":     status["Slave_SQL_Running"],
			"seconds_behind_master": status["Seconds_Behind_Master"],
			"last_error":            status["Last_Error"],
		}
		if raw, ok := status["Seconds_Behind_Master"]; ok && raw != "" {
			var lag int64
			if _, scanErr := fmt.Sscan(raw, &lag); scanErr == nil {
				lagSeconds = sql.NullInt64{Int64: lag, Valid: true}
			}
		}
	}

	if lagSeconds.Valid {
		switch {
		case lagSeconds.Int64 > 60:
			raise(result, types.StatusRed)
			result.Issues = append(result.Issues, fmt.Sprintf(
				"CRITICAL: Replication lag is %d seconds (>60s threshold)", lagSeconds.Int64))
		case lagSeconds.Int64 > 10:
			raise(result, types.StatusAmber)
			result.Issues = append(result.Issues, fmt.Sprintf(
				"WARNING: Replication lag is %d seconds", lagSeconds.Int64))
		}
	}

	type longTransaction struct {
		ID      int64  `json:"id"`
		User    string `json:"user"`
		Host    string `json:"host"`
		DB      string `json:"db"`
		Command string `json:"command"`
		Time    int64  `json:"time"`
		State   string `json:"state"`
		Query   string `json:"query_preview"`
	}
	var longRunning []longTransaction

	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT
			id,
			user,
			host,
			COALESCE(db, ''),
			command,
			time,
			COALESCE(state, ''),
			COALESCE(LEFT(info, 100), '') AS query_preview
		FROM information_schema.processlist
		WHERE command NOT IN ('Sleep', 'Binlog Dump', 'Binlog Dump GTID')
		AND time > %d
		ORDER BY time DESC`, longTransactionSeconds))
	if err != nil {
		return nil, fmt.Errorf("replication topology check failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t longTransaction
		if err := rows.Scan(&t.ID, &t.User, &t.Host, &t.DB, &t.Command, &t.Time, &t.State, &t.Query); err != nil {
			return nil, fmt.Errorf("replication topology check failed: %w", err)
		}
		longRunning = append(longRunning, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("replication topology check failed: %w", err)
	}

	if len(longRunning) > 0 {
		raise(result, types.StatusAmber)
		result.Issues = append(result.Issues, fmt.Sprintf(
			"Found %d long-running transactions (>5 minutes)", len(longRunning)))
	}

	result.Details["long_running_transactions"] = longRunning
	result.Details["summary"] = map[string]any{
		"is_replica":              isReplica,
		"replication_lag_seconds": lagSeconds.Int64,
		"long_transactions_count": len(longRunning),
	}

	if result.Status != types.StatusGreen {
		result.Recommendations = append(result.Recommendations,
			"Resolve any replication lag before starting upgrade",
			"Kill or complete long-running transactions",
			"For Aurora: upgrade replicas before the primary instance",
			"Monitor replication lag throughout the upgrade process",
			"Verify replication and test failover procedures after upgrade")
		if len(longRunning) > 0 {
			result.Recommendations = append(result.Recommendations,
				"Investigate and resolve long-running transactions before upgrade")
		}
	} else if isReplica {
		result.Recommendations = append(result.Recommendations,
			"Replication is healthy and ready for upgrade")
	} else {
		result.Recommendations = append(result.Recommendations,
			"Not configured as a replica - no replication checks needed")
	}

	return result, nil
}

// querySlaveStatus returns SHOW SLAVE STATUS as a column name to value map,
// or nil when the server is not a replica.
func (c *Checker) querySlaveStatus(ctx context.Context) (map[string]string, error) {
	rows, err := c.db.QueryContext(ctx, "SHOW SLAVE STATUS")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if !rows.Next() {
		return nil, rows.Err()
	}

	raw := make([]sql.NullString, len(cols))
	scratch := make([]any, len(cols))
	for i := range raw {
		scratch[i] = &raw[i]
	}
	if err := rows.Scan(scratch...); err != nil {
		return nil, err
	}

	status := make(map[string]string, len(cols))
	for i, col := range cols {
		status[col] = raw[i].String
	}
	return status, nil
}
