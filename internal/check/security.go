package check

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mkarlsen/aurora-preflight/pkg/types"
)

const systemUsers = "'mysql.sys', 'mysql.session', 'mysql.infoschema', 'rdsadmin'"

func (c *Checker) checkUserPrivileges(ctx context.Context) (*types.CheckResult, error) {
	result := newResult("User Privileges and Security",
		"Reviews user accounts, authentication plugins, and privilege mappings for MySQL 8.0 security model")

	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT user, host, plugin, Super_priv
		FROM mysql.user
		WHERE user NOT IN (%s)
		ORDER BY user, host`, systemUsers))
	if err != nil {
		return nil, fmt.Errorf("user privileges check failed: %w", err)
	}
	defer rows.Close()

	var deprecatedAuth, superUsers []string
	totalUsers := 0
	for rows.Next() {
		var user, host, plugin, superPriv string
		if err := rows.Scan(&user, &host, &plugin, &superPriv); err != nil {
			return nil, fmt.Errorf("user privileges check failed: %w", err)
		}
		totalUsers++
		userHost := fmt.Sprintf("'%s'@'%s'", user, host)

		if plugin == "mysql_old_password" || plugin == "sha256_password" {
			raise(result, types.StatusRed)
			deprecatedAuth = append(deprecatedAuth, userHost)
			result.Issues = append(result.Issues, fmt.Sprintf(
				"User %s uses deprecated authentication plugin: %s", userHost, plugin))
		}
		if superPriv == "Y" {
			raise(result, types.StatusAmber)
			superUsers = append(superUsers, userHost)
			result.Issues = append(result.Issues, fmt.Sprintf(
				"User %s has SUPER privilege (deprecated in 8.0, requires privilege mapping)", userHost))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("user privileges check failed: %w", err)
	}

	var emptyPassword []string
	emptyRows, err := c.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT user, host
		FROM mysql.user
		WHERE (authentication_string = '' OR authentication_string IS NULL)
		AND user NOT IN (%s)`, systemUsers))
	if err == nil {
		for emptyRows.Next() {
			var user, host string
			if err := emptyRows.Scan(&user, &host); err != nil {
				emptyRows.Close()
				return nil, fmt.Errorf("user privileges check failed: %w", err)
			}
			userHost := fmt.Sprintf("'%s'@'%s'", user, host)
			emptyPassword = append(emptyPassword, userHost)
			result.Issues = append(result.Issues, fmt.Sprintf("User %s has empty password", userHost))
		}
		if err := emptyRows.Err(); err != nil {
			emptyRows.Close()
			return nil, fmt.Errorf("user privileges check failed: %w", err)
		}
		emptyRows.Close()
		if len(emptyPassword) > 0 {
			raise(result, types.StatusRed)
		}
	} else if err != sql.ErrNoRows {
		// authentication_string may not exist on older servers, skip silently
		c.log.WithField("error", err).Debug("empty password check skipped")
	}

	result.Details["total_users"] = totalUsers
	result.Details["deprecated_auth_users"] = deprecatedAuth
	result.Details["super_privilege_users"] = superUsers
	result.Details["empty_password_users"] = emptyPassword

	if len(deprecatedAuth) > 0 {
		result.Recommendations = append(result.Recommendations,
			"Migrate users to caching_sha2_password authentication",
			"ALTER USER 'user'@'host' IDENTIFIED WITH caching_sha2_password BY 'password';")
	}
	if len(superUsers) > 0 {
		result.Recommendations = append(result.Recommendations,
			"Map SUPER privilege to dynamic privileges in MySQL 8.0",
			"SUPER -> SYSTEM_VARIABLES_ADMIN for SET GLOBAL",
			"SUPER -> REPLICATION_SLAVE_ADMIN for replication",
			"SUPER -> BINLOG_ADMIN for binary logs")
	}
	if len(emptyPassword) > 0 {
		result.Recommendations = append(result.Recommendations,
			"Set passwords for users with empty passwords before upgrade")
	}
	if result.Status == types.StatusGreen {
		result.Recommendations = append(result.Recommendations,
			"User authentication and privileges are compatible with MySQL 8.0")
	}

	return result, nil
}
