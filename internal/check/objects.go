package check

import (
	"context"
	"fmt"
	"strings"

	"github.com/mkarlsen/aurora-preflight/pkg/types"
)

type triggerInfo struct {
	Schema  string   `json:"trigger_schema"`
	Name    string   `json:"trigger_name"`
	Event   string   `json:"event_manipulation"`
	Table   string   `json:"event_object_table"`
	Timing  string   `json:"action_timing"`
	Definer string   `json:"definer"`
	Issues  []string `json:"potential_issues,omitempty"`
}

type viewInfo struct {
	Schema    string   `json:"table_schema"`
	Name      string   `json:"table_name"`
	Updatable string   `json:"is_updatable"`
	Security  string   `json:"security_type"`
	Definer   string   `json:"definer"`
	Issues    []string `json:"potential_issues,omitempty"`
}

func (c *Checker) checkTriggersViews(ctx context.Context) (*types.CheckResult, error) {
	result := newResult("Triggers and Views Check",
		"Examines triggers and views for syntax changes, deprecated features, and complexity issues")

	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT
			trigger_schema,
			trigger_name,
			event_manipulation,
			event_object_table,
			action_statement,
			action_timing,
			definer
		FROM information_schema.triggers
		WHERE trigger_schema NOT IN (%s)
		ORDER BY trigger_schema, trigger_name`, systemSchemas))
	if err != nil {
		return nil, fmt.Errorf("triggers and views check failed: %w", err)
	}
	defer rows.Close()

	var triggers []triggerInfo
	schemas := map[string]struct{}{}
	for rows.Next() {
		var t triggerInfo
		var action string
		if err := rows.Scan(&t.Schema, &t.Name, &t.Event, &t.Table, &action, &t.Timing, &t.Definer); err != nil {
			return nil, fmt.Errorf("triggers and views check failed: %w", err)
		}
		upper := strings.ToUpper(action)
		if strings.Contains(upper, "PASSWORD(") {
			t.Issues = append(t.Issues, "Uses deprecated PASSWORD() function")
		}
		if strings.Contains(upper, "OLD_PASSWORD(") {
			t.Issues = append(t.Issues, "Uses deprecated OLD_PASSWORD() function")
		}
		if strings.Contains(upper, "ENCRYPT(") {
			t.Issues = append(t.Issues, "Uses deprecated ENCRYPT() function")
		}
		triggers = append(triggers, t)
		schemas[t.Schema] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("triggers and views check failed: %w", err)
	}

	viewRows, err := c.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT
			table_schema,
			table_name,
			view_definition,
			is_updatable,
			definer,
			security_type
		FROM information_schema.views
		WHERE table_schema NOT IN (%s)
		ORDER BY table_schema, table_name`, systemSchemas))
	if err != nil {
		return nil, fmt.Errorf("triggers and views check failed: %w", err)
	}
	defer viewRows.Close()

	var views []viewInfo
	for viewRows.Next() {
		var v viewInfo
		var definition string
		if err := viewRows.Scan(&v.Schema, &v.Name, &definition, &v.Updatable, &v.Definer, &v.Security); err != nil {
			return nil, fmt.Errorf("triggers and views check failed: %w", err)
		}
		upper := strings.ToUpper(definition)
		if strings.Contains(upper, "PASSWORD(") {
			v.Issues = append(v.Issues, "Uses deprecated PASSWORD() function")
		}
		if strings.Contains(upper, "GROUP BY") && !strings.Contains(upper, "ANY_VALUE(") {
			v.Issues = append(v.Issues, "May need ANY_VALUE() for GROUP BY in 8.0")
		}
		views = append(views, v)
		schemas[v.Schema] = struct{}{}
	}
	if err := viewRows.Err(); err != nil {
		return nil, fmt.Errorf("triggers and views check failed: %w", err)
	}

	result.Details["triggers"] = triggers
	result.Details["views"] = views
	result.Details["summary"] = map[string]int{
		"trigger_count":    len(triggers),
		"view_count":       len(views),
		"affected_schemas": len(schemas),
	}

	for _, t := range triggers {
		msg := fmt.Sprintf("Trigger %s.%s on %s (%s %s, definer %s)",
			t.Schema, t.Name, t.Table, t.Timing, t.Event, t.Definer)
		if len(t.Issues) > 0 {
			msg += " - " + strings.Join(t.Issues, ", ")
		}
		result.Issues = append(result.Issues, msg)
	}
	for _, v := range views {
		msg := fmt.Sprintf("View %s.%s (updatable %s, security %s, definer %s)",
			v.Schema, v.Name, v.Updatable, v.Security, v.Definer)
		if len(v.Issues) > 0 {
			msg += " - " + strings.Join(v.Issues, ", ")
		}
		result.Issues = append(result.Issues, msg)
	}

	if len(triggers) > 0 || len(views) > 0 {
		raise(result, types.StatusAmber)
		result.Recommendations = append(result.Recommendations,
			fmt.Sprintf("Total objects to review: %d (%d triggers, %d views) across %d schemas",
				len(triggers)+len(views), len(triggers), len(views), len(schemas)),
			"Review all triggers and views for 8.0 compatibility",
			"Test triggers and views in an upgrade simulation",
			"Take backup of all view and trigger definitions (SHOW TRIGGERS, SHOW CREATE VIEW)",
			"Check for deprecated syntax in view definitions",
			"Verify trigger privileges and security settings")
	}

	return result, nil
}
