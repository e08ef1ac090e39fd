package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mkarlsen/aurora-preflight/pkg/types"
)

const maxImmediateActions = 10

// BuildDetailedSummary digests per-database check results into the
// fleet-wide overview, upgrade order, and recommendation phases.
func BuildDetailedSummary(result *types.AssessmentResult) *types.DetailedSummary {
	summary := &types.DetailedSummary{
		Overview: types.Overview{
			TotalDatabases: len(result.Databases),
			Status:         types.StatusGreen,
			AuroraClusters: []types.DatabaseRef{},
			RDSInstances:   []types.DatabaseRef{},
		},
		UpgradePath: types.UpgradePath{
			ImmediateActions: []string{},
			UpgradeOrder:     []string{},
			ParameterChanges: map[string]map[string]string{
				"aurora": {
					"log_bin_trust_function_creators": "ON",
					"character_set_server":            "utf8mb4",
					"collation_server":                "utf8mb4_0900_ai_ci",
				},
				"rds": {
					"binlog_format":                   "ROW",
					"log_bin_trust_function_creators": "ON",
					"character_set_server":            "utf8mb4",
					"collation_server":                "utf8mb4_0900_ai_ci",
					"max_allocated_packet":            "67108864(64MB)",
					"table_open_cache":                "4000",
					"explicit_defaults_for_timestamp": "ON",
				},
			},
		},
		CommonIssues: []string{},
		Recommendations: types.PhaseRecommendations{
			PreUpgrade: []string{
				"Update parameter groups with recommended settings",
				"Take full backup of all databases",
				"Convert character sets to utf8mb4 where needed",
				"Make sure that the instance has enough resources (CPU, Memory, IOPS, storage) for the upgrade process",
				"Ensure there are no long-running transactions",
				"Make sure history list length is not high",
			},
			DuringUpgrade: []string{
				"Follow upgrade order as specified",
				"Test each upgrade in non-production first",
				"Monitor replication lag during upgrades",
				"Verify application compatibility",
				"Have rollback plan ready",
			},
			PostUpgrade: []string{
				"Verify all stored procedures and views",
				"Check application performance",
				"Update monitoring and alerts",
				"Review and update backup strategies",
				"Document changes and lessons learned",
			},
		},
	}

	for id, db := range result.Databases {
		switch db.Summary.Status {
		case types.StatusRed:
			summary.Overview.Status = types.StatusRed
			summary.Overview.BlockingIssues += db.Summary.BlockingIssues
		case types.StatusAmber:
			if summary.Overview.Status != types.StatusRed {
				summary.Overview.Status = types.StatusAmber
			}
			summary.Overview.Warnings += db.Summary.Warnings
		}
		summary.Overview.TotalIssues += db.Summary.TotalIssues

		if strings.Contains(db.Version, "5.7") {
			summary.Overview.DatabasesNeedingUpgrade++
			ref := types.DatabaseRef{Identifier: id, Version: db.Version, Issues: db.Summary.TotalIssues}
			if db.Type == "AURORA" {
				summary.Overview.AuroraClusters = append(summary.Overview.AuroraClusters, ref)
			} else {
				summary.Overview.RDSInstances = append(summary.Overview.RDSInstances, ref)
			}
		}
	}

	sortRefs := func(refs []types.DatabaseRef) {
		sort.Slice(refs, func(i, j int) bool { return refs[i].Version < refs[j].Version })
	}
	sortRefs(summary.Overview.AuroraClusters)
	sortRefs(summary.Overview.RDSInstances)

	for _, c := range summary.Overview.AuroraClusters {
		summary.UpgradePath.UpgradeOrder = append(summary.UpgradePath.UpgradeOrder,
			fmt.Sprintf("Aurora cluster %s (%s)", c.Identifier, c.Version))
	}
	for _, i := range summary.Overview.RDSInstances {
		summary.UpgradePath.UpgradeOrder = append(summary.UpgradePath.UpgradeOrder,
			fmt.Sprintf("RDS instance %s (%s)", i.Identifier, i.Version))
	}

	summary.UpgradePath.ImmediateActions = immediateActions(result)
	summary.CommonIssues = commonIssues(result)

	return summary
}

// immediateActions picks one short recommendation per failing check,
// capped at maxImmediateActions entries.
func immediateActions(result *types.AssessmentResult) []string {
	actions := []string{}
	for _, id := range sortedDatabaseIDs(result) {
		for _, check := range result.Databases[id].Checks {
			if check.Status != types.StatusRed {
				continue
			}
			for _, rec := range firstN(check.Recommendations, 2) {
				if len(rec) < 200 && !strings.HasPrefix(rec, "Found") {
					actions = append(actions, fmt.Sprintf(
						"%s (%d issues): %s", check.Name, len(check.Issues), rec))
					break
				}
			}
		}
	}
	if len(actions) > maxImmediateActions {
		actions = actions[:maxImmediateActions]
	}
	return actions
}

// commonIssues deduplicates issue text across all RED and AMBER checks.
func commonIssues(result *types.AssessmentResult) []string {
	seen := map[string]struct{}{}
	issues := []string{}
	for _, id := range sortedDatabaseIDs(result) {
		for _, check := range result.Databases[id].Checks {
			if check.Status != types.StatusRed && check.Status != types.StatusAmber {
				continue
			}
			for _, issue := range check.Issues {
				if _, ok := seen[issue]; ok {
					continue
				}
				seen[issue] = struct{}{}
				issues = append(issues, issue)
			}
		}
	}
	return issues
}

func sortedDatabaseIDs(result *types.AssessmentResult) []string {
	ids := make([]string, 0, len(result.Databases))
	for id := range result.Databases {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
