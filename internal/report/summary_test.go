package report

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mkarlsen/aurora-preflight/pkg/types"
)

func sampleResult() *types.AssessmentResult {
	return &types.AssessmentResult{
		Summary: types.RunSummary{TotalDatabases: 2, AmberDatabases: 1, RedDatabases: 1},
		Databases: map[string]*types.DatabaseResult{
			"orders-cluster": {
				ClusterID: "orders-cluster",
				Engine:    "aurora-mysql",
				Version:   "5.7.mysql_aurora.2.11.2",
				Type:      "AURORA",
				Checks: []types.CheckResult{
					{
						Name:            "Reserved Keywords Conflicts",
						Status:          types.StatusRed,
						Issues:          []string{"Table name 'app.rank' conflicts with MySQL 8.0 reserved keyword"},
						Recommendations: []string{"Rename conflicting objects before upgrade"},
					},
					{
						Name:            "Character Set Check",
						Status:          types.StatusAmber,
						Issues:          []string{"3 columns use deprecated character sets (utf8/utf8mb3/latin1)"},
						Recommendations: []string{"Convert columns to utf8mb4 character set before upgrade"},
					},
				},
				Summary: types.Summary{Status: types.StatusRed, TotalIssues: 2, BlockingIssues: 1, Warnings: 1},
			},
			"legacy-rds": {
				ClusterID: "legacy-rds",
				Engine:    "mysql",
				Version:   "5.7.44",
				Type:      "RDS",
				Checks: []types.CheckResult{
					{
						Name:            "Binary Log Settings",
						Status:          types.StatusAmber,
						Issues:          []string{"GTID mode is OFF, enable gtid_mode for smoother upgrades"},
						Recommendations: []string{"Enable GTID-based replication before the upgrade window"},
					},
				},
				Summary: types.Summary{Status: types.StatusAmber, TotalIssues: 1, Warnings: 1},
			},
		},
		GeneratedAt: time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
	}
}

func TestBuildDetailedSummaryOverview(t *testing.T) {
	summary := BuildDetailedSummary(sampleResult())

	if summary.Overview.TotalDatabases != 2 {
		t.Fatalf("expected 2 databases, got %d", summary.Overview.TotalDatabases)
	}
	if summary.Overview.DatabasesNeedingUpgrade != 2 {
		t.Fatalf("expected 2 databases needing upgrade, got %d", summary.Overview.DatabasesNeedingUpgrade)
	}
	if summary.Overview.Status != types.StatusRed {
		t.Fatalf("expected RED overall, got %s", summary.Overview.Status)
	}
	if summary.Overview.TotalIssues != 3 || summary.Overview.BlockingIssues != 1 || summary.Overview.Warnings != 1 {
		t.Fatalf("unexpected issue counts: %+v", summary.Overview)
	}
	if len(summary.Overview.AuroraClusters) != 1 || summary.Overview.AuroraClusters[0].Identifier != "orders-cluster" {
		t.Fatalf("unexpected aurora refs: %+v", summary.Overview.AuroraClusters)
	}
	if len(summary.Overview.RDSInstances) != 1 || summary.Overview.RDSInstances[0].Identifier != "legacy-rds" {
		t.Fatalf("unexpected rds refs: %+v", summary.Overview.RDSInstances)
	}
}

func TestUpgradeOrderAuroraFirst(t *testing.T) {
	summary := BuildDetailedSummary(sampleResult())

	order := summary.UpgradePath.UpgradeOrder
	if len(order) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(order))
	}
	if !strings.HasPrefix(order[0], "Aurora cluster orders-cluster") {
		t.Fatalf("aurora clusters must come first, got %q", order[0])
	}
	if !strings.HasPrefix(order[1], "RDS instance legacy-rds") {
		t.Fatalf("expected rds instance second, got %q", order[1])
	}
}

func TestParameterChangesSeeded(t *testing.T) {
	summary := BuildDetailedSummary(sampleResult())

	if summary.UpgradePath.ParameterChanges["aurora"]["character_set_server"] != "utf8mb4" {
		t.Fatal("aurora parameter changes missing character_set_server")
	}
	if summary.UpgradePath.ParameterChanges["rds"]["binlog_format"] != "ROW" {
		t.Fatal("rds parameter changes missing binlog_format")
	}
	if _, ok := summary.UpgradePath.ParameterChanges["aurora"]["binlog_format"]; ok {
		t.Fatal("binlog_format is managed by Aurora, must not be suggested")
	}
}

func TestImmediateActionsFormat(t *testing.T) {
	summary := BuildDetailedSummary(sampleResult())

	actions := summary.UpgradePath.ImmediateActions
	if len(actions) != 1 {
		t.Fatalf("expected 1 immediate action, got %d", len(actions))
	}
	want := "Reserved Keywords Conflicts (1 issues): Rename conflicting objects before upgrade"
	if actions[0] != want {
		t.Fatalf("got %q, want %q", actions[0], want)
	}
}

func TestImmediateActionsCapped(t *testing.T) {
	result := sampleResult()
	db := result.Databases["orders-cluster"]
	for i := 0; i < 15; i++ {
		db.Checks = append(db.Checks, types.CheckResult{
			Name:            fmt.Sprintf("Synthetic Check %02d", i),
			Status:          types.StatusRed,
			Issues:          []string{"issue"},
			Recommendations: []string{"fix it"},
		})
	}

	actions := BuildDetailedSummary(result).UpgradePath.ImmediateActions
	if len(actions) != maxImmediateActions {
		t.Fatalf("expected cap at %d, got %d", maxImmediateActions, len(actions))
	}
}

func TestImmediateActionsSkipVerboseRecommendations(t *testing.T) {
	result := sampleResult()
	db := result.Databases["orders-cluster"]
	db.Checks = []types.CheckResult{{
		Name:   "Deprecated Features Check",
		Status: types.StatusRed,
		Issues: []string{"x"},
		Recommendations: []string{
			"Found usage of PASSWORD() in 3 routines",
			"Replace removed functions with supported equivalents",
		},
	}}

	actions := BuildDetailedSummary(result).UpgradePath.ImmediateActions
	if len(actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(actions))
	}
	if !strings.Contains(actions[0], "Replace removed functions") {
		t.Fatalf("recommendations starting with Found must be skipped, got %q", actions[0])
	}
}

func TestCommonIssuesDeduplicated(t *testing.T) {
	result := sampleResult()
	shared := "Server character set is latin1, MySQL 8.0 defaults to utf8mb4"
	for _, db := range result.Databases {
		db.Checks = append(db.Checks, types.CheckResult{
			Name:   "Character Set Check",
			Status: types.StatusAmber,
			Issues: []string{shared},
		})
	}

	issues := BuildDetailedSummary(result).CommonIssues
	var count int
	for _, issue := range issues {
		if issue == shared {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected shared issue once, found %d times", count)
	}
}
