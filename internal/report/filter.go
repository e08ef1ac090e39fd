package report

import (
	"strings"

	"github.com/mkarlsen/aurora-preflight/pkg/types"
)

// Recommendations about these features are stripped from every report,
// they are managed by the platform and only add noise for reviewers.
var filteredFeatureKeywords = []string{"gtid", "parallel query", "parallel_query"}

func mentionsFilteredFeature(s string) bool {
	lower := strings.ToLower(s)
	for _, kw := range filteredFeatureKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func filterStrings(items []string) []string {
	kept := make([]string, 0, len(items))
	for _, s := range items {
		if !mentionsFilteredFeature(s) {
			kept = append(kept, s)
		}
	}
	return kept
}

// FilterFeatureRecommendations removes GTID and parallel-query findings
// from the assessment in place. A check whose issues are all stripped is
// reset to GREEN, and checks named after filtered features are dropped
// entirely.
func FilterFeatureRecommendations(result *types.AssessmentResult) {
	if summary := result.DetailedSummary; summary != nil {
		summary.CommonIssues = filterStrings(summary.CommonIssues)
		summary.UpgradePath.ImmediateActions = filterStrings(summary.UpgradePath.ImmediateActions)
		for _, params := range summary.UpgradePath.ParameterChanges {
			for key := range params {
				if mentionsFilteredFeature(key) {
					delete(params, key)
				}
			}
		}
		summary.Recommendations.PreUpgrade = filterStrings(summary.Recommendations.PreUpgrade)
		summary.Recommendations.DuringUpgrade = filterStrings(summary.Recommendations.DuringUpgrade)
		summary.Recommendations.PostUpgrade = filterStrings(summary.Recommendations.PostUpgrade)
	}

	for _, db := range result.Databases {
		kept := make([]types.CheckResult, 0, len(db.Checks))
		for _, check := range db.Checks {
			if mentionsFilteredFeature(check.Name) {
				continue
			}
			check.Issues = filterStrings(check.Issues)
			check.Recommendations = filterStrings(check.Recommendations)
			if len(check.Issues) == 0 && check.Status != types.StatusGreen {
				check.Status = types.StatusGreen
			}
			kept = append(kept, check)
		}
		db.Checks = kept
	}
}
