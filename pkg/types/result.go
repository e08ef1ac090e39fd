package types

import "time"

// Status classifies a single check or an aggregate of checks.
type Status string

const (
	StatusGreen Status = "GREEN"
	StatusAmber Status = "AMBER"
	StatusRed   Status = "RED"
	StatusError Status = "ERROR"
)

// Escalate returns the more severe of the two statuses. RED always wins,
// AMBER beats GREEN, and ERROR only sticks when nothing worse was seen.
func (s Status) Escalate(next Status) Status {
	rank := map[Status]int{StatusGreen: 0, StatusError: 1, StatusAmber: 2, StatusRed: 3}
	if rank[next] > rank[s] {
		return next
	}
	return s
}

// CheckResult is the outcome of one diagnostic check against one database.
// Results are merged into a DatabaseResult and never mutated afterward,
// except by the recommendation filter applied before reporting.
type CheckResult struct {
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	Status          Status         `json:"status"`
	Issues          []string       `json:"issues"`
	Recommendations []string       `json:"recommendations"`
	Details         map[string]any `json:"details,omitempty"`
}

// Summary aggregates check outcomes for a single database.
type Summary struct {
	Status         Status `json:"status"`
	TotalIssues    int    `json:"total_issues"`
	BlockingIssues int    `json:"blocking_issues"`
	Warnings       int    `json:"warnings"`
}

// DatabaseResult holds every check outcome for one Aurora cluster or
// RDS instance. Message is set instead of Checks when the database could
// not be assessed at all.
type DatabaseResult struct {
	ClusterID string        `json:"cluster_id"`
	Engine    string        `json:"engine"`
	Version   string        `json:"version"`
	Type      string        `json:"type"`
	Checks    []CheckResult `json:"checks"`
	Summary   Summary       `json:"summary"`
	Message   string        `json:"message,omitempty"`
}

// RunSummary counts databases by their aggregate status.
type RunSummary struct {
	TotalDatabases int `json:"total_databases"`
	GreenDatabases int `json:"green_databases"`
	AmberDatabases int `json:"amber_databases"`
	RedDatabases   int `json:"red_databases"`
	ErrorDatabases int `json:"error_databases"`
}

// AssessmentResult is the full output of one assessment run.
type AssessmentResult struct {
	Summary         RunSummary                 `json:"summary"`
	Databases       map[string]*DatabaseResult `json:"databases"`
	DetailedSummary *DetailedSummary           `json:"detailed_summary,omitempty"`
	GeneratedAt     time.Time                  `json:"generated_at"`
}

// DatabaseRef identifies a database inside the upgrade order.
type DatabaseRef struct {
	Identifier string `json:"identifier"`
	Version    string `json:"version"`
	Issues     int    `json:"issues"`
}

// Overview summarizes the fleet-wide state of the assessment.
type Overview struct {
	TotalDatabases          int           `json:"total_databases"`
	DatabasesNeedingUpgrade int           `json:"databases_needing_upgrade"`
	AuroraClusters          []DatabaseRef `json:"aurora_clusters"`
	RDSInstances            []DatabaseRef `json:"rds_instances"`
	Status                  Status        `json:"status"`
	TotalIssues             int           `json:"total_issues"`
	BlockingIssues          int           `json:"blocking_issues"`
	Warnings                int           `json:"warnings"`
}

// UpgradePath carries the ordered plan derived from the findings.
type UpgradePath struct {
	ImmediateActions []string                     `json:"immediate_actions"`
	UpgradeOrder     []string                     `json:"upgrade_order"`
	ParameterChanges map[string]map[string]string `json:"parameter_changes"`
}

// PhaseRecommendations groups canned guidance by upgrade phase.
type PhaseRecommendations struct {
	PreUpgrade    []string `json:"pre_upgrade"`
	DuringUpgrade []string `json:"during_upgrade"`
	PostUpgrade   []string `json:"post_upgrade"`
}

// DetailedSummary is the digest rendered at the top of every report.
type DetailedSummary struct {
	Overview        Overview             `json:"overview"`
	UpgradePath     UpgradePath          `json:"upgrade_path"`
	CommonIssues    []string             `json:"common_issues"`
	Recommendations PhaseRecommendations `json:"recommendations"`
}
