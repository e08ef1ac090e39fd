package report

import (
	"html/template"
	"io"
	"sort"
	"strings"

	"github.com/mkarlsen/aurora-preflight/pkg/types"
)

// scoreCircumference is the stroke length of the readiness ring (2πr, r=80).
const scoreCircumference = 502.4

type htmlCheck struct {
	Name            string
	Description     string
	Status          string
	StatusClass     string
	Icon            string
	Issues          []string
	Recommendations []string
}

type htmlReport struct {
	GeneratedAt     string
	ClusterID       string
	CustomerName    string
	Version         string
	Status          string
	StatusClass     string
	BlockingIssues  int
	Warnings        int
	TotalIssues     int
	ReadinessScore  int
	ScoreColor      string
	ScoreDashoffset float64
	RedCount        int
	AmberCount      int
	GreenCount      int
	RedPercent      int
	AmberPercent    int
	GreenPercent    int
	EffortLevel     string
	EffortHours     int
	Checks          []htmlCheck
}

func buildHTMLReport(result *types.AssessmentResult, clusterID, customerName string) htmlReport {
	databases := result.Databases
	if clusterID != "" {
		if db, ok := databases[clusterID]; ok {
			databases = map[string]*types.DatabaseResult{clusterID: db}
		} else {
			databases = map[string]*types.DatabaseResult{}
		}
	}

	ids := make([]string, 0, len(databases))
	for id := range databases {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var red, amber, green, total, passed int
	var checks []htmlCheck
	version := "Unknown"
	displayID := clusterID
	for _, id := range ids {
		db := databases[id]
		if displayID == "" {
			displayID = id
		}
		if version == "Unknown" && db.Version != "" {
			version = db.Version
		}
		for _, check := range db.Checks {
			total++
			switch check.Status {
			case types.StatusGreen:
				green++
				passed++
			case types.StatusAmber:
				amber++
			case types.StatusRed:
				red++
			}
			checks = append(checks, htmlCheck{
				Name:            check.Name,
				Description:     check.Description,
				Status:          string(check.Status),
				StatusClass:     strings.ToLower(string(check.Status)),
				Icon:            statusIcon(check.Status),
				Issues:          check.Issues,
				Recommendations: check.Recommendations,
			})
		}
	}
	if displayID == "" {
		displayID = "Unknown"
	}

	score := 100
	if total > 0 {
		score = passed * 100 / total
	}

	report := htmlReport{
		GeneratedAt:     result.GeneratedAt.Format("2006-01-02 15:04:05"),
		ClusterID:       displayID,
		CustomerName:    customerName,
		Version:         version,
		Status:          "GREEN",
		ReadinessScore:  score,
		ScoreColor:      scoreColor(score),
		ScoreDashoffset: scoreCircumference - scoreCircumference*float64(score)/100,
		RedCount:        red,
		AmberCount:      amber,
		GreenCount:      green,
		Checks:          checks,
	}
	if summary := result.DetailedSummary; summary != nil {
		report.Status = string(summary.Overview.Status)
		report.BlockingIssues = summary.Overview.BlockingIssues
		report.Warnings = summary.Overview.Warnings
		report.TotalIssues = summary.Overview.TotalIssues
	}
	report.StatusClass = strings.ToLower(report.Status)

	colored := red + amber + green
	if colored > 0 {
		report.RedPercent = segmentPercent(red, colored)
		report.AmberPercent = segmentPercent(amber, colored)
		report.GreenPercent = segmentPercent(green, colored)
	}

	switch {
	case red > 5 || colored > 15:
		report.EffortLevel = "high"
		report.EffortHours = red*8 + amber*4 + green
	case red > 0 || amber > 5:
		report.EffortLevel = "medium"
		report.EffortHours = red*6 + amber*3 + green
	default:
		report.EffortLevel = "low"
		report.EffortHours = amber*2 + green
	}

	return report
}

// segmentPercent guarantees a visible bar segment for a non-zero count.
func segmentPercent(count, total int) int {
	p := count * 100 / total
	if count > 0 && p == 0 {
		p = 1
	}
	return p
}

func statusIcon(s types.Status) string {
	switch s {
	case types.StatusRed:
		return "🔴"
	case types.StatusAmber:
		return "🟡"
	case types.StatusGreen:
		return "🟢"
	default:
		return "●"
	}
}

func scoreColor(score int) string {
	switch {
	case score >= 80:
		return "#27ae60"
	case score >= 60:
		return "#f39c12"
	default:
		return "#e74c3c"
	}
}

func renderHTML(w io.Writer, result *types.AssessmentResult, clusterID, customerName string) error {
	return reportTemplate.Execute(w, buildHTMLReport(result, clusterID, customerName))
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>MySQL 5.7 to 8.0 Upgrade Assessment</title>
<style>
body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 0; background: #f4f6f8; color: #2c3e50; }
.container { max-width: 1100px; margin: 0 auto; padding: 24px; }
.header { background: #1a2940; color: #fff; padding: 32px; border-radius: 8px; }
.header h1 { margin: 0 0 8px; font-size: 26px; }
.header .meta { color: #aab7c8; font-size: 14px; }
.customer-banner { margin-top: 16px; padding: 12px 16px; background: rgba(255,255,255,0.08); border-radius: 6px; }
.customer-label { font-size: 12px; text-transform: uppercase; color: #aab7c8; }
.customer-name { font-size: 18px; font-weight: 600; }
.summary-grid { display: flex; gap: 16px; margin: 24px 0; flex-wrap: wrap; }
.card { background: #fff; border-radius: 8px; padding: 20px; flex: 1; min-width: 180px; box-shadow: 0 1px 3px rgba(0,0,0,0.08); }
.card .value { font-size: 30px; font-weight: 700; }
.card .label { color: #7f8c9b; font-size: 13px; text-transform: uppercase; }
.card.red .value { color: #e74c3c; }
.card.amber .value { color: #f39c12; }
.card.green .value { color: #27ae60; }
.score-ring { display: flex; align-items: center; gap: 24px; }
.chart-bar { display: flex; height: 28px; border-radius: 6px; overflow: hidden; margin: 16px 0; font-size: 13px; color: #fff; text-align: center; }
.bar-segment { line-height: 28px; }
.bar-segment.red { background: #e74c3c; }
.bar-segment.amber { background: #f39c12; }
.bar-segment.green { background: #27ae60; }
.empty-chart-message { padding: 16px; background: #eafaf1; border-radius: 6px; color: #27ae60; }
.effort { margin: 8px 0 24px; font-size: 14px; color: #5d6d7e; }
.check-item { background: #fff; border-radius: 8px; margin-bottom: 12px; border-left: 4px solid #bdc3c7; box-shadow: 0 1px 3px rgba(0,0,0,0.08); }
.check-item.red { border-left-color: #e74c3c; }
.check-item.amber { border-left-color: #f39c12; }
.check-item.green { border-left-color: #27ae60; }
.check-header { display: flex; align-items: center; padding: 16px; cursor: pointer; gap: 12px; }
.check-name { font-weight: 600; }
.check-description { font-size: 13px; color: #7f8c9b; }
.check-title { flex: 1; }
.check-badge { font-size: 12px; font-weight: 700; padding: 4px 10px; border-radius: 12px; }
.check-badge.red { background: #fdecea; color: #e74c3c; }
.check-badge.amber { background: #fef5e7; color: #f39c12; }
.check-badge.green { background: #eafaf1; color: #27ae60; }
.check-badge.error { background: #ecf0f1; color: #7f8c9b; }
.check-content { display: none; padding: 0 16px 16px 44px; }
.check-item.open .check-content { display: block; }
.issues-title, .recommendations-title { font-weight: 600; margin: 12px 0 6px; }
.issues-list li, .recommendations-list li { margin: 4px 0; font-size: 14px; }
.success-message { color: #27ae60; font-size: 14px; padding: 8px 0; }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>MySQL 5.7 to 8.0 Upgrade Assessment</h1>
    <div class="meta">Cluster: {{.ClusterID}} &middot; Version: {{.Version}} &middot; Generated: {{.GeneratedAt}}</div>
    {{if .CustomerName}}<div class="customer-banner">
      <div class="customer-label">Prepared for</div>
      <div class="customer-name">{{.CustomerName}}</div>
    </div>{{end}}
  </div>

  <div class="summary-grid">
    <div class="card score-ring">
      <svg width="120" height="120" viewBox="0 0 180 180">
        <circle cx="90" cy="90" r="80" fill="none" stroke="#ecf0f1" stroke-width="14"/>
        <circle cx="90" cy="90" r="80" fill="none" stroke="{{.ScoreColor}}" stroke-width="14"
          stroke-dasharray="502.4" stroke-dashoffset="{{.ScoreDashoffset}}"
          stroke-linecap="round" transform="rotate(-90 90 90)"/>
        <text x="90" y="100" text-anchor="middle" font-size="36" font-weight="700" fill="{{.ScoreColor}}">{{.ReadinessScore}}</text>
      </svg>
      <div>
        <div class="label">Readiness Score</div>
        <div class="value">{{.Status}}</div>
      </div>
    </div>
    <div class="card red"><div class="value">{{.BlockingIssues}}</div><div class="label">Blocking Issues</div></div>
    <div class="card amber"><div class="value">{{.Warnings}}</div><div class="label">Warnings</div></div>
    <div class="card"><div class="value">{{.TotalIssues}}</div><div class="label">Total Issues</div></div>
  </div>

  {{if gt (len .Checks) 0}}
  <div class="chart-bar">
    {{if gt .RedCount 0}}<div class="bar-segment red" style="width: {{.RedPercent}}%">{{.RedCount}}</div>{{end}}
    {{if gt .AmberCount 0}}<div class="bar-segment amber" style="width: {{.AmberPercent}}%">{{.AmberCount}}</div>{{end}}
    {{if gt .GreenCount 0}}<div class="bar-segment green" style="width: {{.GreenPercent}}%">{{.GreenCount}}</div>{{end}}
  </div>
  {{else}}
  <div class="empty-chart-message">No issues found - all checks passed!</div>
  {{end}}
  <div class="effort">Estimated remediation effort: {{.EffortLevel}} (~{{.EffortHours}} hours)</div>

  {{range .Checks}}
  <div class="check-item {{.StatusClass}}">
    <div class="check-header" onclick="this.parentElement.classList.toggle('open')">
      <div class="check-icon">{{.Icon}}</div>
      <div class="check-title">
        <div class="check-name">{{.Name}}</div>
        <div class="check-description">{{.Description}}</div>
      </div>
      <div class="check-badge {{.StatusClass}}">{{.Status}}</div>
    </div>
    <div class="check-content">
      {{if .Issues}}
      <div class="issues-section">
        <div class="issues-title">Issues Detected</div>
        <ul class="issues-list">{{range .Issues}}<li>{{.}}</li>{{end}}</ul>
      </div>
      {{else}}
      <div class="success-message">No issues found - this check passed successfully</div>
      {{end}}
      {{if .Recommendations}}
      <div class="recommendations-section">
        <div class="recommendations-title">Recommendations</div>
        <ul class="recommendations-list">{{range .Recommendations}}<li>{{.}}</li>{{end}}</ul>
      </div>
      {{end}}
    </div>
  </div>
  {{end}}
</div>
</body>
</html>
`))
