package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mkarlsen/aurora-preflight/pkg/types"
)

const (
	FormatJSON     = "json"
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

const (
	jsonFileName     = "upgrade_assessment.json"
	htmlFileName     = "upgrade_assessment.html"
	markdownFileName = "executive_summary.md"
)

// Writer renders an assessment into the configured report formats under
// a single output directory.
type Writer struct {
	outputDir    string
	formats      []string
	clusterID    string
	customerName string
	log          *logrus.Logger
}

func NewWriter(outputDir string, formats []string, clusterID, customerName string, log *logrus.Logger) *Writer {
	return &Writer{
		outputDir:    outputDir,
		formats:      formats,
		clusterID:    clusterID,
		customerName: customerName,
		log:          log,
	}
}

// Write renders every configured format. The first failure aborts the
// remaining formats.
func (w *Writer) Write(result *types.AssessmentResult) error {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	for _, format := range w.formats {
		var err error
		switch format {
		case FormatJSON:
			err = w.writeJSON(result)
		case FormatHTML:
			err = w.writeHTML(result)
		case FormatMarkdown:
			err = w.writeMarkdown(result)
		default:
			err = fmt.Errorf("unknown report format %q", format)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeJSON(result *types.AssessmentResult) error {
	path := filepath.Join(w.outputDir, jsonFileName)
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding assessment: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing json report: %w", err)
	}
	w.log.WithField("path", path).Info("JSON report written")
	return nil
}

func (w *Writer) writeHTML(result *types.AssessmentResult) error {
	path := filepath.Join(w.outputDir, htmlFileName)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing html report: %w", err)
	}
	defer f.Close()

	if err := renderHTML(f, result, w.clusterID, w.customerName); err != nil {
		return fmt.Errorf("rendering html report: %w", err)
	}
	w.log.WithField("path", path).Info("HTML report written")
	return nil
}

func (w *Writer) writeMarkdown(result *types.AssessmentResult) error {
	path := filepath.Join(w.outputDir, markdownFileName)
	if err := os.WriteFile(path, []byte(executiveSummary(result, w.clusterID)), 0o644); err != nil {
		return fmt.Errorf("writing markdown report: %w", err)
	}
	w.log.WithField("path", path).Info("executive summary written")
	return nil
}

// executiveSummary renders the markdown digest handed to stakeholders.
func executiveSummary(result *types.AssessmentResult, clusterID string) string {
	summary := result.DetailedSummary
	if summary == nil {
		summary = BuildDetailedSummary(result)
	}

	title := "MySQL 5.7 to 8.0 Upgrade Assessment"
	if clusterID != "" {
		title = fmt.Sprintf("MySQL 5.7 to 8.0 Upgrade Assessment for %s", clusterID)
	}

	totalDatabases := summary.Overview.TotalDatabases
	needingUpgrade := summary.Overview.DatabasesNeedingUpgrade
	if clusterID != "" {
		totalDatabases = 1
		needingUpgrade = 0
		if db, ok := result.Databases[clusterID]; ok && strings.Contains(db.Version, "5.7") {
			needingUpgrade = 1
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", title)
	fmt.Fprintf(&b, "Generated: %s\n\n", result.GeneratedAt.Format("2006-01-02 15:04:05"))

	b.WriteString("## Overview\n")
	fmt.Fprintf(&b, "- Total Databases: %d\n", totalDatabases)
	fmt.Fprintf(&b, "- Databases Needing Upgrade: %d\n", needingUpgrade)
	fmt.Fprintf(&b, "- Total Issues: %d\n", summary.Overview.TotalIssues)
	fmt.Fprintf(&b, "- Blocking Issues: %d\n", summary.Overview.BlockingIssues)
	fmt.Fprintf(&b, "- Warnings: %d\n\n", summary.Overview.Warnings)

	fmt.Fprintf(&b, "## Overall Status: %s\n\n", summary.Overview.Status)

	b.WriteString("## Immediate Actions Required\n")
	writeBullets(&b, summary.UpgradePath.ImmediateActions)

	b.WriteString("\n## Upgrade Order\n")
	writeBullets(&b, summary.UpgradePath.UpgradeOrder)

	b.WriteString("\n## Common Issues Found\n")
	writeBullets(&b, summary.CommonIssues)

	b.WriteString("\n## Recommendations\n")
	b.WriteString("\n### Pre-Upgrade Tasks\n")
	writeBullets(&b, summary.Recommendations.PreUpgrade)
	b.WriteString("\n### During Upgrade\n")
	writeBullets(&b, summary.Recommendations.DuringUpgrade)
	b.WriteString("\n### Post-Upgrade Tasks\n")
	writeBullets(&b, summary.Recommendations.PostUpgrade)

	return b.String()
}

func writeBullets(b *strings.Builder, items []string) {
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}
