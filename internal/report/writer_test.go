package report

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/mkarlsen/aurora-preflight/pkg/types"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestWriterProducesAllFormats(t *testing.T) {
	dir := t.TempDir()
	result := sampleResult()
	result.DetailedSummary = BuildDetailedSummary(result)

	w := NewWriter(dir, []string{FormatJSON, FormatHTML, FormatMarkdown}, "", "", testLogger())
	if err := w.Write(result); err != nil {
		t.Fatalf("write: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "upgrade_assessment.json"))
	if err != nil {
		t.Fatalf("json report missing: %v", err)
	}
	var decoded types.AssessmentResult
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("json report does not parse: %v", err)
	}
	if len(decoded.Databases) != 2 {
		t.Fatalf("expected 2 databases in json report, got %d", len(decoded.Databases))
	}

	html, err := os.ReadFile(filepath.Join(dir, "upgrade_assessment.html"))
	if err != nil {
		t.Fatalf("html report missing: %v", err)
	}
	if !strings.Contains(string(html), "<html") {
		t.Fatal("html report lacks markup")
	}
	if !strings.Contains(string(html), "orders-cluster") {
		t.Fatal("html report should name the assessed databases")
	}

	md, err := os.ReadFile(filepath.Join(dir, "executive_summary.md"))
	if err != nil {
		t.Fatalf("markdown report missing: %v", err)
	}
	if !strings.Contains(string(md), "# MySQL 5.7 to 8.0 Upgrade Assessment") {
		t.Fatal("markdown report lacks the title")
	}
	if !strings.Contains(string(md), "## Overall Status: RED") {
		t.Fatal("markdown report lacks the overall status")
	}
}

func TestWriterRespectsFormatSelection(t *testing.T) {
	dir := t.TempDir()
	result := sampleResult()
	result.DetailedSummary = BuildDetailedSummary(result)

	w := NewWriter(dir, []string{FormatJSON}, "", "", testLogger())
	if err := w.Write(result); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "upgrade_assessment.json")); err != nil {
		t.Fatalf("json report missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "upgrade_assessment.html")); !os.IsNotExist(err) {
		t.Fatal("html report should not have been written")
	}
}

func TestExecutiveSummaryClusterScoped(t *testing.T) {
	result := sampleResult()
	result.DetailedSummary = BuildDetailedSummary(result)

	md := executiveSummary(result, "orders-cluster")
	if !strings.Contains(md, "# MySQL 5.7 to 8.0 Upgrade Assessment for orders-cluster") {
		t.Fatal("cluster-scoped summary should name the cluster in the title")
	}
	if !strings.Contains(md, "- Total Databases: 1") {
		t.Fatal("cluster-scoped summary should report a single database")
	}
	if !strings.Contains(md, "- Databases Needing Upgrade: 1") {
		t.Fatal("a 5.7 cluster counts as needing upgrade")
	}
}

func TestHTMLReportReadinessScore(t *testing.T) {
	result := sampleResult()
	result.DetailedSummary = BuildDetailedSummary(result)

	rep := buildHTMLReport(result, "", "Initech")
	// 3 checks, none green.
	if rep.ReadinessScore != 0 {
		t.Fatalf("expected readiness score 0, got %d", rep.ReadinessScore)
	}
	if rep.RedCount != 1 || rep.AmberCount != 2 || rep.GreenCount != 0 {
		t.Fatalf("unexpected counts red=%d amber=%d green=%d", rep.RedCount, rep.AmberCount, rep.GreenCount)
	}
	if rep.EffortLevel != "medium" || rep.EffortHours != 12 {
		t.Fatalf("unexpected effort %s/%d", rep.EffortLevel, rep.EffortHours)
	}
	if rep.CustomerName != "Initech" {
		t.Fatalf("unexpected customer name %q", rep.CustomerName)
	}
}

func TestSegmentPercentFloor(t *testing.T) {
	if got := segmentPercent(1, 1000); got != 1 {
		t.Fatalf("tiny non-zero segments render at 1%%, got %d", got)
	}
	if got := segmentPercent(0, 1000); got != 0 {
		t.Fatalf("empty segments render at 0%%, got %d", got)
	}
	if got := segmentPercent(500, 1000); got != 50 {
		t.Fatalf("expected 50%%, got %d", got)
	}
}
