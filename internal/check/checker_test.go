package check

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"

	"github.com/mkarlsen/aurora-preflight/pkg/types"
)

func newTestChecker(t *testing.T, target Target) (*Checker, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(db, target, 5*time.Second, log), mock
}

func TestTargetIsAurora(t *testing.T) {
	if !(Target{Engine: "aurora-mysql"}).IsAurora() {
		t.Fatal("aurora-mysql should be detected as Aurora")
	}
	if (Target{Engine: "mysql"}).IsAurora() {
		t.Fatal("mysql should not be detected as Aurora")
	}
}

func TestVersionCompatibilityFlags57(t *testing.T) {
	c, mock := newTestChecker(t, Target{Identifier: "db1"})

	mock.ExpectQuery("@@version").WillReturnRows(
		sqlmock.NewRows([]string{"version", "comment", "charset", "collation"}).
			AddRow("5.7.44", "Source distribution", "latin1", "latin1_swedish_ci"))

	res, err := c.checkVersionCompatibility(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != types.StatusAmber {
		t.Fatalf("expected AMBER, got %s", res.Status)
	}
	if len(res.Issues) != 3 {
		t.Fatalf("expected 3 issues, got %d", len(res.Issues))
	}
	if !strings.Contains(res.Issues[0], "5.7.44") {
		t.Fatalf("issue should name the running version, got %q", res.Issues[0])
	}
}

func TestVersionCompatibilityPassesOn80(t *testing.T) {
	c, mock := newTestChecker(t, Target{Identifier: "db1"})

	mock.ExpectQuery("@@version").WillReturnRows(
		sqlmock.NewRows([]string{"version", "comment", "charset", "collation"}).
			AddRow("8.0.35", "Source distribution", "utf8mb4", "utf8mb4_0900_ai_ci"))

	res, err := c.checkVersionCompatibility(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != types.StatusGreen {
		t.Fatalf("expected GREEN, got %s", res.Status)
	}
}

func TestCharacterSetsDeprecatedColumns(t *testing.T) {
	c, mock := newTestChecker(t, Target{Identifier: "db1"})

	mock.ExpectQuery("information_schema.columns").WillReturnRows(
		sqlmock.NewRows([]string{"table_schema", "table_name", "column_name", "character_set_name", "collation_name"}).
			AddRow("app", "users", "name", "utf8", "utf8_general_ci").
			AddRow("app", "users", "bio", "latin1", "latin1_swedish_ci"))
	mock.ExpectQuery("@@character_set_server").WillReturnRows(
		sqlmock.NewRows([]string{"charset", "collation"}).AddRow("utf8mb4", "utf8mb4_0900_ai_ci"))

	res, err := c.checkCharacterSets(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != types.StatusAmber {
		t.Fatalf("expected AMBER, got %s", res.Status)
	}
	if !strings.Contains(res.Issues[0], "2 columns") {
		t.Fatalf("expected deprecated column count in issue, got %q", res.Issues[0])
	}
}

func TestCharacterSetsServerDefault(t *testing.T) {
	c, mock := newTestChecker(t, Target{Identifier: "db1"})

	mock.ExpectQuery("information_schema.columns").WillReturnRows(
		sqlmock.NewRows([]string{"table_schema", "table_name", "column_name", "character_set_name", "collation_name"}))
	mock.ExpectQuery("@@character_set_server").WillReturnRows(
		sqlmock.NewRows([]string{"charset", "collation"}).AddRow("latin1", "latin1_swedish_ci"))

	res, err := c.checkCharacterSets(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != types.StatusAmber {
		t.Fatalf("expected AMBER, got %s", res.Status)
	}
	if !strings.Contains(res.Issues[0], "latin1") {
		t.Fatalf("expected server charset issue, got %q", res.Issues[0])
	}
}

func TestSpatialSRIDMissingIndex(t *testing.T) {
	c, mock := newTestChecker(t, Target{Identifier: "db1"})

	mock.ExpectQuery("has_spatial_index").WillReturnRows(
		sqlmock.NewRows([]string{"table_schema", "table_name", "column_name", "data_type", "has_spatial_index"}).
			AddRow("geo", "places", "location", "point", 0))

	res, err := c.checkSpatialSRID(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != types.StatusRed {
		t.Fatalf("expected RED, got %s", res.Status)
	}
}

func TestSpatialSRIDNoSpatialColumns(t *testing.T) {
	c, mock := newTestChecker(t, Target{Identifier: "db1"})

	mock.ExpectQuery("has_spatial_index").WillReturnRows(
		sqlmock.NewRows([]string{"table_schema", "table_name", "column_name", "data_type", "has_spatial_index"}))

	res, err := c.checkSpatialSRID(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != types.StatusGreen {
		t.Fatalf("expected GREEN, got %s", res.Status)
	}
}

func TestDeprecatedFeaturesSpatialInventory(t *testing.T) {
	c, mock := newTestChecker(t, Target{Identifier: "db1"})

	mock.ExpectQuery("mysql_old_password").WillReturnRows(
		sqlmock.NewRows([]string{"user", "host", "plugin"}))
	mock.ExpectQuery("mysql_native_password").WillReturnRows(
		sqlmock.NewRows([]string{"user", "host", "plugin"}))
	for range deprecatedFunctions {
		mock.ExpectQuery("routine_definition REGEXP").WillReturnRows(
			sqlmock.NewRows([]string{"routine_schema", "routine_name", "routine_type"}))
	}
	for range deprecatedVariables {
		mock.ExpectQuery("SHOW VARIABLES").WillReturnRows(
			sqlmock.NewRows([]string{"Variable_name", "Value"}))
	}
	mock.ExpectQuery("SHOW VARIABLES").WillReturnRows(
		sqlmock.NewRows([]string{"Variable_name", "Value"}).
			AddRow("query_cache_size", "0"))
	mock.ExpectQuery("datetime_precision").WillReturnRows(
		sqlmock.NewRows([]string{"table_schema", "table_name", "column_name", "column_type"}))
	mock.ExpectQuery("has_spatial_index").WillReturnRows(
		sqlmock.NewRows([]string{"table_schema", "table_name", "column_name", "column_type", "has_spatial_index"}).
			AddRow("geo", "places", "location", "point", 1))
	mock.ExpectQuery("@@sql_mode").WillReturnRows(
		sqlmock.NewRows([]string{"sql_mode"}).AddRow("STRICT_TRANS_TABLES"))

	res, err := c.checkDeprecatedFeatures(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != types.StatusAmber {
		t.Fatalf("expected AMBER, got %s", res.Status)
	}
	if len(res.Issues) != 1 || res.Issues[0] != "Found 1 spatial columns - review SRID requirements" {
		t.Fatalf("expected spatial inventory issue, got %v", res.Issues)
	}
	if _, ok := res.Details["spatial_columns"]; !ok {
		t.Fatal("spatial columns should be recorded in details")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReservedKeywordConflicts(t *testing.T) {
	c, mock := newTestChecker(t, Target{Identifier: "db1"})

	mock.ExpectQuery("information_schema.tables").WillReturnRows(
		sqlmock.NewRows([]string{"table_schema", "table_name"}).AddRow("app", "rank"))
	mock.ExpectQuery("information_schema.columns").WillReturnRows(
		sqlmock.NewRows([]string{"table_schema", "table_name", "column_name"}))
	mock.ExpectQuery("information_schema.routines").WillReturnRows(
		sqlmock.NewRows([]string{"routine_schema", "routine_name", "routine_type"}))

	res, err := c.checkReservedKeywords(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != types.StatusRed {
		t.Fatalf("expected RED, got %s", res.Status)
	}
	if !strings.Contains(res.Issues[0], "rank") {
		t.Fatalf("expected conflicting table name in issue, got %q", res.Issues[0])
	}
}

func TestAutoIncExhaustionThresholds(t *testing.T) {
	c, mock := newTestChecker(t, Target{Identifier: "db1"})

	mock.ExpectQuery("auto_increment").WillReturnRows(
		sqlmock.NewRows([]string{"table_schema", "table_name", "auto_increment", "column_name", "column_type", "max_value"}).
			AddRow("app", "events", float64(2_000_000_000), "id", "int(11)", float64(2_147_483_647)).
			AddRow("app", "orders", float64(1_600_000_000), "id", "int(11)", float64(2_147_483_647)).
			AddRow("app", "logs", float64(100), "id", "bigint(20) unsigned", float64(18_446_744_073_709_551_615)))

	res, err := c.checkAutoIncExhaustion(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != types.StatusRed {
		t.Fatalf("expected RED, got %s", res.Status)
	}

	var critical, warning int
	for _, issue := range res.Issues {
		if strings.HasPrefix(issue, "CRITICAL") {
			critical++
		}
		if strings.HasPrefix(issue, "WARNING") {
			warning++
		}
	}
	if critical != 1 || warning != 1 {
		t.Fatalf("expected 1 critical and 1 warning, got %d and %d", critical, warning)
	}
}

func TestRunRecordsErrorResult(t *testing.T) {
	c, mock := newTestChecker(t, Target{Identifier: "db1", Engine: "aurora-mysql", Version: "5.7.12"})

	// First battery check fails outright, everything downstream is
	// unmocked and fails too. None of this may abort the run.
	mock.ExpectQuery("information_schema.tables").WillReturnError(errors.New("access denied"))

	res := c.Run(context.Background())
	if len(res.Checks) != len(c.battery()) {
		t.Fatalf("expected %d check entries, got %d", len(c.battery()), len(res.Checks))
	}
	if res.Checks[0].Status != types.StatusError {
		t.Fatalf("expected first check ERROR, got %s", res.Checks[0].Status)
	}
	if res.Checks[0].Name != "Schema Information" {
		t.Fatalf("unexpected first check name %q", res.Checks[0].Name)
	}
	if len(res.Checks[0].Recommendations) == 0 {
		t.Fatal("error result should carry a recommendation")
	}
}

func TestRunSummaryAggregation(t *testing.T) {
	r := newResult("x", "y")
	raise(r, types.StatusAmber)
	raise(r, types.StatusGreen)
	if r.Status != types.StatusAmber {
		t.Fatalf("escalation must never downgrade, got %s", r.Status)
	}
	raise(r, types.StatusRed)
	raise(r, types.StatusAmber)
	if r.Status != types.StatusRed {
		t.Fatalf("expected RED to stick, got %s", r.Status)
	}
}
