package main

import (
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/mkarlsen/aurora-preflight/internal/aws"
	"github.com/mkarlsen/aurora-preflight/internal/config"
)

func TestBuildDSN(t *testing.T) {
	creds := &aws.Credentials{User: "app", Password: "pw", Host: "db.internal", Port: 3306}
	cfg := &config.Config{
		Authentication: config.AuthConfig{Method: config.AuthMethodConfig},
		Assessment:     config.AssessmentConfig{ConnectTimeoutSeconds: 5},
	}

	parsed, err := mysql.ParseDSN(buildDSN(creds, cfg))
	if err != nil {
		t.Fatalf("dsn does not parse: %v", err)
	}
	if parsed.User != "app" || parsed.Addr != "db.internal:3306" {
		t.Fatalf("unexpected target: %s@%s", parsed.User, parsed.Addr)
	}
	if !parsed.ParseTime {
		t.Fatal("parseTime must be enabled")
	}
	if parsed.Collation != "utf8mb4_general_ci" {
		t.Fatalf("unexpected collation %q", parsed.Collation)
	}
	if parsed.Timeout != 5*time.Second {
		t.Fatalf("unexpected dial timeout %s", parsed.Timeout)
	}
	if parsed.TLSConfig != "" || parsed.AllowCleartextPasswords {
		t.Fatal("static auth must not force TLS or cleartext passwords")
	}
}

func TestBuildDSNIAMAuth(t *testing.T) {
	creds := &aws.Credentials{User: "preflight", Password: "token", Host: "db.internal", Port: 3306}
	cfg := &config.Config{
		Authentication: config.AuthConfig{Method: config.AuthMethodIAM},
		Assessment:     config.AssessmentConfig{ConnectTimeoutSeconds: 5},
	}

	parsed, err := mysql.ParseDSN(buildDSN(creds, cfg))
	if err != nil {
		t.Fatalf("dsn does not parse: %v", err)
	}
	if parsed.TLSConfig != "true" {
		t.Fatalf("IAM auth requires TLS, got %q", parsed.TLSConfig)
	}
	if !parsed.AllowCleartextPasswords {
		t.Fatal("IAM auth tokens require cleartext passwords")
	}
}

func TestSelectCluster(t *testing.T) {
	dbs := []aws.Database{{Identifier: "orders"}, {Identifier: "billing"}}

	got, err := selectCluster(dbs, "billing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Identifier != "billing" {
		t.Fatalf("unexpected selection: %+v", got)
	}

	_, err = selectCluster(dbs, "missing")
	if err == nil {
		t.Fatal("unknown cluster must be an error")
	}
	if !strings.Contains(err.Error(), "orders") {
		t.Fatalf("error should list known identifiers, got %q", err)
	}
}
