package logger

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed(opts Options) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return Wrap(zap.New(core), opts), logs
}

func TestScrubRedactsSecretsAndHashesLearners(t *testing.T) {
	log, logs := observed(Options{Scrub: true, HashSalt: "s"})
	log.Info("connect", "neo4j_password", "hunter2", "user_id", "u-1", "course", "go-101")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("unexpected entries: %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["neo4j_password"] != "[REDACTED]" {
		t.Fatalf("password not redacted: %v", fields["neo4j_password"])
	}
	uid, _ := fields["user_id"].(string)
	if !strings.HasPrefix(uid, "hash:") || strings.Contains(uid, "u-1") {
		t.Fatalf("user id not pseudonymised: %q", uid)
	}
	if fields["course"] != "go-101" {
		t.Fatalf("unexpected course field: %v", fields["course"])
	}
}

func TestScrubIsStableAndSalted(t *testing.T) {
	a := &scrubber{salt: "a"}
	b := &scrubber{salt: "b"}
	if a.pseudonym("u-1") != a.pseudonym("u-1") {
		t.Fatalf("pseudonym not stable")
	}
	if a.pseudonym("u-1") == b.pseudonym("u-1") {
		t.Fatalf("salt ignored")
	}
	if a.pseudonym("") != "" {
		t.Fatalf("empty value should stay empty")
	}
}

func TestWithCarriesScrubber(t *testing.T) {
	log, logs := observed(Options{Scrub: true})
	log.With("api_key", "k").Warn("x", "token", "t")

	fields := logs.All()[0].ContextMap()
	if fields["api_key"] != "[REDACTED]" || fields["token"] != "[REDACTED]" {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

func TestScrubDisabledPassesThrough(t *testing.T) {
	log, logs := observed(Options{})
	log.Info("x", "password", "p")
	if got := logs.All()[0].ContextMap()["password"]; got != "p" {
		t.Fatalf("unexpected value: %v", got)
	}
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_REDACTION_ENABLED", "off")
	opts := OptionsFromEnv("production")
	if opts.Level != zapcore.WarnLevel || opts.Scrub || opts.Mode != "production" {
		t.Fatalf("unexpected options: %+v", opts)
	}
}

func TestApplyLeavesInputUntouched(t *testing.T) {
	in := []interface{}{"secret", "v"}
	_ = (&scrubber{}).apply(in)
	if in[1] != "v" {
		t.Fatalf("input mutated: %v", in)
	}
}
