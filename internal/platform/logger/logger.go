package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	SugaredLogger *zap.SugaredLogger
	scrub         *scrubber
}

// Options controls a logger built with NewWithOptions.
type Options struct {
	// Mode "prod"/"production" emits JSON; anything else uses the console encoder.
	Mode  string
	Level zapcore.Level
	// Scrub replaces secret values and pseudonymises learner ids.
	Scrub    bool
	HashSalt string
}

// OptionsFromEnv reads LOG_LEVEL, LOG_REDACTION_ENABLED and LOG_HASH_SALT.
func OptionsFromEnv(mode string) Options {
	opts := Options{Mode: mode, Level: zap.DebugLevel, Scrub: true}
	if raw := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))); raw != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(raw)); err == nil {
			opts.Level = lvl
		}
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_REDACTION_ENABLED"))) {
	case "0", "false", "no", "off":
		opts.Scrub = false
	}
	opts.HashSalt = strings.TrimSpace(os.Getenv("LOG_HASH_SALT"))
	return opts
}

func New(mode string) (*Logger, error) {
	return NewWithOptions(OptionsFromEnv(mode))
}

func NewWithOptions(opts Options) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(opts.Mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(opts.Level)
	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return Wrap(zl, opts), nil
}

// Wrap adapts an existing zap logger, e.g. one writing to an observer in tests.
func Wrap(zl *zap.Logger, opts Options) *Logger {
	l := &Logger{SugaredLogger: zl.Sugar()}
	if opts.Scrub {
		l.scrub = &scrubber{salt: opts.HashSalt}
	}
	return l
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, l.scrub.apply(keysAndValues)...)
}
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, l.scrub.apply(keysAndValues)...)
}
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, l.scrub.apply(keysAndValues)...)
}
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, l.scrub.apply(keysAndValues)...)
}
func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Fatalw(msg, l.scrub.apply(keysAndValues)...)
}
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(l.scrub.apply(keysAndValues)...), scrub: l.scrub}
}

var (
	secretKeyParts  = []string{"token", "authorization", "password", "secret", "cookie", "api_key", "dsn"}
	learnerKeyParts = []string{"user_id", "learner_id"}
)

// scrubber rewrites key/value pairs before they reach a sink. A nil scrubber passes
// everything through.
type scrubber struct {
	salt string
}

func (s *scrubber) apply(kv []interface{}) []interface{} {
	if s == nil || len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, len(kv))
	copy(out, kv)
	for i := 0; i+1 < len(out); i += 2 {
		key := strings.ToLower(strings.TrimSpace(stringify(out[i])))
		switch {
		case key == "":
		case containsAny(key, secretKeyParts):
			out[i+1] = "[REDACTED]"
		case containsAny(key, learnerKeyParts):
			out[i+1] = s.pseudonym(out[i+1])
		}
	}
	return out
}

func (s *scrubber) pseudonym(v interface{}) string {
	raw := stringify(v)
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(s.salt + raw))
	return "hash:" + hex.EncodeToString(sum[:])[:12]
}

func containsAny(key string, parts []string) bool {
	for _, p := range parts {
		if strings.Contains(key, p) {
			return true
		}
	}
	return false
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
