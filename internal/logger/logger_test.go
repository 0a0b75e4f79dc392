package logger

import (
	"context"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/memoriz/internal/version"
)

func TestNew(t *testing.T) {
	for _, env := range []string{"prod", "dev", "local"} {
		l, err := New(env, "")
		if err != nil {
			t.Fatalf("%s: %v", env, err)
		}
		_ = l.Sync()
	}

	if _, err := New("staging", ""); err == nil {
		t.Fatal("unknown env must fail")
	}
}

func TestNew_LevelOverride(t *testing.T) {
	l, err := New("prod", "debug")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("debug must be enabled")
	}

	if _, err := New("prod", "loud"); err == nil {
		t.Fatal("invalid level must fail")
	}
}

func TestConfigFor_BaseFields(t *testing.T) {
	cfg, err := configFor("prod", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Encoding != "json" {
		t.Fatalf("prod encoding = %q, want json", cfg.Encoding)
	}
	if cfg.InitialFields["app"] != version.AppName {
		t.Fatalf("app field = %v", cfg.InitialFields["app"])
	}
	if cfg.InitialFields["version"] != version.Version {
		t.Fatalf("version field = %v", cfg.InitialFields["version"])
	}

	dev, err := configFor("dev", "")
	if err != nil || dev.Encoding != "console" {
		t.Fatalf("dev config: %q %v", dev.Encoding, err)
	}
}

func TestContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("missing logger must fall back to nop")
	}
	l := zaptest.NewLogger(t)
	if got := FromContext(WithLogger(context.Background(), l)); got != l {
		t.Fatal("logger not carried by context")
	}
}
