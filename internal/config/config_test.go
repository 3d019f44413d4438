package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(path, []byte("addr: 127.0.0.1:9000\ncontent: data/game.json.zst\ndisable_db: true\nfetch_timeout: 3s\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("SCP_ADDR", ":7000")
	t.Setenv("SCP_ENABLE_ADMIN_HTTP", "false")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Addr != ":7000" {
		t.Fatalf("env should win: addr=%q", c.Addr)
	}
	if c.Content != "data/game.json.zst" || !c.DisableDB || c.FetchTimeout != 3*time.Second {
		t.Fatalf("yaml not applied: %+v", c)
	}
	if c.EnableAdminHTTP {
		t.Fatalf("SCP_ENABLE_ADMIN_HTTP=false not applied")
	}
	if c.Tuning != "configs/tuning.yaml" || c.DataDir != "data" {
		t.Fatalf("defaults lost: %+v", c)
	}
}

func TestLoad_NoFile(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c != Defaults() {
		t.Fatalf("got %+v want defaults", c)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected missing file error")
	}
	t.Setenv("SCP_FETCH_TIMEOUT", "soon")
	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected env parse error, got %v", err)
	}
}

func TestDefaults_DeployEnvDisablesAdmin(t *testing.T) {
	t.Setenv("DEPLOY_ENV", "production")
	if Defaults().EnableAdminHTTP {
		t.Fatalf("admin http should default off in production")
	}
	t.Setenv("DEPLOY_ENV", "dev")
	if !Defaults().EnableAdminHTTP {
		t.Fatalf("admin http should default on outside staging/production")
	}
}

func TestLoad_MirrorFromEnv(t *testing.T) {
	t.Setenv("SCP_MIRROR_ENABLED", "true")
	t.Setenv("SCP_MIRROR_ENDPOINT", "acct.r2.cloudflarestorage.com")
	t.Setenv("SCP_MIRROR_BUCKET", "content")
	t.Setenv("SCP_MIRROR_ACCESS_KEY_ID", "ak")
	t.Setenv("SCP_MIRROR_SECRET_ACCESS_KEY", "sk")

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !c.Mirror.Enabled || c.Mirror.Bucket != "content" || c.Mirror.Workers != 2 {
		t.Fatalf("mirror=%+v", c.Mirror)
	}

	t.Setenv("SCP_MIRROR_BUCKET", "")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "mirror enabled") {
		t.Fatalf("expected incomplete mirror error, got %v", err)
	}
}
