// Package config loads server settings from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Server struct {
	Addr            string        `yaml:"addr" env:"SCP_ADDR"`
	Content         string        `yaml:"content" env:"SCP_CONTENT"`
	Tuning          string        `yaml:"tuning" env:"SCP_TUNING"`
	DataDir         string        `yaml:"data_dir" env:"SCP_DATA_DIR"`
	DisableDB       bool          `yaml:"disable_db" env:"SCP_DISABLE_DB"`
	EnableAdminHTTP bool          `yaml:"enable_admin_http" env:"SCP_ENABLE_ADMIN_HTTP"`
	EnablePprof     bool          `yaml:"enable_pprof" env:"SCP_ENABLE_PPROF_HTTP"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout" env:"SCP_FETCH_TIMEOUT"`
	Archive         bool          `yaml:"archive" env:"SCP_ARCHIVE"`
	Mirror          Mirror        `yaml:"mirror" envPrefix:"SCP_MIRROR_"`
}

// Mirror configures uploads of archived content and finished log segments
// to an S3-compatible bucket.
type Mirror struct {
	Enabled         bool   `yaml:"enabled" env:"ENABLED"`
	Endpoint        string `yaml:"endpoint" env:"ENDPOINT"`
	Bucket          string `yaml:"bucket" env:"BUCKET"`
	AccessKeyID     string `yaml:"access_key_id" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"SECRET_ACCESS_KEY"`
	Prefix          string `yaml:"prefix" env:"PREFIX"`
	Workers         int    `yaml:"workers" env:"WORKERS"`
}

func Defaults() Server {
	return Server{
		Addr:            ":8080",
		Content:         "configs/game_data.json",
		Tuning:          "configs/tuning.yaml",
		DataDir:         "data",
		EnableAdminHTTP: defaultEnableAdminHTTP(),
		FetchTimeout:    10 * time.Second,
		Archive:         true,
		Mirror:          Mirror{Workers: 2},
	}
}

// Admin endpoints are off by default in deployed environments.
func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

// Load starts from Defaults, overlays the YAML file at path (skipped when
// path is empty) and then SCP_* environment variables.
func Load(path string) (Server, error) {
	c := Defaults()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := env.Parse(&c); err != nil {
		return c, fmt.Errorf("parse env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c Server) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must be set")
	}
	if c.Content == "" {
		return fmt.Errorf("content must be set")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch_timeout must be > 0")
	}
	if m := c.Mirror; m.Enabled {
		if m.Endpoint == "" || m.Bucket == "" || m.AccessKeyID == "" || m.SecretAccessKey == "" {
			return fmt.Errorf("mirror enabled but endpoint/bucket/access_key_id/secret_access_key are not fully set")
		}
		if !c.Archive {
			return fmt.Errorf("mirror requires archive")
		}
	}
	return nil
}
