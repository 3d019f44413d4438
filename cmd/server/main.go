package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hszqf/SCP-sub000/internal/config"
	"github.com/hszqf/SCP-sub000/internal/persistence/indexdb"
	persistlog "github.com/hszqf/SCP-sub000/internal/persistence/log"
	"github.com/hszqf/SCP-sub000/internal/persistence/r2s3"
	"github.com/hszqf/SCP-sub000/internal/sim/tuning"
)

func main() {
	var (
		configPath = flag.String("config", "", "server yaml (optional; SCP_* env vars override it)")
		addr       = flag.String("addr", "", "http listen address (overrides config)")
		content    = flag.String("content", "", "content document path or url (overrides config)")
		dataDir    = flag.String("data", "", "runtime data directory (overrides config)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	path := strings.TrimSpace(*configPath)
	if path == "" {
		if _, err := os.Stat("configs/server.yaml"); err == nil {
			path = "configs/server.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *content != "" {
		cfg.Content = *content
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	tune, err := tuning.Load(cfg.Tuning)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", cfg.Tuning)
		tune = tuning.Defaults()
	}

	s := newServer(cfg, tune, logger)

	if !cfg.DisableDB {
		idx, err := indexdb.OpenSQLite(filepath.Join(cfg.DataDir, "index", "content.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		s.idx = idx
	}
	if cfg.Mirror.Enabled {
		m := cfg.Mirror
		client, err := r2s3.New(m.Endpoint, m.Bucket, m.AccessKeyID, m.SecretAccessKey)
		if err != nil {
			logger.Fatalf("init mirror: %v", err)
		}
		s.mirror = r2s3.NewMirror(client, cfg.DataDir, r2s3.MirrorOptions{Prefix: m.Prefix, Workers: m.Workers}, logger)
		defer s.mirror.Close()
	}
	s.applyLog = persistlog.NewApplyLogger(cfg.DataDir)
	s.loadLog = persistlog.NewLoadLogger(cfg.DataDir)
	s.applyLog.OnClose(s.mirror.Enqueue)
	s.loadLog.OnClose(s.mirror.Enqueue)
	defer s.applyLog.Close()
	defer s.loadLog.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if _, err := s.reload(ctx, cfg.Content); err != nil {
		logger.Fatalf("load content %s: %v", cfg.Content, err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
