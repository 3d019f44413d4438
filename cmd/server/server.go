package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hszqf/SCP-sub000/internal/config"
	"github.com/hszqf/SCP-sub000/internal/persistence/archive"
	"github.com/hszqf/SCP-sub000/internal/persistence/gamedata"
	"github.com/hszqf/SCP-sub000/internal/persistence/indexdb"
	persistlog "github.com/hszqf/SCP-sub000/internal/persistence/log"
	"github.com/hszqf/SCP-sub000/internal/persistence/r2s3"
	"github.com/hszqf/SCP-sub000/internal/protocol"
	"github.com/hszqf/SCP-sub000/internal/sim/catalogs"
	"github.com/hszqf/SCP-sub000/internal/sim/effects"
	"github.com/hszqf/SCP-sub000/internal/sim/state"
	"github.com/hszqf/SCP-sub000/internal/sim/tuning"
	"github.com/hszqf/SCP-sub000/internal/transport/ws"
)

const maxRequestBytes = 8 << 20

// server owns the published registry, the server-side game state and the
// sinks every load and apply is reported to. Index and logs are optional.
type server struct {
	cfg    config.Server
	tune   tuning.Tuning
	logger *log.Logger

	holder catalogs.Holder
	hub    *ws.Hub

	idx      *indexdb.SQLiteIndex
	applyLog *persistlog.ApplyLogger
	loadLog  *persistlog.LoadLogger
	mirror   *r2s3.Mirror

	mu   sync.Mutex
	game *state.Game

	reloadTotal   atomic.Uint64
	reloadFailed  atomic.Uint64
	appliesTotal  atomic.Uint64
	mutationTotal atomic.Uint64
}

func newServer(cfg config.Server, tune tuning.Tuning, logger *log.Logger) *server {
	if logger == nil {
		logger = log.Default()
	}
	s := &server{cfg: cfg, tune: tune, logger: logger}
	s.hub = ws.NewHub(logger, s.currentNotice)
	return s
}

// reload fetches src and publishes it. A failed load keeps the previous
// registry and is still recorded.
func (s *server) reload(ctx context.Context, src string) (*catalogs.Registry, error) {
	if strings.TrimSpace(src) == "" {
		src = s.cfg.Content
	}
	s.reloadTotal.Add(1)

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()
	raw, err := gamedata.Open(fetchCtx, src)
	if err != nil {
		s.reloadFailed.Add(1)
		s.recordLoad(src, catalogs.Summary{}, err)
		return nil, &openError{err: err}
	}

	reg, err := s.holder.Reload(raw, catalogs.Options{Logger: s.logger, Tuning: &s.tune})
	if err != nil {
		s.reloadFailed.Add(1)
		sum := catalogs.Summary{Digest: gamedata.Digest(raw)}
		if m, perr := gamedata.PeekMeta(raw); perr == nil {
			sum.SchemaVersion = m.SchemaVersion
			sum.DataVersion = m.DataVersion
		}
		s.recordLoad(src, sum, err)
		return nil, err
	}

	s.mu.Lock()
	if s.game == nil {
		s.game = state.NewGame(reg)
	}
	s.mu.Unlock()

	s.recordLoad(src, reg.Summary(), nil)
	s.archive(reg, raw)
	s.hub.Broadcast(contentNotice(reg))
	return reg, nil
}

func (s *server) archive(reg *catalogs.Registry, raw []byte) {
	if !s.cfg.Archive {
		return
	}
	path, archived, err := archive.ArchiveContent(s.cfg.DataDir, reg.Summary(), raw)
	if err != nil {
		s.logger.Printf("archive content: %v", err)
		return
	}
	if archived {
		s.logger.Printf("[Data] archived generation=%s to %s", reg.Generation, path)
		s.mirror.Enqueue(path)
		s.mirror.Enqueue(archive.MetaPath(path))
	}
}

type openError struct{ err error }

func (e *openError) Error() string { return "open content: " + e.err.Error() }
func (e *openError) Unwrap() error { return e.err }

func (s *server) recordLoad(src string, sum catalogs.Summary, loadErr error) {
	if loadErr != nil {
		s.logger.Printf("[Data] load %s failed: %v", src, loadErr)
	}
	if s.idx != nil {
		if err := s.idx.RecordLoad(sum, loadErr); err != nil {
			s.logger.Printf("index: record load: %v", err)
		}
	}
	if s.loadLog != nil {
		e := persistlog.LoadEntry{Time: time.Now().UTC(), Source: src, OK: loadErr == nil}
		if loadErr != nil {
			e.Error = loadErr.Error()
		} else {
			e.Summary = &sum
		}
		if err := s.loadLog.WriteLoad(e); err != nil {
			s.logger.Printf("load log: %v", err)
		}
	}
}

func (s *server) currentNotice() *protocol.ContentNotice {
	reg, err := s.holder.Current()
	if err != nil {
		return nil
	}
	n := contentNotice(reg)
	return &n
}

func contentNotice(reg *catalogs.Registry) protocol.ContentNotice {
	sum := reg.Summary()
	return protocol.ContentNotice{
		Type:            protocol.TypeContent,
		ProtocolVersion: protocol.Version,
		Generation:      sum.Generation,
		Digest:          sum.Digest,
		SchemaVersion:   sum.SchemaVersion,
		DataVersion:     sum.DataVersion,
		LoadedAt:        sum.LoadedAt.Format(time.RFC3339Nano),
		Counts: map[string]int{
			"nodes":      sum.Nodes,
			"anomalies":  sum.Anomalies,
			"task_defs":  sum.TaskDefs,
			"events":     sum.Events,
			"options":    sum.Options,
			"effects":    sum.Effects,
			"operations": sum.Operations,
			"triggers":   sum.Triggers,
			"news":       sum.News,
		},
	}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/metrics", s.handleMetrics)

	if s.cfg.EnableAdminHTTP {
		mux.HandleFunc("/admin/v1/content", adminOnly(s.handleContent))
		mux.HandleFunc("/admin/v1/reload", adminOnly(s.handleReload))
		mux.HandleFunc("/admin/v1/effects/apply", adminOnly(s.handleApply))
		mux.HandleFunc("/admin/v1/state", adminOnly(s.handleState))
	} else {
		s.logger.Printf("admin endpoints disabled (SCP_ENABLE_ADMIN_HTTP=false)")
	}
	if s.cfg.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", s.hub.Handler())
	return mux
}

func (s *server) handleHealth(rw http.ResponseWriter, r *http.Request) {
	if _, err := s.holder.Current(); err != nil {
		rw.WriteHeader(http.StatusServiceUnavailable)
		_, _ = rw.Write([]byte("no registry"))
		return
	}
	rw.WriteHeader(http.StatusOK)
	_, _ = rw.Write([]byte("ok"))
}

func (s *server) handleMetrics(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

	loaded := 0
	if _, err := s.holder.Current(); err == nil {
		loaded = 1
	}
	fmt.Fprintf(rw, "# HELP scp_content_loaded Whether a registry is published.\n")
	fmt.Fprintf(rw, "# TYPE scp_content_loaded gauge\n")
	fmt.Fprintf(rw, "scp_content_loaded %d\n", loaded)

	fmt.Fprintf(rw, "# HELP scp_content_reload_total Content load attempts.\n")
	fmt.Fprintf(rw, "# TYPE scp_content_reload_total counter\n")
	fmt.Fprintf(rw, "scp_content_reload_total{result=%q} %d\n", "ok", s.reloadTotal.Load()-s.reloadFailed.Load())
	fmt.Fprintf(rw, "scp_content_reload_total{result=%q} %d\n", "error", s.reloadFailed.Load())

	fmt.Fprintf(rw, "# HELP scp_effect_applies_total Effect applications served.\n")
	fmt.Fprintf(rw, "# TYPE scp_effect_applies_total counter\n")
	fmt.Fprintf(rw, "scp_effect_applies_total %d\n", s.appliesTotal.Load())

	fmt.Fprintf(rw, "# HELP scp_effect_mutations_total Targets changed by effect applications.\n")
	fmt.Fprintf(rw, "# TYPE scp_effect_mutations_total counter\n")
	fmt.Fprintf(rw, "scp_effect_mutations_total %d\n", s.mutationTotal.Load())

	fmt.Fprintf(rw, "# HELP scp_ws_clients Connected websocket subscribers.\n")
	fmt.Fprintf(rw, "# TYPE scp_ws_clients gauge\n")
	fmt.Fprintf(rw, "scp_ws_clients %d\n", s.hub.Clients())

	fmt.Fprintf(rw, "# HELP scp_ws_dropped_total Notices dropped for slow subscribers.\n")
	fmt.Fprintf(rw, "# TYPE scp_ws_dropped_total counter\n")
	fmt.Fprintf(rw, "scp_ws_dropped_total %d\n", s.hub.Dropped())

	if s.idx != nil {
		st := s.idx.Stats()
		fmt.Fprintf(rw, "# HELP scp_index_queue_depth Pending index writes.\n")
		fmt.Fprintf(rw, "# TYPE scp_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "scp_index_queue_depth %d\n", st.QueueDepth)
		fmt.Fprintf(rw, "# HELP scp_index_drop_apply_total Apply records dropped by the index writer.\n")
		fmt.Fprintf(rw, "# TYPE scp_index_drop_apply_total counter\n")
		fmt.Fprintf(rw, "scp_index_drop_apply_total %d\n", st.DropApplyTotal)
	}
	if s.mirror != nil {
		st := s.mirror.Stats()
		fmt.Fprintf(rw, "# HELP scp_mirror_queue_depth Pending mirror uploads.\n")
		fmt.Fprintf(rw, "# TYPE scp_mirror_queue_depth gauge\n")
		fmt.Fprintf(rw, "scp_mirror_queue_depth %d\n", st.QueueDepth)
		fmt.Fprintf(rw, "# HELP scp_mirror_uploads_total Mirror upload outcomes.\n")
		fmt.Fprintf(rw, "# TYPE scp_mirror_uploads_total counter\n")
		fmt.Fprintf(rw, "scp_mirror_uploads_total{result=%q} %d\n", "ok", st.UploadSuccessTotal)
		fmt.Fprintf(rw, "scp_mirror_uploads_total{result=%q} %d\n", "error", st.UploadFailTotal)
		fmt.Fprintf(rw, "scp_mirror_uploads_total{result=%q} %d\n", "dropped", st.DroppedTotal)
		fmt.Fprintf(rw, "# HELP scp_mirror_last_success_unix Unix time of the last successful upload.\n")
		fmt.Fprintf(rw, "# TYPE scp_mirror_last_success_unix gauge\n")
		fmt.Fprintf(rw, "scp_mirror_last_success_unix %d\n", st.LastSuccessUnix)
	}
}

func (s *server) handleContent(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	reg, err := s.holder.Current()
	if err != nil {
		writeError(rw, http.StatusServiceUnavailable, protocol.ErrNoRegistry, err.Error(), nil)
		return
	}
	writeJSON(rw, http.StatusOK, reg.Summary())
}

type reloadRequest struct {
	Source string `json:"source,omitempty"`
}

func (s *server) handleReload(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req reloadRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(rw, r.Body, maxRequestBytes)).Decode(&req); err != nil {
			writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, "bad json: "+err.Error(), nil)
			return
		}
	}
	reg, err := s.reload(r.Context(), req.Source)
	if err != nil {
		var (
			ve *catalogs.ValidationError
			oe *openError
		)
		switch {
		case errors.As(err, &ve):
			details := make([]string, 0, len(ve.Violations))
			for _, v := range ve.Violations {
				details = append(details, v.String())
			}
			writeError(rw, http.StatusUnprocessableEntity, protocol.ErrContentInvalid, "validation failed", details)
		case errors.As(err, &oe):
			writeError(rw, http.StatusBadGateway, protocol.ErrBadRequest, err.Error(), nil)
		default:
			writeError(rw, http.StatusUnprocessableEntity, protocol.ErrContentInvalid, err.Error(), nil)
		}
		return
	}
	writeJSON(rw, http.StatusOK, contentNotice(reg))
}

func (s *server) handleApply(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req protocol.ApplyRequest
	dec := json.NewDecoder(http.MaxBytesReader(rw, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, "bad json: "+err.Error(), nil)
		return
	}
	if strings.TrimSpace(req.EffectID) == "" {
		writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, "missing effect_id", nil)
		return
	}
	reg, err := s.holder.Current()
	if err != nil {
		writeError(rw, http.StatusServiceUnavailable, protocol.ErrNoRegistry, err.Error(), nil)
		return
	}
	if _, ok := reg.Effect(req.EffectID); !ok && len(reg.Operations(req.EffectID)) == 0 {
		writeError(rw, http.StatusNotFound, protocol.ErrUnknownEffect, "unknown effect "+req.EffectID, nil)
		return
	}
	allowed := make([]catalogs.AffectScope, 0, len(req.Scopes))
	for _, raw := range req.Scopes {
		sc, err := catalogs.ParseAffectScope(raw)
		if err != nil {
			writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, err.Error(), nil)
			return
		}
		allowed = append(allowed, sc)
	}

	// A caller-supplied state is mutated in isolation; otherwise the
	// server's own state is used under the lock.
	own := len(req.State) == 0 || string(req.State) == "null"
	var g *state.Game
	if own {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.game == nil {
			s.game = state.NewGame(reg)
		}
		g = s.game
	} else {
		g = &state.Game{}
		if err := json.Unmarshal(req.State, g); err != nil {
			writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, "bad state: "+err.Error(), nil)
			return
		}
	}

	ctx, err := effects.ResolveContext(g, req.NodeID, req.TaskID)
	if err != nil {
		writeError(rw, http.StatusNotFound, protocol.ErrUnknownTarget, err.Error(), nil)
		return
	}
	ctx.EventDefID = req.EventDefID
	ctx.OptionID = req.OptionID

	muts := effects.New(reg, s.logger).Trace(req.EffectID, ctx, allowed...)
	rec := effects.NewRecord(reg.Generation, req.EffectID, ctx, muts)
	s.appliesTotal.Add(1)
	s.mutationTotal.Add(uint64(len(muts)))
	s.idx.RecordApply(rec)
	if s.applyLog != nil {
		if err := s.applyLog.WriteApply(rec); err != nil {
			s.logger.Printf("apply log: %v", err)
		}
	}

	b, err := json.Marshal(g)
	if err != nil {
		writeError(rw, http.StatusInternalServerError, protocol.ErrInternal, err.Error(), nil)
		return
	}
	resp := protocol.ApplyResponse{
		Generation: reg.Generation,
		EffectID:   req.EffectID,
		Applied:    len(muts),
		Mutations:  make([]protocol.Mutation, 0, len(muts)),
		State:      b,
	}
	for _, m := range muts {
		resp.Mutations = append(resp.Mutations, protocol.Mutation(m))
	}
	if own {
		s.hub.Broadcast(protocol.AppliedNotice{
			Type:            protocol.TypeApplied,
			ProtocolVersion: protocol.Version,
			Generation:      reg.Generation,
			EffectID:        req.EffectID,
			Applied:         len(muts),
		})
	}
	writeJSON(rw, http.StatusOK, resp)
}

func (s *server) handleState(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	resp := struct {
		Content *catalogs.Summary `json:"content,omitempty"`
		State   *state.Game       `json:"state"`
	}{}
	if reg, err := s.holder.Current(); err == nil {
		sum := reg.Summary()
		resp.Content = &sum
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	resp.State = s.game
	writeJSON(rw, http.StatusOK, resp)
}

func adminOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			writeError(rw, http.StatusForbidden, protocol.ErrForbidden, "forbidden", nil)
			return
		}
		h(rw, r)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func writeError(rw http.ResponseWriter, status int, code, msg string, details []string) {
	writeJSON(rw, status, protocol.ErrorResponse{Code: code, Message: msg, Details: details})
}
