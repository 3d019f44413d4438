package catalogs

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/hszqf/SCP-sub000/internal/sim/tuning"
)

var ErrNoRegistry = errors.New("catalogs: no registry loaded")

type Options struct {
	Logger *log.Logger
	// Tuning supplies fallbacks for Balance-derived settings. Nil means
	// tuning.Defaults().
	Tuning *tuning.Tuning
}

// Load decodes, builds and validates one content document. It returns either
// a complete registry or an error; a *ValidationError lists every primary key
// violation.
func Load(raw []byte, opts Options) (*Registry, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	tu := tuning.Defaults()
	if opts.Tuning != nil {
		tu = *opts.Tuning
	}

	if err := checkEnvelope(raw); err != nil {
		return nil, fmt.Errorf("game_data: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("game_data: %w", err)
	}

	r := build(&doc, logger, tu)
	if err := Validate(r); err != nil {
		logger.Printf("[catalogs] %v", err)
		return nil, err
	}
	for _, v := range Lint(r) {
		logger.Printf("[WARN] lint %s", v)
	}

	r.Digest = sha256Hex(raw)
	r.Generation = newGeneration()
	r.LoadedAt = time.Now().UTC()

	s := r.Summary()
	logger.Printf("[Data] schema=%s dataVersion=%s events=%d options=%d effects=%d ops=%d triggers=%d size=%s",
		s.SchemaVersion, s.DataVersion, s.Events, s.Options, s.Effects, s.Operations, s.Triggers,
		humanize.Bytes(uint64(len(raw))))
	return r, nil
}

func newGeneration() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Holder publishes one registry at a time. Readers never observe a partially
// built registry, and a failed reload leaves the previous one current.
type Holder struct {
	mu  sync.Mutex
	cur atomic.Pointer[Registry]
}

func (h *Holder) Current() (*Registry, error) {
	r := h.cur.Load()
	if r == nil {
		return nil, ErrNoRegistry
	}
	return r, nil
}

func (h *Holder) Reload(raw []byte, opts Options) (*Registry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, err := Load(raw, opts)
	if err != nil {
		return nil, err
	}
	h.cur.Store(r)
	return r, nil
}

var process Holder

// Current returns the process-wide registry.
func Current() (*Registry, error) { return process.Current() }

// Reload replaces the process-wide registry with one built from raw.
func Reload(raw []byte, opts Options) (*Registry, error) { return process.Reload(raw, opts) }
