package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/hszqf/SCP-sub000/internal/sim/catalogs"
	"github.com/hszqf/SCP-sub000/internal/sim/effects"
)

type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	mu      sync.Mutex
	curHour string
	curPath string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
	onClose func(path string)
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
	}
}

// OnClose registers fn to run with the path of every finished segment, on
// rotation and on Close.
func (w *JSONLZstdWriter) OnClose(fn func(path string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onClose = fn
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := time.Now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	dir := filepath.Dir(w.pathForHour(hour))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	w.curPath = w.pathForHour(hour)
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
		if w.onClose != nil && w.curPath != "" {
			w.onClose(w.curPath)
		}
	}
	w.w = nil
	w.curHour = ""
	w.curPath = ""
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// ApplyLogger writes one JSONL entry per effect application (compressed).
type ApplyLogger struct{ w *JSONLZstdWriter }

func NewApplyLogger(dataDir string) *ApplyLogger {
	return &ApplyLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "applies"), "applies")}
}

func (l *ApplyLogger) WriteApply(v effects.Record) error { return l.w.Write(v) }
func (l *ApplyLogger) Close() error                      { return l.w.Close() }
func (l *ApplyLogger) OnClose(fn func(path string))      { l.w.OnClose(fn) }

// LoadLogger writes one JSONL entry per content load attempt (compressed).
type LoadLogger struct{ w *JSONLZstdWriter }

func NewLoadLogger(dataDir string) *LoadLogger {
	return &LoadLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "loads"), "loads")}
}

// LoadEntry is one line of the load log.
type LoadEntry struct {
	Time    time.Time         `json:"time"`
	Source  string            `json:"source"`
	OK      bool              `json:"ok"`
	Error   string            `json:"error,omitempty"`
	Summary *catalogs.Summary `json:"summary,omitempty"`
}

func (l *LoadLogger) WriteLoad(v LoadEntry) error  { return l.w.Write(v) }
func (l *LoadLogger) Close() error                 { return l.w.Close() }
func (l *LoadLogger) OnClose(fn func(path string)) { l.w.OnClose(fn) }
