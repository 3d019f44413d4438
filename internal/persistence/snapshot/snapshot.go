package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/hszqf/SCP-sub000/internal/sim/state"
)

const Version = 1

type Header struct {
	Version     int    `json:"version"`
	Generation  string `json:"generation,omitempty"`
	DataVersion string `json:"data_version,omitempty"`
}

// StateV1 is a game state file: the header on its own line, then the state.
type StateV1 struct {
	Header Header      `json:"header"`
	State  *state.Game `json:"state"`
}

func compressed(path string) bool { return strings.HasSuffix(path, ".zst") }

// WriteState writes g as JSON, zstd-compressed when path ends in ".zst".
func WriteState(path string, hdr Header, g *state.Game) error {
	if g == nil {
		return fmt.Errorf("nil state")
	}
	if hdr.Version == 0 {
		hdr.Version = Version
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	var w io.Writer = f
	if compressed(path) {
		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		defer enc.Close()
		w = enc
	}

	bw := bufio.NewWriterSize(w, 64*1024)
	hb, _ := json.Marshal(hdr)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	e := json.NewEncoder(bw)
	e.SetIndent("", "  ")
	if err := e.Encode(g); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	return bw.Flush()
}

// ReadState reads a file written by WriteState. A plain JSON state object
// without a header line is accepted too.
func ReadState(path string) (StateV1, error) {
	var out StateV1
	f, err := os.Open(path)
	if err != nil {
		return out, err
	}
	defer f.Close()

	var r io.Reader = f
	if compressed(path) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return out, err
		}
		defer dec.Close()
		r = dec
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return out, err
	}
	return DecodeState(b)
}

// DecodeState parses the body of a state file.
func DecodeState(b []byte) (StateV1, error) {
	var out StateV1
	body := b
	if first, rest, ok := strings.Cut(string(b), "\n"); ok {
		var hdr Header
		if err := json.Unmarshal([]byte(first), &hdr); err == nil && hdr.Version > 0 {
			out.Header = hdr
			body = []byte(rest)
		}
	}
	if out.Header.Version > Version {
		return out, fmt.Errorf("unsupported state version %d", out.Header.Version)
	}
	var g state.Game
	if err := json.Unmarshal(body, &g); err != nil {
		return out, fmt.Errorf("json decode: %w", err)
	}
	if out.Header.Version == 0 {
		out.Header.Version = Version
	}
	out.State = &g
	return out, nil
}
