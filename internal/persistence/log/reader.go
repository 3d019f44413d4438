package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/hszqf/SCP-sub000/internal/sim/effects"
)

// Segments lists the `<prefix>-*.jsonl.zst` files in dir in hour order.
func Segments(dir, prefix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix+"-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// ScanJSONL calls fn for every line of a compressed JSONL segment.
func ScanJSONL(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		if err := fn(sc.Bytes()); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}
	return sc.Err()
}

// ReadApplies returns every record logged under dataDir/applies, oldest first.
func ReadApplies(dataDir string) ([]effects.Record, error) {
	files, err := Segments(filepath.Join(dataDir, "applies"), "applies")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []effects.Record
	for _, p := range files {
		err := ScanJSONL(p, func(line []byte) error {
			var rec effects.Record
			if err := json.Unmarshal(line, &rec); err != nil {
				return fmt.Errorf("unmarshal: %w", err)
			}
			out = append(out, rec)
			return nil
		})
		if err != nil {
			return out, err
		}
	}
	return out, nil
}
