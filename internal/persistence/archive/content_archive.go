package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hszqf/SCP-sub000/internal/persistence/gamedata"
	"github.com/hszqf/SCP-sub000/internal/sim/catalogs"
)

const (
	contentFile = "game_data.json.zst"
	metaFile    = "meta.json"
)

type ContentMeta struct {
	Generation    string `json:"generation"`
	Digest        string `json:"digest"`
	SchemaVersion string `json:"schema_version"`
	DataVersion   string `json:"data_version"`
	Size          int    `json:"size"`
	File          string `json:"file"`
	ArchivedAt    string `json:"archived_at"`
}

// Dir is where published content documents are archived under dataDir.
func Dir(dataDir string) string { return filepath.Join(dataDir, "archives", "content") }

// ArchiveContent stores a published document under
// `dataDir/archives/content/<digest>/` together with a meta.json. Documents
// are keyed by digest, so republishing identical bytes returns the existing
// path with archived=false.
func ArchiveContent(dataDir string, sum catalogs.Summary, raw []byte) (archivedPath string, archived bool, err error) {
	if sum.Digest == "" {
		return "", false, fmt.Errorf("archive: empty digest")
	}
	key := sum.Digest
	if len(key) > 16 {
		key = key[:16]
	}
	dir := filepath.Join(Dir(dataDir), key)
	dst := filepath.Join(dir, contentFile)
	if _, err := os.Stat(dst); err == nil {
		return dst, false, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, err
	}

	packed, err := gamedata.Compress(raw)
	if err != nil {
		return "", false, err
	}
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, packed, 0o644); err != nil {
		return "", false, err
	}
	if err := os.Rename(tmp, dst); err != nil {
		return "", false, err
	}

	meta := ContentMeta{
		Generation:    sum.Generation,
		Digest:        sum.Digest,
		SchemaVersion: sum.SchemaVersion,
		DataVersion:   sum.DataVersion,
		Size:          len(raw),
		File:          contentFile,
		ArchivedAt:    time.Now().UTC().Format(time.RFC3339Nano),
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(dir, metaFile), b, 0o644)
	}
	return dst, true, nil
}

// MetaPath returns the meta.json next to an archived document.
func MetaPath(archivedPath string) string {
	return filepath.Join(filepath.Dir(archivedPath), metaFile)
}

// List returns the archived documents' metadata, oldest first. Entries
// without a readable meta.json are skipped.
func List(dataDir string) ([]ContentMeta, error) {
	ents, err := os.ReadDir(Dir(dataDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []ContentMeta
	for _, e := range ents {
		if !e.IsDir() {
			continue
		}
		b, err := os.ReadFile(filepath.Join(Dir(dataDir), e.Name(), metaFile))
		if err != nil {
			continue
		}
		var m ContentMeta
		if err := json.Unmarshal(b, &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArchivedAt < out[j].ArchivedAt })
	return out, nil
}
