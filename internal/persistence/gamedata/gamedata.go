// Package gamedata reads content documents from disk or over HTTP.
package gamedata

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/tidwall/gjson"
)

// MaxRemoteBytes caps documents fetched over HTTP.
const MaxRemoteBytes = 64 << 20

// Meta is the document's meta section as read without a full decode.
type Meta struct {
	SchemaVersion string   `json:"schema_version"`
	DataVersion   string   `json:"data_version"`
	Comment       string   `json:"comment,omitempty"`
	Tables        []string `json:"tables"`
}

func isRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// Open returns the raw JSON of the document at src: a file path or an
// http(s) URL. Sources ending in ".zst" are decompressed.
func Open(ctx context.Context, src string) ([]byte, error) {
	if src == "" {
		return nil, fmt.Errorf("empty content source")
	}
	var (
		b   []byte
		err error
	)
	if isRemote(src) {
		b, err = fetch(ctx, src)
	} else {
		b, err = os.ReadFile(src)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}
	if strings.HasSuffix(strings.SplitN(src, "?", 2)[0], ".zst") {
		if b, err = Decompress(b); err != nil {
			return nil, fmt.Errorf("%s: %w", src, err)
		}
	}
	return b, nil
}

func fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, MaxRemoteBytes+1))
	if err != nil {
		return nil, err
	}
	if len(b) > MaxRemoteBytes {
		return nil, fmt.Errorf("document exceeds %d bytes", MaxRemoteBytes)
	}
	return b, nil
}

// PeekMeta reads meta and the table names without decoding rows.
func PeekMeta(raw []byte) (Meta, error) {
	if !gjson.ValidBytes(raw) {
		return Meta{}, fmt.Errorf("invalid json")
	}
	doc := gjson.ParseBytes(raw)
	m := Meta{
		SchemaVersion: doc.Get("meta.schemaVersion").String(),
		DataVersion:   doc.Get("meta.dataVersion").String(),
		Comment:       doc.Get("meta.comment").String(),
	}
	doc.Get("tables").ForEach(func(k, _ gjson.Result) bool {
		m.Tables = append(m.Tables, k.String())
		return true
	})
	return m, nil
}

func Digest(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func Compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, err
	}
	if _, err := enc.Write(raw); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Decompress(b []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(b, nil)
}
