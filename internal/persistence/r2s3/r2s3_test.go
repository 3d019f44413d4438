package r2s3

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestDeriveSigningKey_AWSExample(t *testing.T) {
	got := hex.EncodeToString(signingKey("wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY", "20120215", "us-east-1", "iam"))
	want := "f4780e2d9f65fa895f9c67b32ce1baf0b0d8a43505a000a1a9e090d414db404d"
	if got != want {
		t.Fatalf("signing key=%s want %s", got, want)
	}
}

func TestClient_PutSignsPathStyleRequest(t *testing.T) {
	var (
		gotPath, gotAuth, gotHash, gotType string
		gotBody                            []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method=%s", r.Method)
		}
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		gotHash = r.Header.Get("x-amz-content-sha256")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		if strings.Contains(gotPath, "denied") {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("AccessDenied"))
		}
	}))
	defer srv.Close()

	c, err := New(srv.URL, "content", "AK", "SK")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.signer.now = func() time.Time { return time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC) }

	body := []byte(`{"tables":{}}`)
	if err := c.Put(context.Background(), "/archives//v 1/game_data.json", body); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if gotPath != "/content/archives/v%201/game_data.json" {
		t.Fatalf("path=%s", gotPath)
	}
	if string(gotBody) != string(body) || gotHash != hashHex(body) || gotType != "application/json" {
		t.Fatalf("body=%s hash=%s type=%s", gotBody, gotHash, gotType)
	}
	prefix := "AWS4-HMAC-SHA256 Credential=AK/20261017/auto/s3/aws4_request, SignedHeaders=host;x-amz-content-sha256;x-amz-date, Signature="
	if !strings.HasPrefix(gotAuth, prefix) || len(gotAuth) != len(prefix)+64 {
		t.Fatalf("auth=%s", gotAuth)
	}

	err = c.Put(context.Background(), "denied.json", body)
	if err == nil || !strings.Contains(err.Error(), "status=403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
	if err := c.Put(context.Background(), "../", body); err == nil {
		t.Fatalf("expected empty key error")
	}
}

func TestNew_RequiresSettings(t *testing.T) {
	if _, err := New("", "b", "a", "s"); err == nil {
		t.Fatalf("expected error")
	}
	c, err := New("example.r2.cloudflarestorage.com/", "b", "a", "s")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Endpoint() != "https://example.r2.cloudflarestorage.com" {
		t.Fatalf("endpoint=%s", c.Endpoint())
	}
}

type fakeUploader struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *fakeUploader) PutFile(ctx context.Context, key, localPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return f.err
}

func TestMirror_UploadsRelativeKeys(t *testing.T) {
	dataDir := t.TempDir()
	p := filepath.Join(dataDir, "archives", "content", "abc", "game_data.json.zst")
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	outside := filepath.Join(t.TempDir(), "other.json")
	if err := os.WriteFile(outside, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	up := &fakeUploader{}
	m := NewMirror(up, dataDir, MirrorOptions{Prefix: "/prod/"}, log.New(io.Discard, "", 0))
	m.Enqueue(p)
	m.Enqueue(outside)
	m.Close()
	m.Close()

	if len(up.keys) != 1 || up.keys[0] != "prod/archives/content/abc/game_data.json.zst" {
		t.Fatalf("keys=%v", up.keys)
	}
	st := m.Stats()
	if st.EnqueuedTotal != 2 || st.UploadSuccessTotal != 1 || st.UploadFailTotal != 0 || st.LastSuccessUnix == 0 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestMirror_RetriesThenFails(t *testing.T) {
	dataDir := t.TempDir()
	p := filepath.Join(dataDir, "loads.jsonl.zst")
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	up := &fakeUploader{err: errors.New("boom")}
	m := NewMirror(up, dataDir, MirrorOptions{MaxAttempts: 3, Backoff: time.Millisecond}, log.New(io.Discard, "", 0))
	m.Enqueue(p)
	m.Close()

	if len(up.keys) != 3 {
		t.Fatalf("attempts=%d want 3", len(up.keys))
	}
	if st := m.Stats(); st.UploadFailTotal != 1 || st.LastErrorUnix == 0 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestMirror_NilIsNoop(t *testing.T) {
	var m *Mirror
	m.Enqueue("x")
	m.Close()
	if m.Stats() != (Stats{}) {
		t.Fatalf("nil stats")
	}
}
