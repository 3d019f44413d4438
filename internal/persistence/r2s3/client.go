package r2s3

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"
)

// Client uploads objects to an S3-compatible bucket (Cloudflare R2, MinIO)
// using path-style URLs.
type Client struct {
	base   *url.URL
	bucket string
	signer signer
	hc     *http.Client
}

func New(endpoint, bucket, accessKeyID, secretAccessKey string) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	bucket = strings.Trim(strings.TrimSpace(bucket), "/")
	s := signer{
		keyID:   strings.TrimSpace(accessKeyID),
		secret:  strings.TrimSpace(secretAccessKey),
		region:  "auto",
		service: "s3",
		now:     time.Now,
	}
	switch {
	case endpoint == "":
		return nil, errors.New("r2s3: endpoint is required")
	case bucket == "":
		return nil, errors.New("r2s3: bucket is required")
	case s.keyID == "" || s.secret == "":
		return nil, errors.New("r2s3: access key id and secret are required")
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	base, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("r2s3: endpoint: %w", err)
	}
	if base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, fmt.Errorf("r2s3: bad endpoint %q", endpoint)
	}
	return &Client{
		base:   base,
		bucket: bucket,
		signer: s,
		hc:     &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

// Endpoint is the normalised base URL objects are written under.
func (c *Client) Endpoint() string { return c.base.String() }

// PutFile uploads the regular file at localPath as objectKey.
func (c *Client) PutFile(ctx context.Context, objectKey, localPath string) error {
	fi, err := os.Stat(localPath)
	if err != nil {
		return err
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("r2s3: %s is not a regular file", localPath)
	}
	body, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	return c.Put(ctx, objectKey, body)
}

func (c *Client) Put(ctx context.Context, objectKey string, body []byte) error {
	key := cleanKey(objectKey)
	if key == "" {
		return fmt.Errorf("r2s3: invalid object key %q", objectKey)
	}
	uri := "/" + c.bucket + "/" + encodeKey(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.Endpoint()+uri, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", mimeFor(key))
	c.signer.sign(req, uri, hashHex(body))

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("r2s3: put %s: %w", key, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 == 2 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	return fmt.Errorf("r2s3: put %s: status=%d body=%s", key, resp.StatusCode, bytes.TrimSpace(msg))
}

// signer produces AWS Signature Version 4 headers for single-chunk
// requests with an unsigned query string.
type signer struct {
	keyID   string
	secret  string
	region  string
	service string
	now     func() time.Time
}

const signedHeaderList = "host;x-amz-content-sha256;x-amz-date"

func (s signer) sign(req *http.Request, uri, payloadHash string) {
	t := s.now().UTC()
	stamp := t.Format("20060102T150405Z")
	day := stamp[:8]
	req.Header.Set("x-amz-date", stamp)
	req.Header.Set("x-amz-content-sha256", payloadHash)

	var cr strings.Builder
	fmt.Fprintf(&cr, "%s\n%s\n\n", req.Method, uri)
	fmt.Fprintf(&cr, "host:%s\nx-amz-content-sha256:%s\nx-amz-date:%s\n\n", req.URL.Host, payloadHash, stamp)
	fmt.Fprintf(&cr, "%s\n%s", signedHeaderList, payloadHash)

	scope := day + "/" + s.region + "/" + s.service + "/aws4_request"
	toSign := "AWS4-HMAC-SHA256\n" + stamp + "\n" + scope + "\n" + hashHex([]byte(cr.String()))
	sig := hmacSum(signingKey(s.secret, day, s.region, s.service), toSign)

	req.Header.Set("Authorization", "AWS4-HMAC-SHA256 Credential="+s.keyID+"/"+scope+
		", SignedHeaders="+signedHeaderList+", Signature="+hex.EncodeToString(sig))
}

func signingKey(secret, day, region, service string) []byte {
	k := []byte("AWS4" + secret)
	for _, part := range []string{day, region, service, "aws4_request"} {
		k = hmacSum(k, part)
	}
	return k
}

func hmacSum(key []byte, msg string) []byte {
	m := hmac.New(sha256.New, key)
	m.Write([]byte(msg))
	return m.Sum(nil)
}

func hashHex(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

func mimeFor(key string) string {
	switch path.Ext(key) {
	case ".zst":
		return "application/zstd"
	case ".json":
		return "application/json"
	}
	return "application/octet-stream"
}

// cleanKey turns objectKey into a slash-separated key with no leading
// slash and no parent references. It returns "" when nothing is left.
func cleanKey(objectKey string) string {
	k := strings.ReplaceAll(strings.TrimSpace(objectKey), "\\", "/")
	k = path.Clean("/" + k)
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." {
		return ""
	}
	return k
}

func encodeKey(key string) string {
	segs := strings.Split(key, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.Join(segs, "/")
}
