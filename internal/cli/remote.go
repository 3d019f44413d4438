package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hszqf/SCP-sub000/internal/protocol"
)

// ReloadRequest is the body of POST /admin/v1/reload. An empty source reloads
// the server's configured content.
type ReloadRequest struct {
	Source string `json:"source,omitempty"`
}

func NewReloadCommand(rootOpts *RootOptions) *cobra.Command {
	var baseURL, source string
	cmd := &cobra.Command{
		Use:   "reload",
		Short: "Ask a running server to reload its content",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, _ := json.Marshal(ReloadRequest{Source: source})
			return runRemote(rootOpts, cmd, http.MethodPost, baseURL, "/admin/v1/reload", body)
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "http://127.0.0.1:8080", "server base url")
	cmd.Flags().StringVar(&source, "source", "", "content path or url on the server side (defaults to the configured content)")
	return cmd
}

func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print a running server's content summary and game state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemote(rootOpts, cmd, http.MethodGet, baseURL, "/admin/v1/state", nil)
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "http://127.0.0.1:8080", "server base url")
	return cmd
}

func runRemote(opts *RootOptions, cmd *cobra.Command, method, baseURL, path string, body []byte) error {
	f := opts.formatter(cmd)
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + path

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(cmd.Context(), method, u, rd)
	if err != nil {
		return WrapExitError(ExitCommandError, "request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	cl := &http.Client{Timeout: 10 * time.Second}
	resp, err := cl.Do(req)
	if err != nil {
		_ = f.Error(protocol.ErrInternal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "request", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)

	if resp.StatusCode/100 != 2 {
		var er protocol.ErrorResponse
		if json.Unmarshal(b, &er) == nil && er.Code != "" {
			_ = f.Error(er.Code, er.Message, er.Details)
		} else {
			_ = f.Error(protocol.ErrInternal, fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(b))), nil)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%s %s: http %d", method, path, resp.StatusCode))
	}
	return f.Success(json.RawMessage(b), func(w io.Writer) {
		fmt.Fprintln(w, strings.TrimSpace(string(b)))
	})
}
