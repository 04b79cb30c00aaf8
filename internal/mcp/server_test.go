package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/assemblyline-mcp/internal/cache"
	"github.com/usestring/assemblyline-mcp/internal/config"
	"github.com/usestring/assemblyline-mcp/internal/mcp/tools"
	"github.com/usestring/assemblyline-mcp/internal/schema"
	"github.com/usestring/assemblyline-mcp/internal/submissionfetch"
	"github.com/usestring/assemblyline-mcp/pkg/client"
)

func writeEnvelope(w http.ResponseWriter, status int, resp any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"api_response":      resp,
		"api_error_message": "",
		"api_status_code":   status,
	})
}

func newTestDeps(t *testing.T) *tools.Deps {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/auth/init/", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, nil)
	})
	mux.HandleFunc("/api/v4/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]any{"username": "admin", "session_duration": 3600})
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, []string{"v4"})
	})
	mux.HandleFunc("/api/v4/submission/abc/", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]any{"sid": "abc", "state": "completed", "max_score": 500})
	})
	mux.HandleFunc("/api/v4/submission/full/abc/", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]any{"sid": "abc", "results": map[string]any{}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := client.New(context.Background(), srv.URL, client.WithAPIKey("admin", "key"), client.WithRetries(1))
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Server = srv.URL
	sc, err := cache.NewSubmissionCache(8)
	require.NoError(t, err)
	v, err := schema.NewParamsValidator()
	require.NoError(t, err)

	return &tools.Deps{
		Client:    c,
		Config:    cfg,
		Cache:     sc,
		Fetcher:   submissionfetch.New(c, sc, 2),
		Validator: v,
	}
}

func connect(t *testing.T, s *Server) *sdkmcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	st, ct := sdkmcp.NewInMemoryTransports()

	ss, err := s.MCPServer().Connect(ctx, st, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	cl := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "0"}, nil)
	cs, err := cl.Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func TestNewServer_RequiresDeps(t *testing.T) {
	_, err := NewServer(nil)
	assert.Error(t, err)
	_, err = NewServer(&tools.Deps{})
	assert.Error(t, err)
}

func TestServer_ListsBuiltins(t *testing.T) {
	s, err := NewServer(newTestDeps(t), WithBuiltinTools(), WithBuiltinPrompts())
	require.NoError(t, err)
	cs := connect(t, s)
	ctx := context.Background()

	toolList, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range toolList.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"al_whoami", "al_search", "al_search_stream", "al_submit", "al_validate_params",
		"al_submission_get", "al_submission_wait", "al_file_info",
	}, names)

	prompts, err := cs.ListPrompts(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, prompts.Prompts, 2)
}

func TestServer_CustomRegistrationOnly(t *testing.T) {
	type echoIn struct {
		Text string `json:"text"`
	}
	type echoOut struct {
		Text string `json:"text"`
	}
	s, err := NewServer(newTestDeps(t), WithCustomRegistration(func(srv *sdkmcp.Server) {
		tools.AddTool(srv, &sdkmcp.Tool{Name: "echo"}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in echoIn) (*sdkmcp.CallToolResult, echoOut, error) {
			return nil, echoOut(in), nil
		})
	}))
	require.NoError(t, err)
	cs := connect(t, s)

	toolList, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, toolList.Tools, 1)
	assert.Equal(t, "echo", toolList.Tools[0].Name)
}

func TestServer_Resources(t *testing.T) {
	s, err := NewServer(newTestDeps(t), WithBuiltinTools())
	require.NoError(t, err)
	cs := connect(t, s)
	ctx := context.Background()

	res, err := cs.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "assemblyline://submission/abc"})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &view))
	assert.Equal(t, "abc", view["sid"])
	assert.Equal(t, float64(500), view["max_score"])

	res, err = cs.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "assemblyline://submission/abc/full"})
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, "results")

	res, err = cs.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: tools.SubmissionParamsSchemaURI})
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, "deep_scan")
}

func TestServer_TriagePrompt(t *testing.T) {
	s, err := NewServer(newTestDeps(t), WithBuiltinPrompts())
	require.NoError(t, err)
	cs := connect(t, s)

	res, err := cs.GetPrompt(context.Background(), &sdkmcp.GetPromptParams{
		Name:      "triage_submission",
		Arguments: map[string]string{"sid": "abc", "focus": "network indicators"},
	})
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	text := res.Messages[0].Content.(*sdkmcp.TextContent).Text
	assert.Contains(t, text, "`abc`")
	assert.Contains(t, text, "network indicators")
	assert.Contains(t, text, "/submission/abc")
}

func TestParseResourceURI(t *testing.T) {
	tests := []struct {
		uri     string
		want    map[string]string
		wantErr bool
	}{
		{uri: "assemblyline://submission/abc", want: map[string]string{"sid": "abc"}},
		{uri: "assemblyline://submission/abc/full", want: map[string]string{"sid": "abc", "full": "true"}},
		{uri: "assemblyline://schema/submission-params", want: map[string]string{"name": "submission-params"}},
		{uri: "assemblyline://submission/", wantErr: true},
		{uri: "assemblyline://submission/abc/tree", wantErr: true},
		{uri: "assemblyline://alert/1", wantErr: true},
		{uri: "http://submission/abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, err := parseResourceURI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
