package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chatborg/chatborg/internal/bot"
	"github.com/chatborg/chatborg/internal/dictionary"
	"github.com/chatborg/chatborg/internal/responder"
	"github.com/chatborg/chatborg/pkg/config"
)

func newTestHandler(t *testing.T, src responder.Source) *Handler {
	t.Helper()
	cfg := config.DictionaryConfig{Path: filepath.Join(t.TempDir(), "dictionary.json")}
	b := bot.New(dictionary.NewEmpty(), src, cfg, nil)
	return New(b, nil, nil, nil, 128)
}

func postJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestLearnEndpoint(t *testing.T) {
	h := newTestHandler(t, responder.NewStepSource(0, 1))

	rec := postJSON(t, h.Learn, `{"line":"Hey there, everyone!"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Learned   bool `json:"learned"`
		Sentences int  `json:"sentences"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Learned || resp.Sentences != 1 {
		t.Errorf("response = %+v, want learned with 1 sentence", resp)
	}

	// Same line again: known, nothing stored.
	rec = postJSON(t, h.Learn, `{"line":"hey there, everyone!"}`)
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Learned || resp.Sentences != 1 {
		t.Errorf("response = %+v, want not learned with 1 sentence", resp)
	}
}

func TestLearnEndpointValidation(t *testing.T) {
	h := newTestHandler(t, responder.NewStepSource(0, 1))

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"blank line", `{"line":"   "}`},
		{"oversized line", `{"line":"` + strings.Repeat("a", 200) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h.Learn, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRespondEndpoint(t *testing.T) {
	// Draws: learn consumes no randomness. 0 % 1 = 0 -> pivot "everyone";
	// 1 % 2 = 1 and 2 % 2 = 0 -> donors "everyone is a crab" and
	// "hey there everyone".
	h := newTestHandler(t, responder.NewStepSource(0, 1))
	postJSON(t, h.Learn, `{"line":"hey there everyone"}`)
	postJSON(t, h.Learn, `{"line":"everyone is a crab"}`)

	rec := postJSON(t, h.Respond, `{"line":"everyone?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Response *string `json:"response"`
		Cached   bool    `json:"cached"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Response == nil {
		t.Fatal("expected a response")
	}
	if want := "everyone"; *resp.Response != want {
		t.Errorf("response = %q, want %q", *resp.Response, want)
	}
	if resp.Cached {
		t.Error("cached = true with caching disabled")
	}
}

func TestRespondEndpointNoResponse(t *testing.T) {
	h := newTestHandler(t, responder.NewStepSource(0, 1))

	rec := postJSON(t, h.Respond, `{"line":"hello"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Response *string `json:"response"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Response != nil {
		t.Errorf("expected null response, got %q", *resp.Response)
	}
}

func TestRebuildEndpoint(t *testing.T) {
	h := newTestHandler(t, responder.NewStepSource(0, 1))
	postJSON(t, h.Learn, `{"line":"zebras are striped"}`)
	postJSON(t, h.Learn, `{"line":"ants are small"}`)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	h.Rebuild(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var stats struct {
		Sentences    int  `json:"sentences"`
		IndexedWords int  `json:"indexed_words"`
		NeedsRebuild bool `json:"needs_rebuild"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if stats.Sentences != 2 || stats.NeedsRebuild {
		t.Errorf("stats = %+v", stats)
	}
}

func TestStatsEndpoint(t *testing.T) {
	h := newTestHandler(t, responder.NewStepSource(0, 1))
	postJSON(t, h.Learn, `{"line":"hey there, everyone!"}`)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.Stats(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var stats struct {
		Sentences    int `json:"sentences"`
		IndexedWords int `json:"indexed_words"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if stats.Sentences != 1 || stats.IndexedWords != 3 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestCacheEndpointsWithCachingDisabled(t *testing.T) {
	h := newTestHandler(t, responder.NewStepSource(0, 1))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.CacheStats(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("CacheStats status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "disabled") {
		t.Errorf("CacheStats body = %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	rec = httptest.NewRecorder()
	h.CacheInvalidate(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("CacheInvalidate status = %d, want 503", rec.Code)
	}
}

func TestValidateLine(t *testing.T) {
	if err := validateLine("hello", 10); err != nil {
		t.Errorf("valid line rejected: %v", err)
	}
	if err := validateLine("", 10); err == nil {
		t.Error("empty line accepted")
	}
	if err := validateLine("exceeds the limit", 5); err == nil {
		t.Error("oversized line accepted")
	}
	if err := validateLine("no limit applies here", 0); err != nil {
		t.Errorf("unbounded length rejected: %v", err)
	}
}
