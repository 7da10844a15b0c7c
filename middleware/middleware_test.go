// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danielhkuo/bugdex/models"
)

// observedRequests returns how many latency samples were recorded for one
// method/route/status series
func observedRequests(t *testing.T, method, route, status string) uint64 {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	for _, mf := range families {
		if mf.GetName() != "bugdex_http_request_duration_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["method"] == method && labels["route"] == route && labels["status"] == status {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func TestWithLogging(t *testing.T) {
	testCases := []struct {
		name       string
		statusCode int
		body       string
		skipHeader bool
	}{
		{"implicit OK", http.StatusOK, "ok", true},
		{"created", http.StatusCreated, `{"upload_id":"123"}`, false},
		{"voting closed", http.StatusBadRequest, `{"error":"Bad Request"}`, false},
		{"stale config", http.StatusConflict, "conflict", false},
		{"chain down", http.StatusBadGateway, "bad gateway", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var recorded int
			handler := WithLogging(func(w http.ResponseWriter, r *http.Request) {
				if !tc.skipHeader {
					w.WriteHeader(tc.statusCode)
				}
				w.Write([]byte(tc.body))
				recorded = w.(*statusRecorder).status
			})

			w := httptest.NewRecorder()
			handler(w, httptest.NewRequest("POST", "/api/vote-offchain", nil))

			if w.Code != tc.statusCode {
				t.Errorf("Expected status %d, got %d", tc.statusCode, w.Code)
			}
			if recorded != tc.statusCode {
				t.Errorf("Expected recorder to capture %d, got %d", tc.statusCode, recorded)
			}
			if w.Body.String() != tc.body {
				t.Errorf("Expected body '%s', got '%s'", tc.body, w.Body.String())
			}
		})
	}
}

func TestWithLogging_ObservesRoutePattern(t *testing.T) {
	const pattern = "GET /api/uploads/{id}/nft-metadata"

	mux := http.NewServeMux()
	mux.HandleFunc(pattern, WithLogging(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(w, http.StatusConflict, "not approved")
	}))

	before := observedRequests(t, "GET", pattern, "409")

	for _, id := range []string{"first-upload", "second-upload"} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/uploads/"+id+"/nft-metadata", nil))
		if w.Code != http.StatusConflict {
			t.Fatalf("Expected 409, got %d", w.Code)
		}
	}

	if got := observedRequests(t, "GET", pattern, "409"); got != before+2 {
		t.Errorf("Expected 2 new samples under %q, got %d", pattern, got-before)
	}
	// Concrete paths must not become their own series
	if got := observedRequests(t, "GET", "/api/uploads/first-upload/nft-metadata", "409"); got != 0 {
		t.Errorf("Expected no series for the raw path, got %d samples", got)
	}
}

func TestJSONResponse(t *testing.T) {
	deadline := time.Date(2025, 10, 2, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name       string
		statusCode int
		data       interface{}
		expected   string
	}{
		{
			name:       "upload created",
			statusCode: http.StatusCreated,
			data:       models.CreateUploadResponse{UploadID: "abc123"},
			expected:   `{"upload_id":"abc123"}`,
		},
		{
			name:       "check vote without a vote",
			statusCode: http.StatusOK,
			data:       models.CheckVoteResponse{HasVoted: false},
			expected:   `{"has_voted":false}`,
		},
		{
			name:       "error with deadline",
			statusCode: http.StatusBadRequest,
			data:       models.ErrorResponse{Error: "Voting period has not ended", Deadline: &deadline},
			expected:   `{"error":"Voting period has not ended","deadline":"2025-10-02T12:00:00Z"}`,
		},
		{
			name:       "empty list",
			statusCode: http.StatusOK,
			data:       []models.Upload{},
			expected:   `[]`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			JSONResponse(w, tc.statusCode, tc.data)

			if w.Code != tc.statusCode {
				t.Errorf("Expected status %d, got %d", tc.statusCode, w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected Content-Type 'application/json', got '%s'", ct)
			}
			if body := strings.TrimSpace(w.Body.String()); body != tc.expected {
				t.Errorf("Expected body '%s', got '%s'", tc.expected, body)
			}
		})
	}
}

func TestErrorResponse(t *testing.T) {
	testCases := []struct {
		statusCode    int
		message       string
		expectedError string
	}{
		{http.StatusUnauthorized, "Invalid admin key", "Unauthorized"},
		{http.StatusForbidden, "Cannot vote on your own submission", "Forbidden"},
		{http.StatusConflict, "Voting config was modified, reload and retry", "Conflict"},
		{http.StatusServiceUnavailable, "IPFS is not configured", "Service Unavailable"},
	}

	for _, tc := range testCases {
		t.Run(tc.expectedError, func(t *testing.T) {
			w := httptest.NewRecorder()

			ErrorResponse(w, tc.statusCode, tc.message)

			if w.Code != tc.statusCode {
				t.Errorf("Expected status %d, got %d", tc.statusCode, w.Code)
			}

			var resp models.ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode error response: %v", err)
			}
			if resp.Error != tc.expectedError || resp.Message != tc.message {
				t.Errorf("Expected %q/%q, got %q/%q", tc.expectedError, tc.message, resp.Error, resp.Message)
			}
			if resp.Deadline != nil {
				t.Error("Plain errors should not carry a deadline")
			}
		})
	}
}

func TestParseJSONBody(t *testing.T) {
	testCases := []struct {
		name    string
		body    string
		wantErr bool
		wantCID string
	}{
		{"valid upload", `{"wallet_address":"0xabc","image_cid":"bafy1"}`, false, "bafy1"},
		{"unknown fields ignored", `{"image_cid":"bafy2","model":"gpt"}`, false, "bafy2"},
		{"invalid JSON", `{invalid json}`, true, ""},
		{"empty body", ``, true, ""},
		{"body over the limit", `{"image_cid":"` + strings.Repeat("a", maxJSONBody) + `"}`, true, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/uploads", strings.NewReader(tc.body))

			var parsed models.CreateUploadRequest
			err := ParseJSONBody(req, &parsed)

			if tc.wantErr {
				if err == nil {
					t.Error("Expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if parsed.ImageCID != tc.wantCID {
				t.Errorf("Expected image_cid %q, got %q", tc.wantCID, parsed.ImageCID)
			}
		})
	}

	t.Run("body just under the limit", func(t *testing.T) {
		prefix, suffix := `{"image_cid":"`, `"}`
		cid := strings.Repeat("b", maxJSONBody-len(prefix)-len(suffix))
		req := httptest.NewRequest("POST", "/api/uploads", strings.NewReader(prefix+cid+suffix))

		var parsed models.CreateUploadRequest
		if err := ParseJSONBody(req, &parsed); err != nil {
			t.Fatalf("Expected body of exactly maxJSONBody to parse, got: %v", err)
		}
		if len(parsed.ImageCID) != len(cid) {
			t.Errorf("Expected %d byte CID, got %d", len(cid), len(parsed.ImageCID))
		}
	})

	t.Run("body is consumed", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/uploads", strings.NewReader(`{"image_cid":"bafy3"}`))

		var parsed models.CreateUploadRequest
		_ = ParseJSONBody(req, &parsed)

		if remaining, _ := io.ReadAll(req.Body); len(remaining) > 0 {
			t.Error("Expected body to be consumed")
		}
	})
}

func TestCORS(t *testing.T) {
	corsHandler := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("handled"))
	}))

	testCases := []struct {
		name       string
		method     string
		origin     string
		wantOrigin string
		wantBody   string
	}{
		{"preflight from the web app", "OPTIONS", "http://localhost:3000", "http://localhost:3000", ""},
		{"vote from a deployed origin", "POST", "https://bugdex.example", "https://bugdex.example", "handled"},
		{"server-to-server call", "GET", "", "*", "handled"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/api/vote-offchain", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			w := httptest.NewRecorder()

			corsHandler.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("Expected status 200, got %d", w.Code)
			}
			if w.Body.String() != tc.wantBody {
				t.Errorf("Expected body %q, got %q", tc.wantBody, w.Body.String())
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tc.wantOrigin {
				t.Errorf("Expected origin %q, got %q", tc.wantOrigin, got)
			}

			allowed := w.Header().Get("Access-Control-Allow-Headers")
			for _, h := range []string{"Content-Type", "Authorization", "X-Admin-Key", "X-Wallet-Address"} {
				if !strings.Contains(allowed, h) {
					t.Errorf("Expected %s in allowed headers", h)
				}
			}
			if methods := w.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(methods, "PUT") || !strings.Contains(methods, "DELETE") {
				t.Errorf("Expected PUT and DELETE in allowed methods, got %q", methods)
			}
		})
	}
}

func TestGetClientIP(t *testing.T) {
	testCases := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		expectedIP string
	}{
		{"forwarded chain uses first hop", map[string]string{"X-Forwarded-For": "203.0.113.195, 70.41.3.18"}, "127.0.0.1:1", "203.0.113.195"},
		{"forwarded wins over real ip", map[string]string{"X-Forwarded-For": "192.168.1.100", "X-Real-IP": "203.0.113.50"}, "10.0.0.1:1", "192.168.1.100"},
		{"real ip", map[string]string{"X-Real-IP": "203.0.113.50"}, "10.0.0.1:12345", "203.0.113.50"},
		{"remote addr port stripped", nil, "192.168.1.50:54321", "192.168.1.50"},
		{"remote addr without port", nil, "192.168.1.50", "192.168.1.50"},
		{"ipv6 remote addr", nil, "[::1]:12345", "[::1]"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remoteAddr
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}

			if got := GetClientIP(req); got != tc.expectedIP {
				t.Errorf("Expected IP '%s', got '%s'", tc.expectedIP, got)
			}
		})
	}
}
