package pollclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"inferd/pkg/types"
)

func TestClientSubmitWrapsPayload(t *testing.T) {
	var gotPath string
	var gotBody types.SubmitRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(types.SubmitResponse{JobID: "job-9"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	payload := json.RawMessage(`{"prompt":"hi","seed":7}`)
	id, err := c.Submit(context.Background(), "qwen", payload)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if id != "job-9" {
		t.Fatalf("job id=%s", id)
	}
	if gotPath != "/v1/models/qwen/jobs" {
		t.Fatalf("path=%s", gotPath)
	}
	if !bytes.Equal(gotBody.Input, payload) {
		t.Fatalf("payload sent as %s", gotBody.Input)
	}
}

func TestClientDecodesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(types.ErrorResponse{
			Error: "model not ready: qwen (phase UNLOADED), warm up first",
			Kind:  types.KindNotReady,
			Code:  http.StatusConflict,
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Submit(context.Background(), "qwen", json.RawMessage(`{}`))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !IsKind(err, types.KindNotReady) {
		t.Fatalf("err=%v", err)
	}
	ae := err.(*APIError)
	if ae.Code != http.StatusConflict {
		t.Fatalf("code=%d", ae.Code)
	}
}

func TestClientNonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Warmup(context.Background(), "qwen")
	if !IsKind(err, types.KindInternalError) {
		t.Fatalf("err=%v", err)
	}
	if ae := err.(*APIError); ae.Code != http.StatusBadGateway {
		t.Fatalf("code=%d", ae.Code)
	}
}

func TestClientHealthReadsNonOKBodies(t *testing.T) {
	cases := []struct {
		code  int
		phase types.Phase
	}{
		{http.StatusOK, types.PhaseIdle},
		{http.StatusAccepted, types.PhaseLoading},
		{http.StatusServiceUnavailable, types.PhaseUnloaded},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(tc.code)
			json.NewEncoder(w).Encode(types.HealthResponse{Model: "qwen", Phase: tc.phase})
		}))
		c := New(srv.URL)
		h, err := c.Health(context.Background(), "qwen")
		srv.Close()
		if err != nil {
			t.Fatalf("code %d: %v", tc.code, err)
		}
		if h.Phase != tc.phase {
			t.Fatalf("code %d: phase=%s want %s", tc.code, h.Phase, tc.phase)
		}
	}
}

func TestIsKindCoversSessionErrors(t *testing.T) {
	if !IsKind(&UnavailableError{Target: "job x", Attempts: 40}, types.KindUnavailable) {
		t.Fatalf("poll timeout not recognized as Unavailable")
	}
	if !IsKind(&LoadFailedError{Model: "m1", Message: "oom"}, types.KindLoadFailed) {
		t.Fatalf("failed warmup not recognized as LoadFailed")
	}
	if IsKind(&UnavailableError{}, types.KindLoadFailed) {
		t.Fatalf("kind confusion between session errors")
	}
	if !IsKind(&APIError{Kind: types.KindNotReady, Code: 409}, types.KindNotReady) {
		t.Fatalf("APIError kind not matched")
	}
	if IsKind(errors.New("dial tcp: connection refused"), types.KindUnavailable) {
		t.Fatalf("transport error misclassified")
	}
}

func TestClientStatusReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			t.Errorf("path=%s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(types.StatusResponse{
			Models:        []types.ModelStatus{{Model: "qwen", Phase: types.PhaseIdle}},
			UptimeSeconds: 12,
		})
	}))
	defer srv.Close()

	st, err := New(srv.URL).StatusReport(context.Background())
	if err != nil {
		t.Fatalf("status report: %v", err)
	}
	if len(st.Models) != 1 || st.Models[0].Model != "qwen" || st.UptimeSeconds != 12 {
		t.Fatalf("st=%+v", st)
	}
}
