package confapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/confradar/core"
	"github.com/trezcool/confradar/core/conference"
	"github.com/trezcool/confradar/core/wizard"
)

type recorded struct {
	method string
	path   string
	auth   string
	body   []byte
}

type apiStub struct {
	mu       sync.Mutex
	requests []recorded
	handler  func(w http.ResponseWriter, r *http.Request)
}

func (s *apiStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.requests = append(s.requests, recorded{method: r.Method, path: r.URL.Path, auth: r.Header.Get("Authorization"), body: body})
	s.mu.Unlock()
	s.handler(w, r)
}

func (s *apiStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *apiStub) last() recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func setup(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *apiStub) {
	t.Helper()
	stub := &apiStub{handler: handler}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	conf := &core.Config{
		Upstream: core.UpstreamConfig{BaseURL: srv.URL + "/", Token: "service-token", Timeout: 2 * time.Second},
		Wizard:   core.WizardConfig{ReferenceCacheSize: 4, ReferenceCacheTTL: time.Minute},
	}
	return NewClient(conf), stub
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_CreateConference(t *testing.T) {
	client, stub := setup(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]string{"conference_id": "conf-9"})
	})

	id, err := client.CreateConference(context.Background(), conference.BasicInfo{Title: "GopherCon"})
	require.NoError(t, err)
	assert.Equal(t, "conf-9", id)

	req := stub.last()
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/conferences", req.path)
	assert.Equal(t, "Bearer service-token", req.auth, "falls back on the service token")

	var sent conference.BasicInfo
	require.NoError(t, json.Unmarshal(req.body, &sent))
	assert.Equal(t, "GopherCon", sent.Title)
}

func TestClient_PutEntities(t *testing.T) {
	client, stub := setup(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := core.WithAuthToken(context.Background(), "caller-token")

	err := client.PutSessions(ctx, "conf-1", []conference.Session{{ID: "s2", Title: "Keynote"}}, []string{"s1"})
	require.NoError(t, err)

	req := stub.last()
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/conferences/conf-1/sessions", req.path)
	assert.Equal(t, "Bearer caller-token", req.auth, "the caller token is forwarded")
	assert.JSONEq(t, `{"items":[{"id":"s2","title":"Keynote","room_id":"","start_time":"0001-01-01T00:00:00Z","end_time":"0001-01-01T00:00:00Z"}],"deleted_ids":["s1"]}`, string(req.body))

	require.NoError(t, client.PutMedia(ctx, "conf-1", nil, nil))
	assert.JSONEq(t, `{"items":null,"deleted_ids":[]}`, string(stub.last().body))
}

func TestClient_errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{name: "json message", status: http.StatusBadRequest, body: `{"message":"title taken"}`, wantStatus: 400, wantMsg: "title taken"},
		{name: "json error", status: http.StatusForbidden, body: `{"error":"not your conference"}`, wantStatus: 403, wantMsg: "not your conference"},
		{name: "plain text", status: http.StatusBadGateway, body: "upstream down", wantStatus: 502, wantMsg: "upstream down"},
		{name: "empty body", status: http.StatusInternalServerError, wantStatus: 500, wantMsg: "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := setup(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			err := client.UpdateBasicInfo(context.Background(), "conf-1", conference.BasicInfo{})
			upErr, ok := err.(*core.UpstreamError)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.wantStatus, upErr.Status)
			assert.Equal(t, tt.wantMsg, upErr.Message)
		})
	}
}

func TestClient_cancelled(t *testing.T) {
	release := make(chan struct{})
	client, _ := setup(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := client.GetConference(ctx, "conf-1")
	assert.Equal(t, context.Canceled, err)
}

func TestClient_SubmitAll(t *testing.T) {
	var status atomic.Int32
	client, stub := setup(t, func(w http.ResponseWriter, r *http.Request) {
		code := int(status.Load())
		if code == http.StatusOK {
			writeJSON(w, code, wizard.AggregateResponse{Success: true})
			return
		}
		writeJSON(w, code, wizard.AggregateResponse{Errors: []string{"sponsors: logo unreachable"}})
	})
	changes := wizard.AllChanges{DeletedIDs: map[wizard.EntityKind][]string{wizard.KindMedia: {"m1"}}}

	status.Store(http.StatusOK)
	res, err := client.SubmitAll(context.Background(), "conf-1", changes)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "/conferences/conf-1/all", stub.last().path)
	assert.Contains(t, string(stub.last().body), `"deleted_ids":{"media":["m1"]}`)

	status.Store(http.StatusUnprocessableEntity)
	res, err = client.SubmitAll(context.Background(), "conf-1", changes)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, []string{"sponsors: logo unreachable"}, res.Errors)

	status.Store(http.StatusInternalServerError)
	_, err = client.SubmitAll(context.Background(), "conf-1", changes)
	assert.True(t, core.IsUpstream(err))
}

func TestReferenceSource(t *testing.T) {
	client, stub := setup(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cities":
			writeJSON(w, http.StatusOK, []conference.City{{ID: "c1", Name: "Kinshasa", Country: "CD"}})
		case "/rooms":
			writeJSON(w, http.StatusOK, []conference.Room{{ID: "r1", Name: "Hall A", Capacity: 300}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	src := NewReferenceSource(client, &core.Config{Wizard: core.WizardConfig{ReferenceCacheSize: 4, ReferenceCacheTTL: time.Minute}})
	ctx := context.Background()

	cities, err := src.Cities(ctx)
	require.NoError(t, err)
	assert.Equal(t, []conference.City{{ID: "c1", Name: "Kinshasa", Country: "CD"}}, cities)

	_, err = src.Cities(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stub.count(), "served from the cache")

	rooms, err := src.Lookup(ctx, RefRooms)
	require.NoError(t, err)
	assert.Equal(t, []conference.Room{{ID: "r1", Name: "Hall A", Capacity: 300}}, rooms)

	_, err = src.Categories(ctx)
	assert.True(t, core.IsUpstream(err))

	_, err = src.Lookup(ctx, "planets")
	assert.Equal(t, ErrUnknownReference, err)
}
