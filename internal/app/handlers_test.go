package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Caiqueoak/cade-meu-busao/internal/models"
	"github.com/Caiqueoak/cade-meu-busao/internal/tracker"
)

type displayJSON struct {
	SessionID string `json:"sessionId"`
	State     string `json:"state"`
	Board     struct {
		Line    string             `json:"line"`
		Nearest []models.RankedBus `json:"nearest"`
		Message string             `json:"message"`
	} `json:"board"`
	LastError string `json:"lastError"`
}

type sessionJSON struct {
	ID      string      `json:"id"`
	Display displayJSON `json:"display"`
	Error   string      `json:"error"`
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeSession(t *testing.T, rr *httptest.ResponseRecorder) sessionJSON {
	t.Helper()
	var resp sessionJSON
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp
}

func TestHealthcheckHandler(t *testing.T) {
	app := newTestApplication(t, &stubFetcher{})

	rr := httptest.NewRecorder()
	request, err := http.NewRequest(http.MethodGet, "/v1/healthcheck", nil)
	if err != nil {
		t.Fatal(err)
	}

	app.healthcheckHandler(rr, request)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	var resp HealthStatus
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	assert.Equal(t, "available", resp.Status)
	assert.Equal(t, "development", resp.Environment)
	assert.Equal(t, "test-version", resp.Version)
	assert.Equal(t, "api", resp.Upstream)
	assert.Equal(t, 0, resp.Sessions)
	assert.True(t, resp.Ready)
}

func TestHealthcheckHandlerNotReady(t *testing.T) {
	app := newTestApplication(t, &stubFetcher{})
	app.Fetcher = nil

	rr := httptest.NewRecorder()
	app.healthcheckHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/healthcheck", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	var resp HealthStatus
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.False(t, resp.Ready)
}

func TestCreateSession(t *testing.T) {
	fetcher := &stubFetcher{routes: sampleRoutes()}
	app := newTestApplication(t, fetcher)
	h := app.Routes(t.Context())

	rr := doRequest(t, h, http.MethodPost, "/v1/sessions",
		`{"line":"8000-10","latitude":-23.5505,"longitude":-46.6333}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	resp := decodeSession(t, rr)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, resp.ID, resp.Display.SessionID)
	assert.Equal(t, "polling", resp.Display.State)
	assert.Equal(t, "8000-10", resp.Display.Board.Line)
	require.Len(t, resp.Display.Board.Nearest, 2)
	assert.Equal(t, 11001, resp.Display.Board.Nearest[0].Position.Prefix)
	assert.Empty(t, resp.Display.LastError)

	assert.Equal(t, 1, fetcher.calls())
	assert.Equal(t, 1, app.Sessions.Len())
}

func TestCreateSessionRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"malformed json", `{"line":`},
		{"empty line", `{"line":"  "}`},
		{"unknown field", `{"line":"8000-10","radius":5}`},
		{"two values", `{"line":"a"}{"line":"b"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &stubFetcher{routes: sampleRoutes()}
			app := newTestApplication(t, fetcher)

			rr := doRequest(t, app.Routes(t.Context()), http.MethodPost, "/v1/sessions", tt.body)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, 0, fetcher.calls())
			assert.Equal(t, 0, app.Sessions.Len())
		})
	}
}

func TestCreateSessionWithoutLocation(t *testing.T) {
	fetcher := &stubFetcher{routes: sampleRoutes()}
	app := newTestApplication(t, fetcher)

	rr := doRequest(t, app.Routes(t.Context()), http.MethodPost, "/v1/sessions", `{"line":"8000-10"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	resp := decodeSession(t, rr)
	assert.Equal(t, "idle", resp.Display.State)
	assert.Contains(t, resp.Display.LastError, models.ErrLocationUnavailable.Error())
	assert.Equal(t, 0, fetcher.calls())
}

func TestCreateSessionFetchFailure(t *testing.T) {
	fetcher := &stubFetcher{err: fmt.Errorf("%w: upstream returned 503", models.ErrFetchFailed)}
	app := newTestApplication(t, fetcher)
	h := app.Routes(t.Context())

	rr := doRequest(t, h, http.MethodPost, "/v1/sessions",
		`{"line":"8000-10","latitude":-23.5505,"longitude":-46.6333}`)
	require.Equal(t, http.StatusBadGateway, rr.Code)

	resp := decodeSession(t, rr)
	assert.Contains(t, resp.Error, "upstream returned 503")
	assert.Equal(t, "idle", resp.Display.State)
	assert.NotEmpty(t, resp.Display.LastError)

	// The session survives so the client can retry the search.
	rr = doRequest(t, h, http.MethodGet, "/v1/sessions/"+resp.ID, "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestShowAndSearchSession(t *testing.T) {
	fetcher := &stubFetcher{routes: sampleRoutes()}
	app := newTestApplication(t, fetcher)
	h := app.Routes(t.Context())

	created := decodeSession(t, doRequest(t, h, http.MethodPost, "/v1/sessions",
		`{"line":"8000-10","latitude":-23.5505,"longitude":-46.6333}`))

	rr := doRequest(t, h, http.MethodGet, "/v1/sessions/"+created.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	shown := decodeSession(t, rr)
	assert.Equal(t, created.ID, shown.ID)
	assert.Equal(t, "8000-10", shown.Display.Board.Line)

	rr = doRequest(t, h, http.MethodPost, "/v1/sessions/"+created.ID+"/search", `{"line":"875A-10"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	searched := decodeSession(t, rr)
	assert.Equal(t, "875A-10", searched.Display.Board.Line)
	assert.Equal(t, "polling", searched.Display.State)
	assert.Equal(t, 2, fetcher.calls())

	rr = doRequest(t, h, http.MethodPost, "/v1/sessions/"+created.ID+"/search", `{"line":""}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSearchWithCoordinatesRecoversDeniedSession(t *testing.T) {
	fetcher := &stubFetcher{routes: sampleRoutes()}
	app := newTestApplication(t, fetcher)
	h := app.Routes(t.Context())

	created := decodeSession(t, doRequest(t, h, http.MethodPost, "/v1/sessions", `{"line":"8000-10"}`))
	require.Equal(t, "idle", created.Display.State)
	require.NotEmpty(t, created.Display.LastError)

	rr := doRequest(t, h, http.MethodPost, "/v1/sessions/"+created.ID+"/search", `{"line":"8000-10"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "idle", decodeSession(t, rr).Display.State, "still no location")
	assert.Equal(t, 0, fetcher.calls())

	rr = doRequest(t, h, http.MethodPost, "/v1/sessions/"+created.ID+"/search",
		`{"line":"8000-10","latitude":-23.5505,"longitude":-46.6333}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	resp := decodeSession(t, rr)
	assert.Equal(t, "polling", resp.Display.State)
	assert.Empty(t, resp.Display.LastError)
	assert.Len(t, resp.Display.Board.Nearest, 2)
	assert.Equal(t, 1, fetcher.calls())
}

func TestSearchEmptyLineShowsMessage(t *testing.T) {
	fetcher := &stubFetcher{routes: []models.BusRoute{}}
	app := newTestApplication(t, fetcher)

	rr := doRequest(t, app.Routes(t.Context()), http.MethodPost, "/v1/sessions",
		`{"line":"0000-00","latitude":-23.5505,"longitude":-46.6333}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	resp := decodeSession(t, rr)
	assert.Equal(t, tracker.NoBusesMessage, resp.Display.Board.Message)
	assert.Empty(t, resp.Display.Board.Nearest)
}

func TestDeleteSession(t *testing.T) {
	app := newTestApplication(t, &stubFetcher{routes: sampleRoutes()})
	h := app.Routes(t.Context())

	created := decodeSession(t, doRequest(t, h, http.MethodPost, "/v1/sessions",
		`{"line":"8000-10","latitude":-23.5505,"longitude":-46.6333}`))
	ctrl, ok := app.Sessions.Get(created.ID)
	require.True(t, ok)

	rr := doRequest(t, h, http.MethodDelete, "/v1/sessions/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, tracker.Stopped, ctrl.State())

	rr = doRequest(t, h, http.MethodGet, "/v1/sessions/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUnknownSession(t *testing.T) {
	app := newTestApplication(t, &stubFetcher{routes: sampleRoutes()})
	h := app.Routes(t.Context())

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/v1/sessions/missing", ""},
		{http.MethodPost, "/v1/sessions/missing/search", `{"line":"8000-10"}`},
		{http.MethodDelete, "/v1/sessions/missing", ""},
		{http.MethodGet, "/v1/nothing-here", ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := doRequest(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusNotFound, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	app := newTestApplication(t, &stubFetcher{})

	rr := doRequest(t, app.Routes(t.Context()), http.MethodPut, "/v1/sessions/abc", "")

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Contains(t, rr.Body.String(), "PUT")
}

func TestRoutesSetSecurityHeaders(t *testing.T) {
	app := newTestApplication(t, &stubFetcher{})

	rr := doRequest(t, app.Routes(t.Context()), http.MethodGet, "/v1/healthcheck", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
}

func TestRespondToSearchMapsErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"in progress", tracker.ErrSearchInProgress, http.StatusConflict},
		{"stopped", tracker.ErrStopped, http.StatusGone},
		{"fetch failed", fmt.Errorf("%w: timeout", models.ErrFetchFailed), http.StatusBadGateway},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApplication(t, &stubFetcher{})
			ctrl := app.NewController("s-1", nil)
			rr := httptest.NewRecorder()

			app.respondToSearch(rr, httptest.NewRequest(http.MethodPost, "/v1/sessions/s-1/search", nil), ctrl, tt.err, http.StatusOK)

			assert.Equal(t, tt.want, rr.Code)
		})
	}
}
