package app

import (
	"errors"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/Caiqueoak/cade-meu-busao/internal/location"
	"github.com/Caiqueoak/cade-meu-busao/internal/models"
	"github.com/Caiqueoak/cade-meu-busao/internal/session"
	"github.com/Caiqueoak/cade-meu-busao/internal/tracker"
)

// sessionResponse is returned by every session endpoint. Error is set when
// the search failed but the session and its display still exist.
type sessionResponse struct {
	ID      string          `json:"id"`
	Display tracker.Display `json:"display"`
	Error   string          `json:"error,omitempty"`
}

type createSessionRequest struct {
	Line      string   `json:"line"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// searchRequest may carry a new position. When either coordinate is given
// the session's location provider is replaced before searching.
type searchRequest struct {
	Line      string   `json:"line"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

var errEmptyLine = errors.New("line must be provided")

func (app *Application) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	var input createSessionRequest
	if err := readJSON(w, r, &input); err != nil {
		app.badRequestResponse(w, err)
		return
	}
	line := strings.TrimSpace(input.Line)
	if line == "" {
		app.badRequestResponse(w, errEmptyLine)
		return
	}

	id := session.NewID()
	ctrl := app.NewController(id, location.FromLatLon(input.Latitude, input.Longitude))
	app.Sessions.Add(ctrl)

	app.Logger.Info("Session created", "session_id", id, "line", line)
	app.respondToSearch(w, r, ctrl, ctrl.Search(r.Context(), line), http.StatusCreated)
}

func (app *Application) showSessionHandler(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := app.lookupSession(r)
	if !ok {
		app.notFoundResponse(w, r)
		return
	}
	app.writeJSON(w, http.StatusOK, sessionResponse{ID: ctrl.SessionID(), Display: ctrl.Snapshot()})
}

func (app *Application) searchSessionHandler(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := app.lookupSession(r)
	if !ok {
		app.notFoundResponse(w, r)
		return
	}

	var input searchRequest
	if err := readJSON(w, r, &input); err != nil {
		app.badRequestResponse(w, err)
		return
	}
	line := strings.TrimSpace(input.Line)
	if line == "" {
		app.badRequestResponse(w, errEmptyLine)
		return
	}

	if input.Latitude != nil || input.Longitude != nil {
		ctrl.SetLocator(location.FromLatLon(input.Latitude, input.Longitude))
	}

	app.respondToSearch(w, r, ctrl, ctrl.Search(r.Context(), line), http.StatusOK)
}

func (app *Application) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := httprouter.ParamsFromContext(r.Context()).ByName("id")
	if !app.Sessions.Remove(id) {
		app.notFoundResponse(w, r)
		return
	}
	app.Logger.Info("Session deleted", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (app *Application) lookupSession(r *http.Request) (*tracker.Controller, bool) {
	id := httprouter.ParamsFromContext(r.Context()).ByName("id")
	return app.Sessions.Get(id)
}

// respondToSearch maps the outcome of a search to a status code. A failed
// fetch still returns the display so clients can show LastError.
func (app *Application) respondToSearch(w http.ResponseWriter, r *http.Request, ctrl *tracker.Controller, err error, okStatus int) {
	resp := sessionResponse{ID: ctrl.SessionID(), Display: ctrl.Snapshot()}

	switch {
	case err == nil:
		app.writeJSON(w, okStatus, resp)
	case errors.Is(err, tracker.ErrSearchInProgress):
		app.errorResponse(w, http.StatusConflict, err.Error())
	case errors.Is(err, tracker.ErrStopped):
		app.errorResponse(w, http.StatusGone, err.Error())
	case errors.Is(err, models.ErrFetchFailed):
		resp.Error = err.Error()
		app.writeJSON(w, http.StatusBadGateway, resp)
	default:
		app.serverErrorResponse(w, r, err)
	}
}
