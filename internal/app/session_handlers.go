package app

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"recycle.ecomap.kr/internal/present"
	"recycle.ecomap.kr/internal/ranking"
	"recycle.ecomap.kr/internal/session"
)

type sessionView struct {
	ID        uuid.UUID        `json:"id"`
	Sequence  int64            `json:"sequence"`
	Landmark  string           `json:"landmark,omitempty"`
	Applied   bool             `json:"applied"`
	UpdatedAt time.Time        `json:"updated_at"`
	Result    present.Response `json:"result"`
}

func newSessionView(s session.Session, applied bool) sessionView {
	return sessionView{
		ID:        s.ID,
		Sequence:  s.Sequence,
		Landmark:  s.Landmark,
		Applied:   applied,
		UpdatedAt: s.UpdatedAt,
		Result:    present.NewResponse(s.Result),
	}
}

// createSessionHandler renders the first phase: the ranking from the landmark
// (or the default) is returned at once, before any live location is known.
func (app *Application) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	settings := app.ConfigService.Config.GetSettings()
	landmark := strings.TrimSpace(r.URL.Query().Get("landmark"))

	ds, err := app.SourceService.Dataset(r.Context(), settings.SourceFile, settings.SourceURL)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	res, err := app.RankingService.Run(ds, app.landmarkTable(settings), ranking.Request{
		LandmarkKey: landmark,
		TopN:        settings.TopN,
	})
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	sess := app.Sessions.Create(landmark, res)
	w.Header().Set("Location", "/v1/sessions/"+sess.ID.String())
	writeJSON(w, http.StatusCreated, newSessionView(sess, true))
}

func (app *Application) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		app.errorResponse(w, r, session.ErrNotFound)
		return
	}
	sess, ok := app.Sessions.Get(id)
	if !ok {
		app.errorResponse(w, r, session.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(sess, true))
}

// updateLocationHandler renders the second phase. The pipeline runs again from
// scratch with the live coordinate; if a later location was applied meanwhile,
// this result is dropped and the current state is returned with applied=false.
func (app *Application) updateLocationHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		app.errorResponse(w, r, session.ErrNotFound)
		return
	}
	sess, ok := app.Sessions.Get(id)
	if !ok {
		app.errorResponse(w, r, session.ErrNotFound)
		return
	}

	body, live, err := decodeLocationUpdate(w, r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	settings := app.ConfigService.Config.GetSettings()
	ds, err := app.SourceService.Dataset(r.Context(), settings.SourceFile, settings.SourceURL)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	res, err := app.RankingService.Run(ds, app.landmarkTable(settings), ranking.Request{
		Live:        &live,
		LandmarkKey: sess.Landmark,
		TopN:        settings.TopN,
	})
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	updated, err := app.Sessions.Apply(id, body.Sequence, live, res)
	switch {
	case errors.Is(err, session.ErrStaleUpdate):
		app.Logger.Debug("Discarded stale location update", "session", id, "sequence", body.Sequence, "current", updated.Sequence)
		writeJSON(w, http.StatusOK, newSessionView(updated, false))
	case err != nil:
		app.errorResponse(w, r, err)
	default:
		writeJSON(w, http.StatusOK, newSessionView(updated, true))
	}
}

func sessionID(r *http.Request) (uuid.UUID, bool) {
	params := httprouter.ParamsFromContext(r.Context())
	id, err := uuid.Parse(params.ByName("id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
