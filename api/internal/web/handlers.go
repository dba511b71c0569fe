package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Surihub/handmath/api/internal/apperr"
	"github.com/Surihub/handmath/api/internal/canvas"
	"github.com/Surihub/handmath/api/internal/history"
	"github.com/Surihub/handmath/api/internal/shell"
	"github.com/Surihub/handmath/api/internal/util"
)

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, s.view(appFrom(r).Snapshot())); err != nil {
		s.log.Error("web: render page", "error", err)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, nil)
}

// respond writes the session snapshot. A failed action still returns the
// snapshot, whose error slot carries the message.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusOK
	switch {
	case err == nil, errors.Is(err, shell.ErrStale):
	case errors.Is(err, history.ErrNotFound):
		code = http.StatusNotFound
	default:
		code = apperr.Status(apperr.KindOf(err))
	}
	writeJSON(w, code, s.view(appFrom(r).Snapshot()))
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode shell.Mode `json:"mode"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Mode != shell.ModePractice && req.Mode != shell.ModeRecognition {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown mode: " + string(req.Mode)})
		return
	}
	appFrom(r).SwitchMode(req.Mode)
	s.respond(w, r, nil)
}

func (s *Server) handleNewProblem(w http.ResponseWriter, r *http.Request) {
	appFrom(r).NewProblem()
	s.respond(w, r, nil)
}

func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, appFrom(r).GetHint(r.Context()))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, appFrom(r).SubmitSolution(r.Context()))
}

func (s *Server) handleRecognize(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, appFrom(r).Recognize(r.Context()))
}

func (s *Server) handleCanvasClear(w http.ResponseWriter, r *http.Request) {
	appFrom(r).ClearCanvas()
	s.respond(w, r, nil)
}

func (s *Server) handleStroke(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Points []canvas.Point `json:"points"`
	}
	if !decode(w, r, &req) {
		return
	}
	if len(req.Points) > canvas.MaxStrokePoints {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
			"error": fmt.Sprintf("stroke has %d points, limit is %d", len(req.Points), canvas.MaxStrokePoints),
		})
		return
	}
	appFrom(r).Surface().Stroke(req.Points)
	s.respond(w, r, nil)
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Width int `json:"width"`
	}
	if !decode(w, r, &req) {
		return
	}
	appFrom(r).Resize(req.Width)
	s.respond(w, r, nil)
}

func (s *Server) handleCanvasPNG(w http.ResponseWriter, r *http.Request) {
	uri := appFrom(r).Surface().ExportImage()
	if uri == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	img, _, err := util.DecodeBase64MaybeDataURL(uri)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(img)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.view(appFrom(r).Snapshot()).History)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, appFrom(r).DeleteEntry(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, appFrom(r).ClearHistory(r.Context()))
}
