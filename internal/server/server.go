package server

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/url"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"wedstrijd-bot/internal/config"
	"wedstrijd-bot/internal/models"
	"wedstrijd-bot/internal/roster"
	"wedstrijd-bot/internal/store"
	"wedstrijd-bot/internal/util"
)

// Competitions is the read side of roster.Service.
type Competitions interface {
	Get(id string) (models.Competition, error)
	List() ([]string, error)
}

func New(cfg config.Config, comps Competitions) *http.Server {
	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: Router(cfg.ExportSecret, comps),
	}
}

func Router(secret string, comps Competitions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"ts": util.NowISO(),
		})
	})

	// CSV export, link signed with HMAC of "export:<id>"
	r.Get("/competitions/{id}/export.csv", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "token required", http.StatusBadRequest)
			return
		}
		if !util.ValidExportToken(secret, id, token) {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}
		ids, err := comps.List()
		if err != nil {
			logrus.WithError(err).Error("export: list competitions")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if !slices.Contains(ids, id) {
			http.Error(w, "competition not found", http.StatusNotFound)
			return
		}
		c, err := comps.Get(id)
		if errors.Is(err, store.ErrInvalidID) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			logrus.WithError(err).WithField("competition", id).Error("export: load competition")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": id + ".csv"}))
		if err := roster.WriteCSV(w, c.Participants); err != nil {
			logrus.WithError(err).WithField("competition", id).Error("export: write csv")
		}
	})

	return r
}

// ExportURL is the signed download link for competition id.
func ExportURL(cfg config.Config, id string) string {
	base := cfg.BasePublicURL
	if base == "" {
		base = "http://localhost" + cfg.HTTPAddr
	}
	return base + "/competitions/" + url.PathEscape(id) + "/export.csv?token=" + util.ExportToken(cfg.ExportSecret, id)
}
