package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-annotator/internal/catalog"
	"github.com/heimdex/heimdex-annotator/internal/identity"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(LoopbackOnly(cfg.Logger))
	r.Use(CORSAllowlist())

	r.Get("/health", healthHandler(cfg))

	r.Get("/videos", listVideosHandler(cfg))
	r.Route("/videos/{id}", func(r chi.Router) {
		r.Get("/", getVideoHandler(cfg))
		r.Get("/annotations", listAnnotationsHandler(cfg))
		r.Post("/annotations", addAnnotationHandler(cfg))
		r.Delete("/annotations/{index}", deleteAnnotationHandler(cfg))
		r.Get("/stream", streamHandler(cfg))
		r.Head("/stream", streamHandler(cfg))
		r.Get("/export.edl", exportEDLHandler(cfg))
	})

	r.Get("/orphans", orphansHandler(cfg))
	r.Post("/reconcile", reconcileHandler(cfg))
	r.Get("/journal", journalHandler(cfg))

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:    "ok",
			Version:   cfg.Version,
			UptimeS:   uptime,
			VideosDir: cfg.Service.VideosDir(),
		})
	}
}

// videoParam resolves the {id} token. It writes the error response itself
// and reports false when the token does not name a video.
func videoParam(cfg ServerConfig, w http.ResponseWriter, r *http.Request) (identity.VideoIdentity, bool) {
	id, err := cfg.Service.ResolveVideo(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, cfg.Logger, err)
		return identity.VideoIdentity{}, false
	}
	return id, true
}

func queryInt(r *http.Request, key string) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil
}

func listVideosHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, ok := queryInt(r, "page")
		if !ok {
			WriteError(w, http.StatusBadRequest, "page must be a number", "BAD_REQUEST")
			return
		}
		perPage, ok := queryInt(r, "per_page")
		if !ok {
			WriteError(w, http.StatusBadRequest, "per_page must be a number", "BAD_REQUEST")
			return
		}

		q := r.URL.Query()
		result, err := cfg.Service.ListVideos(r.Context(), catalog.ListOptions{
			Filter:  catalog.ParseFilter(q.Get("filter")),
			Query:   q.Get("q"),
			Page:    page,
			PerPage: perPage,
		})
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, result)
	}
}

func getVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := videoParam(cfg, w, r)
		if !ok {
			return
		}

		detail, err := cfg.Service.GetVideo(r.Context(), id)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, detail)
	}
}

func listAnnotationsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := videoParam(cfg, w, r)
		if !ok {
			return
		}

		ranges, err := cfg.Service.GetAnnotations(r.Context(), id)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, annotationsResponse(id, ranges))
	}
}

func addAnnotationHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := videoParam(cfg, w, r)
		if !ok {
			return
		}

		var req AddAnnotationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.StartTime == nil || req.EndTime == nil {
			WriteError(w, http.StatusBadRequest, "start_time and end_time are required", "BAD_REQUEST")
			return
		}

		ranges, err := cfg.Service.AddAnnotation(r.Context(), id, *req.StartTime, *req.EndTime)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusCreated, annotationsResponse(id, ranges))
	}
}

func deleteAnnotationHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := videoParam(cfg, w, r)
		if !ok {
			return
		}

		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			WriteError(w, http.StatusBadRequest, "index must be a number", "BAD_REQUEST")
			return
		}

		ranges, err := cfg.Service.DeleteAnnotation(r.Context(), id, index)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, annotationsResponse(id, ranges))
	}
}

func streamHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := videoParam(cfg, w, r)
		if !ok {
			return
		}

		if err := cfg.Playback.ServeVideo(w, r, id); err != nil {
			writeServiceError(w, cfg.Logger, err)
		}
	}
}

func orphansHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orphans, err := cfg.Service.Orphans(r.Context())
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, OrphansResponse{Orphans: orphans})
	}
}

func reconcileHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apply := false
		if raw := r.URL.Query().Get("apply"); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				WriteError(w, http.StatusBadRequest, "apply must be a boolean", "BAD_REQUEST")
				return
			}
			apply = v
		}

		result, err := cfg.Service.Reconcile(r.Context(), apply)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, result)
	}
}

func journalHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := queryInt(r, "limit")
		if !ok {
			WriteError(w, http.StatusBadRequest, "limit must be a number", "BAD_REQUEST")
			return
		}

		video := ""
		if token := r.URL.Query().Get("video"); token != "" {
			id, err := cfg.Service.ResolveVideo(token)
			if err != nil {
				writeServiceError(w, cfg.Logger, err)
				return
			}
			video = id.String()
		}

		entries, err := cfg.Service.Journal(r.Context(), video, limit)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, JournalResponse{Entries: entries})
	}
}
