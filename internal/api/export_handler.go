package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/heimdex/heimdex-annotator/internal/export"
)

// exportEDLHandler returns the video's annotations as an EDL attachment.
func exportEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := videoParam(cfg, w, r)
		if !ok {
			return
		}

		frameRate := export.DefaultFrameRate
		if raw := r.URL.Query().Get("fps"); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || !validFrameRate(v) {
				WriteError(w, http.StatusBadRequest, "fps must be a positive number", "BAD_REQUEST")
				return
			}
			frameRate = v
		}

		ranges, err := cfg.Service.GetAnnotations(r.Context(), id)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		if len(ranges) == 0 {
			WriteError(w, http.StatusUnprocessableEntity, "video has no annotations to export", "NOTHING_TO_EXPORT")
			return
		}

		filename := export.Filename(id.Name())
		edl := export.GenerateEDL(export.ClipsFromAnnotations(id, ranges), filename[:len(filename)-len(".edl")], frameRate)

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(filename)))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(edl))
	}
}

func validFrameRate(fps float64) bool {
	return fps > 0 && fps <= export.MaxFrameRate
}
