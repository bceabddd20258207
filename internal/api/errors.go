package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/heimdex/heimdex-annotator/internal/annotation"
	"github.com/heimdex/heimdex-annotator/internal/catalog"
	"github.com/heimdex/heimdex-annotator/internal/identity"
	"github.com/heimdex/heimdex-annotator/internal/playback"
	"github.com/heimdex/heimdex-annotator/internal/store"
)

// writeServiceError maps a domain error to its HTTP status and error code.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		pathErr  *identity.PathResolutionError
		rangeErr *annotation.InvalidRangeError
		indexErr *annotation.IndexOutOfRangeError
	)

	switch {
	case errors.As(err, &rangeErr):
		WriteError(w, http.StatusBadRequest, rangeErr.Error(), "INVALID_RANGE")
	case errors.As(err, &indexErr):
		WriteError(w, http.StatusNotFound, indexErr.Error(), "ANNOTATION_NOT_FOUND")
	case errors.As(err, &pathErr):
		WriteError(w, http.StatusNotFound, "video unavailable", "VIDEO_UNAVAILABLE")
	case errors.Is(err, catalog.ErrVideoNotFound), errors.Is(err, playback.ErrNotFound):
		WriteError(w, http.StatusNotFound, "video not found", "VIDEO_NOT_FOUND")
	case errors.Is(err, playback.ErrForbidden):
		WriteError(w, http.StatusForbidden, "video is outside the videos directory", "FORBIDDEN")
	case store.IsCorrupt(err):
		logger.Error("annotation store corrupt", "error", err)
		WriteError(w, http.StatusInternalServerError, "annotation store is corrupt", "STORE_CORRUPT")
	case store.IsPersist(err):
		logger.Error("annotation store write failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "failed to save annotations", "STORE_PERSIST_FAILED")
	default:
		logger.Error("request failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
