package api

import (
	"github.com/heimdex/heimdex-annotator/internal/annotation"
	"github.com/heimdex/heimdex-annotator/internal/catalog"
	"github.com/heimdex/heimdex-annotator/internal/identity"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	UptimeS   int64  `json:"uptime_s"`
	VideosDir string `json:"videos_dir"`
}

// AddAnnotationRequest uses pointers so a missing field is told apart from zero.
type AddAnnotationRequest struct {
	StartTime *float64 `json:"start_time"`
	EndTime   *float64 `json:"end_time"`
}

type AnnotationsResponse struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Annotations []annotation.Range `json:"annotations"`
}

type OrphansResponse struct {
	Orphans []catalog.VideoSummary `json:"orphans"`
}

type JournalResponse struct {
	Entries []*catalog.JournalEntry `json:"entries"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func annotationsResponse(id identity.VideoIdentity, ranges []annotation.Range) AnnotationsResponse {
	if ranges == nil {
		ranges = []annotation.Range{}
	}
	return AnnotationsResponse{
		ID:          identity.Encode(id),
		Name:        id.Name(),
		Annotations: ranges,
	}
}
