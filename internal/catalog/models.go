package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/heimdex/heimdex-annotator/internal/annotation"
)

// FilterMode selects which videos the index lists.
type FilterMode string

const (
	FilterAll          FilterMode = "all"
	FilterAnnotated    FilterMode = "annotated"
	FilterNotAnnotated FilterMode = "not_annotated"
)

// ParseFilter maps unknown values to FilterAll.
func ParseFilter(s string) FilterMode {
	switch FilterMode(s) {
	case FilterAnnotated, FilterNotAnnotated:
		return FilterMode(s)
	default:
		return FilterAll
	}
}

// VideoSummary is one row of the video index.
type VideoSummary struct {
	ID              string `json:"id"`
	Path            string `json:"path"`
	Name            string `json:"name"`
	AnnotationCount int    `json:"annotation_count"`
	IsAnnotated     bool   `json:"is_annotated"`
}

// VideoPage is one page of the filtered, sorted video index.
type VideoPage struct {
	Videos    []VideoSummary `json:"videos"`
	Total     int            `json:"total"`
	Displayed int            `json:"displayed"`
	Page      int            `json:"page"`
	PerPage   int            `json:"per_page"`
	Pages     int            `json:"pages"`
	Filter    FilterMode     `json:"filter"`
	Query     string         `json:"query,omitempty"`
}

// VideoDetail is a single video with its annotations.
type VideoDetail struct {
	VideoSummary
	Annotations []annotation.Range `json:"annotations"`
}

const (
	ActionAdd       = "add"
	ActionDelete    = "delete"
	ActionReconcile = "reconcile"
)

// JournalEntry records one mutation of the annotation store.
type JournalEntry struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Video     string    `json:"video,omitempty"`
	Start     *float64  `json:"start_time,omitempty"`
	End       *float64  `json:"end_time,omitempty"`
	Position  *int      `json:"index,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ReconcileRun records one reconcile invocation.
type ReconcileRun struct {
	ID                string    `json:"id"`
	Applied           bool      `json:"applied"`
	KeysBefore        int       `json:"keys_before"`
	KeysAfter         int       `json:"keys_after"`
	Merged            int       `json:"merged"`
	Renamed           int       `json:"renamed"`
	DuplicatesDropped int       `json:"duplicates_dropped"`
	BackupPath        string    `json:"backup_path,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

func NewID() string {
	return uuid.New().String()
}
