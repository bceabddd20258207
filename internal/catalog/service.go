// Package catalog is the application service behind the HTTP API and the CLI.
// It joins the videos on disk with the annotation store and records every
// mutation in the journal.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/heimdex/heimdex-annotator/internal/annotation"
	"github.com/heimdex/heimdex-annotator/internal/identity"
	"github.com/heimdex/heimdex-annotator/internal/reconcile"
	"github.com/heimdex/heimdex-annotator/internal/store"
)

const (
	DefaultPerPage = 24
	MaxPerPage     = 200
)

// ErrVideoNotFound is returned for a well-formed identity with no video file behind it.
var ErrVideoNotFound = errors.New("video not found")

type AnnotationService interface {
	VideosDir() string
	ResolveVideo(token string) (identity.VideoIdentity, error)
	ListVideos(ctx context.Context, opts ListOptions) (*VideoPage, error)
	GetVideo(ctx context.Context, id identity.VideoIdentity) (*VideoDetail, error)
	GetAnnotations(ctx context.Context, id identity.VideoIdentity) ([]annotation.Range, error)
	AddAnnotation(ctx context.Context, id identity.VideoIdentity, start, end float64) ([]annotation.Range, error)
	DeleteAnnotation(ctx context.Context, id identity.VideoIdentity, index int) ([]annotation.Range, error)
	Reconcile(ctx context.Context, apply bool) (*ReconcileResult, error)
	Orphans(ctx context.Context) ([]VideoSummary, error)
	Journal(ctx context.Context, video string, limit int) ([]*JournalEntry, error)
}

// ListOptions selects a page of the video index.
type ListOptions struct {
	Filter  FilterMode
	Query   string
	Page    int
	PerPage int
}

// ReconcileResult is a reconcile report plus what happened to the document.
type ReconcileResult struct {
	Report     reconcile.Report `json:"report"`
	Applied    bool             `json:"applied"`
	Saved      bool             `json:"saved"`
	BackupPath string           `json:"backup_path,omitempty"`
	RunID      string           `json:"run_id,omitempty"`
}

type Service struct {
	store          *store.FileStore
	reconciler     *reconcile.Reconciler
	repo           Repository
	videosDir      string
	defaultPerPage int
	logger         *slog.Logger
}

// Options configures a Service. Repo may be nil to run without a journal.
type Options struct {
	Store      *store.FileStore
	Reconciler *reconcile.Reconciler
	Repo       Repository
	VideosDir  string
	PerPage    int
	Logger     *slog.Logger
}

func NewService(opts Options) *Service {
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return &Service{
		store:          opts.Store,
		reconciler:     opts.Reconciler,
		repo:           opts.Repo,
		videosDir:      opts.VideosDir,
		defaultPerPage: perPage,
		logger:         opts.Logger,
	}
}

func (s *Service) VideosDir() string {
	return s.videosDir
}

// ResolveVideo turns a transport token into an identity.
func (s *Service) ResolveVideo(token string) (identity.VideoIdentity, error) {
	return s.reconciler.Normalizer().Resolve(token)
}

// snapshot loads the document and reconciles it in memory. Nothing is written.
func (s *Service) snapshot() (*annotation.Store, reconcile.Report, error) {
	doc, err := s.store.Load()
	if err != nil {
		return nil, reconcile.Report{}, err
	}
	st, report := s.reconciler.Reconcile(doc)
	return st, report, nil
}

// ListVideos scans the videos directory and returns one page of the index:
// annotated videos first, then by case-folded name.
func (s *Service) ListVideos(ctx context.Context, opts ListOptions) (*VideoPage, error) {
	videos, err := s.reconciler.Scan(s.videosDir)
	if err != nil {
		return nil, err
	}
	st, _, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	fold := cases.Fold()
	query := fold.String(strings.TrimSpace(opts.Query))
	filter := ParseFilter(string(opts.Filter))

	type row struct {
		summary VideoSummary
		key     string
	}
	rows := make([]row, 0, len(videos))
	for _, v := range videos {
		summary := summarize(v.Identity, v.Path, v.Name, st.Count(v.Identity))
		switch {
		case filter == FilterAnnotated && !summary.IsAnnotated:
			continue
		case filter == FilterNotAnnotated && summary.IsAnnotated:
			continue
		}
		key := fold.String(v.Name)
		if query != "" && !strings.Contains(key, query) {
			continue
		}
		rows = append(rows, row{summary: summary, key: key})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].summary.IsAnnotated != rows[j].summary.IsAnnotated {
			return rows[i].summary.IsAnnotated
		}
		return rows[i].key < rows[j].key
	})

	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = s.defaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	pages := (len(rows) + perPage - 1) / perPage
	if pages < 1 {
		pages = 1
	}
	page := opts.Page
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	lo := (page - 1) * perPage
	hi := lo + perPage
	if hi > len(rows) {
		hi = len(rows)
	}
	out := make([]VideoSummary, 0, hi-lo)
	for _, r := range rows[lo:hi] {
		out = append(out, r.summary)
	}

	return &VideoPage{
		Videos:    out,
		Total:     len(videos),
		Displayed: len(rows),
		Page:      page,
		PerPage:   perPage,
		Pages:     pages,
		Filter:    filter,
		Query:     strings.TrimSpace(opts.Query),
	}, nil
}

// GetVideo returns the video with its annotations. The file must exist.
func (s *Service) GetVideo(ctx context.Context, id identity.VideoIdentity) (*VideoDetail, error) {
	if err := s.requireVideo(id); err != nil {
		return nil, err
	}
	ranges, err := s.GetAnnotations(ctx, id)
	if err != nil {
		return nil, err
	}
	return &VideoDetail{
		VideoSummary: summarize(id, id.String(), id.Name(), len(ranges)),
		Annotations:  ranges,
	}, nil
}

// GetAnnotations returns the annotations of id, folding in any legacy keys
// that resolve to it. A video without annotations yields an empty list.
func (s *Service) GetAnnotations(ctx context.Context, id identity.VideoIdentity) ([]annotation.Range, error) {
	st, _, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return st.Get(id), nil
}

// AddAnnotation appends [start, end) to the video's list and persists it.
func (s *Service) AddAnnotation(ctx context.Context, id identity.VideoIdentity, start, end float64) ([]annotation.Range, error) {
	if err := s.requireVideo(id); err != nil {
		return nil, err
	}
	ranges, err := s.mutateVideo(ctx, id, func(st *annotation.Store) ([]annotation.Range, error) {
		return annotation.Add(st, id, start, end)
	})
	if err != nil {
		return nil, err
	}

	s.journal(ctx, &JournalEntry{Action: ActionAdd, Video: id.String(), Start: &start, End: &end})
	if s.logger != nil {
		s.logger.Info("annotation added", "video", id.Name(), "start_time", start, "end_time", end, "count", len(ranges))
	}
	return ranges, nil
}

// DeleteAnnotation removes the annotation at index. Annotations of a video
// that no longer exists on disk can still be deleted.
func (s *Service) DeleteAnnotation(ctx context.Context, id identity.VideoIdentity, index int) ([]annotation.Range, error) {
	var removed annotation.Range
	ranges, err := s.mutateVideo(ctx, id, func(st *annotation.Store) ([]annotation.Range, error) {
		if list := st.Get(id); index >= 0 && index < len(list) {
			removed = list[index]
		}
		return annotation.Delete(st, id, index)
	})
	if err != nil {
		return nil, err
	}

	s.journal(ctx, &JournalEntry{Action: ActionDelete, Video: id.String(), Start: &removed.Start, End: &removed.End, Position: &index})
	if s.logger != nil {
		s.logger.Info("annotation deleted", "video", id.Name(), "index", index, "count", len(ranges))
	}
	return ranges, nil
}

// mutateVideo applies op to the reconciled view of id inside the store's
// critical section. Only keys resolving to id are rewritten; they collapse
// into one canonical key at the position of the first of them.
func (s *Service) mutateVideo(ctx context.Context, id identity.VideoIdentity, op func(*annotation.Store) ([]annotation.Range, error)) ([]annotation.Range, error) {
	var result []annotation.Range
	err := s.store.Mutate(ctx, func(doc annotation.Document) (annotation.Document, bool, error) {
		st, _ := s.reconciler.Reconcile(doc)
		list, err := op(st)
		if err != nil {
			return doc, false, err
		}
		result = list
		return s.replaceVideo(doc, id, st.Get(id), st.Has(id)), true, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// replaceVideo writes ranges under the canonical key of id. With keep false
// every key of id is removed.
func (s *Service) replaceVideo(doc annotation.Document, id identity.VideoIdentity, ranges []annotation.Range, keep bool) annotation.Document {
	var next annotation.Document
	placed := false
	for _, e := range doc.Entries() {
		if s.keyIdentity(e.Key) != id {
			next.Set(e.Key, e.Ranges)
			continue
		}
		if !placed && keep {
			next.Set(id.String(), ranges)
		}
		placed = true
	}
	if !placed && keep {
		next.Set(id.String(), ranges)
	}
	return next
}

func (s *Service) keyIdentity(key string) identity.VideoIdentity {
	id, err := s.reconciler.Normalizer().Normalize(key)
	if err != nil {
		return identity.Unresolved(key)
	}
	return id
}

// Reconcile folds every legacy key into its canonical identity. With apply
// unset it only reports. With apply set it writes a backup of the current
// document and saves the reconciled one, but only when something changed.
func (s *Service) Reconcile(ctx context.Context, apply bool) (*ReconcileResult, error) {
	result := &ReconcileResult{Applied: apply}

	if !apply {
		_, report, err := s.snapshot()
		if err != nil {
			return nil, err
		}
		result.Report = report
	} else {
		err := s.store.Mutate(ctx, func(doc annotation.Document) (annotation.Document, bool, error) {
			st, report := s.reconciler.Reconcile(doc)
			result.Report = report
			if !report.Changed() {
				return doc, false, nil
			}
			backup, err := s.store.Backup(doc)
			if err != nil {
				return doc, false, err
			}
			result.BackupPath = backup
			result.Saved = true
			return st.Document(), true, nil
		})
		if err != nil {
			return nil, err
		}
	}

	result.RunID = s.recordRun(ctx, result)
	if result.Saved {
		s.journal(ctx, &JournalEntry{
			Action: ActionReconcile,
			Detail: fmt.Sprintf("keys %d -> %d, %d merged, %d renamed, %d duplicates dropped",
				result.Report.KeysBefore, result.Report.KeysAfter, len(result.Report.Merged),
				len(result.Report.Renamed), result.Report.DuplicatesDropped),
		})
	}
	return result, nil
}

// Orphans lists annotated videos whose file is not in the videos directory.
func (s *Service) Orphans(ctx context.Context) ([]VideoSummary, error) {
	known, err := s.reconciler.ScanVideos(s.videosDir)
	if err != nil {
		return nil, err
	}
	st, _, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	orphans := reconcile.FindOrphans(st, known)
	out := make([]VideoSummary, 0, len(orphans))
	for _, id := range orphans {
		out = append(out, summarize(id, id.String(), id.Name(), st.Count(id)))
	}
	return out, nil
}

// Journal returns recent mutations, newest first. It is empty without a repository.
func (s *Service) Journal(ctx context.Context, video string, limit int) ([]*JournalEntry, error) {
	if s.repo == nil {
		return []*JournalEntry{}, nil
	}
	if limit <= 0 || limit > MaxPerPage {
		limit = MaxPerPage
	}
	return s.repo.ListJournal(ctx, video, limit)
}

// requireVideo applies the same eligibility rule as the scan, so every listed
// video can be opened and annotated and nothing outside the videos directory can.
func (s *Service) requireVideo(id identity.VideoIdentity) error {
	root, err := s.reconciler.Normalizer().Normalize(s.videosDir)
	if err != nil || !reconcile.Eligible(root, id) {
		return fmt.Errorf("%w: %s", ErrVideoNotFound, id.Name())
	}
	info, err := os.Stat(id.String())
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s", ErrVideoNotFound, id.Name())
	}
	return nil
}

// journal records e. The store already holds the change, so a failure is logged only.
func (s *Service) journal(ctx context.Context, e *JournalEntry) {
	if s.repo == nil {
		return
	}
	e.ID = NewID()
	e.CreatedAt = time.Now()
	if err := s.repo.AppendJournal(ctx, e); err != nil && s.logger != nil {
		s.logger.Warn("failed to append journal entry", "action", e.Action, "error", err)
	}
}

func (s *Service) recordRun(ctx context.Context, result *ReconcileResult) string {
	if s.repo == nil {
		return ""
	}
	run := &ReconcileRun{
		ID:                NewID(),
		Applied:           result.Applied,
		KeysBefore:        result.Report.KeysBefore,
		KeysAfter:         result.Report.KeysAfter,
		Merged:            len(result.Report.Merged),
		Renamed:           len(result.Report.Renamed),
		DuplicatesDropped: result.Report.DuplicatesDropped,
		BackupPath:        result.BackupPath,
		CreatedAt:         time.Now(),
	}
	if err := s.repo.CreateReconcileRun(ctx, run); err != nil {
		if s.logger != nil {
			s.logger.Warn("failed to record reconcile run", "error", err)
		}
		return ""
	}
	return run.ID
}

func summarize(id identity.VideoIdentity, path, name string, count int) VideoSummary {
	return VideoSummary{
		ID:              identity.Encode(id),
		Path:            path,
		Name:            name,
		AnnotationCount: count,
		IsAnnotated:     count > 0,
	}
}
