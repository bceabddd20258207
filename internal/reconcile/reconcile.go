// Package reconcile compares the annotation document with the videos on disk.
// It folds keys that are aliases of one video into a single canonical entry
// and reports entries whose video is gone. It never deletes annotations.
package reconcile

import (
	"log/slog"

	"github.com/heimdex/heimdex-annotator/internal/annotation"
	"github.com/heimdex/heimdex-annotator/internal/identity"
)

// MergeGroup lists the raw keys folded into one identity, excluding a key
// that already equalled the identity.
type MergeGroup struct {
	Identity identity.VideoIdentity `json:"identity"`
	Folded   []string               `json:"folded"`
}

// Rename is a lone raw key rewritten to its normalized form.
type Rename struct {
	From string                 `json:"from"`
	To   identity.VideoIdentity `json:"to"`
}

// Report describes what Reconcile changed.
type Report struct {
	// Merged only has identities that two or more raw keys contributed to.
	Merged []MergeGroup `json:"merged"`
	// Renamed has raw keys that alone mapped to a different identity string.
	Renamed []Rename `json:"renamed"`
	// Unresolved has raw keys kept verbatim because they could not be normalized.
	Unresolved []string `json:"unresolved"`
	// DuplicatesDropped counts exact duplicate ranges removed.
	DuplicatesDropped int `json:"duplicates_dropped"`
	KeysBefore        int `json:"keys_before"`
	KeysAfter         int `json:"keys_after"`
}

func (r Report) HasMerges() bool {
	return len(r.Merged) > 0
}

// Changed reports whether the reconciled document differs from its input.
func (r Report) Changed() bool {
	return len(r.Merged) > 0 || len(r.Renamed) > 0 || r.DuplicatesDropped > 0
}

type Reconciler struct {
	normalizer identity.Normalizer
	lister     Lister
	logger     *slog.Logger
}

func New(normalizer identity.Normalizer, lister Lister, logger *slog.Logger) *Reconciler {
	if lister == nil {
		lister = DirLister{}
	}
	return &Reconciler{normalizer: normalizer, lister: lister, logger: logger}
}

// Normalizer returns the normalizer used for document keys and scanned files.
func (r *Reconciler) Normalizer() identity.Normalizer {
	return r.normalizer
}

// Reconcile keys doc by identity. Lists of keys sharing an identity are
// concatenated in key encounter order and exact duplicates dropped, keeping
// the first occurrence. The result is not saved.
func (r *Reconciler) Reconcile(doc annotation.Document) (*annotation.Store, Report) {
	st := annotation.NewStore()
	report := Report{
		Merged:     []MergeGroup{},
		Renamed:    []Rename{},
		Unresolved: []string{},
		KeysBefore: doc.Len(),
	}
	contributors := make(map[identity.VideoIdentity][]string)

	for _, e := range doc.Entries() {
		id, err := r.normalizer.Normalize(e.Key)
		if err != nil {
			if r.logger != nil {
				r.logger.Warn("keeping unresolvable annotation key verbatim", "key", e.Key, "error", err)
			}
			id = identity.Unresolved(e.Key)
			report.Unresolved = append(report.Unresolved, e.Key)
		}

		combined := append(st.Get(id), e.Ranges...)
		merged := annotation.Dedupe(combined)
		report.DuplicatesDropped += len(combined) - len(merged)

		st.UpsertAll(id, merged)
		contributors[id] = append(contributors[id], e.Key)
	}

	for _, id := range st.Identities() {
		keys := contributors[id]
		if len(keys) >= 2 {
			group := MergeGroup{Identity: id, Folded: []string{}}
			for _, k := range keys {
				if k != id.String() {
					group.Folded = append(group.Folded, k)
				}
			}
			report.Merged = append(report.Merged, group)
			continue
		}
		if keys[0] != id.String() {
			report.Renamed = append(report.Renamed, Rename{From: keys[0], To: id})
		}
	}
	report.KeysAfter = st.Len()

	if r.logger != nil && report.Changed() {
		r.logger.Info("annotation keys reconciled",
			"keys_before", report.KeysBefore,
			"keys_after", report.KeysAfter,
			"merged", len(report.Merged),
			"renamed", len(report.Renamed),
			"duplicates_dropped", report.DuplicatesDropped,
		)
	}
	return st, report
}

// FindOrphans returns the identities annotated in st that are not in known,
// sorted. Nothing is removed.
func FindOrphans(st *annotation.Store, known identity.Set) []identity.VideoIdentity {
	orphans := identity.NewSet()
	for _, id := range st.Identities() {
		if !known.Has(id) {
			orphans.Add(id)
		}
	}
	return orphans.Sorted()
}
