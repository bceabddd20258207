package reconcile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/heimdex/heimdex-annotator/internal/identity"
)

// VideoExtensions is the allow-list of video file extensions, matched case-insensitively.
var VideoExtensions = map[string]bool{
	".mp4": true,
	".avi": true,
	".mov": true,
	".mkv": true,
}

func IsVideoFile(filename string) bool {
	return VideoExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Eligible reports whether id may be listed, annotated and served from root:
// a resolved identity with a video extension strictly inside root.
// Both sides are symlink-resolved, so a link named clip.mp4 pointing at a
// non-video file or outside root is not eligible.
func Eligible(root, id identity.VideoIdentity) bool {
	if !id.Resolved() || !root.Resolved() || !IsVideoFile(id.String()) {
		return false
	}
	rel, err := filepath.Rel(root.String(), id.String())
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// Lister returns the file names directly inside dir.
type Lister interface {
	List(dir string) ([]string, error)
}

// DirLister lists a directory on the local filesystem without recursing.
type DirLister struct{}

func (DirLister) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Video is one video file found by a scan.
type Video struct {
	Identity identity.VideoIdentity
	Name     string
	Path     string
}

// Scan lists dir and returns its videos ordered by name. A file whose path
// cannot be normalized is skipped and logged, and the scan continues.
// Only names with a video extension whose identity is Eligible under dir are kept.
// Two names resolving to the same identity yield one Video, the first by name.
func (r *Reconciler) Scan(dir string) ([]Video, error) {
	root, err := r.normalizer.Normalize(dir)
	if err != nil {
		return nil, fmt.Errorf("list videos in %s: %w", dir, err)
	}
	names, err := r.lister.List(dir)
	if err != nil {
		return nil, fmt.Errorf("list videos in %s: %w", dir, err)
	}
	sort.Strings(names)

	seen := make(identity.Set, len(names))
	videos := make([]Video, 0, len(names))
	for _, name := range names {
		if !IsVideoFile(name) {
			continue
		}

		path := filepath.Join(dir, name)
		id, err := r.normalizer.Normalize(path)
		if err != nil {
			if r.logger != nil {
				r.logger.Warn("skipping inaccessible video", "path", path, "error", err)
			}
			continue
		}
		if !Eligible(root, id) {
			if r.logger != nil {
				r.logger.Debug("skipping link to a non-video or outside the videos directory", "path", path)
			}
			continue
		}
		if seen.Has(id) {
			continue
		}
		seen.Add(id)

		videos = append(videos, Video{Identity: id, Name: name, Path: path})
	}
	return videos, nil
}

// ScanVideos returns the identities of the videos in dir.
func (r *Reconciler) ScanVideos(dir string) (identity.Set, error) {
	videos, err := r.Scan(dir)
	if err != nil {
		return nil, err
	}
	set := make(identity.Set, len(videos))
	for _, v := range videos {
		set.Add(v.Identity)
	}
	return set, nil
}
