// Package identity canonicalizes filesystem paths into stable video identities.
// An identity is the only key the annotation store accepts, so two paths that
// reach the same file (relative forms, redundant separators, symlinks) must
// produce the same identity.
package identity

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// maxLinkHops bounds manual symlink chasing for paths whose final target is missing.
const maxLinkHops = 255

var (
	errEmptyPath    = errors.New("empty path")
	errTooManyLinks = errors.New("too many levels of symbolic links")
)

// PathResolutionError reports a path that could not be canonicalized.
// Callers treat the video as inaccessible rather than failing a whole batch.
type PathResolutionError struct {
	Path string
	Err  error
}

func (e *PathResolutionError) Error() string {
	return fmt.Sprintf("resolve path %q: %v", e.Path, e.Err)
}

func (e *PathResolutionError) Unwrap() error { return e.Err }

// IsPathResolution reports whether err is a PathResolutionError.
func IsPathResolution(err error) bool {
	var e *PathResolutionError
	return errors.As(err, &e)
}

// VideoIdentity is the canonical key of a video. The zero value is not a valid identity.
type VideoIdentity struct {
	value      string
	unresolved bool
}

// Unresolved wraps a raw legacy key that could not be normalized so it can be
// carried through a store verbatim instead of being dropped.
func Unresolved(raw string) VideoIdentity {
	return VideoIdentity{value: raw, unresolved: true}
}

func (id VideoIdentity) String() string { return id.value }

// Resolved is false for identities created by Unresolved.
func (id VideoIdentity) Resolved() bool { return !id.unresolved }

// MarshalText encodes the identity as its path. Identities are only built by
// normalization, so there is no UnmarshalText.
func (id VideoIdentity) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

// Name returns the file name component.
func (id VideoIdentity) Name() string {
	if id.value == "" {
		return ""
	}
	return filepath.Base(id.value)
}

// Normalizer resolves relative paths against Base. An empty Base means the
// process working directory at call time.
type Normalizer struct {
	Base string
}

// Normalize canonicalizes rawPath relative to the working directory.
func Normalize(rawPath string) (VideoIdentity, error) {
	return Normalizer{}.Normalize(rawPath)
}

// Normalize returns the absolute, symlink-resolved, cleaned form of rawPath.
// A missing tail is tolerated: the longest existing prefix is resolved and the
// remainder appended, so a deleted video still maps to the key it was stored under.
func (n Normalizer) Normalize(rawPath string) (VideoIdentity, error) {
	if strings.TrimSpace(rawPath) == "" {
		return VideoIdentity{}, &PathResolutionError{Path: rawPath, Err: errEmptyPath}
	}

	p := rawPath
	if !filepath.IsAbs(p) {
		base, err := n.base()
		if err != nil {
			return VideoIdentity{}, &PathResolutionError{Path: rawPath, Err: err}
		}
		p = base + string(filepath.Separator) + p
	}

	resolved, err := resolve(p, 0)
	if err != nil {
		return VideoIdentity{}, &PathResolutionError{Path: rawPath, Err: err}
	}
	return VideoIdentity{value: resolved}, nil
}

func (n Normalizer) base() (string, error) {
	if n.Base == "" {
		return os.Getwd()
	}
	return filepath.Abs(n.Base)
}

func resolve(p string, hops int) (string, error) {
	if hops > maxLinkHops {
		return "", errTooManyLinks
	}

	resolved, err := filepath.EvalSymlinks(p)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	p = filepath.Clean(p)

	// Dangling symlink: follow it by hand so the key names its target.
	if fi, lerr := os.Lstat(p); lerr == nil && fi.Mode()&fs.ModeSymlink != 0 {
		target, rerr := os.Readlink(p)
		if rerr != nil {
			return "", rerr
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(p), target)
		}
		return resolve(target, hops+1)
	}

	parent := filepath.Dir(p)
	if parent == p {
		return p, nil
	}
	head, err := resolve(parent, hops)
	if err != nil {
		return "", err
	}
	return filepath.Join(head, filepath.Base(p)), nil
}

// Set is an unordered collection of identities.
type Set map[VideoIdentity]struct{}

func NewSet(ids ...VideoIdentity) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s Set) Add(id VideoIdentity) { s[id] = struct{}{} }

func (s Set) Has(id VideoIdentity) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members ordered by their string form.
func (s Set) Sorted() []VideoIdentity {
	out := make([]VideoIdentity, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].value < out[j].value })
	return out
}
