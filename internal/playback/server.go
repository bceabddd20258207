// Package playback streams video files to the browser with HTTP Range support.
// Only files inside the videos directory with a video extension are served.
package playback

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/heimdex/heimdex-annotator/internal/identity"
	"github.com/heimdex/heimdex-annotator/internal/reconcile"
)

var (
	ErrNotFound  = errors.New("video not found")
	ErrForbidden = errors.New("video outside the videos directory")
)

type PlaybackService interface {
	ServeVideo(w http.ResponseWriter, r *http.Request, id identity.VideoIdentity) error
}

type Server struct {
	root   identity.VideoIdentity
	logger *slog.Logger
}

// NewServer serves videos under root. Root is normalized so that symlinked
// video directories compare equal to the identities inside them.
func NewServer(root string, logger *slog.Logger) (*Server, error) {
	id, err := identity.Normalize(root)
	if err != nil {
		return nil, fmt.Errorf("videos directory: %w", err)
	}
	return &Server{root: id, logger: logger}, nil
}

// Allowed reports whether id may be served: a resolved identity of a video file under root.
func (s *Server) Allowed(id identity.VideoIdentity) bool {
	return reconcile.Eligible(s.root, id)
}

// ServeVideo writes the video body, or the requested byte range of it.
// ErrForbidden and ErrNotFound are returned before anything is written.
func (s *Server) ServeVideo(w http.ResponseWriter, r *http.Request, id identity.VideoIdentity) error {
	if !s.Allowed(id) {
		return ErrForbidden
	}

	file, err := os.Open(id.String())
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.IsDir() {
		return ErrNotFound
	}

	size := stat.Size()
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(id.String())))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)

	br, err := ParseRange(r.Header.Get("Range"), size)
	if errors.Is(err, ErrUnsatisfiable) {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	}

	if br == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			s.copy(w, file, size, id)
		}
		return nil
	}

	w.Header().Set("Content-Length", strconv.FormatInt(br.Length(), 10))
	w.Header().Set("Content-Range", br.ContentRange(size))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method == http.MethodHead {
		return nil
	}

	if _, err := file.Seek(br.First, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	s.copy(w, file, br.Length(), id)
	return nil
}

// copy streams n bytes. Errors here are almost always the client going away.
func (s *Server) copy(w io.Writer, r io.Reader, n int64, id identity.VideoIdentity) {
	if _, err := io.CopyN(w, r, n); err != nil && s.logger != nil {
		s.logger.Debug("video stream ended early", "video", id.Name(), "error", err)
	}
}
