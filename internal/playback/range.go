package playback

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidRange  = errors.New("invalid range format")
	ErrUnsatisfiable = errors.New("range not satisfiable")
)

// ByteRange is an inclusive span of bytes within a video file.
type ByteRange struct {
	First int64
	Last  int64
}

func (b ByteRange) Length() int64 {
	return b.Last - b.First + 1
}

// ContentRange renders the Content-Range header value for a file of size bytes.
func (b ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", b.First, b.Last, size)
}

// ParseRange parses a Range header against a file of size bytes. Only the
// first span of a multi-span request is honoured. An empty header yields nil.
// A malformed header yields ErrInvalidRange, which callers treat as absent.
func ParseRange(header string, size int64) (*ByteRange, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, nil
	}

	ranges, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, ErrInvalidRange
	}
	ranges, _, _ = strings.Cut(ranges, ",")
	startStr, endStr, ok := strings.Cut(strings.TrimSpace(ranges), "-")
	if !ok {
		return nil, ErrInvalidRange
	}

	var br ByteRange
	switch {
	case startStr == "":
		// bytes=-N is the last N bytes
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return nil, ErrInvalidRange
		}
		br = ByteRange{First: max(size-n, 0), Last: size - 1}

	default:
		first, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil || first < 0 {
			return nil, ErrInvalidRange
		}
		last := size - 1
		if endStr != "" {
			last, err = strconv.ParseInt(endStr, 10, 64)
			if err != nil {
				return nil, ErrInvalidRange
			}
		}
		br = ByteRange{First: first, Last: last}
	}

	if size == 0 || br.First > br.Last || br.First >= size {
		return nil, ErrUnsatisfiable
	}
	br.Last = min(br.Last, size-1)
	return &br, nil
}
