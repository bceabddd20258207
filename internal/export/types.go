package export

import (
	"fmt"

	"github.com/heimdex/heimdex-annotator/internal/annotation"
	"github.com/heimdex/heimdex-annotator/internal/identity"
)

const (
	DefaultFrameRate = 30.0
	MaxFrameRate     = 240.0
	maxTitleLen      = 120
	maxClipNameLen   = 160
)

// Clip is one EDL event: a span of a source video in seconds.
type Clip struct {
	Name      string
	MediaPath string
	Start     float64
	End       float64
}

// Result describes a written EDL file.
type Result struct {
	Format     string  `json:"format"`
	OutputPath string  `json:"output_path"`
	ClipCount  int     `json:"clip_count"`
	FrameRate  float64 `json:"frame_rate"`
}

// ClipsFromAnnotations turns each annotation of a video into one clip named
// after the video and its position.
func ClipsFromAnnotations(id identity.VideoIdentity, ranges []annotation.Range) []Clip {
	base := SanitizeName(id.Name(), maxClipNameLen-8)
	clips := make([]Clip, 0, len(ranges))
	for i, r := range ranges {
		clips = append(clips, Clip{
			Name:      fmt.Sprintf("%s #%d", base, i+1),
			MediaPath: id.String(),
			Start:     r.Start,
			End:       r.End,
		})
	}
	return clips
}
