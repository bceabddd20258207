// Package export renders annotations as a CMX3600 edit decision list.
package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

// GenerateEDL lays the clips end to end on the record timeline.
func GenerateEDL(clips []Clip, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = int(DefaultFrameRate)
	}

	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", title)}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	// Timecodes are computed in frames so record in/out never drift from the source.
	record := 0
	for i, clip := range clips {
		in := toFrames(clip.Start, fps)
		out := toFrames(clip.End, fps)
		length := out - in

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, "AX", "V",
				framesToTimecode(in, fps), framesToTimecode(out, fps),
				framesToTimecode(record, fps), framesToTimecode(record+length, fps)),
			fmt.Sprintf("* FROM CLIP NAME:  %s", clip.Name),
			fmt.Sprintf("* MEDIA PATH:  %s", clip.MediaPath),
		)

		record += length
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

// WriteEDL renders clips into <dir>/<title>.edl, replacing any earlier export atomically.
func WriteEDL(dir, title string, clips []Clip, frameRate float64) (*Result, error) {
	if err := ValidateOutputDir(dir); err != nil {
		return nil, err
	}
	if len(clips) == 0 {
		return nil, fmt.Errorf("nothing to export: no annotations")
	}

	name := Filename(title)
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}
	edl := GenerateEDL(clips, strings.TrimSuffix(name, ".edl"), frameRate)

	outputPath := filepath.Join(dir, name)
	if err := atomic.WriteFile(outputPath, strings.NewReader(edl)); err != nil {
		return nil, fmt.Errorf("failed to write export file: %w", err)
	}
	if err := os.Chmod(outputPath, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write export file: %w", err)
	}

	return &Result{Format: "edl", OutputPath: outputPath, ClipCount: len(clips), FrameRate: frameRate}, nil
}

// Filename is the sanitized .edl file name for title.
func Filename(title string) string {
	name := SanitizeName(strings.TrimSuffix(title, filepath.Ext(title)), maxTitleLen)
	if name == "" {
		name = "annotations"
	}
	return name + ".edl"
}

func toFrames(seconds float64, fps int) int {
	return int(math.Round(seconds * float64(fps)))
}

func framesToTimecode(totalFrames int, fps int) string {
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}
