package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/heimdex/heimdex-annotator/internal/annotation"
	"github.com/heimdex/heimdex-annotator/internal/identity"
)

func TestGenerateEDL_SingleClip(t *testing.T) {
	clips := []Clip{{Name: "Intro", MediaPath: "/media/intro.mp4", Start: 0, End: 2}}

	edl := GenerateEDL(clips, "Project One", 30.0)

	for _, want := range []string{
		"TITLE: Project One",
		"FCM: NON-DROP FRAME",
		"001  AX       V     C        00:00:00:00 00:00:02:00 00:00:00:00 00:00:02:00",
		"* FROM CLIP NAME:  Intro",
		"* MEDIA PATH:  /media/intro.mp4",
	} {
		if !strings.Contains(edl, want) {
			t.Fatalf("EDL missing %q:\n%s", want, edl)
		}
	}
}

func TestGenerateEDL_RecordTimelineAccumulates(t *testing.T) {
	clips := []Clip{
		{Name: "A", MediaPath: "/v.mp4", Start: 10, End: 11},
		{Name: "B", MediaPath: "/v.mp4", Start: 60.5, End: 62},
	}

	edl := GenerateEDL(clips, "Multi", 30.0)

	if !strings.Contains(edl, "001  AX       V     C        00:00:10:00 00:00:11:00 00:00:00:00 00:00:01:00") {
		t.Fatalf("first event line mismatch:\n%s", edl)
	}
	if !strings.Contains(edl, "002  AX       V     C        00:01:00:15 00:01:02:00 00:00:01:00 00:00:02:15") {
		t.Fatalf("second event line mismatch or bad record offset:\n%s", edl)
	}
}

func TestGenerateEDL_DropFrame(t *testing.T) {
	edl := GenerateEDL([]Clip{{Name: "Clip", MediaPath: "/x.mp4", Start: 0, End: 1}}, "Drop", 29.97)
	if !strings.Contains(edl, "FCM: DROP FRAME") {
		t.Fatalf("expected drop frame FCM, got: %q", edl)
	}
}

func TestFramesToTimecode(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		fps     int
		want    string
	}{
		{name: "zero", seconds: 0, fps: 30, want: "00:00:00:00"},
		{name: "one second", seconds: 1, fps: 30, want: "00:00:01:00"},
		{name: "half second", seconds: 0.5, fps: 30, want: "00:00:00:15"},
		{name: "one minute", seconds: 60, fps: 25, want: "00:01:00:00"},
		{name: "one hour", seconds: 3600, fps: 30, want: "01:00:00:00"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := framesToTimecode(toFrames(tc.seconds, tc.fps), tc.fps)
			if got != tc.want {
				t.Fatalf("timecode(%v, %d) = %q, want %q", tc.seconds, tc.fps, got, tc.want)
			}
		})
	}
}

func TestClipsFromAnnotations(t *testing.T) {
	id, err := identity.Normalize(filepath.Join(t.TempDir(), "match day.mp4"))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	clips := ClipsFromAnnotations(id, []annotation.Range{{Start: 1, End: 2}, {Start: 5, End: 8}})
	if len(clips) != 2 {
		t.Fatalf("len(clips) = %d, want 2", len(clips))
	}
	if clips[1].Name != "match day.mp4 #2" || clips[1].MediaPath != id.String() || clips[1].Start != 5 {
		t.Errorf("clips[1] = %+v", clips[1])
	}
}

func TestWriteEDL(t *testing.T) {
	dir := t.TempDir()
	clips := []Clip{{Name: "A", MediaPath: "/v.mp4", Start: 0, End: 1}}

	res, err := WriteEDL(dir, "match day.mp4", clips, 0)
	if err != nil {
		t.Fatalf("WriteEDL() error = %v", err)
	}
	if res.OutputPath != filepath.Join(dir, "match day.edl") || res.ClipCount != 1 || res.FrameRate != DefaultFrameRate {
		t.Errorf("WriteEDL() = %+v", res)
	}
	data, err := os.ReadFile(res.OutputPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.HasPrefix(string(data), "TITLE: match day\n") {
		t.Errorf("export = %q", data)
	}

	if _, err := WriteEDL(dir, "empty", nil, 30); err == nil {
		t.Error("WriteEDL() with no clips expected error")
	}
	if _, err := WriteEDL(filepath.Join(dir, "missing"), "x", clips, 30); err == nil {
		t.Error("WriteEDL() into missing dir expected error")
	}
}
