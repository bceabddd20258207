package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/heimdex/heimdex-annotator/internal/catalog"
	"github.com/heimdex/heimdex-annotator/internal/config"
	"github.com/heimdex/heimdex-annotator/internal/export"
)

type testEnv struct {
	dataDir   string
	videosDir string
}

func setupEnv(t *testing.T, videos ...string) testEnv {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("EvalSymlinks() error = %v", err)
	}
	env := testEnv{
		dataDir:   filepath.Join(root, "data"),
		videosDir: filepath.Join(root, "videos"),
	}
	if err := os.MkdirAll(env.videosDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, v := range videos {
		if err := os.WriteFile(filepath.Join(env.videosDir, v), []byte("video"), 0o644); err != nil {
			t.Fatalf("write %s: %v", v, err)
		}
	}

	for _, key := range []string{config.EnvConfigFile, config.EnvPort, config.EnvStorePath, config.EnvPerPage} {
		t.Setenv(key, "")
	}
	t.Setenv(config.EnvDataDir, env.dataDir)
	t.Setenv(config.EnvVideosDir, env.videosDir)
	t.Setenv(config.EnvBaseDir, root)
	t.Setenv(config.EnvLogLevel, "error")
	t.Setenv(config.EnvLogFormat, "json")
	return env
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("%s error = %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestAnnotationsCommands(t *testing.T) {
	env := setupEnv(t, "a.mp4")
	video := filepath.Join(env.videosDir, "a.mp4")

	mustRun(t, "annotations", "add", video, "1", "2.5")
	out := mustRun(t, "--json", "annotations", "add", video, "4", "6")

	var resp struct {
		Name        string `json:"name"`
		Annotations []struct {
			Start float64 `json:"start_time"`
			End   float64 `json:"end_time"`
		} `json:"annotations"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v\n%s", err, out)
	}
	if resp.Name != "a.mp4" || len(resp.Annotations) != 2 {
		t.Fatalf("add response = %+v", resp)
	}
	if resp.Annotations[1].Start != 4 || resp.Annotations[1].End != 6 {
		t.Errorf("second annotation = %+v", resp.Annotations[1])
	}

	out = mustRun(t, "annotations", "delete", video, "0")
	if !strings.Contains(out, "4") || strings.Contains(out, "2.5") {
		t.Errorf("delete output = %q", out)
	}
	if !strings.Contains(out, "2.000") {
		t.Errorf("delete output missing duration: %q", out)
	}

	if _, err := os.Stat(filepath.Join(env.dataDir, config.StoreFilename)); err != nil {
		t.Errorf("store not written: %v", err)
	}
}

func TestAnnotationsAdd_Errors(t *testing.T) {
	env := setupEnv(t, "a.mp4")
	video := filepath.Join(env.videosDir, "a.mp4")

	tests := []struct {
		name string
		args []string
	}{
		{"start not a number", []string{"annotations", "add", video, "x", "2"}},
		{"inverted range", []string{"annotations", "add", video, "5", "2"}},
		{"missing video", []string{"annotations", "add", filepath.Join(env.videosDir, "nope.mp4"), "1", "2"}},
		{"delete out of range", []string{"annotations", "delete", video, "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Errorf("%v expected error", tt.args)
			}
		})
	}

	if _, err := os.Stat(filepath.Join(env.dataDir, config.StoreFilename)); !os.IsNotExist(err) {
		t.Errorf("failed commands wrote the store: %v", err)
	}
}

func TestScanCommand(t *testing.T) {
	env := setupEnv(t, "b.mp4", "a.mkv", "notes.txt")
	mustRun(t, "annotations", "add", filepath.Join(env.videosDir, "b.mp4"), "0", "1")

	out := mustRun(t, "--json", "scan")
	var videos []catalog.VideoSummary
	if err := json.Unmarshal([]byte(out), &videos); err != nil {
		t.Fatalf("Unmarshal() error = %v\n%s", err, out)
	}
	if len(videos) != 2 {
		t.Fatalf("scan = %+v, want 2 videos", videos)
	}
	if videos[0].Name != "b.mp4" || videos[0].AnnotationCount != 1 {
		t.Errorf("scan[0] = %+v, want annotated b.mp4 first", videos[0])
	}

	out = mustRun(t, "scan", "--filter", "not_annotated")
	if !strings.Contains(out, "a.mkv") || strings.Contains(out, "b.mp4") {
		t.Errorf("scan --filter not_annotated = %q", out)
	}
}

func TestReconcileCommand(t *testing.T) {
	env := setupEnv(t, "v.mp4")
	video := filepath.Join(env.videosDir, "v.mp4")
	storePath := filepath.Join(env.dataDir, config.StoreFilename)

	if err := os.MkdirAll(env.dataDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	legacy := `{"` + video + `": [[1, 2]], "./videos/v.mp4": [[1, 2], [3, 4]]}`
	if err := os.WriteFile(storePath, []byte(legacy), 0o644); err != nil {
		t.Fatalf("write store: %v", err)
	}

	out := mustRun(t, "reconcile")
	if !strings.Contains(out, "Dry run") {
		t.Errorf("dry run output = %q", out)
	}
	data, _ := os.ReadFile(storePath)
	if string(data) != legacy {
		t.Error("dry run modified the store")
	}

	out = mustRun(t, "--json", "reconcile", "--apply")
	var result catalog.ReconcileResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("Unmarshal() error = %v\n%s", err, out)
	}
	if !result.Saved || result.BackupPath == "" {
		t.Errorf("reconcile --apply = %+v", result)
	}
	if result.Report.KeysBefore != 2 || result.Report.KeysAfter != 1 {
		t.Errorf("report keys = %d -> %d", result.Report.KeysBefore, result.Report.KeysAfter)
	}

	out = mustRun(t, "reconcile")
	if !strings.Contains(out, "Nothing to reconcile") {
		t.Errorf("second reconcile output = %q", out)
	}
}

func TestOrphansCommand(t *testing.T) {
	env := setupEnv(t, "kept.mp4", "gone.mp4")
	gone := filepath.Join(env.videosDir, "gone.mp4")
	mustRun(t, "annotations", "add", gone, "0", "1")
	if err := os.Remove(gone); err != nil {
		t.Fatalf("remove: %v", err)
	}

	out := mustRun(t, "--json", "orphans")
	var orphans []catalog.VideoSummary
	if err := json.Unmarshal([]byte(out), &orphans); err != nil {
		t.Fatalf("Unmarshal() error = %v\n%s", err, out)
	}
	if len(orphans) != 1 || orphans[0].Name != "gone.mp4" {
		t.Errorf("orphans = %+v", orphans)
	}

	mustRun(t, "annotations", "delete", gone, "0")
	if out := mustRun(t, "orphans"); !strings.Contains(out, "No orphaned annotations") {
		t.Errorf("orphans after delete = %q", out)
	}
}

func TestExportCommand(t *testing.T) {
	env := setupEnv(t, "clip.mp4")
	video := filepath.Join(env.videosDir, "clip.mp4")
	outDir := t.TempDir()

	if _, err := run(t, "export", video, "--out", outDir); err == nil {
		t.Error("export with no annotations expected error")
	}

	mustRun(t, "annotations", "add", video, "1", "3")
	out := mustRun(t, "--json", "export", video, "--out", outDir, "--fps", "25")

	var result export.Result
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("Unmarshal() error = %v\n%s", err, out)
	}
	if result.ClipCount != 1 || result.FrameRate != 25 {
		t.Errorf("export result = %+v", result)
	}
	data, err := os.ReadFile(result.OutputPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "00:00:01:00 00:00:03:00") {
		t.Errorf("EDL missing source timecodes:\n%s", data)
	}

	if _, err := run(t, "export", video, "--out", outDir, "--fps", "0"); err == nil {
		t.Error("export --fps 0 expected error")
	}
}

func TestJournalCommand(t *testing.T) {
	env := setupEnv(t, "a.mp4", "b.mp4")
	mustRun(t, "annotations", "add", filepath.Join(env.videosDir, "a.mp4"), "0", "1")
	mustRun(t, "annotations", "add", filepath.Join(env.videosDir, "b.mp4"), "2", "3")

	out := mustRun(t, "--json", "journal", "--video", filepath.Join(env.videosDir, "b.mp4"))
	var entries []catalog.JournalEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("Unmarshal() error = %v\n%s", err, out)
	}
	if len(entries) != 1 || entries[0].Action != catalog.ActionAdd {
		t.Errorf("journal = %+v", entries)
	}
}

func TestConfigFlag_MissingFile(t *testing.T) {
	setupEnv(t)
	if _, err := run(t, "--config", filepath.Join(t.TempDir(), "missing.toml"), "scan"); err == nil {
		t.Error("missing --config file expected error")
	}
}
