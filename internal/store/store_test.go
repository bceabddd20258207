package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/heimdex/heimdex-annotator/internal/annotation"
)

func setupTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "data", "annotation.json"), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	s := setupTestStore(t)

	doc, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if doc.Len() != 0 {
		t.Errorf("Load() entries = %d, want 0", doc.Len())
	}
}

func TestLoad_Corrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "{not json"},
		{"empty file", ""},
		{"array root", `[]`},
		{"string ranges", `{"/a.mp4": "1-2"}`},
		{"missing end", `{"/a.mp4": [{"start_time": 1}]}`},
		{"string times", `{"/a.mp4": [{"start_time": "1", "end_time": "2"}]}`},
		{"triple", `{"/a.mp4": [[1, 2, 3]]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestStore(t)
			if err := os.WriteFile(s.Path(), []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}

			_, err := s.Load()
			if !IsCorrupt(err) {
				t.Fatalf("Load() error = %v, want CorruptError", err)
			}

			data, _ := os.ReadFile(s.Path())
			if string(data) != tt.content {
				t.Error("Load() modified a corrupt document")
			}
		})
	}
}

func TestLoad_LegacyPairs(t *testing.T) {
	s := setupTestStore(t)
	if err := os.WriteFile(s.Path(), []byte(`{"/a.mp4": [[1, 2], {"start_time": 3, "end_time": 4}]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	doc, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	got, ok := doc.Lookup("/a.mp4")
	if !ok || len(got) != 2 || got[0] != (annotation.Range{Start: 1, End: 2}) {
		t.Errorf("Lookup() = %v, %v", got, ok)
	}
}

func TestLoad_RepeatedKeyKeepsBothLists(t *testing.T) {
	s := setupTestStore(t)
	raw := `{"/a.mp4": [[1, 2]], "/a.mp4": [[3, 4]]}`
	if err := os.WriteFile(s.Path(), []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	doc, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	got, _ := doc.Lookup("/a.mp4")
	if len(got) != 2 || got[0] != (annotation.Range{Start: 1, End: 2}) || got[1] != (annotation.Range{Start: 3, End: 4}) {
		t.Errorf("Lookup() = %v, want both lists in order", got)
	}
}

func TestSaveLoad(t *testing.T) {
	s := setupTestStore(t)
	doc := annotation.NewDocument(
		annotation.Entry{Key: "/v/b.mp4", Ranges: []annotation.Range{{Start: 1, End: 2}}},
		annotation.Entry{Key: "/v/a.mp4", Ranges: []annotation.Range{{Start: 0.5, End: 9.75}, {Start: 10, End: 11}}},
	)

	if err := s.Save(context.Background(), doc); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !got.Equal(doc) {
		t.Errorf("Load() = %v, want %v", got.Entries(), doc.Entries())
	}

	raw, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(raw), "\n    \"/v/b.mp4\": [\n        {\n            \"start_time\": 1,") {
		t.Errorf("document not written with 4-space indentation:\n%s", raw)
	}

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != "annotation.json" && e.Name() != "annotation.json.lock" {
			t.Errorf("unexpected file left behind: %s", e.Name())
		}
	}
}

func TestSave_PersistError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := &FileStore{path: filepath.Join(blocker, "annotation.json")}
	s.lock = setupTestStore(t).lock
	s.schema, _ = documentValidator()

	err := s.Save(context.Background(), annotation.NewDocument())
	if !IsPersist(err) {
		t.Fatalf("Save() error = %v, want PersistError", err)
	}
}

func TestMutate_NoChangeSkipsWrite(t *testing.T) {
	s := setupTestStore(t)

	err := s.Mutate(context.Background(), func(doc annotation.Document) (annotation.Document, bool, error) {
		return doc, false, nil
	})
	if err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Errorf("Mutate() without change created the document: %v", err)
	}
}

func TestMutate_ErrorSkipsWrite(t *testing.T) {
	s := setupTestStore(t)
	boom := errors.New("boom")

	err := s.Mutate(context.Background(), func(doc annotation.Document) (annotation.Document, bool, error) {
		doc.Set("/x.mp4", []annotation.Range{{Start: 1, End: 2}})
		return doc, true, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Mutate() error = %v, want boom", err)
	}
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Error("Mutate() saved despite callback error")
	}
}

func TestMutate_CorruptAborts(t *testing.T) {
	s := setupTestStore(t)
	if err := os.WriteFile(s.Path(), []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	called := false
	err := s.Mutate(context.Background(), func(doc annotation.Document) (annotation.Document, bool, error) {
		called = true
		return doc, true, nil
	})
	if !IsCorrupt(err) {
		t.Fatalf("Mutate() error = %v, want CorruptError", err)
	}
	if called {
		t.Error("Mutate() ran callback on a corrupt document")
	}
}

func TestMutate_ConcurrentWritersDoNotLoseUpdates(t *testing.T) {
	s := setupTestStore(t)
	const writers = 40

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.Mutate(context.Background(), func(doc annotation.Document) (annotation.Document, bool, error) {
				key := fmt.Sprintf("/v/%d.mp4", i%4)
				list, _ := doc.Lookup(key)
				list = append(list, annotation.Range{Start: float64(i), End: float64(i) + 1})
				doc.Set(key, list)
				return doc, true, nil
			})
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Mutate() error = %v", err)
		}
	}

	doc, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := doc.RangeCount(); got != writers {
		t.Errorf("RangeCount() = %d, want %d", got, writers)
	}
}

func TestMutate_CancelledWhileLockHeld(t *testing.T) {
	s := setupTestStore(t)
	other, err := New(s.Path(), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	release := make(chan struct{})
	entered := make(chan struct{})
	go func() {
		_ = other.Mutate(context.Background(), func(doc annotation.Document) (annotation.Document, bool, error) {
			close(entered)
			<-release
			return doc, false, nil
		})
	}()
	<-entered
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.Mutate(ctx, func(doc annotation.Document) (annotation.Document, bool, error) {
		t.Error("callback ran while another store held the file lock")
		return doc, false, nil
	})
	if err == nil {
		t.Fatal("Mutate() expected error with cancelled context")
	}
}

func TestBackup(t *testing.T) {
	s := setupTestStore(t)
	doc := annotation.NewDocument(annotation.Entry{Key: "./legacy.mp4", Ranges: []annotation.Range{{Start: 1, End: 2}}})

	path, err := s.Backup(doc)
	if err != nil {
		t.Fatalf("Backup() error = %v", err)
	}
	if path != s.Path()+".bak" {
		t.Errorf("Backup() path = %q", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	var got annotation.Document
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode backup: %v", err)
	}
	if !got.Equal(doc) {
		t.Errorf("backup = %v, want %v", got.Entries(), doc.Entries())
	}
}
