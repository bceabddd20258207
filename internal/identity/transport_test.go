package identity

import (
	"encoding/base64"
	"path/filepath"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	dir := tempDir(t)
	touch(t, filepath.Join(dir, "My Clip?+.mp4"))

	id, err := Normalize(filepath.Join(dir, "My Clip?+.mp4"))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	raw, err := Decode(Encode(id))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if raw != id.String() {
		t.Errorf("Decode(Encode(id)) = %q, want %q", raw, id)
	}
}

func TestDecode_LegacyStdToken(t *testing.T) {
	legacy := base64.StdEncoding.EncodeToString([]byte("/videos/../videos/a.mp4"))
	raw, err := Decode(legacy)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if raw != "/videos/../videos/a.mp4" {
		t.Errorf("Decode() = %q", raw)
	}
}

func TestDecode_Invalid(t *testing.T) {
	for _, token := range []string{"", "   ", "!!!not-base64!!!"} {
		if _, err := Decode(token); err == nil {
			t.Errorf("Decode(%q) expected error", token)
		}
	}
}

func TestResolve_NormalizesLegacyPath(t *testing.T) {
	dir := tempDir(t)
	touch(t, filepath.Join(dir, "a", "v.mp4"))
	n := Normalizer{Base: dir}

	token := base64.StdEncoding.EncodeToString([]byte("./a/../a/v.mp4"))
	got, err := n.Resolve(token)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.String() != filepath.Join(dir, "a", "v.mp4") {
		t.Errorf("Resolve() = %q", got)
	}

	if _, err := n.Resolve("%%%"); !IsPathResolution(err) {
		t.Errorf("Resolve(bad) error = %v, want PathResolutionError", err)
	}
}
