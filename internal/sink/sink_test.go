package sink

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFile_CommitReplacesDestination(t *testing.T) {
	t.Parallel()

	dst := filepath.Join(t.TempDir(), "out", "nested", "a.cs")
	s, err := Create(dst)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.WriteLines([]string{"a", "", "b"}); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteLines([]string{"c"}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatalf("destination exists before commit: %v", err)
	}
	if err := s.Commit(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != "a\n\nb\nc\n" {
		t.Errorf("content = %q", got)
	}
	if s.Lines() != 4 {
		t.Errorf("Lines = %d, want 4", s.Lines())
	}
	if _, err := os.Stat(dst + PartialSuffix); !os.IsNotExist(err) {
		t.Errorf("partial file left behind: %v", err)
	}
}

func TestFile_EmptyCommitTruncates(t *testing.T) {
	t.Parallel()

	dst := filepath.Join(t.TempDir(), "a.cs")
	if err := os.WriteFile(dst, []byte("old content\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Create(dst)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Commit(); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("size = %d, want 0", info.Size())
	}
}

func TestFile_AbortKeepsDestination(t *testing.T) {
	t.Parallel()

	dst := filepath.Join(t.TempDir(), "a.cs")
	if err := os.WriteFile(dst, []byte("previous\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Create(dst)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.WriteLines([]string{"half"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Abort(); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(dst)
	if string(data) != "previous\n" {
		t.Errorf("destination = %q, want it untouched", data)
	}
	partial, _ := os.ReadFile(dst + PartialSuffix)
	if string(partial) != "half\n" {
		t.Errorf("partial = %q", partial)
	}
	if err := s.WriteLines([]string{"x"}); err == nil {
		t.Error("write after abort should fail")
	}
	if err := s.Abort(); err != nil {
		t.Errorf("second Abort = %v", err)
	}
}

func TestFile_AbortWithoutLinesRemovesPartial(t *testing.T) {
	t.Parallel()

	dst := filepath.Join(t.TempDir(), "a.cs")
	s, err := Create(dst)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Abort(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dst + PartialSuffix); !os.IsNotExist(err) {
		t.Errorf("partial file exists: %v", err)
	}
}

func TestMemory(t *testing.T) {
	t.Parallel()

	var m Memory
	_ = m.WriteLines([]string{"a"})
	_ = m.WriteLines(nil)
	_ = m.WriteLines([]string{"b", "c"})
	got := m.Lines()
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("Lines = %q", got)
	}
}
