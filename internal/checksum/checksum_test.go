package checksum

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSum_KnownVector(t *testing.T) {
	const want = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got := Sum([]byte("hello")); got != want {
		t.Errorf("Sum = %q, want %q", got, want)
	}
}

func TestSumFile_MatchesSum(t *testing.T) {
	p := filepath.Join(t.TempDir(), "f.txt")
	data := []byte("some file content")
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := SumFile(p)
	if err != nil {
		t.Fatalf("SumFile: %v", err)
	}
	if got != Sum(data) {
		t.Errorf("SumFile = %q, want %q", got, Sum(data))
	}
}

func TestSumFile_Missing(t *testing.T) {
	if _, err := SumFile(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing file")
	}
}
