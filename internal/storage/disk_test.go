package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "resumes.db")
	uploads := filepath.Join(dir, "uploads")
	index := filepath.Join(dir, "resumes.index")
	if err := os.MkdirAll(filepath.Join(uploads, "nested"), 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		db:                              "hello",
		index:                           "0123456789",
		filepath.Join(uploads, "a.pdf"): "ab",
		filepath.Join(uploads, "nested", "b.docx"): "c",
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"single file", []string{db}, 5},
		{"directory recursive", []string{uploads}, 3},
		{"file and dir", []string{db, uploads}, 8},
		{"all artifacts", []string{db, index, uploads}, 18},
		{"missing skipped", []string{db, filepath.Join(dir, "nonexistent"), uploads}, 8},
		{"empty skipped", []string{"", db}, 5},
		{"nothing", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsageBytes(tt.paths...)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %d bytes, want %d", got, tt.want)
			}
		})
	}
}
