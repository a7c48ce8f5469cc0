package vector

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFlatStructure_AddSearch(t *testing.T) {
	s, err := NewFlatStructure(3)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Add([][]float32{{1, 0, 0}, {0.9, 0.1, 0}, {0, 1, 0}}); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 3 {
		t.Errorf("Len=%d, want 3", s.Len())
	}
	hits, err := s.Search([]float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 || hits[0].Row != 0 || hits[1].Row != 1 {
		t.Errorf("hits = %+v", hits)
	}
}

func TestFlatStructure_AddRejectsWholeBatch(t *testing.T) {
	s, _ := NewFlatStructure(2)
	err := s.Add([][]float32{{1, 0}, {1, 0, 0}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len=%d, want 0", s.Len())
	}
}

func TestFlatStructure_SearchEmpty(t *testing.T) {
	s, _ := NewFlatStructure(2)
	hits, err := s.Search([]float32{1, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %v", hits)
	}
}

func TestFlatStructure_Reconstruct(t *testing.T) {
	s, _ := NewFlatStructure(2)
	_ = s.Add([][]float32{{1, 2}, {3, 4}})
	rows, err := s.Reconstruct()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1][0] != 3 || rows[1][1] != 4 {
		t.Errorf("rows = %v", rows)
	}
	rows[0][0] = 99
	again, _ := s.Reconstruct()
	if again[0][0] != 1 {
		t.Error("Reconstruct must return copies")
	}
	s.Reset()
	if s.Len() != 0 {
		t.Errorf("Len after Reset=%d", s.Len())
	}
}

func TestFlatStructure_WriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.index")
	s, _ := NewFlatStructure(3)
	_ = s.Add([][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}})
	if err := s.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	loaded, _ := NewFlatStructure(3)
	if err := loaded.ReadFile(path); err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != 3 {
		t.Fatalf("Len=%d, want 3", loaded.Len())
	}
	hits, _ := loaded.Search([]float32{0, 0, 1}, 1)
	if hits[0].Row != 2 {
		t.Errorf("top row = %d, want 2", hits[0].Row)
	}

	wrongDim, _ := NewFlatStructure(2)
	if err := wrongDim.ReadFile(path); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestFlatStructure_ReadFileGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.index")
	if err := os.WriteFile(path, []byte("not an index at all"), 0644); err != nil {
		t.Fatal(err)
	}
	s, _ := NewFlatStructure(2)
	if err := s.ReadFile(path); err == nil {
		t.Error("expected error for garbage file")
	}
}

func TestFlatStructure_ReadFileTruncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.index")
	s, _ := NewFlatStructure(4)
	_ = s.Add([][]float32{{1, 2, 3, 4}, {5, 6, 7, 8}})
	if err := s.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if err := os.WriteFile(path, data[:len(data)-3], 0644); err != nil {
		t.Fatal(err)
	}
	loaded, _ := NewFlatStructure(4)
	if err := loaded.ReadFile(path); err == nil {
		t.Error("expected error for truncated matrix")
	}
}

func TestFlatStructure_ReadFileRowCountBeyondFile(t *testing.T) {
	tests := []struct {
		name  string
		rows  uint32
		extra int
	}{
		{"huge row count", 0xFFFFFFF0, 0},
		{"one row missing", 2, 384 * 4},
		{"trailing bytes", 0, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			buf.Write(flatMagic[:])
			_ = binary.Write(&buf, binary.LittleEndian, []uint32{flatVersion, 384, tt.rows})
			buf.Write(make([]byte, tt.extra))
			path := filepath.Join(t.TempDir(), "lying.index")
			if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
				t.Fatal(err)
			}
			s, _ := NewFlatStructure(384)
			if err := s.ReadFile(path); err == nil {
				t.Fatal("expected error for a header that disagrees with the file size")
			}
			if s.Len() != 0 {
				t.Errorf("Len=%d after rejected snapshot", s.Len())
			}
		})
	}
}

func TestNewStructure(t *testing.T) {
	for _, typ := range []string{"", "flat", "memory"} {
		s, err := NewStructure(typ, 3)
		if err != nil {
			t.Fatalf("NewStructure(%q): %v", typ, err)
		}
		if s.Type() != "flat" {
			t.Errorf("NewStructure(%q).Type() = %s", typ, s.Type())
		}
	}
	if _, err := NewStructure("hnsw", 3); err == nil {
		t.Error("expected error for unknown type")
	}
	if _, err := NewStructure("flat", 0); err == nil {
		t.Error("expected error for zero dimension")
	}
}

func TestNewStructure_FAISS(t *testing.T) {
	if !IsFAISSAvailable() {
		t.Skip("FAISS not available (build with -tags=faiss)")
	}
	s, err := NewStructure("faiss", 3)
	if err != nil {
		t.Fatalf("NewStructure(faiss): %v", err)
	}
	defer s.Close()
	if s.Type() != "faiss" {
		t.Errorf("Type() = %s", s.Type())
	}
}

func TestInnerProduct(t *testing.T) {
	if got := InnerProduct([]float32{1, 2}, []float32{3, 4}); got != 11 {
		t.Errorf("InnerProduct = %v, want 11", got)
	}
	if got := InnerProduct([]float32{1}, []float32{1, 2}); got != 0 {
		t.Errorf("length mismatch should give 0, got %v", got)
	}
	if got := L2Norm([]float32{3, 4}); got != 5 {
		t.Errorf("L2Norm = %v, want 5", got)
	}
}
