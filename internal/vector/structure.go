// Package vector holds the resume vector index: an ordered, deduplicated collection of
// (identifier, vector) records with nearest-neighbour ranking and on-disk snapshots.
package vector

import "fmt"

// StructureType names a search structure implementation.
type StructureType string

const (
	// StructureFlat is a pure Go dense matrix with brute-force inner product search.
	StructureFlat StructureType = "flat"
	// StructureFAISS is a FAISS IndexFlatIP. Requires -tags=faiss and the FAISS C library.
	StructureFAISS StructureType = "faiss"
)

// Hit is one search candidate: a matrix row and its inner product with the query.
// Row is -1 when the structure had fewer rows than requested.
type Hit struct {
	Row   int
	Score float64
}

// Structure is the dense (N, D) matrix behind an Index. It only supports appending
// rows; removal is done by the Index rebuilding a fresh Structure.
type Structure interface {
	Dimensions() int
	Len() int
	// Add appends vectors as new rows in order. Vectors must have length Dimensions().
	Add(vectors [][]float32) error
	// Search returns at most k hits ordered by descending score, ties by ascending row.
	Search(query []float32, k int) ([]Hit, error)
	// Reconstruct returns a copy of every row in order.
	Reconstruct() ([][]float32, error)
	Reset()
	WriteFile(path string) error
	// ReadFile replaces the contents with the snapshot at path.
	ReadFile(path string) error
	Close() error
	Type() string
}

// NewStructure creates an empty structure of the given type.
// Supported types: "flat" (default), "faiss".
func NewStructure(structureType string, dimensions int) (Structure, error) {
	switch StructureType(structureType) {
	case StructureFlat, "", "memory":
		s, err := NewFlatStructure(dimensions)
		if err != nil {
			return nil, err
		}
		return s, nil
	case StructureFAISS:
		s, err := NewFAISSStructure(dimensions)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: flat, faiss)", structureType)
	}
}

// IsFAISSAvailable returns true if FAISS support is compiled in (-tags=faiss).
func IsFAISSAvailable() bool {
	s, err := NewFAISSStructure(1)
	if err != nil {
		return false
	}
	_ = s.Close()
	return true
}
