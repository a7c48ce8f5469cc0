//go:build !faiss || !cgo
// +build !faiss !cgo

package vector

import (
	"errors"
)

var errNoFAISS = errors.New("FAISS not available")

// FAISSStructure is a stub that returns an error when FAISS is not available.
// Build with -tags=faiss to enable FAISS support.
type FAISSStructure struct{}

// NewFAISSStructure returns an error because FAISS is not available.
func NewFAISSStructure(dimensions int) (*FAISSStructure, error) {
	return nil, errors.New("FAISS not available: build with -tags=faiss and install FAISS library")
}

// Type returns the structure type identifier.
func (f *FAISSStructure) Type() string { return string(StructureFAISS) }

// Dimensions returns 0 without FAISS.
func (f *FAISSStructure) Dimensions() int { return 0 }

// Len returns 0 without FAISS.
func (f *FAISSStructure) Len() int { return 0 }

// Add is not implemented without FAISS.
func (f *FAISSStructure) Add(vectors [][]float32) error { return errNoFAISS }

// Search is not implemented without FAISS.
func (f *FAISSStructure) Search(query []float32, k int) ([]Hit, error) { return nil, errNoFAISS }

// Reconstruct is not implemented without FAISS.
func (f *FAISSStructure) Reconstruct() ([][]float32, error) { return nil, errNoFAISS }

// Reset is a no-op without FAISS.
func (f *FAISSStructure) Reset() {}

// WriteFile is not implemented without FAISS.
func (f *FAISSStructure) WriteFile(path string) error { return errNoFAISS }

// ReadFile is not implemented without FAISS.
func (f *FAISSStructure) ReadFile(path string) error { return errNoFAISS }

// Close is a no-op without FAISS.
func (f *FAISSStructure) Close() error { return nil }
