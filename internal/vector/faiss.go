//go:build faiss && cgo
// +build faiss,cgo

package vector

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfaiss_c

#include <stdlib.h>
#include <faiss/c_api/Index_c.h>
#include <faiss/c_api/IndexFlat_c.h>
#include <faiss/c_api/index_io_c.h>
#include <faiss/c_api/error_c.h>
*/
import "C"

import (
	"fmt"
	"os"
	"path/filepath"
	"unsafe"
)

// FAISSStructure is an IndexFlatIP: exact inner product search over unit vectors.
// FAISS flat indices have no efficient deletion, which is why Index.Remove rebuilds.
type FAISSStructure struct {
	index      *C.FaissIndex
	dimensions int
}

// NewFAISSStructure creates an empty IndexFlatIP with the given dimension.
func NewFAISSStructure(dimensions int) (*FAISSStructure, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	index, err := newFlatIP(dimensions)
	if err != nil {
		return nil, err
	}
	return &FAISSStructure{index: index, dimensions: dimensions}, nil
}

func newFlatIP(dimensions int) (*C.FaissIndex, error) {
	var flat *C.FaissIndexFlatIP
	if ret := C.faiss_IndexFlatIP_new_with(&flat, C.idx_t(dimensions)); ret != 0 {
		return nil, fmt.Errorf("failed to create FAISS index: %s", faissLastError())
	}
	return (*C.FaissIndex)(unsafe.Pointer(flat)), nil
}

func faissLastError() string {
	cErr := C.faiss_get_last_error()
	if cErr == nil {
		return "unknown error"
	}
	return C.GoString(cErr)
}

// Type returns the structure type identifier.
func (f *FAISSStructure) Type() string {
	return string(StructureFAISS)
}

// Dimensions returns D.
func (f *FAISSStructure) Dimensions() int {
	return f.dimensions
}

// Len returns ntotal.
func (f *FAISSStructure) Len() int {
	if f.index == nil {
		return 0
	}
	return int(C.faiss_Index_ntotal(f.index))
}

// Add appends vectors as rows.
func (f *FAISSStructure) Add(vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	n := len(vectors)
	flat := make([]float32, n*f.dimensions)
	for i, vec := range vectors {
		if len(vec) != f.dimensions {
			return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vec), f.dimensions)
		}
		copy(flat[i*f.dimensions:(i+1)*f.dimensions], vec)
	}
	ret := C.faiss_Index_add(f.index, C.idx_t(n), (*C.float)(unsafe.Pointer(&flat[0])))
	if ret != 0 {
		return fmt.Errorf("failed to add vectors to FAISS index: %s", faissLastError())
	}
	return nil
}

// Search returns the best k rows. Every row is scored so rows tied at the cutoff are
// ordered by row index like the flat structure; FAISS alone may return any of them.
// Rows FAISS reports as -1 are passed through for the caller to drop.
func (f *FAISSStructure) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("%w: query has %d, expected %d", ErrDimensionMismatch, len(query), f.dimensions)
	}
	ntotal := f.Len()
	if k <= 0 || ntotal == 0 {
		return nil, nil
	}
	if k > ntotal {
		k = ntotal
	}
	distances := make([]float32, ntotal)
	labels := make([]int64, ntotal)
	ret := C.faiss_Index_search(
		f.index,
		1,
		(*C.float)(unsafe.Pointer(&query[0])),
		C.idx_t(ntotal),
		(*C.float)(unsafe.Pointer(&distances[0])),
		(*C.idx_t)(unsafe.Pointer(&labels[0])),
	)
	if ret != 0 {
		return nil, fmt.Errorf("FAISS search failed: %s", faissLastError())
	}
	hits := make([]Hit, ntotal)
	for i := range hits {
		hits[i] = Hit{Row: int(labels[i]), Score: float64(distances[i])}
	}
	sortHits(hits)
	return hits[:k], nil
}

// Reconstruct copies every stored row out of FAISS.
func (f *FAISSStructure) Reconstruct() ([][]float32, error) {
	n := f.Len()
	if n == 0 {
		return [][]float32{}, nil
	}
	flat := make([]float32, n*f.dimensions)
	ret := C.faiss_Index_reconstruct_n(f.index, 0, C.idx_t(n), (*C.float)(unsafe.Pointer(&flat[0])))
	if ret != 0 {
		return nil, fmt.Errorf("FAISS reconstruct failed: %s", faissLastError())
	}
	rows := make([][]float32, n)
	for i := range rows {
		rows[i] = flat[i*f.dimensions : (i+1)*f.dimensions : (i+1)*f.dimensions]
	}
	return rows, nil
}

// Reset removes all rows.
func (f *FAISSStructure) Reset() {
	if f.index != nil {
		C.faiss_Index_reset(f.index)
	}
}

// WriteFile writes the native FAISS index to a temp file and renames it over path.
func (f *FAISSStructure) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp := path + ".tmp"
	cPath := C.CString(tmp)
	defer C.free(unsafe.Pointer(cPath))
	if ret := C.faiss_write_index_fname(f.index, cPath); ret != 0 {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to save FAISS index: %s", faissLastError())
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// ReadFile replaces the index with the one stored at path.
func (f *FAISSStructure) ReadFile(path string) error {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	var loaded *C.FaissIndex
	if ret := C.faiss_read_index_fname(cPath, 0, &loaded); ret != 0 {
		return fmt.Errorf("failed to load FAISS index: %s", faissLastError())
	}
	if d := int(C.faiss_Index_d(loaded)); d != f.dimensions {
		C.faiss_Index_free(loaded)
		return fmt.Errorf("%w: file has %d, index expects %d", ErrDimensionMismatch, d, f.dimensions)
	}
	if f.index != nil {
		C.faiss_Index_free(f.index)
	}
	f.index = loaded
	return nil
}

// Close frees the FAISS index.
func (f *FAISSStructure) Close() error {
	if f.index != nil {
		C.faiss_Index_free(f.index)
		f.index = nil
	}
	return nil
}
