package vector

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// flatMagic identifies a flat structure snapshot file.
var flatMagic = [8]byte{'K', 'O', 'U', 'H', 'O', 'F', 'L', 'T'}

const flatVersion uint32 = 1

// flatHeaderSize is the magic plus version, dimension and row count.
const flatHeaderSize = 8 + 3*4

// FlatStructure is a row-major dense matrix searched by brute-force inner product.
// Suitable for the hundreds-to-thousands of resumes this service handles.
// It is not safe for concurrent use; the owning Index serialises access.
type FlatStructure struct {
	dimensions int
	data       []float32
}

// NewFlatStructure creates an empty flat structure with the given dimension.
func NewFlatStructure(dimensions int) (*FlatStructure, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &FlatStructure{dimensions: dimensions}, nil
}

// Type returns the structure type identifier.
func (f *FlatStructure) Type() string {
	return string(StructureFlat)
}

// Dimensions returns D.
func (f *FlatStructure) Dimensions() int {
	return f.dimensions
}

// Len returns the number of rows.
func (f *FlatStructure) Len() int {
	return len(f.data) / f.dimensions
}

// Add appends vectors as rows. Nothing is appended if any vector has the wrong length.
func (f *FlatStructure) Add(vectors [][]float32) error {
	for _, vec := range vectors {
		if len(vec) != f.dimensions {
			return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vec), f.dimensions)
		}
	}
	for _, vec := range vectors {
		f.data = append(f.data, vec...)
	}
	return nil
}

// Search scores every row against query and returns the best k.
func (f *FlatStructure) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("%w: query has %d, expected %d", ErrDimensionMismatch, len(query), f.dimensions)
	}
	n := f.Len()
	if k <= 0 || n == 0 {
		return nil, nil
	}
	hits := make([]Hit, n)
	for row := 0; row < n; row++ {
		hits[row] = Hit{Row: row, Score: InnerProduct(query, f.row(row))}
	}
	sortHits(hits)
	if k > n {
		k = n
	}
	return hits[:k], nil
}

func (f *FlatStructure) row(i int) []float32 {
	return f.data[i*f.dimensions : (i+1)*f.dimensions]
}

// Reconstruct returns a copy of every row.
func (f *FlatStructure) Reconstruct() ([][]float32, error) {
	n := f.Len()
	rows := make([][]float32, n)
	for i := 0; i < n; i++ {
		vec := make([]float32, f.dimensions)
		copy(vec, f.row(i))
		rows[i] = vec
	}
	return rows, nil
}

// Reset drops all rows.
func (f *FlatStructure) Reset() {
	f.data = nil
}

// WriteFile writes the matrix to path atomically. Format: magic (8), version (4),
// dimension (4), n (4), then n*dimension little-endian float32 values.
func (f *FlatStructure) WriteFile(path string) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		if _, err := bw.Write(flatMagic[:]); err != nil {
			return fmt.Errorf("write magic: %w", err)
		}
		header := []uint32{flatVersion, uint32(f.dimensions), uint32(f.Len())}
		if err := binary.Write(bw, binary.LittleEndian, header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		if _, err := bw.Write(float32SliceToBytes(f.data)); err != nil {
			return fmt.Errorf("write matrix: %w", err)
		}
		return bw.Flush()
	})
}

// ReadFile replaces the matrix with the snapshot at path. The dimension must match.
func (f *FlatStructure) ReadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat index file: %w", err)
	}
	r := bufio.NewReader(file)

	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return fmt.Errorf("read magic: %w", err)
	}
	if magic != flatMagic {
		return errors.New("not a flat index snapshot")
	}
	var header [3]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	version, dim, n := header[0], header[1], header[2]
	if version != flatVersion {
		return fmt.Errorf("unsupported snapshot version %d", version)
	}
	if int(dim) != f.dimensions {
		return fmt.Errorf("%w: file has %d, index expects %d", ErrDimensionMismatch, dim, f.dimensions)
	}
	want := int64(flatHeaderSize) + int64(n)*int64(f.dimensions)*4
	if info.Size() != want {
		return fmt.Errorf("index file is %d bytes, header of %d rows needs %d", info.Size(), n, want)
	}
	buf := make([]byte, int(n)*f.dimensions*4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("read matrix: %w", err)
	}
	f.data = bytesToFloat32Slice(buf)
	return nil
}

// Close is a no-op for FlatStructure.
func (f *FlatStructure) Close() error {
	return nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
