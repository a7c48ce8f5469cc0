package vector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hyperjump/kouho/pkg/utils"
	"go.uber.org/zap"
)

// DefaultTopK is the number of matches Rank returns when topK is not positive.
const DefaultTopK = 5

var (
	// ErrDimensionMismatch reports a vector whose length differs from the index dimension.
	// It indicates a misconfigured embedding provider; the offending operation is not applied.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrPersist reports a failed snapshot write. The mutation that triggered it has
	// already been applied in memory and remains valid.
	ErrPersist = errors.New("vector index persist failed")
)

// IsPersistError reports whether err only signals a failed snapshot write.
func IsPersistError(err error) bool {
	return errors.Is(err, ErrPersist)
}

// Record is one (identifier, vector) pair.
type Record struct {
	ID     string
	Vector []float32
}

// Match is one ranked result. Rank is 1-based.
type Match struct {
	Rank  int
	ID    string
	Score float64
}

// Source is an identifier and the text its vector is derived from.
type Source struct {
	ID   string
	Text string
}

// EmbedFunc maps text to a vector.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Index owns the ordered record collection: a search Structure whose row i belongs to ids[i].
// Every method takes the same lock, so readers never observe a structure and identifier
// sequence that disagree.
type Index struct {
	mu            sync.Mutex
	structureType string
	dimensions    int
	structure     Structure
	ids           []string
	positions     map[string]int
	path          string
	logger        *zap.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithPath sets the snapshot base path. Artifacts are written to path+".index" and
// path+".ids". An empty path disables persistence.
func WithPath(path string) Option {
	return func(ix *Index) { ix.path = path }
}

// WithLogger sets the logger used for persistence warnings.
func WithLogger(l *zap.Logger) Option {
	return func(ix *Index) {
		if l != nil {
			ix.logger = l
		}
	}
}

// New creates an index backed by the given structure type and loads the snapshot at the
// configured path, if any. A missing snapshot means an empty index. An unreadable or
// inconsistent snapshot is logged and the index starts empty; the resume store is
// authoritative and Rebuild restores the collection.
func New(structureType string, dimensions int, opts ...Option) (*Index, error) {
	structure, err := NewStructure(structureType, dimensions)
	if err != nil {
		return nil, err
	}
	ix := &Index{
		structureType: structure.Type(),
		dimensions:    dimensions,
		structure:     structure,
		positions:     make(map[string]int),
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	if err := ix.Load(); err != nil {
		ix.logger.Warn("vector index load failed, starting empty",
			zap.String("path", ix.path), zap.Error(err))
	}
	return ix, nil
}

// Type returns the structure type.
func (ix *Index) Type() string {
	return ix.structureType
}

// Dimensions returns D.
func (ix *Index) Dimensions() int {
	return ix.dimensions
}

// Path returns the snapshot base path.
func (ix *Index) Path() string {
	return ix.path
}

// Size returns the number of records.
func (ix *Index) Size() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.ids)
}

// Contains reports whether id is indexed.
func (ix *Index) Contains(id string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	_, ok := ix.positions[id]
	return ok
}

// IDs returns the identifiers in insertion order.
func (ix *Index) IDs() []string {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return append([]string(nil), ix.ids...)
}

// Add inserts records whose identifiers are not yet indexed, normalising each vector
// to unit length. Records with an existing identifier (or repeated within the batch)
// are skipped and the stored vector is kept. Returns the number of records added.
// If any vector has the wrong dimension the whole batch is rejected with
// ErrDimensionMismatch. A snapshot is written once per batch that changed the index.
func (ix *Index) Add(ctx context.Context, records []Record) (int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	added, err := ix.addLocked(records)
	if err != nil || added == 0 {
		return added, err
	}
	return added, ix.persistLocked()
}

func (ix *Index) addLocked(records []Record) (int, error) {
	for _, rec := range records {
		if len(rec.Vector) != ix.dimensions {
			return 0, fmt.Errorf("%w: %q has %d, expected %d", ErrDimensionMismatch, rec.ID, len(rec.Vector), ix.dimensions)
		}
	}
	seen := make(map[string]bool, len(records))
	ids := make([]string, 0, len(records))
	vectors := make([][]float32, 0, len(records))
	for _, rec := range records {
		if _, exists := ix.positions[rec.ID]; exists || seen[rec.ID] {
			continue
		}
		seen[rec.ID] = true
		vec := make([]float32, ix.dimensions)
		copy(vec, rec.Vector)
		utils.NormalizeL2(vec)
		ids = append(ids, rec.ID)
		vectors = append(vectors, vec)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := ix.structure.Add(vectors); err != nil {
		return 0, fmt.Errorf("add vectors: %w", err)
	}
	for _, id := range ids {
		ix.positions[id] = len(ix.ids)
		ix.ids = append(ix.ids, id)
	}
	return len(ids), nil
}

// Remove deletes the record for id. It returns false, with no state change and no
// snapshot write, when id is not indexed. Otherwise every row is reconstructed, the
// row for id dropped, and a fresh structure built from the survivors in their
// original order.
func (ix *Index) Remove(ctx context.Context, id string) (bool, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	pos, ok := ix.positions[id]
	if !ok {
		return false, nil
	}
	rows, err := ix.structure.Reconstruct()
	if err != nil {
		return false, fmt.Errorf("reconstruct vectors: %w", err)
	}
	if len(rows) != len(ix.ids) {
		return false, fmt.Errorf("index corrupted: %d rows for %d identifiers", len(rows), len(ix.ids))
	}
	survivors := make([][]float32, 0, len(rows)-1)
	survivors = append(survivors, rows[:pos]...)
	survivors = append(survivors, rows[pos+1:]...)

	fresh, err := NewStructure(ix.structureType, ix.dimensions)
	if err != nil {
		return false, fmt.Errorf("create structure: %w", err)
	}
	if len(survivors) > 0 {
		if err := fresh.Add(survivors); err != nil {
			_ = fresh.Close()
			return false, fmt.Errorf("rebuild structure: %w", err)
		}
	}
	ids := make([]string, 0, len(ix.ids)-1)
	ids = append(ids, ix.ids[:pos]...)
	ids = append(ids, ix.ids[pos+1:]...)

	old := ix.structure
	ix.structure = fresh
	ix.setIDsLocked(ids)
	_ = old.Close()
	return true, ix.persistLocked()
}

// Rank returns up to topK records most similar to query by cosine similarity, best
// first, ties in insertion order. The query is normalised on a copy. An empty index
// yields an empty slice.
func (ix *Index) Rank(ctx context.Context, query []float32, topK int) ([]Match, error) {
	if len(query) != ix.dimensions {
		return nil, fmt.Errorf("%w: query has %d, expected %d", ErrDimensionMismatch, len(query), ix.dimensions)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	q := make([]float32, len(query))
	copy(q, query)
	utils.NormalizeL2(q)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	matches := make([]Match, 0, min(topK, len(ix.ids)))
	if len(ix.ids) == 0 {
		return matches, nil
	}
	hits, err := ix.structure.Search(q, topK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	for _, h := range hits {
		if h.Row < 0 || h.Row >= len(ix.ids) {
			continue
		}
		matches = append(matches, Match{Rank: len(matches) + 1, ID: ix.ids[h.Row], Score: h.Score})
	}
	return matches, nil
}

// Rebuild replaces the whole collection with vectors embedded from sources. All texts
// are embedded before the index is touched, so an embedding failure leaves the current
// collection in place. The index is then reset, the empty state persisted, and the
// records added as one batch. Returns the number of records indexed.
func (ix *Index) Rebuild(ctx context.Context, sources []Source, embed EmbedFunc) (int, error) {
	records := make([]Record, 0, len(sources))
	for _, src := range sources {
		vec, err := embed(ctx, src.Text)
		if err != nil {
			return 0, fmt.Errorf("embed %q: %w", src.ID, err)
		}
		records = append(records, Record{ID: src.ID, Vector: vec})
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, rec := range records {
		if len(rec.Vector) != ix.dimensions {
			return 0, fmt.Errorf("%w: %q has %d, expected %d", ErrDimensionMismatch, rec.ID, len(rec.Vector), ix.dimensions)
		}
	}
	ix.resetLocked()
	resetErr := ix.persistLocked()
	added, err := ix.addLocked(records)
	if err != nil {
		return added, err
	}
	if added == 0 {
		return 0, resetErr
	}
	return added, errors.Join(resetErr, ix.persistLocked())
}

// Reset empties the index and persists the empty state.
func (ix *Index) Reset(ctx context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.resetLocked()
	return ix.persistLocked()
}

func (ix *Index) resetLocked() {
	ix.structure.Reset()
	ix.setIDsLocked(nil)
}

func (ix *Index) setIDsLocked(ids []string) {
	ix.ids = ids
	ix.positions = make(map[string]int, len(ids))
	for i, id := range ids {
		ix.positions[id] = i
	}
}

// Save writes both snapshot artifacts. It is a no-op when no path is configured.
func (ix *Index) Save() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.saveLocked()
}

func (ix *Index) saveLocked() error {
	if ix.path == "" {
		return nil
	}
	if err := ix.structure.WriteFile(ix.path + structureSuffix); err != nil {
		return fmt.Errorf("write structure: %w", err)
	}
	snap := &idSnapshot{
		Version:    idSnapshotVersion,
		Structure:  ix.structureType,
		Dimensions: ix.dimensions,
		IDs:        ix.ids,
	}
	if err := writeIDs(ix.path+idsSuffix, snap); err != nil {
		return fmt.Errorf("write ids: %w", err)
	}
	return nil
}

// persistLocked saves after a mutation. Failures are logged and returned wrapped in
// ErrPersist; in-memory state is left as is.
func (ix *Index) persistLocked() error {
	if err := ix.saveLocked(); err != nil {
		ix.logger.Warn("vector index save failed", zap.String("path", ix.path), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// Load replaces the in-memory collection with the snapshot at the configured path.
// If either artifact is missing the index is emptied and nil returned. On any read or
// consistency error the index is emptied and the error returned.
func (ix *Index) Load() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.path == "" {
		return nil
	}
	structurePath, idsPath := ix.path+structureSuffix, ix.path+idsSuffix
	for _, p := range []string{structurePath, idsPath} {
		ok, err := fileExists(p)
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		if !ok {
			ix.resetLocked()
			return nil
		}
	}
	if err := ix.loadLocked(structurePath, idsPath); err != nil {
		ix.resetLocked()
		return err
	}
	ix.logger.Debug("vector index loaded", zap.String("path", ix.path), zap.Int("size", len(ix.ids)))
	return nil
}

func (ix *Index) loadLocked(structurePath, idsPath string) error {
	snap, err := readIDs(idsPath)
	if err != nil {
		return err
	}
	if snap.Dimensions != ix.dimensions {
		return fmt.Errorf("%w: snapshot has %d, index expects %d", ErrDimensionMismatch, snap.Dimensions, ix.dimensions)
	}
	seen := make(map[string]bool, len(snap.IDs))
	for _, id := range snap.IDs {
		if seen[id] {
			return fmt.Errorf("duplicate identifier %q in snapshot", id)
		}
		seen[id] = true
	}
	if err := ix.structure.ReadFile(structurePath); err != nil {
		return fmt.Errorf("read structure: %w", err)
	}
	if ix.structure.Len() != len(snap.IDs) {
		return fmt.Errorf("snapshot mismatch: %d rows for %d identifiers", ix.structure.Len(), len(snap.IDs))
	}
	ix.setIDsLocked(snap.IDs)
	return nil
}

// Close releases the structure.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.structure.Close()
}
