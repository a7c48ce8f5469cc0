package vector

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestIndex(t *testing.T, dim int, opts ...Option) *Index {
	t.Helper()
	idx, err := New("flat", dim, opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestNew_InvalidArgs(t *testing.T) {
	if _, err := New("flat", 0); err == nil {
		t.Error("expected error for zero dimension")
	}
	if _, err := New("unknown", 3); err == nil {
		t.Error("expected error for unknown structure type")
	}
}

func TestIndex_RankOrthogonal(t *testing.T) {
	idx := newTestIndex(t, 3)
	ctx := context.Background()
	n, err := idx.Add(ctx, []Record{
		{ID: "r1", Vector: []float32{2, 0, 0}},
		{ID: "r2", Vector: []float32{0, 5, 0}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("added %d, want 2", n)
	}
	matches, err := idx.Rank(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != "r1" || !approx(matches[0].Score, 1.0) || matches[0].Rank != 1 {
		t.Errorf("first match = %+v, want r1 score 1.0 rank 1", matches[0])
	}
	if matches[1].ID != "r2" || !approx(matches[1].Score, 0.0) || matches[1].Rank != 2 {
		t.Errorf("second match = %+v, want r2 score 0.0 rank 2", matches[1])
	}
}

func TestIndex_IdempotentAdd(t *testing.T) {
	idx := newTestIndex(t, 2)
	ctx := context.Background()
	if _, err := idx.Add(ctx, []Record{{ID: "r1", Vector: []float32{1, 0}}}); err != nil {
		t.Fatal(err)
	}
	n, err := idx.Add(ctx, []Record{{ID: "r1", Vector: []float32{0, 1}}})
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("second add reported %d added, want 0", n)
	}
	if idx.Size() != 1 {
		t.Errorf("Size=%d, want 1", idx.Size())
	}
	// The stored vector is still the original one.
	matches, err := idx.Rank(ctx, []float32{1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || !approx(matches[0].Score, 1.0) {
		t.Errorf("stored vector changed: %+v", matches)
	}
}

func TestIndex_UniqueWithinBatch(t *testing.T) {
	idx := newTestIndex(t, 2)
	ctx := context.Background()
	n, err := idx.Add(ctx, []Record{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{0, 1}},
		{ID: "a", Vector: []float32{0, 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("added %d, want 2", n)
	}
	ids := idx.IDs()
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %q in %v", id, ids)
		}
		seen[id] = true
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("ids = %v, want [a b]", ids)
	}
}

func TestIndex_AddDimensionMismatch(t *testing.T) {
	idx := newTestIndex(t, 3)
	ctx := context.Background()
	_, err := idx.Add(ctx, []Record{
		{ID: "ok", Vector: []float32{1, 0, 0}},
		{ID: "bad", Vector: []float32{1, 0}},
	})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if idx.Size() != 0 {
		t.Errorf("batch with a bad vector must not be applied, size=%d", idx.Size())
	}
	if _, err := idx.Rank(ctx, []float32{1, 0}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch for short query, got %v", err)
	}
}

func TestIndex_AddDoesNotAliasCaller(t *testing.T) {
	idx := newTestIndex(t, 2)
	ctx := context.Background()
	vec := []float32{3, 4}
	_, _ = idx.Add(ctx, []Record{{ID: "a", Vector: vec}})
	if vec[0] != 3 || vec[1] != 4 {
		t.Errorf("caller vector modified: %v", vec)
	}
	query := []float32{0, 7}
	_, _ = idx.Rank(ctx, query, 1)
	if query[1] != 7 {
		t.Errorf("caller query modified: %v", query)
	}
}

func TestIndex_RemoveMiddle(t *testing.T) {
	idx := newTestIndex(t, 3)
	ctx := context.Background()
	_, _ = idx.Add(ctx, []Record{
		{ID: "r1", Vector: []float32{1, 0, 0}},
		{ID: "r2", Vector: []float32{0, 1, 0}},
		{ID: "r3", Vector: []float32{0, 0, 1}},
	})
	removed, err := idx.Remove(ctx, "r2")
	if err != nil {
		t.Fatal(err)
	}
	if !removed {
		t.Fatal("expected r2 to be removed")
	}
	if idx.Size() != 2 {
		t.Errorf("Size=%d, want 2", idx.Size())
	}
	if ids := idx.IDs(); len(ids) != 2 || ids[0] != "r1" || ids[1] != "r3" {
		t.Errorf("ids after remove = %v, want [r1 r3]", ids)
	}
	matches, err := idx.Rank(ctx, []float32{1, 1, 1}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	for _, m := range matches {
		if m.ID == "r2" {
			t.Error("removed record returned by Rank")
		}
	}
	// Surviving rows still line up with their identifiers.
	matches, _ = idx.Rank(ctx, []float32{0, 0, 1}, 1)
	if matches[0].ID != "r3" || !approx(matches[0].Score, 1.0) {
		t.Errorf("row/identifier misaligned after remove: %+v", matches[0])
	}

	removed, err = idx.Remove(ctx, "r2")
	if err != nil {
		t.Fatal(err)
	}
	if removed {
		t.Error("second remove should report not found")
	}
}

func TestIndex_RemoveMissingNoWrite(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "idx")
	idx := newTestIndex(t, 2, WithPath(base))
	removed, err := idx.Remove(context.Background(), "nope")
	if err != nil || removed {
		t.Fatalf("Remove missing = %v, %v", removed, err)
	}
	if _, err := os.Stat(base + ".ids"); !os.IsNotExist(err) {
		t.Error("removing a missing id must not write a snapshot")
	}
}

func TestIndex_RemoveLast(t *testing.T) {
	idx := newTestIndex(t, 2)
	ctx := context.Background()
	_, _ = idx.Add(ctx, []Record{{ID: "only", Vector: []float32{1, 0}}})
	if removed, _ := idx.Remove(ctx, "only"); !removed {
		t.Fatal("expected removal")
	}
	matches, err := idx.Rank(ctx, []float32{1, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches, got %v", matches)
	}
	// The id can be added again once removed.
	if n, _ := idx.Add(ctx, []Record{{ID: "only", Vector: []float32{0, 1}}}); n != 1 {
		t.Errorf("re-add after remove added %d", n)
	}
}

func TestIndex_RankTopKBound(t *testing.T) {
	idx := newTestIndex(t, 2)
	ctx := context.Background()
	_, _ = idx.Add(ctx, []Record{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{1, 1}},
		{ID: "c", Vector: []float32{0, 1}},
	})
	tests := []struct {
		topK int
		want int
	}{
		{1, 1},
		{2, 2},
		{3, 3},
		{10, 3},
		{0, 3}, // default 5, capped by size
	}
	for _, tt := range tests {
		matches, err := idx.Rank(ctx, []float32{1, 0}, tt.topK)
		if err != nil {
			t.Fatal(err)
		}
		if len(matches) != tt.want {
			t.Errorf("topK=%d: got %d matches, want %d", tt.topK, len(matches), tt.want)
		}
		for i := 1; i < len(matches); i++ {
			if matches[i].Score > matches[i-1].Score {
				t.Errorf("topK=%d: scores not descending: %+v", tt.topK, matches)
			}
			if matches[i].Rank != i+1 {
				t.Errorf("topK=%d: rank %d at position %d", tt.topK, matches[i].Rank, i)
			}
		}
	}
}

func TestIndex_RankTiesByInsertionOrder(t *testing.T) {
	idx := newTestIndex(t, 2)
	ctx := context.Background()
	_, _ = idx.Add(ctx, []Record{
		{ID: "low", Vector: []float32{0, 1}},
		{ID: "first", Vector: []float32{1, 0}},
		{ID: "second", Vector: []float32{2, 0}},
		{ID: "third", Vector: []float32{5, 0}},
	})
	matches, err := idx.Rank(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 || matches[0].ID != "first" || matches[1].ID != "second" {
		t.Errorf("ties must keep insertion order, got %+v", matches)
	}
}

func TestIndex_RankEmpty(t *testing.T) {
	idx := newTestIndex(t, 3)
	matches, err := idx.Rank(context.Background(), []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if matches == nil || len(matches) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", matches)
	}
}

func TestIndex_PersistRoundTrip(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "sub", "resumes")
	ctx := context.Background()

	idx := newTestIndex(t, 3, WithPath(base))
	_, err := idx.Add(ctx, []Record{
		{ID: "a.pdf", Vector: []float32{1, 0.2, 0}},
		{ID: "b.pdf", Vector: []float32{0, 1, 0.3}},
		{ID: "c.pdf", Vector: []float32{0.5, 0.5, 0.5}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := idx.Remove(ctx, "b.pdf"); err != nil {
		t.Fatal(err)
	}
	for _, suffix := range []string{".index", ".ids"} {
		if _, err := os.Stat(base + suffix); err != nil {
			t.Fatalf("artifact %s not written: %v", suffix, err)
		}
	}
	query := []float32{0.3, 0.1, 0.9}
	want, _ := idx.Rank(ctx, query, 5)

	fresh := newTestIndex(t, 3, WithPath(base))
	if fresh.Size() != 2 {
		t.Fatalf("loaded size=%d, want 2", fresh.Size())
	}
	got, err := fresh.Rank(ctx, query, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d matches, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("match %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestIndex_LoadMissingArtifacts(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "idx")
	ctx := context.Background()
	idx := newTestIndex(t, 2, WithPath(base))
	_, _ = idx.Add(ctx, []Record{{ID: "a", Vector: []float32{1, 0}}})
	if err := os.Remove(base + ".ids"); err != nil {
		t.Fatal(err)
	}
	fresh := newTestIndex(t, 2, WithPath(base))
	if fresh.Size() != 0 {
		t.Errorf("missing ids artifact should start empty, size=%d", fresh.Size())
	}
}

func TestIndex_LoadDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "idx")
	idx := newTestIndex(t, 2, WithPath(base))
	_, _ = idx.Add(context.Background(), []Record{{ID: "a", Vector: []float32{1, 0}}})

	core, logs := observer.New(zapcore.WarnLevel)
	other := newTestIndex(t, 3, WithPath(base), WithLogger(zap.New(core)))
	if other.Size() != 0 {
		t.Errorf("mismatched snapshot should start empty, size=%d", other.Size())
	}
	if logs.FilterMessage("vector index load failed, starting empty").Len() != 1 {
		t.Error("expected a load warning")
	}
	if err := other.Load(); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Load: expected ErrDimensionMismatch, got %v", err)
	}
}

func TestIndex_LoadRowCountMismatch(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "idx")
	ctx := context.Background()
	idx := newTestIndex(t, 2, WithPath(base))
	_, _ = idx.Add(ctx, []Record{{ID: "a", Vector: []float32{1, 0}}})
	stale, err := os.ReadFile(base + ".ids")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = idx.Add(ctx, []Record{{ID: "b", Vector: []float32{0, 1}}})
	// Simulate a crash between the two artifact writes.
	if err := os.WriteFile(base+".ids", stale, 0644); err != nil {
		t.Fatal(err)
	}
	fresh := newTestIndex(t, 2, WithPath(base))
	if err := fresh.Load(); err == nil {
		t.Error("expected error for row/identifier count mismatch")
	}
	if fresh.Size() != 0 {
		t.Errorf("inconsistent snapshot should leave index empty, size=%d", fresh.Size())
	}
}

func TestNew_OversizedRowCountStartsEmpty(t *testing.T) {
	base := filepath.Join(t.TempDir(), "idx")
	ctx := context.Background()
	idx := newTestIndex(t, 384, WithPath(base))
	v := make([]float32, 384)
	v[0] = 1
	_, _ = idx.Add(ctx, []Record{{ID: "a", Vector: v}})

	header := append(append([]byte{}, flatMagic[:]...), 1, 0, 0, 0, 0x80, 1, 0, 0, 0xF0, 0xFF, 0xFF, 0xFF)
	if err := os.WriteFile(base+".index", header, 0644); err != nil {
		t.Fatal(err)
	}
	core, logs := observer.New(zapcore.WarnLevel)
	fresh := newTestIndex(t, 384, WithPath(base), WithLogger(zap.New(core)))
	if fresh.Size() != 0 {
		t.Errorf("damaged snapshot should start empty, size=%d", fresh.Size())
	}
	if logs.Len() == 0 {
		t.Error("expected a warning for the damaged snapshot")
	}
}

func TestIndex_PersistFailureKeepsMemoryState(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	core, logs := observer.New(zapcore.WarnLevel)
	// The parent of the snapshot path is a regular file, so every save fails.
	idx := newTestIndex(t, 2, WithPath(filepath.Join(blocker, "idx")), WithLogger(zap.New(core)))
	ctx := context.Background()

	n, err := idx.Add(ctx, []Record{{ID: "a", Vector: []float32{1, 0}}})
	if !IsPersistError(err) {
		t.Fatalf("expected persist error, got %v", err)
	}
	if n != 1 || idx.Size() != 1 {
		t.Errorf("add must apply in memory despite persist failure: n=%d size=%d", n, idx.Size())
	}
	if logs.FilterMessage("vector index save failed").Len() == 0 {
		t.Error("expected a warn log for the failed save")
	}
	removed, err := idx.Remove(ctx, "a")
	if !removed || !IsPersistError(err) {
		t.Errorf("Remove = %v, %v; want true with persist error", removed, err)
	}
	if idx.Size() != 0 {
		t.Errorf("Size=%d after remove, want 0", idx.Size())
	}
}

func TestIndex_Rebuild(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "idx")
	idx := newTestIndex(t, 2, WithPath(base))
	ctx := context.Background()
	_, _ = idx.Add(ctx, []Record{{ID: "stale", Vector: []float32{1, 0}}})

	vectors := map[string][]float32{
		"x": {1, 0},
		"y": {0, 1},
	}
	embed := func(_ context.Context, text string) ([]float32, error) {
		return vectors[text], nil
	}
	n, err := idx.Rebuild(ctx, []Source{{ID: "r-x", Text: "x"}, {ID: "r-y", Text: "y"}}, embed)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("rebuild indexed %d, want 2", n)
	}
	if idx.Contains("stale") {
		t.Error("rebuild must discard previous records")
	}
	if ids := idx.IDs(); len(ids) != 2 || ids[0] != "r-x" || ids[1] != "r-y" {
		t.Errorf("ids = %v", ids)
	}
	fresh := newTestIndex(t, 2, WithPath(base))
	if fresh.Size() != 2 {
		t.Errorf("rebuild not persisted, loaded size=%d", fresh.Size())
	}
}

func TestIndex_RebuildEmbedFailureKeepsIndex(t *testing.T) {
	idx := newTestIndex(t, 2)
	ctx := context.Background()
	_, _ = idx.Add(ctx, []Record{{ID: "keep", Vector: []float32{1, 0}}})
	boom := errors.New("model offline")
	_, err := idx.Rebuild(ctx, []Source{{ID: "a", Text: "a"}}, func(context.Context, string) ([]float32, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected embed error, got %v", err)
	}
	if !idx.Contains("keep") {
		t.Error("failed rebuild must leave the index untouched")
	}
}

func TestIndex_RebuildEmpty(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "idx")
	idx := newTestIndex(t, 2, WithPath(base))
	ctx := context.Background()
	_, _ = idx.Add(ctx, []Record{{ID: "a", Vector: []float32{1, 0}}})
	n, err := idx.Rebuild(ctx, nil, nil)
	if err != nil || n != 0 {
		t.Fatalf("Rebuild(nil) = %d, %v", n, err)
	}
	fresh := newTestIndex(t, 2, WithPath(base))
	if fresh.Size() != 0 {
		t.Errorf("empty state not persisted, size=%d", fresh.Size())
	}
}

func TestIndex_ConcurrentAddRemoveRank(t *testing.T) {
	idx := newTestIndex(t, 3, WithPath(filepath.Join(t.TempDir(), "idx")))
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				id := strconv.Itoa(w) + "-" + strconv.Itoa(i)
				if _, err := idx.Add(ctx, []Record{{ID: id, Vector: []float32{float32(w + 1), float32(i), 1}}}); err != nil {
					t.Error(err)
					return
				}
				if _, err := idx.Rank(ctx, []float32{1, 0, 0}, 3); err != nil {
					t.Error(err)
					return
				}
				if i%2 == 0 {
					if removed, err := idx.Remove(ctx, id); err != nil || !removed {
						t.Errorf("Remove(%s) = %v, %v", id, removed, err)
						return
					}
				}
			}
		}(w)
	}
	wg.Wait()

	if idx.Size() != 4*12 {
		t.Errorf("Size = %d, want %d", idx.Size(), 4*12)
	}
	seen := make(map[string]bool)
	for _, id := range idx.IDs() {
		if seen[id] {
			t.Fatalf("duplicate identifier %s", id)
		}
		seen[id] = true
	}
}
