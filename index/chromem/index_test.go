package chromem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tesserai/docpipe/index"
)

func unitVector(dims, hot int) []float32 {
	v := make([]float32, dims)
	v[hot] = 1
	return v
}

func TestUpsertAndQuery(t *testing.T) {
	x := NewMemoryIndex()
	defer x.Close()

	ctx := context.Background()

	err := x.Upsert(ctx, "tenant-a",
		index.Entry{ID: "doc-1#0", Vector: unitVector(4, 0), Metadata: index.Metadata{DocumentID: "doc-1", SequenceID: 0}},
		index.Entry{ID: "doc-1#1", Vector: unitVector(4, 1), Metadata: index.Metadata{DocumentID: "doc-1", SequenceID: 1}},
		index.Entry{ID: "doc-2#-1", Vector: unitVector(4, 2), Metadata: index.Metadata{DocumentID: "doc-2", SequenceID: -1}},
	)
	require.NoError(t, err)

	matches, err := x.Query(ctx, "tenant-a", unitVector(4, 1), 2)
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	assert.Equal(t, "doc-1#1", matches[0].ID)
	assert.Equal(t, "doc-1", matches[0].Metadata.DocumentID)
	assert.Equal(t, 1, matches[0].Metadata.SequenceID)
	assert.InDelta(t, 1.0, float64(matches[0].Score), 1e-4)
}

func TestQuery_NegativeSequenceRoundTrip(t *testing.T) {
	x := NewMemoryIndex()
	defer x.Close()

	ctx := context.Background()

	err := x.Upsert(ctx, "tenant-a",
		index.Entry{ID: "doc-1#-1", Vector: unitVector(3, 0), Metadata: index.Metadata{DocumentID: "doc-1", SequenceID: -1}},
	)
	require.NoError(t, err)

	matches, err := x.Query(ctx, "tenant-a", unitVector(3, 0), 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, -1, matches[0].Metadata.SequenceID)
}

func TestQuery_TopKClampedToCollectionSize(t *testing.T) {
	x := NewMemoryIndex()
	defer x.Close()

	ctx := context.Background()

	// Empty collection: no error, no matches
	matches, err := x.Query(ctx, "tenant-a", unitVector(3, 0), 5)
	require.NoError(t, err)
	assert.Empty(t, matches)

	err = x.Upsert(ctx, "tenant-a",
		index.Entry{ID: "doc-1#0", Vector: unitVector(3, 0), Metadata: index.Metadata{DocumentID: "doc-1", SequenceID: 0}},
	)
	require.NoError(t, err)

	// topK larger than the collection still succeeds
	matches, err = x.Query(ctx, "tenant-a", unitVector(3, 0), 5)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestTenantIsolation(t *testing.T) {
	x := NewMemoryIndex()
	defer x.Close()

	ctx := context.Background()

	err := x.Upsert(ctx, "tenant-a",
		index.Entry{ID: "doc-1#0", Vector: unitVector(3, 0), Metadata: index.Metadata{DocumentID: "doc-1", SequenceID: 0}},
	)
	require.NoError(t, err)

	matches, err := x.Query(ctx, "tenant-b", unitVector(3, 0), 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestDeleteByIDs(t *testing.T) {
	x := NewMemoryIndex()
	defer x.Close()

	ctx := context.Background()

	err := x.Upsert(ctx, "tenant-a",
		index.Entry{ID: "doc-1#0", Vector: unitVector(3, 0), Metadata: index.Metadata{DocumentID: "doc-1", SequenceID: 0}},
		index.Entry{ID: "doc-1#1", Vector: unitVector(3, 1), Metadata: index.Metadata{DocumentID: "doc-1", SequenceID: 1}},
	)
	require.NoError(t, err)

	// Unknown ids are tolerated alongside real ones
	err = x.DeleteByIDs(ctx, "tenant-a", "doc-1#0", "doc-1#99")
	require.NoError(t, err)

	matches, err := x.Query(ctx, "tenant-a", unitVector(3, 0), 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "doc-1#1", matches[0].ID)
}

func TestUpsert_Validation(t *testing.T) {
	x := NewMemoryIndex()
	defer x.Close()

	ctx := context.Background()

	err := x.Upsert(ctx, "tenant-a", index.Entry{ID: "", Vector: unitVector(3, 0)})
	assert.ErrorIs(t, err, index.ErrInvalidEntry)

	err = x.Upsert(ctx, "tenant-a", index.Entry{ID: "doc-1#0"})
	assert.ErrorIs(t, err, index.ErrInvalidEntry)

	_, err = x.Query(ctx, "tenant-a", nil, 5)
	assert.ErrorIs(t, err, index.ErrInvalidQuery)

	_, err = x.Query(ctx, "tenant-a", unitVector(3, 0), 0)
	assert.ErrorIs(t, err, index.ErrInvalidQuery)
}

func TestClosedIndex(t *testing.T) {
	x := NewMemoryIndex()
	require.NoError(t, x.Close())

	err := x.Upsert(context.Background(), "tenant-a",
		index.Entry{ID: "doc-1#0", Vector: unitVector(3, 0)},
	)
	assert.ErrorIs(t, err, index.ErrIndexClosed)
}
