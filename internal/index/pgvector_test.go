package index

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kb_rag/internal/domain"
)

// Тесты Postgres запускаются только при заданном PG_TEST_DSN
func openTestPgvector(t *testing.T) *Pgvector {
	t.Helper()
	dsn := os.Getenv("PG_TEST_DSN")
	if dsn == "" {
		t.Skip("PG_TEST_DSN is not set")
	}
	idx, err := OpenPgvector(context.Background(), dsn, "kb_chunks_test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = idx.db.Exec(`DROP TABLE IF EXISTS kb_chunks_test`)
		_ = idx.Close()
	})
	_, err = idx.db.Exec(`DROP TABLE IF EXISTS kb_chunks_test`)
	require.NoError(t, err)
	return idx
}

func TestPgvector_RoundTrip(t *testing.T) {
	ctx := context.Background()
	idx := openTestPgvector(t)

	matches, err := idx.Search(ctx, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, matches)

	require.NoError(t, idx.Rebuild(ctx, sampleChunks()))
	require.NoError(t, idx.Rebuild(ctx, sampleChunks()))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	matches, err = idx.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(matches))
	assert.Equal(t, "Jane Doe", matches[0].Chunk.EntityID)
	assert.Equal(t, "people", matches[0].Chunk.Metadata[domain.MetaCategory])
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-5)
}

func TestOpenPgvector_InvalidTable(t *testing.T) {
	_, err := OpenPgvector(context.Background(), "postgres://unused", "drop table x;", zap.NewNop())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
