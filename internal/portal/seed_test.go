package portal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/prescription-ai-portal/internal/documents"
)

func TestSeedDoctors(t *testing.T) {
	ctx := context.Background()
	store := documents.NewMemoryStore()
	require.NoError(t, store.Set(ctx, documents.CollectionDoctors, "1", documents.Record{"name": "Dr. Custom"}))

	written, err := SeedDoctors(ctx, store, false)
	require.NoError(t, err)
	assert.Equal(t, 5, written)

	rec, err := store.Get(ctx, documents.CollectionDoctors, "1")
	require.NoError(t, err)
	assert.Equal(t, "Dr. Custom", rec.String("name"))

	written, err = SeedDoctors(ctx, store, true)
	require.NoError(t, err)
	assert.Equal(t, 6, written)

	svc := newTestService(t, store)
	list, err := svc.Doctors(ctx, DoctorQuery{})
	require.NoError(t, err)
	assert.Equal(t, SourceStore, list.Source)
	assert.Equal(t, SampleDoctors(), list.Doctors)
}
