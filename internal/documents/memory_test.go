package documents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetGetRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, CollectionUsers, "u1", Record{"name": "Alice", "role": "patient"}))

	rec, err := store.Get(ctx, CollectionUsers, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", rec.ID())
	assert.Equal(t, "Alice", rec.String("name"))

	rec["name"] = "mutated"
	again, err := store.Get(ctx, CollectionUsers, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", again.String("name"), "returned records must be copies")
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), CollectionUsers, "nobody")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = store.Get(context.Background(), "", "x")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestMemoryStore_QueryFiltersAndLimits(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for _, id := range []string{"m1", "m2", "m3", "m4"} {
		owner := "p1"
		if id == "m2" {
			owner = "p2"
		}
		require.NoError(t, store.Set(ctx, CollectionMedications, id, Record{"patientId": owner}))
	}

	all, err := store.Query(ctx, CollectionMedications, []Filter{Eq("patientId", "p1")}, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"m1", "m3", "m4"}, []string{all[0].ID(), all[1].ID(), all[2].ID()})

	limited, err := store.Query(ctx, CollectionMedications, []Filter{Eq("patientId", "p1")}, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := store.Query(ctx, CollectionAppointments, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestEncodeDecode(t *testing.T) {
	type profile struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	rec, err := Encode(profile{ID: "u1", Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", rec["name"])

	var out profile
	require.NoError(t, Decode(rec, &out))
	assert.Equal(t, profile{ID: "u1", Name: "Alice"}, out)
}
