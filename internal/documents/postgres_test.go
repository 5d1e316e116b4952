package documents

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/prescription-ai-portal/pkg/logging"
)

func TestPostgresStore_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("SELECT fields FROM documents").
		WithArgs(CollectionUsers, "u1").
		WillReturnRows(pgxmock.NewRows([]string{"fields"}).AddRow([]byte(`{"name":"Alice","role":"patient"}`)))

	store := NewPostgresStore(mock, 0, logging.Default())
	rec, err := store.Get(context.Background(), CollectionUsers, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", rec.ID())
	assert.Equal(t, "patient", rec.String("role"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT fields FROM documents").
		WithArgs(CollectionUsers, "ghost").
		WillReturnError(pgx.ErrNoRows)

	store := NewPostgresStore(mock, 0, logging.Default())
	_, err = store.Get(context.Background(), CollectionUsers, "ghost")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPostgresStore_SetUpserts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO documents").
		WithArgs(CollectionUsers, "u1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewPostgresStore(mock, 0, logging.Default())
	require.NoError(t, store.Set(context.Background(), CollectionUsers, "u1", Record{"name": "Alice"}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_QueryBuildsFilters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, fields FROM documents WHERE collection = \$1 AND fields->>\$2 = \$3 ORDER BY created_at, id LIMIT \$4`).
		WithArgs(CollectionMedications, "patientId", "p1", 3).
		WillReturnRows(pgxmock.NewRows([]string{"id", "fields"}).
			AddRow("m1", []byte(`{"name":"Lisinopril"}`)).
			AddRow("m2", []byte(`{"name":"Metformin"}`)))

	store := NewPostgresStore(mock, 0, logging.Default())
	recs, err := store.Query(context.Background(), CollectionMedications, []Filter{Eq("patientId", "p1")}, 3)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "m2", recs[1].ID())
	assert.Equal(t, "Metformin", recs[1].String("name"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	boom := errors.New("connection reset")
	mock.ExpectQuery("SELECT id, fields FROM documents").WillReturnError(boom)

	store := NewPostgresStore(mock, 10, logging.Default())
	_, err = store.Query(context.Background(), CollectionDoctors, nil, 0)
	assert.ErrorIs(t, err, boom)
}
