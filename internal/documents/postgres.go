package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/prescription-ai-portal/pkg/logging"
)

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps documents as JSONB rows in the documents table.
type PostgresStore struct {
	db         pgxQuerier
	maxResults int
	logger     *logging.Logger
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps a pgx pool (or any compatible querier).
func NewPostgresStore(db pgxQuerier, maxResults int, logger *logging.Logger) *PostgresStore {
	if db == nil {
		panic("documents: pgx pool required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &PostgresStore{db: db, maxResults: maxResults, logger: logger}
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (Record, error) {
	if err := validateKey(collection, id); err != nil {
		return nil, err
	}
	ctx, span := documentsTracer.Start(ctx, "documents.postgres.get")
	defer span.End()
	span.SetAttributes(attribute.String("portal.collection", collection))

	var raw []byte
	err := s.db.QueryRow(ctx,
		`SELECT fields FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("documents: select %s/%s: %w", collection, id, err)
	}
	return decodeRow(id, raw)
}

func (s *PostgresStore) Set(ctx context.Context, collection, id string, fields Record) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}
	ctx, span := documentsTracer.Start(ctx, "documents.postgres.set")
	defer span.End()
	span.SetAttributes(attribute.String("portal.collection", collection))

	raw, err := json.Marshal(withID(fields, id))
	if err != nil {
		return fmt.Errorf("documents: marshal %s/%s: %w", collection, id, err)
	}
	query := `
		INSERT INTO documents (collection, id, fields)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, id)
		DO UPDATE SET fields = EXCLUDED.fields, updated_at = now()
	`
	if _, err := s.db.Exec(ctx, query, collection, id, raw); err != nil {
		span.RecordError(err)
		return fmt.Errorf("documents: upsert %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, collection string, filters []Filter, limit int) ([]Record, error) {
	if strings.TrimSpace(collection) == "" {
		return nil, ErrInvalidKey
	}
	ctx, span := documentsTracer.Start(ctx, "documents.postgres.query")
	defer span.End()
	span.SetAttributes(attribute.String("portal.collection", collection))

	query, args := buildQuery(collection, filters, effectiveLimit(limit, s.maxResults))
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("documents: query %s: %w", collection, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("documents: scan %s row: %w", collection, err)
		}
		rec, err := decodeRow(id, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("documents: iterate %s: %w", collection, err)
	}
	return out, nil
}

func buildQuery(collection string, filters []Filter, limit int) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT id, fields FROM documents WHERE collection = $1")
	args := []any{collection}
	for _, f := range filters {
		args = append(args, f.Field, f.Value)
		fmt.Fprintf(&b, " AND fields->>$%d = $%d", len(args)-1, len(args))
	}
	args = append(args, limit)
	fmt.Fprintf(&b, " ORDER BY created_at, id LIMIT $%d", len(args))
	return b.String(), args
}

func decodeRow(id string, raw []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("documents: decode %s: %w", id, err)
	}
	if rec == nil {
		rec = Record{}
	}
	rec["id"] = id
	return rec, nil
}
