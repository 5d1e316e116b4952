// Package documents is the document-store boundary of the portal: keyed
// records grouped into collections, read by id or by equality filters.
package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Collections used by the portal.
const (
	CollectionUsers        = "users"
	CollectionMedications  = "medications"
	CollectionAppointments = "appointments"
	CollectionDoctors      = "doctors"
)

// DefaultMaxResults bounds unlimited queries.
const DefaultMaxResults = 200

var (
	// ErrNotFound indicates the requested document does not exist.
	ErrNotFound = errors.New("documents: not found")
	// ErrInvalidKey is returned for an empty collection or document id.
	ErrInvalidKey = errors.New("documents: collection and id required")
)

// Record is a document's field map. The document id is stored under "id".
type Record map[string]any

// ID returns the record's id field, if any.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// String returns a string field or "".
func (r Record) String(field string) string {
	v, _ := r[field].(string)
	return v
}

// Filter is an equality match on a top-level string field.
type Filter struct {
	Field string
	Value string
}

// Eq builds an equality filter.
func Eq(field, value string) Filter {
	return Filter{Field: field, Value: value}
}

// Store reads and writes documents.
type Store interface {
	// Get returns ErrNotFound when collection/id does not exist.
	Get(ctx context.Context, collection, id string) (Record, error)
	// Set creates or replaces the document.
	Set(ctx context.Context, collection, id string, fields Record) error
	// Query returns documents matching every filter; limit <= 0 means no
	// caller limit.
	Query(ctx context.Context, collection string, filters []Filter, limit int) ([]Record, error)
}

// Encode converts a tagged struct into a Record using its json tags.
func Encode(v any) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("documents: encode: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("documents: encode: %w", err)
	}
	return rec, nil
}

// Decode fills out from rec using out's json tags.
func Decode(rec Record, out any) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("documents: decode: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("documents: decode: %w", err)
	}
	return nil
}

func validateKey(collection, id string) error {
	if strings.TrimSpace(collection) == "" || strings.TrimSpace(id) == "" {
		return ErrInvalidKey
	}
	return nil
}

func matches(rec Record, filters []Filter) bool {
	for _, f := range filters {
		if fmt.Sprint(rec[f.Field]) != f.Value {
			return false
		}
	}
	return true
}

func effectiveLimit(limit, max int) int {
	if max <= 0 {
		max = DefaultMaxResults
	}
	if limit <= 0 || limit > max {
		return max
	}
	return limit
}

func withID(fields Record, id string) Record {
	out := make(Record, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["id"] = id
	return out
}
