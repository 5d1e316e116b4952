package portal

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/prescription-ai-portal/internal/documents"
)

// SeedDoctors writes the sample doctor directory into store. Existing
// doctors are left alone unless overwrite is set. It returns how many
// documents were written.
func SeedDoctors(ctx context.Context, store documents.Store, overwrite bool) (int, error) {
	written := 0
	for _, doc := range SampleDoctors() {
		if !overwrite {
			_, err := store.Get(ctx, documents.CollectionDoctors, doc.ID)
			if err == nil {
				continue
			}
			if !errors.Is(err, documents.ErrNotFound) {
				return written, fmt.Errorf("portal: seed: read doctor %s: %w", doc.ID, err)
			}
		}
		rec, err := documents.Encode(doc)
		if err != nil {
			return written, fmt.Errorf("portal: seed: %w", err)
		}
		if err := store.Set(ctx, documents.CollectionDoctors, doc.ID, rec); err != nil {
			return written, fmt.Errorf("portal: seed: write doctor %s: %w", doc.ID, err)
		}
		written++
	}
	return written, nil
}
