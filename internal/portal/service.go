package portal

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/prescription-ai-portal/internal/documents"
	"github.com/wolfman30/prescription-ai-portal/internal/observability/metrics"
	"github.com/wolfman30/prescription-ai-portal/internal/session"
	"github.com/wolfman30/prescription-ai-portal/pkg/logging"
)

var portalTracer = otel.Tracer("portal.internal.portal")

// ErrPatientRequired rejects a patient-scoped view without a user id.
var ErrPatientRequired = errors.New("portal: patient id required")

// Service answers the read-only portal views from the document store,
// substituting sample records when a query comes back empty.
type Service struct {
	store   documents.Store
	metrics *metrics.PortalMetrics
	logger  *logging.Logger
	now     func() time.Time
}

// NewService constructs a portal view service.
func NewService(store documents.Store, m *metrics.PortalMetrics, logger *logging.Logger) *Service {
	if store == nil {
		panic("portal: document store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, metrics: m, logger: logger, now: time.Now}
}

// fetch runs one view query. An empty result yields a fresh sample set; a
// store failure is reported as a *session.FetchError and never masked.
func fetch[T any](ctx context.Context, s *Service, view, collection string, filters []documents.Filter, limit int, samples func() []T) ([]T, Source, error) {
	ctx, span := portalTracer.Start(ctx, "portal."+view)
	defer span.End()
	span.SetAttributes(attribute.String("portal.collection", collection))

	records, err := s.store.Query(ctx, collection, filters, limit)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveView(view, "error")
		s.logger.Error("portal view query failed", "view", view, "collection", collection, "error", err)
		return nil, "", &session.FetchError{Collection: collection, Err: err}
	}
	if len(records) == 0 {
		s.metrics.ObserveView(view, string(SourceSample))
		span.SetAttributes(attribute.String("portal.source", string(SourceSample)))
		return samples(), SourceSample, nil
	}

	out := make([]T, 0, len(records))
	for _, rec := range records {
		var item T
		if err := documents.Decode(rec, &item); err != nil {
			span.RecordError(err)
			s.metrics.ObserveView(view, "error")
			return nil, "", &session.FetchError{Collection: collection, Err: err}
		}
		out = append(out, item)
	}
	s.metrics.ObserveView(view, string(SourceStore))
	span.SetAttributes(attribute.String("portal.source", string(SourceStore)))
	return out, SourceStore, nil
}

func patientFilter(patientID string) ([]documents.Filter, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, ErrPatientRequired
	}
	return []documents.Filter{documents.Eq("patientId", patientID)}, nil
}

// containsFold reports whether any field contains term, ignoring case. An
// empty term matches everything.
func containsFold(term string, fields ...string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}
