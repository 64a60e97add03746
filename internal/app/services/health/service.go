// Package health manages the append-only health metric log.
package health

import (
	"context"
	"sort"
	"strings"

	"github.com/hearthhq/hearth/internal/app/domain/health"
	apperrors "github.com/hearthhq/hearth/internal/errors"
	"github.com/hearthhq/hearth/internal/session"
	"github.com/hearthhq/hearth/internal/store"
	"github.com/hearthhq/hearth/pkg/logger"
)

// Collection returns the metric collection for an identity.
func Collection(identity session.Identity) string {
	if identity.Zero() {
		return ""
	}
	return store.Join("users", identity.UID, "healthMetrics")
}

// Service appends and reads health metrics.
type Service struct {
	store store.Gateway
	log   *logger.Logger
}

// New constructs a health service.
func New(gw store.Gateway, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("health")
	}
	return &Service{store: gw, log: log}
}

// Add appends one reading. Values must be positive; there is no editing an
// existing reading.
func (s *Service) Add(ctx context.Context, identity session.Identity, metricType string, value float64, note string) (health.Metric, error) {
	if !health.ValidType(metricType) {
		return health.Metric{}, apperrors.Validation("unknown metric type %q", metricType)
	}
	if value <= 0 {
		return health.Metric{}, apperrors.Validation("metric value must be positive, got %v", value)
	}
	collection := Collection(identity)
	if collection == "" {
		return health.Metric{}, apperrors.Unauthorized("no active session")
	}

	metric := health.Metric{
		Type:      metricType,
		Value:     value,
		Note:      strings.TrimSpace(note),
		CreatedAt: store.Now(),
	}
	doc := store.Document{
		"type":      metric.Type,
		"value":     metric.Value,
		"createdAt": metric.CreatedAt,
	}
	if metric.Note != "" {
		doc["note"] = metric.Note
	}

	id, err := s.store.Create(ctx, collection, doc)
	if err != nil {
		return health.Metric{}, err
	}
	metric.ID = id
	return metric, nil
}

// Recent reads the latest readings, most recent first, optionally filtered
// by type. limit <= 0 returns everything.
func (s *Service) Recent(ctx context.Context, identity session.Identity, metricType string, limit int) ([]health.Metric, error) {
	collection := Collection(identity)
	if collection == "" {
		return nil, apperrors.Unauthorized("no active session")
	}
	if metricType != "" && !health.ValidType(metricType) {
		return nil, apperrors.Validation("unknown metric type %q", metricType)
	}

	docs, err := s.store.List(ctx, collection, store.Query{OrderBy: "createdAt", Desc: true})
	if err != nil {
		return nil, err
	}

	metrics := make([]health.Metric, 0, len(docs))
	for _, doc := range docs {
		m, _ := health.Decode(doc)
		if metricType != "" && m.Type != metricType {
			continue
		}
		metrics = append(metrics, m)
	}
	sort.SliceStable(metrics, func(i, j int) bool { return health.Less(metrics[i], metrics[j]) })
	if limit > 0 && len(metrics) > limit {
		metrics = metrics[:limit]
	}
	return metrics, nil
}
