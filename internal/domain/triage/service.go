package triage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/domain/alert"
	"github.com/carelink/carelink/internal/platform/telemetry"
)

// Alerter raises hospital alerts; satisfied by the alert service.
type Alerter interface {
	Raise(ctx context.Context, p alert.RaiseParams) (*alert.Alert, error)
}

type Service struct {
	repo       Repository
	classifier Classifier
	alerter    Alerter
	metrics    *telemetry.Metrics
	logger     zerolog.Logger
	threshold  float64
}

func NewService(repo Repository, classifier Classifier, alerter Alerter,
	metrics *telemetry.Metrics, logger zerolog.Logger, threshold float64) *Service {
	return &Service{
		repo:       repo,
		classifier: classifier,
		alerter:    alerter,
		metrics:    metrics,
		logger:     logger,
		threshold:  threshold,
	}
}

// Submit classifies and persists one field case. The order matters: a case
// that cannot be scored is rejected outright, and the receiving hospital is
// paged at most once, only when the urgency score clears the threshold.
func (s *Service) Submit(ctx context.Context, ambulanceID string, sub Submission) (*Case, error) {
	if len(sub.Symptoms) == 0 {
		return nil, fmt.Errorf("at least one symptom is required")
	}

	classification, err := s.classifier.Classify(ctx, sub)
	if err != nil {
		s.metrics.Inc(telemetry.ClassifierErrors)
		return nil, err
	}

	c := &Case{
		AmbulanceID:    ambulanceID,
		Submission:     sub,
		Classification: classification,
		Status:         "submitted",
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.metrics.Inc(telemetry.TriageCasesAccepted)

	if classification.UrgencyScore >= s.threshold {
		if _, err := s.alerter.Raise(ctx, alert.RaiseParams{
			HospitalCode: classification.HospitalCode,
			CaseID:       &c.ID,
			PatientUHID:  sub.PatientUHID,
			Severity:     alert.SeverityCritical,
			Title:        fmt.Sprintf("Incoming %s case", classification.EmergencyType),
			Message: fmt.Sprintf("Urgency %.0f, ambulance %s en route. %s",
				classification.UrgencyScore, ambulanceID, classification.RoutingRationale),
		}); err != nil {
			// The case is already accepted; a paging failure is logged, not
			// surfaced to the crew.
			s.logger.Error().Err(err).Str("case_id", c.ID.String()).Msg("alert raise failed")
		}
	}

	s.logger.Info().
		Str("case_id", c.ID.String()).
		Str("ambulance_id", ambulanceID).
		Float64("urgency_score", classification.UrgencyScore).
		Msg("ambulance case submitted")
	return c, nil
}

func (s *Service) GetCase(ctx context.Context, id uuid.UUID) (*Case, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListCases(ctx context.Context, ambulanceID string, limit, offset int) ([]*Case, int, error) {
	return s.repo.ListByAmbulance(ctx, ambulanceID, limit, offset)
}
