package alert

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/domain/identity"
	"github.com/carelink/carelink/internal/platform/telemetry"
	"github.com/carelink/carelink/internal/platform/ws"
)

// HospitalDirectory resolves routing codes; satisfied by the identity
// repository.
type HospitalDirectory interface {
	GetHospitalByCode(ctx context.Context, code string) (*identity.Hospital, error)
}

type Service struct {
	repo            Repository
	hospitals       HospitalDirectory
	bus             ws.Publisher
	metrics         *telemetry.Metrics
	logger          zerolog.Logger
	defaultHospital string
}

func NewService(repo Repository, hospitals HospitalDirectory, bus ws.Publisher,
	metrics *telemetry.Metrics, logger zerolog.Logger, defaultHospital string) *Service {
	return &Service{
		repo:            repo,
		hospitals:       hospitals,
		bus:             bus,
		metrics:         metrics,
		logger:          logger,
		defaultHospital: defaultHospital,
	}
}

type RaiseParams struct {
	HospitalCode string
	CaseID       *uuid.UUID
	PatientUHID  string
	Severity     Severity
	Title        string
	Message      string
}

// Raise persists an alert and pushes it to the target hospital's realtime
// channel. An unknown or empty routing code falls back to the default
// receiving hospital rather than dropping the alert on the floor.
func (s *Service) Raise(ctx context.Context, p RaiseParams) (*Alert, error) {
	hosp, err := s.resolveHospital(ctx, p.HospitalCode)
	if err != nil {
		return nil, err
	}

	a := &Alert{
		HospitalID:   hosp.ID,
		HospitalCode: hosp.Code,
		CaseID:       p.CaseID,
		Severity:     p.Severity,
		Title:        p.Title,
		Message:      p.Message,
		CreatedAt:    time.Now().UTC(),
	}
	if p.PatientUHID != "" {
		uhid := p.PatientUHID
		a.PatientUHID = &uhid
	}
	if a.Severity == "" {
		a.Severity = SeverityInfo
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	data, err := json.Marshal(a)
	if err == nil {
		s.bus.Publish(ctx, ws.Event{
			Type:         "alert",
			HospitalCode: hosp.Code,
			Timestamp:    a.CreatedAt,
			Data:         data,
		})
	}
	s.metrics.Inc(telemetry.AlertsPublished)
	s.logger.Info().
		Str("alert_id", a.ID.String()).
		Str("hospital_code", hosp.Code).
		Str("severity", string(a.Severity)).
		Msg("alert raised")
	return a, nil
}

func (s *Service) resolveHospital(ctx context.Context, code string) (*identity.Hospital, error) {
	if code != "" {
		hosp, err := s.hospitals.GetHospitalByCode(ctx, code)
		if err == nil {
			return hosp, nil
		}
		if !errors.Is(err, identity.ErrNotFound) {
			return nil, err
		}
		s.logger.Warn().Str("hospital_code", code).Msg("unknown routing code, using default hospital")
	}
	return s.hospitals.GetHospitalByCode(ctx, s.defaultHospital)
}

func (s *Service) ListForHospital(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Alert, int, error) {
	return s.repo.ListByHospital(ctx, hospitalID, limit, offset)
}

// Acknowledge is idempotent; acking an alert twice returns the state from
// the first ack.
func (s *Service) Acknowledge(ctx context.Context, id, by uuid.UUID) (*Alert, error) {
	return s.repo.Acknowledge(ctx, id, by, time.Now().UTC())
}
