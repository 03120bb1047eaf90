package record

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// IdentityDirectory is the slice of the identity registry this package
// needs; satisfied by the identity repository.
type IdentityDirectory interface {
	PatientExists(ctx context.Context, id uuid.UUID) (bool, error)
	HospitalExists(ctx context.Context, id uuid.UUID) (bool, error)
}

type Service struct {
	repo      Repository
	directory IdentityDirectory
	logger    zerolog.Logger
}

func NewService(repo Repository, directory IdentityDirectory, logger zerolog.Logger) *Service {
	return &Service{repo: repo, directory: directory, logger: logger}
}

type CreateEncounterParams struct {
	PatientID     uuid.UUID
	HospitalID    uuid.UUID
	EncounterType string
	StartedAt     time.Time
	CreatedBy     uuid.UUID
}

func (s *Service) CreateEncounter(ctx context.Context, p CreateEncounterParams) (*Encounter, error) {
	if strings.TrimSpace(p.EncounterType) == "" {
		return nil, fmt.Errorf("encounter_type is required")
	}
	if exists, err := s.directory.PatientExists(ctx, p.PatientID); err != nil {
		return nil, err
	} else if !exists {
		return nil, ErrPatientNotFound
	}
	if exists, err := s.directory.HospitalExists(ctx, p.HospitalID); err != nil {
		return nil, err
	} else if !exists {
		return nil, ErrHospitalNotFound
	}

	enc := &Encounter{
		PatientID:     p.PatientID,
		HospitalID:    p.HospitalID,
		EncounterType: p.EncounterType,
		StartedAt:     p.StartedAt,
		CreatedBy:     p.CreatedBy,
	}
	if enc.StartedAt.IsZero() {
		enc.StartedAt = time.Now().UTC()
	}
	if err := s.repo.CreateEncounter(ctx, enc); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("encounter_id", enc.ID.String()).
		Str("patient_id", enc.PatientID.String()).
		Msg("encounter created")
	return enc, nil
}

func (s *Service) GetEncounter(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	return s.repo.GetEncounter(ctx, id)
}

type CommitParams struct {
	EncounterID     uuid.UUID
	ParentVersionID *uuid.UUID
	CommitMessage   string
	Payload         map[string]interface{}
	AuthorID        uuid.UUID
	// AuthorHospitalID is the committing clinician's home hospital; nil for
	// admins, who may write into any encounter.
	AuthorHospitalID *uuid.UUID
}

// CommitVersion appends a new snapshot to an encounter's history. The named
// parent must belong to the same encounter but need not be the newest
// version: committing against an older parent forks the chain, which is by
// construction how concurrent edits land without anyone's write being
// rejected or overwritten.
func (s *Service) CommitVersion(ctx context.Context, p CommitParams) (*Version, error) {
	if p.Payload == nil {
		return nil, fmt.Errorf("payload is required")
	}

	enc, err := s.repo.GetEncounter(ctx, p.EncounterID)
	if err != nil {
		return nil, err
	}
	if p.AuthorHospitalID != nil && *p.AuthorHospitalID != enc.HospitalID {
		return nil, ErrWrongHospital
	}

	if p.ParentVersionID != nil {
		parent, err := s.repo.GetVersion(ctx, *p.ParentVersionID)
		switch {
		case errors.Is(err, ErrVersionNotFound):
			return nil, ErrInvalidParent
		case err != nil:
			return nil, err
		case parent.EncounterID != p.EncounterID:
			return nil, ErrInvalidParent
		}
	}

	v := &Version{
		EncounterID:     enc.ID,
		PatientID:       enc.PatientID,
		HospitalID:      enc.HospitalID,
		ParentVersionID: p.ParentVersionID,
		CommitMessage:   p.CommitMessage,
		Payload:         p.Payload,
		CreatedBy:       p.AuthorID,
	}
	if err := s.repo.InsertVersion(ctx, v); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("version_id", v.ID.String()).
		Str("encounter_id", enc.ID.String()).
		Msg("version committed")
	return v, nil
}

func (s *Service) ListVersions(ctx context.Context, encounterID uuid.UUID) ([]*VersionMeta, error) {
	if _, err := s.repo.GetEncounter(ctx, encounterID); err != nil {
		return nil, err
	}
	return s.repo.ListVersions(ctx, encounterID)
}

func (s *Service) GetVersion(ctx context.Context, id uuid.UUID) (*Version, error) {
	return s.repo.GetVersion(ctx, id)
}

func (s *Service) LatestVersion(ctx context.Context, encounterID uuid.UUID) (*Version, error) {
	if _, err := s.repo.GetEncounter(ctx, encounterID); err != nil {
		return nil, err
	}
	return s.repo.LatestVersion(ctx, encounterID)
}

// DiffVersions compares two snapshots of the same encounter. The from
// version is the baseline; the diff reads as "what changed to reach to".
func (s *Service) DiffVersions(ctx context.Context, fromID, toID uuid.UUID) (*Version, *Version, Diff, error) {
	from, err := s.repo.GetVersion(ctx, fromID)
	if err != nil {
		return nil, nil, Diff{}, err
	}
	to, err := s.repo.GetVersion(ctx, toID)
	if err != nil {
		return nil, nil, Diff{}, err
	}
	if from.EncounterID != to.EncounterID {
		return nil, nil, Diff{}, ErrDiffScope
	}
	return from, to, Compare(from.Payload, to.Payload), nil
}
