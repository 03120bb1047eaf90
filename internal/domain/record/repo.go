package record

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreateEncounter(ctx context.Context, e *Encounter) error
	GetEncounter(ctx context.Context, id uuid.UUID) (*Encounter, error)

	InsertVersion(ctx context.Context, v *Version) error
	GetVersion(ctx context.Context, id uuid.UUID) (*Version, error)
	// ListVersions returns the full history of an encounter, oldest first.
	ListVersions(ctx context.Context, encounterID uuid.UUID) ([]*VersionMeta, error)
	// LatestVersion returns the newest version, or ErrVersionNotFound for an
	// encounter with no history yet.
	LatestVersion(ctx context.Context, encounterID uuid.UUID) (*Version, error)
}
