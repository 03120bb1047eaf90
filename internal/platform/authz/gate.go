// Package authz implements the authorization gate that mediates every
// operation touching a specific patient's records. The gate is the single
// choke point: it evaluates the caller's verified identity against patient
// consent, records exactly one audit entry per decision, and returns the
// outcome. Callers pass everything the decision needs explicitly; nothing is
// read from ambient request state.
package authz

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/platform/auth"
	"github.com/carelink/carelink/internal/platform/telemetry"
)

// Decision is the recorded outcome of one authorization check.
type Decision string

const (
	DecisionAllowed           Decision = "allowed"
	DecisionBlocked           Decision = "blocked"
	DecisionEmergencyOverride Decision = "emergency_override"
)

// ScopeEHR is the default consent scope covering clinical record access.
const ScopeEHR = "ehr"

var (
	// ErrBlocked is returned when the actor has no grant for the target
	// patient and no override was invoked.
	ErrBlocked = errors.New("authz: access blocked")
	// ErrMissingContext is returned when the request lacks a target patient
	// or the actor's hospital binding. It is a client error, not a denial.
	ErrMissingContext = errors.New("authz: missing request context")
)

// ConsentChecker answers whether a patient currently grants a hospital
// access under a scope.
type ConsentChecker interface {
	Granted(ctx context.Context, patientID, hospitalID uuid.UUID, scope string) (bool, error)
}

// AccessEvent is the audit record of one gate decision.
type AccessEvent struct {
	ActorID    uuid.UUID
	ActorRole  string
	PatientID  *uuid.UUID
	HospitalID *uuid.UUID
	Action     string
	Resource   string
	Decision   Decision
	OccurredAt time.Time
}

// AuditSink persists access events. The gate treats it as best effort.
type AuditSink interface {
	Append(ctx context.Context, event AccessEvent) error
}

// Request carries everything one authorization decision needs. The target
// patient is always the patient whose data the operation would expose, which
// the calling handler resolves itself (e.g. the owning patient of a version,
// not an id picked out of the query string).
type Request struct {
	Actor             auth.Identity
	PatientID         uuid.UUID
	Action            string
	Resource          string
	Scope             string
	EmergencyOverride bool
}

type Gate struct {
	consent ConsentChecker
	audit   AuditSink
	metrics *telemetry.Metrics
	logger  zerolog.Logger
}

func NewGate(consent ConsentChecker, audit AuditSink, metrics *telemetry.Metrics, logger zerolog.Logger) *Gate {
	return &Gate{consent: consent, audit: audit, metrics: metrics, logger: logger}
}

// Authorize evaluates one access request and returns its decision. Exactly
// one audit entry is written per invocation, whatever the outcome. An audit
// write failure never turns an allowed request into a denial; it is counted
// and logged instead.
//
// The decision order: patients may only reach their own record; clinical
// staff with an emergency override are admitted immediately with the
// override recorded; otherwise the patient's consent for the actor's
// hospital decides.
func (g *Gate) Authorize(ctx context.Context, req Request) (Decision, error) {
	if req.Scope == "" {
		req.Scope = ScopeEHR
	}

	decision, err := g.evaluate(ctx, req)
	g.record(ctx, req, decision)
	return decision, err
}

func (g *Gate) evaluate(ctx context.Context, req Request) (Decision, error) {
	switch req.Actor.Role {
	case auth.RolePatient:
		if req.Actor.PatientID == nil || req.PatientID == uuid.Nil {
			return DecisionBlocked, ErrMissingContext
		}
		if *req.Actor.PatientID == req.PatientID {
			return DecisionAllowed, nil
		}
		return DecisionBlocked, ErrBlocked

	case auth.RoleClinician, auth.RoleAdmin:
		if req.EmergencyOverride {
			return DecisionEmergencyOverride, nil
		}
		if req.PatientID == uuid.Nil || req.Actor.HospitalID == nil {
			return DecisionBlocked, ErrMissingContext
		}
		granted, err := g.consent.Granted(ctx, req.PatientID, *req.Actor.HospitalID, req.Scope)
		if err != nil {
			return DecisionBlocked, err
		}
		if granted {
			return DecisionAllowed, nil
		}
		return DecisionBlocked, ErrBlocked

	default:
		return DecisionBlocked, ErrBlocked
	}
}

func (g *Gate) record(ctx context.Context, req Request, decision Decision) {
	g.metrics.Inc(telemetry.AuthzDecisions)

	event := AccessEvent{
		ActorID:    req.Actor.UserID,
		ActorRole:  req.Actor.Role,
		HospitalID: req.Actor.HospitalID,
		Action:     req.Action,
		Resource:   req.Resource,
		Decision:   decision,
		OccurredAt: time.Now().UTC(),
	}
	if req.PatientID != uuid.Nil {
		pid := req.PatientID
		event.PatientID = &pid
	}

	if err := g.audit.Append(ctx, event); err != nil {
		g.metrics.Inc(telemetry.AuditLogFailures)
		g.logger.Error().Err(err).
			Str("action", req.Action).
			Str("decision", string(decision)).
			Msg("audit append failed")
	}
}

// HTTPError converts gate errors into the transport mapping shared by all
// handlers: missing context is the client's fault, a denial is forbidden.
func HTTPError(err error) error {
	switch {
	case errors.Is(err, ErrMissingContext):
		return echo.NewHTTPError(http.StatusBadRequest, "target patient or hospital context missing")
	case errors.Is(err, ErrBlocked):
		return echo.NewHTTPError(http.StatusForbidden, "access blocked: no active consent")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
