package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/baladia/taxe/internal/logger"
	"github.com/baladia/taxe/internal/metrics"
	"github.com/baladia/taxe/internal/models"
	"github.com/baladia/taxe/internal/repository"
	"github.com/baladia/taxe/internal/tax"
)

// MinReasonLength is the minimum number of characters of an opposition reason.
// Leading and trailing whitespace is trimmed before counting, so padding
// cannot make up a justification.
const MinReasonLength = 10

// Decision is the outcome a reviewer chooses for a pending opposition.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Valid reports whether d is approve or reject.
func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// SubmitOppositionInput is a taxpayer request to revise a property.
// Nil proposed fields mean no change is requested.
type SubmitOppositionInput struct {
	ProposedCoveredSurface *float64
	ProposedOtherServices  *string
	Reason                 string
	SubmittedBy            string
	ProposedServices       []string
	PropertyID             int64
}

// ReviewOppositionInput is a reviewer decision on a pending opposition.
type ReviewOppositionInput struct {
	ReviewNotes  *string
	Decision     Decision
	ReviewerID   string
	OppositionID int64
}

// FieldChange records one property attribute modified by an approval.
type FieldChange struct {
	Previous interface{} `json:"previous"`
	New      interface{} `json:"new"`
	Field    string      `json:"field"`
}

// AppliedChanges lists what an approval changed on the property.
type AppliedChanges struct {
	PreviousTax decimal.Decimal `json:"previousTax"`
	NewTax      decimal.Decimal `json:"newTax"`
	Fields      []FieldChange   `json:"fields"`
}

// ReviewResult is the outcome of a review. ApplyError is set when an approval
// could not be applied and the opposition was refused instead.
type ReviewResult struct {
	Opposition     *models.Opposition      `json:"opposition"`
	Property       *models.Property        `json:"property"`
	AppliedChanges *AppliedChanges         `json:"appliedChanges,omitempty"`
	Status         models.OppositionStatus `json:"status"`
	ApplyError     string                  `json:"applyError,omitempty"`
}

// OppositionService defines the opposition workflow.
type OppositionService interface {
	// SubmitOpposition files a pending opposition and locks the property at
	// opposition_pending.
	// Returns ErrValidation for malformed input, ErrNotFound when the property
	// does not exist and ErrConflict when the property cannot be opposed.
	SubmitOpposition(ctx context.Context, in SubmitOppositionInput) (*models.Opposition, error)

	// ReviewOpposition approves or rejects a pending opposition.
	// An approval whose property update fails is recorded as a refusal and
	// reported through ReviewResult.ApplyError rather than as an error.
	// Returns ErrNotFound, ErrConflict when the opposition is no longer
	// pending, and ErrPersistence when the final writes fail.
	//
	// The pending check is only race-free when the service runs with a
	// Transactor. Without one, a reviewer who loses a concurrent approval has
	// already written the proposal to the property when the guarded opposition
	// update reports ErrConflict; the proposal is the same, so the tax ends up
	// identical, but the write is not undone.
	ReviewOpposition(ctx context.Context, in ReviewOppositionInput) (*ReviewResult, error)

	// GetOpposition returns one opposition or ErrOppositionNotFound.
	GetOpposition(ctx context.Context, id int64) (*models.Opposition, error)

	// ListOppositions returns the oppositions matching filter, oldest first.
	ListOppositions(ctx context.Context, filter models.OppositionFilter) ([]*models.Opposition, error)
}

// oppositionService is the concrete implementation of OppositionService.
type oppositionService struct {
	properties  repository.PropertyRepository
	oppositions repository.OppositionRepository
	tx          Transactor
	log         *logger.Logger
	now         func() time.Time
	atomic      bool
}

// NewOppositionService creates a new instance of OppositionService.
// A nil transactor runs every step directly and relies on compensating writes.
func NewOppositionService(
	properties repository.PropertyRepository,
	oppositions repository.OppositionRepository,
	tx Transactor,
	log *logger.Logger,
) OppositionService {
	runner, atomic := transactorOrDirect(tx)
	return &oppositionService{
		properties:  properties,
		oppositions: oppositions,
		tx:          runner,
		log:         log.WithComponent("opposition_service"),
		now:         time.Now,
		atomic:      atomic,
	}
}

func validateSubmission(in SubmitOppositionInput) (SubmitOppositionInput, error) {
	if strings.TrimSpace(in.SubmittedBy) == "" {
		return in, ErrMissingUser
	}

	in.Reason = strings.TrimSpace(in.Reason)
	if utf8.RuneCountInString(in.Reason) < MinReasonLength {
		return in, ErrReasonTooShort
	}

	verr := newValidationError()
	if s := in.ProposedCoveredSurface; s != nil && (*s < 0 || math.IsNaN(*s) || math.IsInf(*s, 0)) {
		verr.add("proposedCoveredSurface", "must be a non-negative number")
	}
	if in.ProposedServices != nil {
		in.ProposedServices = models.NormalizeServices(in.ProposedServices)
		for _, id := range in.ProposedServices {
			if !models.IsKnownService(id) {
				verr.add("proposedServices", fmt.Sprintf("unknown service %q", id))
			}
		}
	}
	if in.ProposedOtherServices != nil {
		trimmed := strings.TrimSpace(*in.ProposedOtherServices)
		in.ProposedOtherServices = &trimmed
	}
	return in, verr.errOrNil()
}

// SubmitOpposition validates and files a new opposition.
func (s *oppositionService) SubmitOpposition(ctx context.Context, in SubmitOppositionInput) (*models.Opposition, error) {
	in, err := validateSubmission(in)
	if err != nil {
		s.log.Warn("Rejected opposition submission", map[string]interface{}{
			"property_id": in.PropertyID,
			"error":       err.Error(),
		})
		metrics.OppositionSubmitted("invalid")
		return nil, err
	}

	var created *models.Opposition
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		prop, err := s.properties.FindByID(ctx, in.PropertyID)
		if err != nil {
			return persistenceError("find property", err)
		}
		if prop == nil {
			return ErrPropertyNotFound
		}

		proposal := &models.Opposition{
			ProposedCoveredSurface: in.ProposedCoveredSurface,
			ProposedServices:       in.ProposedServices,
			ProposedOtherServices:  in.ProposedOtherServices,
		}
		if prop.Type == models.PropertyTypeUnbuilt && proposal.HasProposal() {
			return ErrBuiltOnlyProposal
		}

		pending, err := s.oppositions.FindPendingByPropertyID(ctx, prop.ID)
		if err != nil {
			return persistenceError("find pending opposition", err)
		}
		if pending != nil {
			return ErrPendingOppositionExists
		}

		// A property left at opposition_pending by a failed approval has no
		// pending opposition anymore and accepts a new one.
		recovering := !prop.Archived && prop.Status == models.PropertyStatusOppositionPending
		if !prop.CanBeOpposed() && !recovering {
			return fmt.Errorf("%w (status %s, archived %t)", ErrPropertyNotOpposable, prop.Status, prop.Archived)
		}

		created, err = s.oppositions.Insert(ctx, &models.Opposition{
			PropertyID:             prop.ID,
			ProposedCoveredSurface: in.ProposedCoveredSurface,
			ProposedServices:       in.ProposedServices,
			ProposedOtherServices:  in.ProposedOtherServices,
			Reason:                 in.Reason,
			SubmittedBy:            in.SubmittedBy,
			Status:                 models.OppositionStatusPending,
		})
		if err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrPendingOppositionExists
			}
			return persistenceError("insert opposition", err)
		}

		status := models.PropertyStatusOppositionPending
		updated, err := s.properties.Update(ctx, prop.ID, models.PropertyPatch{Status: &status})
		if err == nil && updated == nil {
			err = repository.ErrUnexpectedRowCount
		}
		if err != nil {
			if !s.atomic {
				s.withdrawSubmission(ctx, created)
			}
			return persistenceError("lock property", err)
		}
		return nil
	})
	if err != nil {
		s.logFailure("Opposition submission failed", err, map[string]interface{}{
			"property_id":  in.PropertyID,
			"submitted_by": in.SubmittedBy,
		})
		metrics.OppositionSubmitted(outcomeOf(err))
		return nil, err
	}

	s.log.Info("Opposition submitted", map[string]interface{}{
		"opposition_id": created.ID,
		"property_id":   created.PropertyID,
		"submitted_by":  created.SubmittedBy,
	})
	metrics.OppositionSubmitted("accepted")
	return created, nil
}

// withdrawSubmission refuses an opposition whose property could not be locked.
func (s *oppositionService) withdrawSubmission(ctx context.Context, o *models.Opposition) {
	ctx = context.WithoutCancel(ctx)
	refused := models.OppositionStatusRefused
	pending := models.OppositionStatusPending
	notes := "Withdrawn automatically: the property could not be locked for review."
	now := s.now()

	withdrawn, err := s.oppositions.Update(ctx, o.ID, models.OppositionPatch{
		Status:         &refused,
		ReviewNotes:    &notes,
		ResolvedAt:     &now,
		ExpectedStatus: &pending,
	})
	if err == nil && withdrawn == nil {
		err = repository.ErrUnexpectedRowCount
	}
	if err != nil {
		s.log.Error("Data integrity warning: pending opposition left on an unlocked property", err, map[string]interface{}{
			"opposition_id": o.ID,
			"property_id":   o.PropertyID,
		})
		metrics.CompensationFailed("withdraw_submission")
	}
}

// ReviewOpposition resolves a pending opposition. The ExpectedStatus guard on
// the opposition write settles concurrent reviews; under a transaction the
// loser's property write rolls back with it.
func (s *oppositionService) ReviewOpposition(ctx context.Context, in ReviewOppositionInput) (*ReviewResult, error) {
	if !in.Decision.Valid() {
		return nil, ErrInvalidDecision
	}
	if strings.TrimSpace(in.ReviewerID) == "" {
		return nil, ErrMissingUser
	}

	var (
		result  *ReviewResult
		written *models.OppositionStatus
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		written = nil

		opp, err := s.oppositions.FindByID(ctx, in.OppositionID)
		if err != nil {
			return persistenceError("find opposition", err)
		}
		if opp == nil {
			return ErrOppositionNotFound
		}
		if opp.Status != models.OppositionStatusPending {
			return fmt.Errorf("%w (status %s)", ErrOppositionNotPending, opp.Status)
		}

		prop, err := s.properties.FindByID(ctx, opp.PropertyID)
		if err != nil {
			return persistenceError("find property", err)
		}
		if prop == nil {
			return ErrPropertyNotFound
		}

		final := models.OppositionStatusRefused
		notes := in.ReviewNotes
		var (
			changes  *AppliedChanges
			applyErr error
		)
		if in.Decision == DecisionApprove {
			var updated *models.Property
			updated, changes, applyErr = s.applyProposal(ctx, prop, opp)
			if applyErr == nil {
				final = models.OppositionStatusApproved
				prop = updated
			} else {
				changes = nil
				notes = appendApplyFailure(notes, applyErr)
				s.log.Warn("Approved opposition could not be applied, refusing it", map[string]interface{}{
					"opposition_id": opp.ID,
					"property_id":   prop.ID,
					"error":         applyErr.Error(),
				})
			}
		}

		now := s.now()
		reviewer := strings.TrimSpace(in.ReviewerID)
		pending := models.OppositionStatusPending
		resolved, err := s.oppositions.Update(ctx, opp.ID, models.OppositionPatch{
			Status:         &final,
			ReviewedBy:     &reviewer,
			ReviewNotes:    notes,
			ResolvedAt:     &now,
			ExpectedStatus: &pending,
		})
		if err != nil {
			return persistenceError("resolve opposition", err)
		}
		if resolved == nil {
			// Another reviewer resolved it first.
			return ErrOppositionNotPending
		}
		written = &final

		// A failed approval leaves the property locked at opposition_pending.
		if applyErr == nil {
			status := models.PropertyStatusActive
			if final == models.OppositionStatusApproved {
				status = models.PropertyStatusOppositionApproved
			}
			unlocked, err := s.properties.Update(ctx, prop.ID, models.PropertyPatch{Status: &status})
			if err == nil && unlocked == nil {
				err = repository.ErrUnexpectedRowCount
			}
			if err != nil {
				return persistenceError("update property status", err)
			}
			prop = unlocked
		}

		result = &ReviewResult{
			Opposition:     resolved,
			Property:       prop,
			Status:         final,
			AppliedChanges: changes,
		}
		if applyErr != nil {
			result.ApplyError = applyErr.Error()
		}
		return nil
	})
	if err != nil {
		if written != nil && !s.atomic && errors.Is(err, ErrPersistence) {
			s.revertReview(ctx, in.OppositionID, *written)
		}
		s.logFailure("Opposition review failed", err, map[string]interface{}{
			"opposition_id": in.OppositionID,
			"decision":      string(in.Decision),
			"reviewer_id":   in.ReviewerID,
		})
		metrics.OppositionReviewed(string(in.Decision), outcomeOf(err))
		return nil, err
	}

	outcome := string(result.Status)
	if result.ApplyError != "" {
		outcome = "apply_failed"
	}
	metrics.OppositionReviewed(string(in.Decision), outcome)
	s.log.Info("Opposition reviewed", map[string]interface{}{
		"opposition_id": result.Opposition.ID,
		"property_id":   result.Opposition.PropertyID,
		"decision":      string(in.Decision),
		"status":        string(result.Status),
		"reviewer_id":   in.ReviewerID,
	})
	return result, nil
}

// applyProposal writes the proposed attributes and the recomputed tax.
// The write runs in its own nested transaction so that a failure can be
// contained without aborting the review.
func (s *oppositionService) applyProposal(ctx context.Context, prop *models.Property, opp *models.Opposition) (*models.Property, *AppliedChanges, error) {
	if prop.Type == models.PropertyTypeUnbuilt && opp.HasProposal() {
		return nil, nil, ErrBuiltOnlyProposal
	}

	next := *prop
	changes := &AppliedChanges{PreviousTax: prop.TaxAmount, Fields: []FieldChange{}}
	var patch models.PropertyPatch

	if opp.ProposedCoveredSurface != nil {
		surface := *opp.ProposedCoveredSurface
		next.CoveredSurface = &surface
		patch.CoveredSurface = &surface
		changes.Fields = append(changes.Fields, FieldChange{
			Field:    "coveredSurface",
			Previous: floatValue(prop.CoveredSurface),
			New:      surface,
		})
	}
	if opp.ProposedServices != nil {
		next.Services = models.NormalizeServices(opp.ProposedServices)
		patch.Services = next.Services
		changes.Fields = append(changes.Fields, FieldChange{
			Field:    "services",
			Previous: prop.Services,
			New:      next.Services,
		})
	}
	if opp.ProposedOtherServices != nil {
		other := strings.TrimSpace(*opp.ProposedOtherServices)
		next.OtherServices = other
		patch.OtherServices = &other
		changes.Fields = append(changes.Fields, FieldChange{
			Field:    "otherServices",
			Previous: prop.OtherServices,
			New:      other,
		})
	}

	attrs := tax.AttributesOf(&next)
	if err := tax.ValidateAttributes(attrs); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	amount := tax.Compute(next.Type, attrs)
	patch.TaxAmount = &amount
	changes.NewTax = amount

	var updated *models.Property
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.properties.Update(ctx, prop.ID, patch)
		if err == nil && updated == nil {
			err = repository.ErrUnexpectedRowCount
		}
		return err
	})
	if err != nil {
		return nil, nil, persistenceError("apply proposal", err)
	}
	metrics.TaxComputed(string(next.Type))
	return updated, changes, nil
}

// revertReview puts a resolved opposition back in the review queue after the
// rest of the review failed.
func (s *oppositionService) revertReview(ctx context.Context, id int64, written models.OppositionStatus) {
	ctx = context.WithoutCancel(ctx)
	pending := models.OppositionStatusPending

	reverted, err := s.oppositions.Update(ctx, id, models.OppositionPatch{
		Status:         &pending,
		ClearReview:    true,
		ExpectedStatus: &written,
	})
	if err == nil && reverted == nil {
		err = repository.ErrUnexpectedRowCount
	}
	if err != nil {
		s.log.Error("Data integrity warning: opposition could not be reverted to pending", err, map[string]interface{}{
			"opposition_id": id,
			"written":       string(written),
		})
		metrics.CompensationFailed("revert_review")
		return
	}
	s.log.Warn("Opposition reverted to pending after a failed review", map[string]interface{}{
		"opposition_id": id,
	})
}

// GetOpposition returns one opposition by id.
func (s *oppositionService) GetOpposition(ctx context.Context, id int64) (*models.Opposition, error) {
	opp, err := s.oppositions.FindByID(ctx, id)
	if err != nil {
		s.log.Error("Failed to query opposition", err, map[string]interface{}{
			"opposition_id": id,
		})
		return nil, persistenceError("find opposition", err)
	}
	if opp == nil {
		return nil, ErrOppositionNotFound
	}
	return opp, nil
}

// ListOppositions returns a page of oppositions.
func (s *oppositionService) ListOppositions(ctx context.Context, filter models.OppositionFilter) ([]*models.Opposition, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		verr := newValidationError()
		verr.add("status", fmt.Sprintf("unknown opposition status %q", filter.Status))
		return nil, verr
	}

	oppositions, err := s.oppositions.List(ctx, filter)
	if err != nil {
		s.log.Error("Failed to list oppositions", err, map[string]interface{}{
			"status":      string(filter.Status),
			"property_id": filter.PropertyID,
		})
		return nil, persistenceError("list oppositions", err)
	}
	return oppositions, nil
}

// logFailure logs expected rejections as warnings and store failures as errors.
func (s *oppositionService) logFailure(msg string, err error, fields map[string]interface{}) {
	if errors.Is(err, ErrPersistence) {
		s.log.Error(msg, err, fields)
		return
	}
	fields["error"] = err.Error()
	s.log.Warn(msg, fields)
}

func appendApplyFailure(notes *string, applyErr error) *string {
	line := "Approval could not be applied: " + applyErr.Error()
	if notes == nil || strings.TrimSpace(*notes) == "" {
		return &line
	}
	combined := strings.TrimRight(*notes, "\n") + "\n\n" + line
	return &combined
}

// outcomeOf names the error kind for metrics labels.
func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}

func floatValue(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
