package services

import (
	"context"
	"errors"
	"strings"

	"github.com/aoe-board/tournament-board/models"
	"github.com/aoe-board/tournament-board/repositories"
)

type CreateClaimInput struct {
	Reasoning string `json:"reasoning"`
	// UserID and Approved are honored only for admin actors; an admin may
	// grant another user a pre-approved claim without reasoning.
	UserID   *int `json:"user_id"`
	Approved bool `json:"approved"`
}

// UpdateClaimInput carries a claim edit. Reasoning is the only field a
// non-admin can change; Approved is silently ignored unless the actor is an
// admin.
type UpdateClaimInput struct {
	Reasoning *string `json:"reasoning"`
	Approved  *bool   `json:"approved"`
}

// ClaimList partitions claims into the approval queue buckets.
type ClaimList struct {
	Approved []models.TournamentClaim `json:"approved"`
	Pending  []models.TournamentClaim `json:"pending"`
}

type ClaimService interface {
	Create(ctx context.Context, actor *models.User, tournamentID int, input CreateClaimInput) (*models.TournamentClaim, error)
	List(ctx context.Context, actor *models.User) (*ClaimList, error)
	Update(ctx context.Context, actor *models.User, id int, input UpdateClaimInput) (*models.TournamentClaim, error)
	Approve(ctx context.Context, actor *models.User, id int) (*models.TournamentClaim, error)
	Unapprove(ctx context.Context, actor *models.User, id int) (*models.TournamentClaim, error)
	Delete(ctx context.Context, actor *models.User, id int) error
}

type claimService struct {
	claims      repositories.TournamentClaimRepository
	tournaments repositories.TournamentRepository
}

func NewClaimService(
	claims repositories.TournamentClaimRepository,
	tournaments repositories.TournamentRepository,
) ClaimService {
	return &claimService{
		claims:      claims,
		tournaments: tournaments,
	}
}

// Create files an ownership claim on a tournament. Self-service claims need
// reasoning and await admin approval; the unique (tournament, user) pair is
// enforced by the store rather than a lookup-then-insert race.
func (s *claimService) Create(ctx context.Context, actor *models.User, tournamentID int, input CreateClaimInput) (*models.TournamentClaim, error) {
	if _, err := s.tournaments.GetByID(ctx, tournamentID); err != nil {
		return nil, translateClaimRepoError(err)
	}

	claim := &models.TournamentClaim{
		TournamentID: tournamentID,
		UserID:       actor.ID,
		Reasoning:    strings.TrimSpace(input.Reasoning),
	}
	if actor.Admin {
		if input.UserID != nil {
			claim.UserID = *input.UserID
		}
		claim.Approved = input.Approved
	}

	if claim.Reasoning == "" && !claim.Approved {
		return nil, ErrClaimReasoningRequired
	}

	if err := s.claims.Create(ctx, nil, claim); err != nil {
		return nil, translateClaimRepoError(err)
	}
	return claim, nil
}

// List partitions claims into approved and pending buckets. Admins see every
// claim that carries reasoning (legacy auto-created claims with blank
// reasoning would only clutter the queue); users see their own claims
// regardless of reasoning.
func (s *claimService) List(ctx context.Context, actor *models.User) (*ClaimList, error) {
	filter := repositories.ListClaimsFilter{}
	if actor.Admin {
		filter.RequireReasoning = true
	} else {
		filter.UserID = &actor.ID
	}

	claims, err := s.claims.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return partitionClaims(claims), nil
}

func (s *claimService) Update(ctx context.Context, actor *models.User, id int, input UpdateClaimInput) (*models.TournamentClaim, error) {
	claim, err := s.requireEditableClaim(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if input.Reasoning != nil {
		reasoning := strings.TrimSpace(*input.Reasoning)
		if reasoning == "" && !claim.Approved {
			return nil, ErrClaimReasoningRequired
		}
		if err := s.claims.UpdateReasoning(ctx, id, reasoning); err != nil {
			return nil, translateClaimRepoError(err)
		}
		claim.Reasoning = reasoning
	}

	// Approval changes smuggled into an edit are honored only for admins.
	if input.Approved != nil && actor.Admin && *input.Approved != claim.Approved {
		if err := s.claims.SetApproved(ctx, id, *input.Approved); err != nil {
			return nil, translateClaimRepoError(err)
		}
		claim.Approved = *input.Approved
	}

	return claim, nil
}

// Approve is idempotent: approving an already-approved claim changes
// nothing.
func (s *claimService) Approve(ctx context.Context, actor *models.User, id int) (*models.TournamentClaim, error) {
	return s.setApproved(ctx, actor, id, true)
}

func (s *claimService) Unapprove(ctx context.Context, actor *models.User, id int) (*models.TournamentClaim, error) {
	return s.setApproved(ctx, actor, id, false)
}

func (s *claimService) setApproved(ctx context.Context, actor *models.User, id int, approved bool) (*models.TournamentClaim, error) {
	if !actor.Admin {
		return nil, ErrForbiddenOperation
	}

	claim, err := s.claims.GetByID(ctx, id)
	if err != nil {
		return nil, translateClaimRepoError(err)
	}
	if claim.Approved == approved {
		return claim, nil
	}

	if err := s.claims.SetApproved(ctx, id, approved); err != nil {
		return nil, translateClaimRepoError(err)
	}
	claim.Approved = approved
	return claim, nil
}

func (s *claimService) Delete(ctx context.Context, actor *models.User, id int) error {
	if _, err := s.requireEditableClaim(ctx, actor, id); err != nil {
		return err
	}
	if err := s.claims.Delete(ctx, id); err != nil {
		return translateClaimRepoError(err)
	}
	return nil
}

// requireEditableClaim loads a claim and checks edit rights: the claim's own
// user or an admin.
func (s *claimService) requireEditableClaim(ctx context.Context, actor *models.User, id int) (*models.TournamentClaim, error) {
	claim, err := s.claims.GetByID(ctx, id)
	if err != nil {
		return nil, translateClaimRepoError(err)
	}
	if !actor.Admin && claim.UserID != actor.ID {
		return nil, ErrForbiddenOperation
	}
	return claim, nil
}

func partitionClaims(claims []models.TournamentClaim) *ClaimList {
	list := &ClaimList{
		Approved: make([]models.TournamentClaim, 0),
		Pending:  make([]models.TournamentClaim, 0),
	}
	for _, claim := range claims {
		if claim.Approved {
			list.Approved = append(list.Approved, claim)
		} else {
			list.Pending = append(list.Pending, claim)
		}
	}
	return list
}

func translateClaimRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrClaimNotFound):
		return ErrClaimNotFound
	case errors.Is(err, repositories.ErrClaimConflict):
		return ErrClaimAlreadyExists
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrClaimInvalidUser):
		return ErrUserNotFound
	case errors.Is(err, repositories.ErrClaimInvalidTournament):
		return ErrTournamentNotFound
	default:
		return err
	}
}
