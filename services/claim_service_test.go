package services

import (
	"context"
	"errors"
	"testing"

	"github.com/aoe-board/tournament-board/models"
)

type claimServiceFixture struct {
	service     ClaimService
	claims      *fakeClaimRepo
	tournaments *fakeTournamentRepo
}

func newClaimServiceFixture() *claimServiceFixture {
	claims := newFakeClaimRepo()
	tournaments := newFakeTournamentRepo()
	return &claimServiceFixture{
		service:     NewClaimService(claims, tournaments),
		claims:      claims,
		tournaments: tournaments,
	}
}

func TestCreateClaimSelfService(t *testing.T) {
	f := newClaimServiceFixture()
	user := regularUser()
	stored := f.tournaments.add(models.Tournament{Name: "Cup", Status: models.StatusPublished})

	claim, err := f.service.Create(context.Background(), user, stored.ID, CreateClaimInput{
		Reasoning: "  I am the organizer  ",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if claim.UserID != user.ID {
		t.Errorf("user id = %d, want %d", claim.UserID, user.ID)
	}
	if claim.Approved {
		t.Error("self-service claim must start unapproved")
	}
	if claim.Reasoning != "I am the organizer" {
		t.Errorf("reasoning not trimmed: %q", claim.Reasoning)
	}
}

func TestCreateClaimBlankReasoningRejected(t *testing.T) {
	f := newClaimServiceFixture()
	stored := f.tournaments.add(models.Tournament{Name: "Cup", Status: models.StatusPublished})

	_, err := f.service.Create(context.Background(), regularUser(), stored.ID, CreateClaimInput{Reasoning: "   "})
	if !errors.Is(err, ErrClaimReasoningRequired) {
		t.Errorf("error = %v, want %v", err, ErrClaimReasoningRequired)
	}
}

func TestCreateClaimSmuggledApprovalIgnored(t *testing.T) {
	f := newClaimServiceFixture()
	stored := f.tournaments.add(models.Tournament{Name: "Cup", Status: models.StatusPublished})
	otherID := 99

	claim, err := f.service.Create(context.Background(), regularUser(), stored.ID, CreateClaimInput{
		Reasoning: "mine",
		Approved:  true,
		UserID:    &otherID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if claim.Approved {
		t.Error("non-admin smuggled approval was honored")
	}
	if claim.UserID == otherID {
		t.Error("non-admin claimed on behalf of another user")
	}
}

func TestCreateClaimAdminGrant(t *testing.T) {
	f := newClaimServiceFixture()
	stored := f.tournaments.add(models.Tournament{Name: "Cup", Status: models.StatusPublished})
	targetID := 42

	// Admins may grant a pre-approved claim with no reasoning.
	claim, err := f.service.Create(context.Background(), adminUser(), stored.ID, CreateClaimInput{
		UserID:   &targetID,
		Approved: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if claim.UserID != targetID || !claim.Approved {
		t.Errorf("claim = %+v, want approved claim for user %d", claim, targetID)
	}
}

func TestCreateClaimDuplicate(t *testing.T) {
	f := newClaimServiceFixture()
	user := regularUser()
	stored := f.tournaments.add(models.Tournament{Name: "Cup", Status: models.StatusPublished})
	f.claims.add(models.TournamentClaim{TournamentID: stored.ID, UserID: user.ID, Reasoning: "first"})

	_, err := f.service.Create(context.Background(), user, stored.ID, CreateClaimInput{Reasoning: "second"})
	if !errors.Is(err, ErrClaimAlreadyExists) {
		t.Errorf("error = %v, want %v", err, ErrClaimAlreadyExists)
	}
}

func TestCreateClaimMissingTournament(t *testing.T) {
	f := newClaimServiceFixture()

	_, err := f.service.Create(context.Background(), regularUser(), 123, CreateClaimInput{Reasoning: "mine"})
	if !errors.Is(err, ErrTournamentNotFound) {
		t.Errorf("error = %v, want %v", err, ErrTournamentNotFound)
	}
}

func TestListClaimsPartition(t *testing.T) {
	f := newClaimServiceFixture()
	f.claims.add(models.TournamentClaim{TournamentID: 1, UserID: 5, Reasoning: "a", Approved: true})
	f.claims.add(models.TournamentClaim{TournamentID: 2, UserID: 6, Reasoning: "b"})
	// Auto-created claim with blank reasoning stays out of the admin queue.
	f.claims.add(models.TournamentClaim{TournamentID: 3, UserID: 7, Approved: true})

	list, err := f.service.List(context.Background(), adminUser())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list.Approved) != 1 || len(list.Pending) != 1 {
		t.Errorf("admin view: approved=%d pending=%d, want 1/1", len(list.Approved), len(list.Pending))
	}

	// The claim's own user still sees their blank-reasoning claim.
	owner := &models.User{ID: 7, Email: "owner@example.com"}
	list, err = f.service.List(context.Background(), owner)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list.Approved) != 1 || len(list.Pending) != 0 {
		t.Errorf("owner view: approved=%d pending=%d, want 1/0", len(list.Approved), len(list.Pending))
	}
}

func TestUpdateClaimReasoning(t *testing.T) {
	f := newClaimServiceFixture()
	user := regularUser()
	stored := f.claims.add(models.TournamentClaim{TournamentID: 1, UserID: user.ID, Reasoning: "old"})

	claim, err := f.service.Update(context.Background(), user, stored.ID, UpdateClaimInput{Reasoning: strPtr("new reasoning")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if claim.Reasoning != "new reasoning" {
		t.Errorf("reasoning = %q", claim.Reasoning)
	}

	// Blanking the reasoning on an unapproved claim is rejected.
	if _, err := f.service.Update(context.Background(), user, stored.ID, UpdateClaimInput{Reasoning: strPtr("  ")}); !errors.Is(err, ErrClaimReasoningRequired) {
		t.Errorf("error = %v, want %v", err, ErrClaimReasoningRequired)
	}
}

func TestUpdateClaimApprovalOnlyForAdmins(t *testing.T) {
	f := newClaimServiceFixture()
	user := regularUser()
	stored := f.claims.add(models.TournamentClaim{TournamentID: 1, UserID: user.ID, Reasoning: "mine"})

	approved := true
	claim, err := f.service.Update(context.Background(), user, stored.ID, UpdateClaimInput{Approved: &approved})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if claim.Approved {
		t.Error("non-admin approval change was honored")
	}

	claim, err = f.service.Update(context.Background(), adminUser(), stored.ID, UpdateClaimInput{Approved: &approved})
	if err != nil {
		t.Fatalf("admin Update: %v", err)
	}
	if !claim.Approved {
		t.Error("admin approval change was not applied")
	}
}

func TestUpdateClaimForbiddenForStranger(t *testing.T) {
	f := newClaimServiceFixture()
	stored := f.claims.add(models.TournamentClaim{TournamentID: 1, UserID: 5, Reasoning: "mine"})

	stranger := &models.User{ID: 99, Email: "other@example.com"}
	_, err := f.service.Update(context.Background(), stranger, stored.ID, UpdateClaimInput{Reasoning: strPtr("hijack")})
	if !errors.Is(err, ErrForbiddenOperation) {
		t.Errorf("error = %v, want %v", err, ErrForbiddenOperation)
	}
}

func TestApproveClaim(t *testing.T) {
	f := newClaimServiceFixture()
	stored := f.claims.add(models.TournamentClaim{TournamentID: 1, UserID: 5, Reasoning: "mine"})

	claim, err := f.service.Approve(context.Background(), adminUser(), stored.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if !claim.Approved {
		t.Error("claim not approved")
	}

	// Idempotent: approving again succeeds without change.
	claim, err = f.service.Approve(context.Background(), adminUser(), stored.ID)
	if err != nil || !claim.Approved {
		t.Errorf("second Approve: %v, approved=%v", err, claim.Approved)
	}

	claim, err = f.service.Unapprove(context.Background(), adminUser(), stored.ID)
	if err != nil {
		t.Fatalf("Unapprove: %v", err)
	}
	if claim.Approved {
		t.Error("claim still approved after Unapprove")
	}
}

func TestApproveClaimAdminOnly(t *testing.T) {
	f := newClaimServiceFixture()
	stored := f.claims.add(models.TournamentClaim{TournamentID: 1, UserID: 5, Reasoning: "mine"})

	if _, err := f.service.Approve(context.Background(), regularUser(), stored.ID); !errors.Is(err, ErrForbiddenOperation) {
		t.Errorf("error = %v, want %v", err, ErrForbiddenOperation)
	}
}

func TestDeleteClaim(t *testing.T) {
	f := newClaimServiceFixture()
	user := regularUser()
	stored := f.claims.add(models.TournamentClaim{TournamentID: 1, UserID: user.ID, Reasoning: "mine"})

	stranger := &models.User{ID: 99, Email: "other@example.com"}
	if err := f.service.Delete(context.Background(), stranger, stored.ID); !errors.Is(err, ErrForbiddenOperation) {
		t.Errorf("stranger delete error = %v, want %v", err, ErrForbiddenOperation)
	}

	if err := f.service.Delete(context.Background(), user, stored.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if err := f.service.Delete(context.Background(), user, stored.ID); !errors.Is(err, ErrClaimNotFound) {
		t.Errorf("second delete error = %v, want %v", err, ErrClaimNotFound)
	}
}
