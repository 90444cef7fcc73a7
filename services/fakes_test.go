package services

import (
	"context"

	"github.com/aoe-board/tournament-board/models"
	"github.com/aoe-board/tournament-board/repositories"
)

// In-memory repository fakes. Each fake stores rows keyed by id and hands out
// copies so tests cannot mutate the store through returned pointers.

type fakeTournamentRepo struct {
	nextID      int
	tournaments map[int]*models.Tournament
	updateErr   error
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{nextID: 1, tournaments: make(map[int]*models.Tournament)}
}

func (r *fakeTournamentRepo) add(t models.Tournament) *models.Tournament {
	if t.ID == 0 {
		t.ID = r.nextID
		r.nextID++
	} else if t.ID >= r.nextID {
		r.nextID = t.ID + 1
	}
	stored := t
	r.tournaments[stored.ID] = &stored
	return &stored
}

func (r *fakeTournamentRepo) Create(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament) error {
	for _, existing := range r.tournaments {
		if existing.Name == tournament.Name {
			return repositories.ErrTournamentNameConflict
		}
	}
	tournament.ID = r.nextID
	r.nextID++
	stored := *tournament
	r.tournaments[stored.ID] = &stored
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *tournament
	copied.Flags = append(models.FlagSet(nil), tournament.Flags...)
	return &copied, nil
}

func (r *fakeTournamentRepo) GetByMessageID(ctx context.Context, exec repositories.SQLExecutor, messageID int) (*models.Tournament, error) {
	for _, tournament := range r.tournaments {
		if tournament.MessageID != nil && *tournament.MessageID == messageID {
			copied := *tournament
			copied.Flags = append(models.FlagSet(nil), tournament.Flags...)
			return &copied, nil
		}
	}
	return nil, repositories.ErrTournamentNotFound
}

func (r *fakeTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	var out []models.Tournament
	for _, tournament := range r.tournaments {
		if filter.Status != nil && tournament.Status != *filter.Status {
			continue
		}
		if filter.RegistrationCloseFrom != nil {
			if tournament.RegistrationClose == nil || tournament.RegistrationClose.Before(*filter.RegistrationCloseFrom) {
				continue
			}
		}
		if filter.RegistrationCloseBefore != nil {
			if tournament.RegistrationClose == nil || !tournament.RegistrationClose.Before(*filter.RegistrationCloseBefore) {
				continue
			}
		}
		out = append(out, *tournament)
	}
	return out, nil
}

func (r *fakeTournamentRepo) Update(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.tournaments[tournament.ID]; !ok {
		return repositories.ErrTournamentNotFound
	}
	stored := *tournament
	stored.Flags = append(models.FlagSet(nil), tournament.Flags...)
	r.tournaments[stored.ID] = &stored
	return nil
}

func (r *fakeTournamentRepo) UpdateLogoKey(ctx context.Context, tournamentID int, logoKey *string) error {
	tournament, ok := r.tournaments[tournamentID]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	tournament.LogoKey = logoKey
	return nil
}

func (r *fakeTournamentRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.tournaments, id)
	return nil
}

type fakeClaimRepo struct {
	nextID int
	claims map[int]*models.TournamentClaim
}

func newFakeClaimRepo() *fakeClaimRepo {
	return &fakeClaimRepo{nextID: 1, claims: make(map[int]*models.TournamentClaim)}
}

func (r *fakeClaimRepo) add(c models.TournamentClaim) *models.TournamentClaim {
	if c.ID == 0 {
		c.ID = r.nextID
		r.nextID++
	} else if c.ID >= r.nextID {
		r.nextID = c.ID + 1
	}
	stored := c
	r.claims[stored.ID] = &stored
	return &stored
}

func (r *fakeClaimRepo) Create(ctx context.Context, exec repositories.SQLExecutor, claim *models.TournamentClaim) error {
	for _, existing := range r.claims {
		if existing.TournamentID == claim.TournamentID && existing.UserID == claim.UserID {
			return repositories.ErrClaimConflict
		}
	}
	claim.ID = r.nextID
	r.nextID++
	stored := *claim
	r.claims[stored.ID] = &stored
	return nil
}

func (r *fakeClaimRepo) GetByID(ctx context.Context, id int) (*models.TournamentClaim, error) {
	claim, ok := r.claims[id]
	if !ok {
		return nil, repositories.ErrClaimNotFound
	}
	copied := *claim
	return &copied, nil
}

func (r *fakeClaimRepo) List(ctx context.Context, filter repositories.ListClaimsFilter) ([]models.TournamentClaim, error) {
	var out []models.TournamentClaim
	for _, claim := range r.claims {
		if filter.UserID != nil && claim.UserID != *filter.UserID {
			continue
		}
		if filter.TournamentID != nil && claim.TournamentID != *filter.TournamentID {
			continue
		}
		if filter.RequireReasoning && claim.Reasoning == "" {
			continue
		}
		out = append(out, *claim)
	}
	return out, nil
}

func (r *fakeClaimRepo) HasClaim(ctx context.Context, userID, tournamentID int, approved bool) (bool, error) {
	for _, claim := range r.claims {
		if claim.UserID == userID && claim.TournamentID == tournamentID && claim.Approved == approved {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeClaimRepo) UpdateReasoning(ctx context.Context, id int, reasoning string) error {
	claim, ok := r.claims[id]
	if !ok {
		return repositories.ErrClaimNotFound
	}
	claim.Reasoning = reasoning
	return nil
}

func (r *fakeClaimRepo) SetApproved(ctx context.Context, id int, approved bool) error {
	claim, ok := r.claims[id]
	if !ok {
		return repositories.ErrClaimNotFound
	}
	claim.Approved = approved
	return nil
}

func (r *fakeClaimRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.claims[id]; !ok {
		return repositories.ErrClaimNotFound
	}
	delete(r.claims, id)
	return nil
}

type fakeMessageRepo struct {
	nextID    int
	messages  map[int]*models.Message
	groupRows []repositories.InboxGroupRow
	markedIDs []int
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{nextID: 1, messages: make(map[int]*models.Message)}
}

func (r *fakeMessageRepo) add(m models.Message) *models.Message {
	if m.ID == 0 {
		m.ID = r.nextID
		r.nextID++
	} else if m.ID >= r.nextID {
		r.nextID = m.ID + 1
	}
	stored := m
	r.messages[stored.ID] = &stored
	return &stored
}

func (r *fakeMessageRepo) Create(ctx context.Context, exec repositories.SQLExecutor, message *models.Message) error {
	message.ID = r.nextID
	r.nextID++
	stored := *message
	r.messages[stored.ID] = &stored
	return nil
}

func (r *fakeMessageRepo) GetByID(ctx context.Context, id int) (*models.Message, error) {
	message, ok := r.messages[id]
	if !ok {
		return nil, repositories.ErrMessageNotFound
	}
	copied := *message
	return &copied, nil
}

func (r *fakeMessageRepo) List(ctx context.Context, filter repositories.ListMessagesFilter) ([]models.Message, error) {
	var out []models.Message
	for _, message := range r.messages {
		switch {
		case filter.UserID != nil:
			if message.UserID == nil || *message.UserID != *filter.UserID {
				continue
			}
		case filter.Anonymous:
			if message.UserID != nil {
				continue
			}
		case filter.SenderEmail != nil:
			if message.User == nil || message.User.Email != *filter.SenderEmail {
				continue
			}
		}
		out = append(out, *message)
	}
	return out, nil
}

func (r *fakeMessageRepo) GroupBySender(ctx context.Context) ([]repositories.InboxGroupRow, error) {
	return r.groupRows, nil
}

func (r *fakeMessageRepo) MarkRead(ctx context.Context, ids []int) error {
	for _, id := range ids {
		if message, ok := r.messages[id]; ok {
			message.Read = true
		}
	}
	r.markedIDs = append(r.markedIDs, ids...)
	return nil
}

func (r *fakeMessageRepo) SetRequiresAction(ctx context.Context, id int, requiresAction bool) error {
	message, ok := r.messages[id]
	if !ok {
		return repositories.ErrMessageNotFound
	}
	message.RequiresAction = requiresAction
	return nil
}

func (r *fakeMessageRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	if _, ok := r.messages[id]; !ok {
		return repositories.ErrMessageNotFound
	}
	delete(r.messages, id)
	return nil
}

type fakeUserRepo struct {
	nextID int
	users  map[int]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: make(map[int]*models.User)}
}

func (r *fakeUserRepo) add(u models.User) *models.User {
	if u.ID == 0 {
		u.ID = r.nextID
		r.nextID++
	} else if u.ID >= r.nextID {
		r.nextID = u.ID + 1
	}
	stored := u
	r.users[stored.ID] = &stored
	return &stored
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	user.ID = r.nextID
	r.nextID++
	stored := *user
	r.users[stored.ID] = &stored
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) ListAdmins(ctx context.Context) ([]models.User, error) {
	var out []models.User
	for _, user := range r.users {
		if user.Admin {
			out = append(out, *user)
		}
	}
	return out, nil
}

// fakeTxRunner runs the unit of work immediately. The repository fakes
// ignore the executor, so a nil one is enough.
type fakeTxRunner struct{}

func (r *fakeTxRunner) RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

// fakeNotifier records calls so tests can assert on notification side
// effects.
type fakeNotifier struct {
	publishRequested []int
	withdrawn        []int
	inbound          []int
}

func (n *fakeNotifier) PublishRequested(ctx context.Context, tournament *models.Tournament, requester *models.User) {
	n.publishRequested = append(n.publishRequested, tournament.ID)
}

func (n *fakeNotifier) PublishRequestWithdrawn(ctx context.Context, tournament *models.Tournament) {
	n.withdrawn = append(n.withdrawn, tournament.ID)
}

func (n *fakeNotifier) InboundMessage(ctx context.Context, message *models.Message) {
	n.inbound = append(n.inbound, message.ID)
}
