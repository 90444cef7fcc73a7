package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aoe-board/tournament-board/models"
	"github.com/aoe-board/tournament-board/repositories"
	"github.com/aoe-board/tournament-board/storage"
)

var ErrLogoUploadsDisabled = errors.New("logo storage is not configured")

type CreateTournamentInput struct {
	Name              string     `json:"name"`
	LiquipediaURL     *string    `json:"liquipedia_url"`
	RulesURL          *string    `json:"rules_url"`
	RegistrationURL   *string    `json:"registration_url"`
	InfoURL           *string    `json:"info_url"`
	Format            *string    `json:"format"`
	Game              *string    `json:"game"`
	Tier              *string    `json:"tier"`
	PrizePool         *string    `json:"prize_pool"`
	Restrictions      *string    `json:"restrictions"`
	Notes             *string    `json:"notes"`
	Organizers        *string    `json:"organizers"`
	RegistrationClose *time.Time `json:"registration_close"`
	StartDate         *time.Time `json:"start_date"`
	EndDate           *time.Time `json:"end_date"`
}

// UpdateTournamentInput carries a partial update: nil fields are left
// untouched. Status changes go through UpdateStatus, never through here.
type UpdateTournamentInput struct {
	Name              *string    `json:"name"`
	LiquipediaURL     *string    `json:"liquipedia_url"`
	RulesURL          *string    `json:"rules_url"`
	RegistrationURL   *string    `json:"registration_url"`
	InfoURL           *string    `json:"info_url"`
	Format            *string    `json:"format"`
	Game              *string    `json:"game"`
	Tier              *string    `json:"tier"`
	PrizePool         *string    `json:"prize_pool"`
	Restrictions      *string    `json:"restrictions"`
	Notes             *string    `json:"notes"`
	Organizers        *string    `json:"organizers"`
	RegistrationClose *time.Time `json:"registration_close"`
	StartDate         *time.Time `json:"start_date"`
	EndDate           *time.Time `json:"end_date"`
}

// AdminTournamentList is the vetting view: for the published filter, Old
// holds tournaments whose registration already closed.
type AdminTournamentList struct {
	Tournaments []models.Tournament `json:"tournaments"`
	Old         []models.Tournament `json:"old_tournaments,omitempty"`
}

type TournamentService interface {
	Create(ctx context.Context, actor *models.User, input CreateTournamentInput) (*models.Tournament, error)
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	ListBoard(ctx context.Context) ([]models.Tournament, error)
	ListAdmin(ctx context.Context, actor *models.User, statusFilter string) (*AdminTournamentList, error)
	Update(ctx context.Context, actor *models.User, id int, input UpdateTournamentInput) (*models.Tournament, error)
	UpdateStatus(ctx context.Context, actor *models.User, id int, status string) (*models.Tournament, error)
	ToggleRequestPublication(ctx context.Context, actor *models.User, id int) (*models.Tournament, error)
	RemoveFlag(ctx context.Context, actor *models.User, id int, flag string) (*models.Tournament, error)
	Delete(ctx context.Context, actor *models.User, id int) error
	UploadLogo(ctx context.Context, actor *models.User, id int, contentType string, file io.Reader) (*models.Tournament, error)
	RemoveLogo(ctx context.Context, actor *models.User, id int) error
	OwnedBy(ctx context.Context, actor *models.User, tournamentID int) (bool, error)
}

type tournamentService struct {
	tx          TxRunner
	tournaments repositories.TournamentRepository
	claims      repositories.TournamentClaimRepository
	messages    repositories.MessageRepository
	uploader    storage.FileUploader // nil when R2 is not configured
	notifier    Notifier
	logger      *slog.Logger
}

func NewTournamentService(
	tx TxRunner,
	tournaments repositories.TournamentRepository,
	claims repositories.TournamentClaimRepository,
	messages repositories.MessageRepository,
	uploader storage.FileUploader,
	notifier Notifier,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tx:          tx,
		tournaments: tournaments,
		claims:      claims,
		messages:    messages,
		uploader:    uploader,
		notifier:    notifier,
		logger:      logger,
	}
}

// Create registers a new listing. Admin submissions go straight to pending;
// self-service submissions start at submitted and the creator receives an
// auto-approved claim in the same transaction.
func (s *tournamentService) Create(ctx context.Context, actor *models.User, input CreateTournamentInput) (*models.Tournament, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTournamentNameRequired
	}

	liquipediaURL, err := hygienateLiquipediaURL(input.LiquipediaURL)
	if err != nil {
		return nil, err
	}

	game := trimPtr(input.Game)
	if game == nil {
		defaultGame := models.DefaultGame
		game = &defaultGame
	}

	tournament := &models.Tournament{
		Name:              name,
		LiquipediaURL:     liquipediaURL,
		RulesURL:          trimPtr(input.RulesURL),
		RegistrationURL:   trimPtr(input.RegistrationURL),
		InfoURL:           trimPtr(input.InfoURL),
		Format:            trimPtr(input.Format),
		Game:              game,
		Tier:              trimPtr(input.Tier),
		PrizePool:         trimPtr(input.PrizePool),
		Restrictions:      input.Restrictions,
		Notes:             input.Notes,
		Organizers:        trimPtr(input.Organizers),
		RegistrationClose: input.RegistrationClose,
		StartDate:         input.StartDate,
		EndDate:           input.EndDate,
	}

	if actor.Admin {
		tournament.Status = models.StatusPending
		if err := s.tournaments.Create(ctx, nil, tournament); err != nil {
			return nil, translateTournamentRepoError(err)
		}
		return tournament, nil
	}

	tournament.Status = models.StatusSubmitted
	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.tournaments.Create(ctx, exec, tournament); err != nil {
			return err
		}
		claim := &models.TournamentClaim{
			TournamentID: tournament.ID,
			UserID:       actor.ID,
			Approved:     true,
		}
		return s.claims.Create(ctx, exec, claim)
	})
	if err != nil {
		return nil, translateTournamentRepoError(err)
	}
	return tournament, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournaments.GetByID(ctx, id)
	if err != nil {
		return nil, translateTournamentRepoError(err)
	}

	claims, err := s.claims.List(ctx, repositories.ListClaimsFilter{TournamentID: &id})
	if err != nil {
		return nil, err
	}
	tournament.Claims = claims

	s.populateLogoURL(tournament)
	return tournament, nil
}

// ListBoard is the public registration-opportunity view: published
// tournaments whose registration has not yet closed, soonest close first.
func (s *tournamentService) ListBoard(ctx context.Context) ([]models.Tournament, error) {
	status := models.StatusPublished
	today := dateToday()
	tournaments, err := s.tournaments.List(ctx, repositories.ListTournamentsFilter{
		Status:                   &status,
		RegistrationCloseFrom:    &today,
		OrderByRegistrationClose: true,
	})
	if err != nil {
		return nil, err
	}
	for i := range tournaments {
		s.populateLogoURL(&tournaments[i])
	}
	return tournaments, nil
}

func (s *tournamentService) ListAdmin(ctx context.Context, actor *models.User, statusFilter string) (*AdminTournamentList, error) {
	if statusFilter == "" {
		statusFilter = string(models.StatusSubmitted)
	}
	status := models.TournamentStatus(statusFilter)
	if !status.Valid() {
		return nil, ErrTournamentInvalidStatus
	}

	if !actor.Admin {
		tournaments, err := s.tournaments.List(ctx, repositories.ListTournamentsFilter{
			Status:          &status,
			ClaimedByUserID: &actor.ID,
		})
		if err != nil {
			return nil, err
		}
		return &AdminTournamentList{Tournaments: tournaments}, nil
	}

	if status == models.StatusPublished {
		today := dateToday()
		current, err := s.tournaments.List(ctx, repositories.ListTournamentsFilter{
			Status:                &status,
			RegistrationCloseFrom: &today,
		})
		if err != nil {
			return nil, err
		}
		old, err := s.tournaments.List(ctx, repositories.ListTournamentsFilter{
			Status:                  &status,
			RegistrationCloseBefore: &today,
		})
		if err != nil {
			return nil, err
		}
		return &AdminTournamentList{Tournaments: current, Old: old}, nil
	}

	tournaments, err := s.tournaments.List(ctx, repositories.ListTournamentsFilter{Status: &status})
	if err != nil {
		return nil, err
	}
	return &AdminTournamentList{Tournaments: tournaments}, nil
}

func (s *tournamentService) Update(ctx context.Context, actor *models.User, id int, input UpdateTournamentInput) (*models.Tournament, error) {
	tournament, err := s.requireOwnedTournament(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrTournamentNameRequired
		}
		tournament.Name = name
	}
	if input.LiquipediaURL != nil {
		liquipediaURL, hygieneErr := hygienateLiquipediaURL(input.LiquipediaURL)
		if hygieneErr != nil {
			return nil, hygieneErr
		}
		tournament.LiquipediaURL = liquipediaURL
	}
	if input.RulesURL != nil {
		tournament.RulesURL = trimPtr(input.RulesURL)
	}
	if input.RegistrationURL != nil {
		tournament.RegistrationURL = trimPtr(input.RegistrationURL)
	}
	if input.InfoURL != nil {
		tournament.InfoURL = trimPtr(input.InfoURL)
	}
	if input.Format != nil {
		tournament.Format = trimPtr(input.Format)
	}
	if input.Game != nil {
		tournament.Game = trimPtr(input.Game)
	}
	if input.Tier != nil {
		tournament.Tier = trimPtr(input.Tier)
	}
	if input.PrizePool != nil {
		tournament.PrizePool = trimPtr(input.PrizePool)
	}
	if input.Restrictions != nil {
		tournament.Restrictions = input.Restrictions
	}
	if input.Notes != nil {
		tournament.Notes = input.Notes
	}
	if input.Organizers != nil {
		tournament.Organizers = trimPtr(input.Organizers)
	}
	if input.RegistrationClose != nil {
		tournament.RegistrationClose = input.RegistrationClose
	}
	if input.StartDate != nil {
		tournament.StartDate = input.StartDate
	}
	if input.EndDate != nil {
		tournament.EndDate = input.EndDate
	}

	if tournament.Status == models.StatusPublished && tournament.RegistrationClose == nil {
		return nil, ErrRegistrationCloseRequired
	}

	if err := s.tournaments.Update(ctx, nil, tournament); err != nil {
		return nil, translateTournamentRepoError(err)
	}
	s.populateLogoURL(tournament)
	return tournament, nil
}

// UpdateStatus moves a tournament through its lifecycle. The transition
// table gates the target status; publishing additionally requires an admin
// actor and a registration close date. An invalid status value is rejected
// without touching the row.
func (s *tournamentService) UpdateStatus(ctx context.Context, actor *models.User, id int, statusValue string) (*models.Tournament, error) {
	tournament, err := s.requireOwnedTournament(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	next := models.TournamentStatus(statusValue)
	if !next.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrTournamentInvalidStatus, statusValue)
	}
	if !isValidStatusTransition(tournament.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrStatusTransitionNotAllowed, tournament.Status, next)
	}
	if next == models.StatusPublished {
		if !actor.Admin {
			return nil, ErrPublishForbidden
		}
		if tournament.RegistrationClose == nil {
			return nil, ErrRegistrationCloseRequired
		}
	}

	tournament.Status = next
	if err := s.tournaments.Update(ctx, nil, tournament); err != nil {
		return nil, translateTournamentRepoError(err)
	}
	return tournament, nil
}

// ToggleRequestPublication opens a publication request when none exists and
// withdraws it otherwise. Message and tournament are updated in one
// transaction; a partial write must never survive.
func (s *tournamentService) ToggleRequestPublication(ctx context.Context, actor *models.User, id int) (*models.Tournament, error) {
	tournament, err := s.requireOwnedTournament(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if tournament.MessageID == nil {
		if tournament.Status != models.StatusPending {
			return nil, ErrNotPendingPublication
		}

		message := &models.Message{
			Body:           fmt.Sprintf("Please publish %s", tournament.Name),
			UserID:         &actor.ID,
			RequiresAction: true,
		}
		err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
			if createErr := s.messages.Create(ctx, exec, message); createErr != nil {
				return createErr
			}
			tournament.MessageID = &message.ID
			tournament.Flags.Add(models.FlagPublishRequest)
			return s.tournaments.Update(ctx, exec, tournament)
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCompoundUpdateFailed, err)
		}

		if s.notifier != nil {
			s.notifier.PublishRequested(ctx, tournament, actor)
		}
		return tournament, nil
	}

	messageID := *tournament.MessageID
	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament.MessageID = nil
		tournament.Flags.Remove(models.FlagPublishRequest)
		if updateErr := s.tournaments.Update(ctx, exec, tournament); updateErr != nil {
			return updateErr
		}
		return s.messages.Delete(ctx, exec, messageID)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompoundUpdateFailed, err)
	}

	if s.notifier != nil {
		s.notifier.PublishRequestWithdrawn(ctx, tournament)
	}
	return tournament, nil
}

func (s *tournamentService) RemoveFlag(ctx context.Context, actor *models.User, id int, flag string) (*models.Tournament, error) {
	if !actor.Admin {
		return nil, ErrForbiddenOperation
	}

	tournament, err := s.tournaments.GetByID(ctx, id)
	if err != nil {
		return nil, translateTournamentRepoError(err)
	}

	tournament.Flags.Remove(flag)
	if err := s.tournaments.Update(ctx, nil, tournament); err != nil {
		return nil, translateTournamentRepoError(err)
	}
	return tournament, nil
}

func (s *tournamentService) Delete(ctx context.Context, actor *models.User, id int) error {
	if _, err := s.requireOwnedTournament(ctx, actor, id); err != nil {
		return err
	}
	if err := s.tournaments.Delete(ctx, id); err != nil {
		return translateTournamentRepoError(err)
	}
	return nil
}

func (s *tournamentService) UploadLogo(ctx context.Context, actor *models.User, id int, contentType string, file io.Reader) (*models.Tournament, error) {
	if s.uploader == nil {
		return nil, ErrLogoUploadsDisabled
	}

	tournament, err := s.requireOwnedTournament(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	ext, err := extensionForContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	key := fmt.Sprintf("tournaments/%d/logo%s", id, ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, file); err != nil {
		return nil, fmt.Errorf("failed to upload tournament logo: %w", err)
	}

	oldKey := tournament.LogoKey
	if err := s.tournaments.UpdateLogoKey(ctx, id, &key); err != nil {
		return nil, translateTournamentRepoError(err)
	}
	if oldKey != nil && *oldKey != key {
		if delErr := s.uploader.Delete(ctx, *oldKey); delErr != nil {
			s.logger.Warn("failed to delete replaced tournament logo",
				slog.String("key", *oldKey), slog.Any("error", delErr))
		}
	}

	tournament.LogoKey = &key
	s.populateLogoURL(tournament)
	return tournament, nil
}

func (s *tournamentService) RemoveLogo(ctx context.Context, actor *models.User, id int) error {
	if s.uploader == nil {
		return ErrLogoUploadsDisabled
	}

	tournament, err := s.requireOwnedTournament(ctx, actor, id)
	if err != nil {
		return err
	}
	if tournament.LogoKey == nil {
		return nil
	}

	if err := s.uploader.Delete(ctx, *tournament.LogoKey); err != nil {
		return fmt.Errorf("failed to delete tournament logo: %w", err)
	}
	if err := s.tournaments.UpdateLogoKey(ctx, id, nil); err != nil {
		return translateTournamentRepoError(err)
	}
	return nil
}

// OwnedBy reports whether the actor may manage the tournament: admins own
// everything, otherwise an approved claim is required.
func (s *tournamentService) OwnedBy(ctx context.Context, actor *models.User, tournamentID int) (bool, error) {
	if actor.Admin {
		return true, nil
	}
	return s.claims.HasClaim(ctx, actor.ID, tournamentID, true)
}

func (s *tournamentService) requireOwnedTournament(ctx context.Context, actor *models.User, id int) (*models.Tournament, error) {
	tournament, err := s.tournaments.GetByID(ctx, id)
	if err != nil {
		return nil, translateTournamentRepoError(err)
	}

	owned, err := s.OwnedBy(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, ErrForbiddenOperation
	}
	return tournament, nil
}

func (s *tournamentService) populateLogoURL(t *models.Tournament) {
	if t.LogoKey != nil && *t.LogoKey != "" && s.uploader != nil {
		url := s.uploader.GetPublicURL(*t.LogoKey)
		if url != "" {
			t.LogoURL = &url
		}
	}
}

func dateToday() time.Time {
	year, month, day := time.Now().UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func extensionForContentType(contentType string) (string, error) {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	default:
		return "", fmt.Errorf("unsupported logo content type %q", contentType)
	}
}

func translateTournamentRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrTournamentNameConflict):
		return ErrTournamentNameTaken
	case errors.Is(err, repositories.ErrTournamentURLConflict):
		return ErrLiquipediaURLTaken
	case errors.Is(err, repositories.ErrClaimConflict):
		return ErrClaimAlreadyExists
	default:
		return err
	}
}
