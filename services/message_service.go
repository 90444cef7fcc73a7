package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aoe-board/tournament-board/models"
	"github.com/aoe-board/tournament-board/repositories"
)

type SubmitMessageInput struct {
	Body string `json:"body"`
	// UserID is honored only for admin senders, who may address a message
	// to any user's thread.
	UserID *int `json:"user_id"`
}

// InboxCounts is one sender's bucket in the admin inbox overview.
type InboxCounts struct {
	Read           int `json:"read"`
	Unread         int `json:"unread"`
	RequiresAction int `json:"requires_action"`
}

// InboxView is either the grouped admin overview (Groups set) or a single
// conversation thread (Messages set).
type InboxView struct {
	Groups   map[string]InboxCounts `json:"groups,omitempty"`
	Messages []models.Message       `json:"messages,omitempty"`
}

type MessageService interface {
	// Submit accepts a message from the public contact form. A nil actor
	// is an anonymous visitor.
	Submit(ctx context.Context, actor *models.User, input SubmitMessageInput) (*models.Message, error)
	// Inbox returns the admin overview or a conversation thread and marks
	// the displayed inbound messages as read. senderFilter is a sender
	// email, "anonymous", or empty for the default view.
	Inbox(ctx context.Context, actor *models.User, senderFilter string) (*InboxView, error)
	// ToggleRequiresAction flips the flag and returns the message plus the
	// sender key the caller should redirect back to.
	ToggleRequiresAction(ctx context.Context, actor *models.User, id int) (*models.Message, string, error)
	Delete(ctx context.Context, actor *models.User, id int) error
}

type messageService struct {
	tx          TxRunner
	messages    repositories.MessageRepository
	tournaments repositories.TournamentRepository
	notifier    Notifier
	logger      *slog.Logger
}

func NewMessageService(
	tx TxRunner,
	messages repositories.MessageRepository,
	tournaments repositories.TournamentRepository,
	notifier Notifier,
	logger *slog.Logger,
) MessageService {
	return &messageService{
		tx:          tx,
		messages:    messages,
		tournaments: tournaments,
		notifier:    notifier,
		logger:      logger,
	}
}

func (s *messageService) Submit(ctx context.Context, actor *models.User, input SubmitMessageInput) (*models.Message, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, ErrMessageBodyRequired
	}

	message := &models.Message{Body: body}
	switch {
	case actor == nil:
		// anonymous visitor
	case actor.Admin:
		message.FromAdmin = true
		message.UserID = input.UserID
	default:
		message.UserID = &actor.ID
	}

	if err := s.messages.Create(ctx, nil, message); err != nil {
		if errors.Is(err, repositories.ErrMessageInvalidUser) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if message.UserID != nil && message.User == nil {
		if actor != nil && !actor.Admin {
			message.User = actor
		}
	}

	if !message.FromAdmin && s.notifier != nil {
		s.notifier.InboundMessage(ctx, message)
	}
	return message, nil
}

// Inbox is deliberately not a pure query: listing a thread marks the other
// side's messages as read. The grouped admin overview marks nothing, so
// unread counts survive until a thread is opened.
func (s *messageService) Inbox(ctx context.Context, actor *models.User, senderFilter string) (*InboxView, error) {
	if !actor.Admin {
		messages, err := s.messages.List(ctx, repositories.ListMessagesFilter{UserID: &actor.ID})
		if err != nil {
			return nil, err
		}
		if err := s.markDisplayedRead(ctx, messages, true); err != nil {
			return nil, err
		}
		return &InboxView{Messages: messages}, nil
	}

	switch senderFilter {
	case "":
		rows, err := s.messages.GroupBySender(ctx)
		if err != nil {
			return nil, err
		}
		return &InboxView{Groups: groupInboxCounts(rows)}, nil
	case models.SenderAnonymous:
		messages, err := s.messages.List(ctx, repositories.ListMessagesFilter{Anonymous: true, NewestFirst: true})
		if err != nil {
			return nil, err
		}
		if err := s.markDisplayedRead(ctx, messages, false); err != nil {
			return nil, err
		}
		return &InboxView{Messages: messages}, nil
	default:
		messages, err := s.messages.List(ctx, repositories.ListMessagesFilter{SenderEmail: &senderFilter})
		if err != nil {
			return nil, err
		}
		if err := s.markDisplayedRead(ctx, messages, false); err != nil {
			return nil, err
		}
		return &InboxView{Messages: messages}, nil
	}
}

func (s *messageService) ToggleRequiresAction(ctx context.Context, actor *models.User, id int) (*models.Message, string, error) {
	if !actor.Admin {
		return nil, "", ErrForbiddenOperation
	}

	message, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, "", translateMessageRepoError(err)
	}

	if err := s.messages.SetRequiresAction(ctx, id, !message.RequiresAction); err != nil {
		return nil, "", translateMessageRepoError(err)
	}
	message.RequiresAction = !message.RequiresAction

	return message, message.Sender(), nil
}

// Delete removes a message. When the message is the active publish request
// of a tournament, the tournament's link and flag are cleared in the same
// transaction; a dangling message_id would be a correctness defect.
func (s *messageService) Delete(ctx context.Context, actor *models.User, id int) error {
	if !actor.Admin {
		return ErrForbiddenOperation
	}

	if _, err := s.messages.GetByID(ctx, id); err != nil {
		return translateMessageRepoError(err)
	}

	tournament, err := s.tournaments.GetByMessageID(ctx, nil, id)
	if err != nil && !errors.Is(err, repositories.ErrTournamentNotFound) {
		return err
	}

	if tournament == nil {
		return translateMessageRepoError(s.messages.Delete(ctx, nil, id))
	}

	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament.MessageID = nil
		tournament.Flags.Remove(models.FlagPublishRequest)
		if updateErr := s.tournaments.Update(ctx, exec, tournament); updateErr != nil {
			return updateErr
		}
		return s.messages.Delete(ctx, exec, id)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCompoundUpdateFailed, err)
	}

	if s.notifier != nil {
		s.notifier.PublishRequestWithdrawn(ctx, tournament)
	}
	return nil
}

// markDisplayedRead marks the inbound half of a displayed thread as read:
// fromAdmin selects which direction counts as inbound for the viewer.
func (s *messageService) markDisplayedRead(ctx context.Context, messages []models.Message, fromAdmin bool) error {
	ids := make([]int, 0, len(messages))
	for i := range messages {
		m := &messages[i]
		if m.FromAdmin == fromAdmin && !m.Read {
			ids = append(ids, m.ID)
			m.Read = true
		}
	}
	return s.messages.MarkRead(ctx, ids)
}

// groupInboxCounts folds the grouped rows into per-sender counts. The
// requires_action count is independent of read state.
func groupInboxCounts(rows []repositories.InboxGroupRow) map[string]InboxCounts {
	groups := make(map[string]InboxCounts)
	for _, row := range rows {
		sender := models.SenderAnonymous
		if row.SenderEmail != nil {
			sender = *row.SenderEmail
		}
		counts := groups[sender]
		if row.Read {
			counts.Read += row.Count
		} else {
			counts.Unread += row.Count
		}
		if row.RequiresAction {
			counts.RequiresAction += row.Count
		}
		groups[sender] = counts
	}
	return groups
}

func translateMessageRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrMessageNotFound):
		return ErrMessageNotFound
	case errors.Is(err, repositories.ErrMessageInvalidUser):
		return ErrUserNotFound
	default:
		return err
	}
}
