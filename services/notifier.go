package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aoe-board/tournament-board/models"
	"github.com/aoe-board/tournament-board/repositories"
	"golang.org/x/sync/errgroup"
)

// InboxRoom is the realtime room all connected admins join.
const InboxRoom = "inbox"

// InboxBroadcaster pushes inbox events to connected websocket clients.
type InboxBroadcaster interface {
	BroadcastToRoom(roomID string, payload interface{})
}

// Notifier fans notifications out to admins. Delivery failures are logged
// and never fail the triggering request.
type Notifier interface {
	PublishRequested(ctx context.Context, tournament *models.Tournament, requester *models.User)
	PublishRequestWithdrawn(ctx context.Context, tournament *models.Tournament)
	InboundMessage(ctx context.Context, message *models.Message)
}

// InboxEvent is the wire shape of a realtime inbox update.
type InboxEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type adminNotifier struct {
	mailer EmailSender // nil when SMTP is not configured
	users  repositories.UserRepository
	hub    InboxBroadcaster
	logger *slog.Logger
}

func NewAdminNotifier(
	mailer EmailSender,
	users repositories.UserRepository,
	hub InboxBroadcaster,
	logger *slog.Logger,
) Notifier {
	return &adminNotifier{
		mailer: mailer,
		users:  users,
		hub:    hub,
		logger: logger,
	}
}

func (n *adminNotifier) PublishRequested(ctx context.Context, tournament *models.Tournament, requester *models.User) {
	n.broadcast("publish_request_opened", map[string]interface{}{
		"tournament_id":   tournament.ID,
		"tournament_name": tournament.Name,
		"requested_by":    requester.Email,
	})
	subject := fmt.Sprintf("Publication requested: %s", tournament.Name)
	body := fmt.Sprintf("<p>%s requested publication of <b>%s</b>.</p>", requester.Email, tournament.Name)
	n.mailAdmins(ctx, subject, body)
}

func (n *adminNotifier) PublishRequestWithdrawn(ctx context.Context, tournament *models.Tournament) {
	n.broadcast("publish_request_withdrawn", map[string]interface{}{
		"tournament_id":   tournament.ID,
		"tournament_name": tournament.Name,
	})
}

func (n *adminNotifier) InboundMessage(ctx context.Context, message *models.Message) {
	n.broadcast("message_created", map[string]interface{}{
		"message_id":      message.ID,
		"sender":          message.Sender(),
		"requires_action": message.RequiresAction,
	})
	subject := fmt.Sprintf("New message from %s", message.Sender())
	body := fmt.Sprintf("<p>New message from %s:</p><blockquote>%s</blockquote>", message.Sender(), message.Body)
	n.mailAdmins(ctx, subject, body)
}

func (n *adminNotifier) broadcast(eventType string, payload interface{}) {
	if n.hub == nil {
		return
	}
	n.hub.BroadcastToRoom(InboxRoom, InboxEvent{Type: eventType, Payload: payload})
}

// mailAdmins sends one mail per admin user concurrently.
func (n *adminNotifier) mailAdmins(ctx context.Context, subject, body string) {
	if n.mailer == nil {
		return
	}

	admins, err := n.users.ListAdmins(ctx)
	if err != nil {
		n.logger.Error("failed to list admins for notification", slog.Any("error", err))
		return
	}

	g, _ := errgroup.WithContext(ctx)
	for _, admin := range admins {
		email := admin.Email
		g.Go(func() error {
			if sendErr := n.mailer.SendEmail([]string{email}, subject, body); sendErr != nil {
				n.logger.Error("failed to send notification mail",
					slog.String("recipient", email),
					slog.Any("error", sendErr))
			}
			return nil
		})
	}
	_ = g.Wait()
}
