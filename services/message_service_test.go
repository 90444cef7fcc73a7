package services

import (
	"context"
	"errors"
	"testing"

	"github.com/aoe-board/tournament-board/models"
	"github.com/aoe-board/tournament-board/repositories"
)

type messageServiceFixture struct {
	service     MessageService
	messages    *fakeMessageRepo
	tournaments *fakeTournamentRepo
	notifier    *fakeNotifier
}

func newMessageServiceFixture() *messageServiceFixture {
	messages := newFakeMessageRepo()
	tournaments := newFakeTournamentRepo()
	notifier := &fakeNotifier{}
	return &messageServiceFixture{
		service:     NewMessageService(&fakeTxRunner{}, messages, tournaments, notifier, testLogger()),
		messages:    messages,
		tournaments: tournaments,
		notifier:    notifier,
	}
}

func TestSubmitMessageAttribution(t *testing.T) {
	targetID := 42

	tests := []struct {
		name          string
		actor         *models.User
		input         SubmitMessageInput
		wantUserID    *int
		wantFromAdmin bool
		wantNotify    bool
	}{
		{
			name:       "anonymous visitor",
			actor:      nil,
			input:      SubmitMessageInput{Body: "hello"},
			wantNotify: true,
		},
		{
			name:       "signed-in user writes own thread",
			actor:      regularUser(),
			input:      SubmitMessageInput{Body: "hello"},
			wantUserID: func() *int { id := regularUser().ID; return &id }(),
			wantNotify: true,
		},
		{
			name:       "signed-in user cannot target another thread",
			actor:      regularUser(),
			input:      SubmitMessageInput{Body: "hello", UserID: &targetID},
			wantUserID: func() *int { id := regularUser().ID; return &id }(),
			wantNotify: true,
		},
		{
			name:          "admin reply targets a thread",
			actor:         adminUser(),
			input:         SubmitMessageInput{Body: "hello", UserID: &targetID},
			wantUserID:    &targetID,
			wantFromAdmin: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMessageServiceFixture()

			message, err := f.service.Submit(context.Background(), tt.actor, tt.input)
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
			if message.FromAdmin != tt.wantFromAdmin {
				t.Errorf("from_admin = %v, want %v", message.FromAdmin, tt.wantFromAdmin)
			}
			switch {
			case tt.wantUserID == nil && message.UserID != nil:
				t.Errorf("user_id = %d, want nil", *message.UserID)
			case tt.wantUserID != nil && (message.UserID == nil || *message.UserID != *tt.wantUserID):
				t.Errorf("user_id = %v, want %d", message.UserID, *tt.wantUserID)
			}
			if got := len(f.notifier.inbound) > 0; got != tt.wantNotify {
				t.Errorf("notified = %v, want %v", got, tt.wantNotify)
			}
		})
	}
}

func TestSubmitMessageBodyRequired(t *testing.T) {
	f := newMessageServiceFixture()

	if _, err := f.service.Submit(context.Background(), nil, SubmitMessageInput{Body: "   "}); !errors.Is(err, ErrMessageBodyRequired) {
		t.Errorf("error = %v, want %v", err, ErrMessageBodyRequired)
	}
}

func TestGroupInboxCounts(t *testing.T) {
	a := "a@example.com"
	b := "b@example.com"
	rows := []repositories.InboxGroupRow{
		{SenderEmail: nil, Read: false, Count: 2},
		{SenderEmail: nil, Read: true, Count: 3},
		{SenderEmail: &a, Read: false, RequiresAction: true, Count: 1},
		{SenderEmail: &b, Read: true, Count: 2},
	}

	groups := groupInboxCounts(rows)

	if got := groups[models.SenderAnonymous]; got.Unread != 2 || got.Read != 3 || got.RequiresAction != 0 {
		t.Errorf("anonymous counts = %+v", got)
	}
	if got := groups[a]; got.Unread != 1 || got.Read != 0 || got.RequiresAction != 1 {
		t.Errorf("%s counts = %+v", a, got)
	}
	if got := groups[b]; got.Read != 2 || got.Unread != 0 {
		t.Errorf("%s counts = %+v", b, got)
	}
}

func TestInboxAdminOverviewMarksNothing(t *testing.T) {
	f := newMessageServiceFixture()
	f.messages.add(models.Message{Body: "unread one"})
	f.messages.groupRows = []repositories.InboxGroupRow{{SenderEmail: nil, Read: false, Count: 1}}

	view, err := f.service.Inbox(context.Background(), adminUser(), "")
	if err != nil {
		t.Fatalf("Inbox: %v", err)
	}
	if view.Groups == nil {
		t.Fatal("overview did not return groups")
	}
	if len(f.messages.markedIDs) != 0 {
		t.Errorf("overview marked %v as read", f.messages.markedIDs)
	}
}

func TestInboxAdminThreadMarksInboundRead(t *testing.T) {
	f := newMessageServiceFixture()
	inbound := f.messages.add(models.Message{Body: "from visitor"})
	outbound := f.messages.add(models.Message{Body: "our reply", FromAdmin: true})

	view, err := f.service.Inbox(context.Background(), adminUser(), models.SenderAnonymous)
	if err != nil {
		t.Fatalf("Inbox: %v", err)
	}
	if len(view.Messages) != 2 {
		t.Fatalf("thread length = %d, want 2", len(view.Messages))
	}

	stored, _ := f.messages.GetByID(context.Background(), inbound.ID)
	if !stored.Read {
		t.Error("inbound message not marked read")
	}
	stored, _ = f.messages.GetByID(context.Background(), outbound.ID)
	if stored.Read {
		t.Error("admin reply marked read by admin view")
	}
}

func TestInboxUserThreadMarksAdminRepliesRead(t *testing.T) {
	f := newMessageServiceFixture()
	user := regularUser()
	mine := f.messages.add(models.Message{Body: "my question", UserID: &user.ID})
	reply := f.messages.add(models.Message{Body: "admin answer", UserID: &user.ID, FromAdmin: true})

	view, err := f.service.Inbox(context.Background(), user, "ignored-for-non-admins")
	if err != nil {
		t.Fatalf("Inbox: %v", err)
	}
	if len(view.Messages) != 2 {
		t.Fatalf("thread length = %d, want 2", len(view.Messages))
	}

	stored, _ := f.messages.GetByID(context.Background(), reply.ID)
	if !stored.Read {
		t.Error("admin reply not marked read for its recipient")
	}
	stored, _ = f.messages.GetByID(context.Background(), mine.ID)
	if stored.Read {
		t.Error("user's own message marked read by their view")
	}
}

func TestToggleRequiresAction(t *testing.T) {
	f := newMessageServiceFixture()
	stored := f.messages.add(models.Message{Body: "handle me", RequiresAction: true})

	message, sender, err := f.service.ToggleRequiresAction(context.Background(), adminUser(), stored.ID)
	if err != nil {
		t.Fatalf("ToggleRequiresAction: %v", err)
	}
	if message.RequiresAction {
		t.Error("flag not cleared")
	}
	if sender != models.SenderAnonymous {
		t.Errorf("sender = %q, want %q", sender, models.SenderAnonymous)
	}

	message, _, err = f.service.ToggleRequiresAction(context.Background(), adminUser(), stored.ID)
	if err != nil || !message.RequiresAction {
		t.Errorf("second toggle: %v, requires_action=%v", err, message.RequiresAction)
	}
}

func TestToggleRequiresActionAdminOnly(t *testing.T) {
	f := newMessageServiceFixture()
	stored := f.messages.add(models.Message{Body: "handle me"})

	if _, _, err := f.service.ToggleRequiresAction(context.Background(), regularUser(), stored.ID); !errors.Is(err, ErrForbiddenOperation) {
		t.Errorf("error = %v, want %v", err, ErrForbiddenOperation)
	}
}

func TestDeleteMessage(t *testing.T) {
	f := newMessageServiceFixture()
	stored := f.messages.add(models.Message{Body: "spam"})

	if err := f.service.Delete(context.Background(), regularUser(), stored.ID); !errors.Is(err, ErrForbiddenOperation) {
		t.Errorf("non-admin delete error = %v, want %v", err, ErrForbiddenOperation)
	}

	if err := f.service.Delete(context.Background(), adminUser(), stored.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.messages.GetByID(context.Background(), stored.ID); !errors.Is(err, repositories.ErrMessageNotFound) {
		t.Error("message still present after delete")
	}

	if err := f.service.Delete(context.Background(), adminUser(), stored.ID); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("second delete error = %v, want %v", err, ErrMessageNotFound)
	}
}

func TestDeleteMessageClearsPublishRequest(t *testing.T) {
	f := newMessageServiceFixture()
	message := f.messages.add(models.Message{Body: "Please publish Cup", RequiresAction: true})
	tournament := f.tournaments.add(models.Tournament{
		Name:      "Cup",
		Status:    models.StatusPending,
		MessageID: &message.ID,
		Flags:     models.FlagSet{models.FlagPublishRequest},
	})

	if err := f.service.Delete(context.Background(), adminUser(), message.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := f.messages.GetByID(context.Background(), message.ID); !errors.Is(err, repositories.ErrMessageNotFound) {
		t.Error("message still present after delete")
	}
	kept, err := f.tournaments.GetByID(context.Background(), tournament.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if kept.MessageID != nil {
		t.Errorf("tournament still links message %d", *kept.MessageID)
	}
	if kept.HasFlag(models.FlagPublishRequest) {
		t.Errorf("flag survived delete: %q", kept.Flags.String())
	}
	if len(f.notifier.withdrawn) != 1 {
		t.Errorf("withdrawal notifications = %d, want 1", len(f.notifier.withdrawn))
	}
}

func TestDeleteMessageFailedUpdateKeepsLink(t *testing.T) {
	f := newMessageServiceFixture()
	message := f.messages.add(models.Message{Body: "Please publish Cup", RequiresAction: true})
	tournament := f.tournaments.add(models.Tournament{
		Name:      "Cup",
		Status:    models.StatusPending,
		MessageID: &message.ID,
		Flags:     models.FlagSet{models.FlagPublishRequest},
	})
	f.tournaments.updateErr = errors.New("connection reset")

	err := f.service.Delete(context.Background(), adminUser(), message.ID)
	if !errors.Is(err, ErrCompoundUpdateFailed) {
		t.Fatalf("error = %v, want %v", err, ErrCompoundUpdateFailed)
	}

	if _, getErr := f.messages.GetByID(context.Background(), message.ID); getErr != nil {
		t.Error("message removed despite failed update")
	}
	kept, getErr := f.tournaments.GetByID(context.Background(), tournament.ID)
	if getErr != nil {
		t.Fatalf("GetByID: %v", getErr)
	}
	if kept.MessageID == nil || !kept.HasFlag(models.FlagPublishRequest) {
		t.Errorf("stored row changed on failed delete: messageID=%v flags=%q", kept.MessageID, kept.Flags.String())
	}
	if len(f.notifier.withdrawn) != 0 {
		t.Error("notification sent for failed delete")
	}
}
