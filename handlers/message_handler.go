package handlers

import (
	"net/http"

	"github.com/aoe-board/tournament-board/middleware"
	"github.com/aoe-board/tournament-board/services"
)

type MessageHandler struct {
	messageService services.MessageService
}

func NewMessageHandler(ms services.MessageService) *MessageHandler {
	return &MessageHandler{messageService: ms}
}

// Create handles POST /messages, the public contact form. Anonymous
// submissions are accepted; a bearer token attributes the message.
//
//	@Summary	Submit a message to the admins
//	@Tags		messages
//	@Accept		json
//	@Produce	json
//	@Param		input	body		services.SubmitMessageInput	true	"message payload"
//	@Success	201		{object}	map[string]interface{}
//	@Router		/messages [post]
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())

	var input services.SubmitMessageInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	message, err := h.messageService.Submit(r.Context(), actor, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"message": message}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Inbox handles GET /admin/messages?user=. Without the user parameter an
// admin gets the grouped overview; with it, one conversation thread.
// Non-admins always get their own thread.
func (h *MessageHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())

	view, err := h.messageService.Inbox(r.Context(), actor, r.URL.Query().Get("user"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, view, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ToggleRequiresAction handles POST
// /admin/messages/{messageID}/toggle_requires_action.
func (h *MessageHandler) ToggleRequiresAction(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())

	id, err := getIDFromURL(r, "messageID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	message, sender, err := h.messageService.ToggleRequiresAction(r.Context(), actor, id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"message": message,
		"sender":  sender,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Delete handles DELETE /admin/messages/{messageID}. Deleting a publish
// request message also clears the request from its tournament.
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())

	id, err := getIDFromURL(r, "messageID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.messageService.Delete(r.Context(), actor, id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
