package handlers

import (
	"net/http"

	"github.com/aoe-board/tournament-board/middleware"
	"github.com/aoe-board/tournament-board/services"
)

type ClaimHandler struct {
	claimService services.ClaimService
}

func NewClaimHandler(cs services.ClaimService) *ClaimHandler {
	return &ClaimHandler{claimService: cs}
}

// Create handles POST /admin/tournaments/{tournamentID}/claims.
//
//	@Summary	Claim ownership of a tournament listing
//	@Tags		claims
//	@Accept		json
//	@Produce	json
//	@Param		tournamentID	path		int							true	"tournament id"
//	@Param		input			body		services.CreateClaimInput	true	"claim payload"
//	@Success	201				{object}	map[string]interface{}
//	@Security	BearerAuth
//	@Router		/admin/tournaments/{tournamentID}/claims [post]
func (h *ClaimHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())

	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.CreateClaimInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	claim, err := h.claimService.Create(r.Context(), actor, tournamentID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"claim": claim}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Index handles GET /admin/claims. Admins see the full approval queue,
// other users only their own claims.
func (h *ClaimHandler) Index(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())

	list, err := h.claimService.List(r.Context(), actor)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, list, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Update handles PATCH /admin/claims/{claimID}.
func (h *ClaimHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())

	id, err := getIDFromURL(r, "claimID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UpdateClaimInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	claim, err := h.claimService.Update(r.Context(), actor, id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"claim": claim}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Approve handles POST /admin/claims/{claimID}/approve.
func (h *ClaimHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.setApproval(w, r, true)
}

// Unapprove handles POST /admin/claims/{claimID}/unapprove.
func (h *ClaimHandler) Unapprove(w http.ResponseWriter, r *http.Request) {
	h.setApproval(w, r, false)
}

func (h *ClaimHandler) setApproval(w http.ResponseWriter, r *http.Request, approved bool) {
	actor := middleware.ActorFromContext(r.Context())

	id, err := getIDFromURL(r, "claimID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var claim interface{}
	if approved {
		claim, err = h.claimService.Approve(r.Context(), actor, id)
	} else {
		claim, err = h.claimService.Unapprove(r.Context(), actor, id)
	}
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"claim": claim}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Delete handles DELETE /admin/claims/{claimID}.
func (h *ClaimHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())

	id, err := getIDFromURL(r, "claimID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.claimService.Delete(r.Context(), actor, id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
