package services

import "errors"

// Shared errors used across services and the HTTP error mapping.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation and business-rule errors.
	ErrValidationFailed           = errors.New("validation failed")
	ErrTournamentNameRequired     = errors.New("tournament name is required")
	ErrLiquipediaURLInvalid       = errors.New("liquipedia url must start with /ageofempires/")
	ErrTournamentInvalidStatus    = errors.New("invalid tournament status")
	ErrStatusTransitionNotAllowed = errors.New("tournament status transition not allowed")
	ErrRegistrationCloseRequired  = errors.New("registration close date is required to publish")
	ErrClaimReasoningRequired     = errors.New("claim reasoning must not be blank")
	ErrMessageBodyRequired        = errors.New("message body must not be blank")
	ErrPasswordTooShort           = errors.New("password is too short")

	// Conflict errors.
	ErrTournamentNameTaken = errors.New("tournament name already exists")
	ErrLiquipediaURLTaken  = errors.New("liquipedia url already exists")
	ErrClaimAlreadyExists  = errors.New("a claim for this tournament already exists")
	ErrAuthEmailTaken      = errors.New("email is already taken")

	// Authentication and authorization errors.
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
	ErrPublishForbidden       = errors.New("only admins may publish tournaments")
	ErrNotPendingPublication  = errors.New("publication may only be requested for pending tournaments")

	// Entity-specific not-found errors.
	ErrUserNotFound       = errors.New("user not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrClaimNotFound      = errors.New("tournament claim not found")
	ErrMessageNotFound    = errors.New("message not found")

	// ErrCompoundUpdateFailed reports a failed all-or-nothing update of a
	// message together with its tournament. The transaction is rolled back
	// before this is returned.
	ErrCompoundUpdateFailed = errors.New("message and tournament could not be updated together")
)
