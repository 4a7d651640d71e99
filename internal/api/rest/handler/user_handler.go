package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)

// UsernameChecker answers username availability queries.
type UsernameChecker interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
}

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	users  UsernameChecker
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(users UsernameChecker, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger,
	}
}

// CheckUsernameRequest is the request payload for a username availability check.
type CheckUsernameRequest struct {
	Username string `json:"username"`
}

// CheckUsernameResponse reports whether the username can be registered.
type CheckUsernameResponse struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

// CheckUsername handles POST /users/check-username. Availability is checked
// case-insensitively against the stored lowercase canonical form.
func (h *UserHandler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	var req CheckUsernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "invalid_input", "Invalid request body")
		return
	}

	if !usernamePattern.MatchString(req.Username) {
		WriteJSONResponse(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid username format",
			Details: map[string]string{"username": "must be 3-30 characters of letters, digits or underscores"},
		})
		return
	}

	exists, err := h.users.UsernameExists(r.Context(), req.Username)
	if err != nil {
		h.logger.Error("username_check_failed", "username", req.Username, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "internal_error", "An internal error occurred while processing your request")
		return
	}

	message := "Username is available"
	if exists {
		message = "Username is already taken"
	}

	WriteJSONResponse(w, http.StatusOK, CheckUsernameResponse{
		Username:  req.Username,
		Available: !exists,
		Message:   message,
	})
}
