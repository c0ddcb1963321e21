package server

import (
	"errors"
	"net/http"

	"alignlab/pkg/types"
)

func (s *Service) handleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var params types.UserListParams
	if err := decoder.Decode(&params, r.URL.Query()); err != nil {
		s.validationError(w, "Malformed query parameters")
		return
	}

	users, err := s.users.Users(ctx, params)
	if err != nil {
		s.logger.WithError(err).Error("failed to list users")
		s.serverError(w)
		return
	}

	s.respondJSON(w, http.StatusOK, users)
}

// handleInviteUser creates an inactive account and emails a set-password
// link, the same flow as self registration but admin initiated.
func (s *Service) handleInviteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var input types.CreateUserInput
	if !s.decodeJSON(w, r, &input) {
		return
	}

	if _, err := s.users.UserByEmail(ctx, input.Email); err == nil {
		s.validationError(w, "An account with this email already exists")
		return
	} else if !errors.Is(err, types.ErrUserNotFound) {
		s.logger.WithError(err).Error("failed to check for existing user")
		s.serverError(w)
		return
	}

	role := input.Role
	if role == "" {
		role = types.UserRoleDoctor
	}

	user := &types.User{
		Email:    input.Email,
		FullName: input.FullName,
		Role:     role,
		IsActive: false,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		s.logger.WithError(err).Error("failed to create invited user")
		s.serverError(w)
		return
	}

	if err := s.sendResetLink(r, user, Mailer.SendUserInvite); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Error("failed to send invite email")
		s.serverError(w)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"message": "User invited successfully"})
}
