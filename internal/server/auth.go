package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"alignlab/internal/auth"
	"alignlab/pkg/types"
)

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var input types.LoginInput
	if !s.decodeJSON(w, r, &input) {
		return
	}

	user, err := s.users.UserByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			// Unknown email and wrong password are deliberately the same
			// answer, in both code and message.
			s.respondError(w, http.StatusNotFound, types.CodeUserNotFound, "No account matches these credentials")
			return
		}
		s.logger.WithError(err).Error("failed to look up user for login")
		s.serverError(w)
		return
	}

	if !auth.CheckPassword(input.Password, user.PasswordHash) {
		s.respondError(w, http.StatusNotFound, types.CodeUserNotFound, "No account matches these credentials")
		return
	}

	if !user.IsActive {
		s.forbidden(w, "This account has not been activated yet")
		return
	}

	signed, record, err := s.tokens.Mint(user.ID)
	if err != nil {
		s.logger.WithError(err).Error("failed to mint access token")
		s.serverError(w)
		return
	}

	if err := s.sessions.CreateToken(ctx, record); err != nil {
		s.logger.WithError(err).Error("failed to persist access token")
		s.serverError(w)
		return
	}

	s.respondJSON(w, http.StatusOK, types.AccessTokenResponse{
		Type:      "bearer",
		Token:     signed,
		ExpiresAt: record.ExpiresAt,
	})
}

func (s *Service) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tokenID, ok := ctx.Value(contextKeyTokenID).(string)
	if !ok || tokenID == "" {
		s.serverError(w)
		return
	}

	if err := s.sessions.DeleteToken(ctx, tokenID); err != nil {
		s.logger.WithError(err).Error("failed to delete access token on logout")
		s.serverError(w)
		return
	}

	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Service) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, err := s.actorFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("ctx doesn't contain actor")
		s.serverError(w)
		return
	}

	user, err := s.users.User(ctx, actor.ID)
	if err != nil {
		s.logger.WithError(err).Error("failed to load current user")
		s.serverError(w)
		return
	}

	s.respondJSON(w, http.StatusOK, user)
}

func (s *Service) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var input types.ForgotPasswordInput
	if !s.decodeJSON(w, r, &input) {
		return
	}

	user, err := s.users.UserByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			s.respondError(w, http.StatusNotFound, types.CodeUserNotFound, "No account matches this email")
			return
		}
		s.logger.WithError(err).Error("failed to look up user for password reset")
		s.serverError(w)
		return
	}

	if err := s.sendResetLink(r, user, Mailer.SendPasswordReset); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Error("failed to send password reset")
		s.serverError(w)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Password reset email sent"})
}

func (s *Service) handleVerifyResetToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var input types.VerifyResetTokenInput
	if !s.decodeJSON(w, r, &input) {
		return
	}

	if _, _, err := s.verifyResetToken(ctx, input.Token); err != nil {
		s.respondError(w, http.StatusNotFound, types.CodeInvalidToken, "This reset link is invalid or has expired")
		return
	}

	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Service) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var input types.ResetPasswordInput
	if !s.decodeJSON(w, r, &input) {
		return
	}

	tokenID, userID, err := s.verifyResetToken(ctx, input.Token)
	if err != nil {
		s.respondError(w, http.StatusNotFound, types.CodeInvalidToken, "This reset link is invalid or has expired")
		return
	}

	user, err := s.users.User(ctx, userID)
	if err != nil {
		s.logger.WithError(err).Error("failed to load user for password reset")
		s.serverError(w)
		return
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		s.logger.WithError(err).Error("failed to hash new password")
		s.serverError(w)
		return
	}

	user.PasswordHash = hash
	// First successful reset also activates invited accounts.
	user.IsActive = true

	if err := s.users.UpdateUser(ctx, user.ID, user); err != nil {
		s.logger.WithError(err).Error("failed to update user credentials")
		s.serverError(w)
		return
	}

	// The reset link is single use.
	if err := s.sessions.DeleteToken(ctx, tokenID); err != nil {
		s.logger.WithError(err).Warn("failed to delete used reset token")
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

func (s *Service) handleRegister(w http.ResponseWriter, r *http.Request) {
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
		s.logger.WithError(err).Error("failed to create user")
		s.serverError(w)
		return
	}

	if err := s.sendResetLink(r, user, Mailer.SendUserInvite); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Error("failed to send invite email")
		s.serverError(w)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Invitation sent"})
}

// sendResetLink mints a token for the user and emails a reset-password link
// built on the configured frontend URL.
func (s *Service) sendResetLink(r *http.Request, user *types.User, send func(m Mailer, ctx context.Context, to, resetURL string) error) error {
	ctx := r.Context()

	signed, record, err := s.tokens.Mint(user.ID)
	if err != nil {
		return fmt.Errorf("mint reset token: %w", err)
	}

	if err := s.sessions.CreateToken(ctx, record); err != nil {
		return fmt.Errorf("persist reset token: %w", err)
	}

	resetURL := fmt.Sprintf("%s/auth/reset-password/%s", s.config.FrontURL, signed)
	return send(s.mailer, ctx, user.Email, resetURL)
}

// verifyResetToken checks both the signature and the database row behind a
// reset token and returns the row id plus the owning user.
func (s *Service) verifyResetToken(ctx context.Context, raw string) (tokenID, userID string, err error) {
	tokenID, userID, err = s.tokens.Parse(raw)
	if err != nil {
		return "", "", err
	}

	if _, err := s.sessions.Token(ctx, tokenID); err != nil {
		return "", "", err
	}

	return tokenID, userID, nil
}
