package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"alignlab/pkg/types"

	"github.com/go-playground/validator/v10"
)

func (s *Service) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("failed to encode response body")
	}
}

func (s *Service) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, types.APIError{Code: code, Message: message})
}

func (s *Service) notFound(w http.ResponseWriter, message string) {
	s.respondError(w, http.StatusNotFound, types.CodeNotFound, message)
}

func (s *Service) forbidden(w http.ResponseWriter, message string) {
	s.respondError(w, http.StatusForbidden, types.CodeForbidden, message)
}

func (s *Service) validationError(w http.ResponseWriter, message string) {
	s.respondError(w, http.StatusBadRequest, types.CodeValidation, message)
}

func (s *Service) serverError(w http.ResponseWriter) {
	s.respondError(w, http.StatusInternalServerError, types.CodeServerError,
		"An unexpected error occurred, please try again later")
}

// decodeJSON decodes and validates a JSON body in one step. The returned
// bool tells the handler whether a response has already been written.
func (s *Service) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.validationError(w, "Malformed request body")
		return false
	}

	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			s.validationError(w, "Invalid value for field "+verrs[0].Field())
			return false
		}
		s.validationError(w, "Invalid request body")
		return false
	}

	return true
}
