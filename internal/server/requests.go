package server

import (
	"errors"
	"net/http"

	"alignlab/internal/policy"
	"alignlab/internal/store"
	"alignlab/pkg/types"

	"github.com/alexedwards/flow"
)

// requestDetail is the single-request response: the record plus its files.
type requestDetail struct {
	*types.Request
	Files []types.RequestFile `json:"files"`
}

// adminRequestDetail additionally carries the owner projection for admins.
type adminRequestDetail struct {
	requestDetail
	UserName  string `json:"userName"`
	UserEmail string `json:"userEmail"`
}

func (s *Service) handleListRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, err := s.actorFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("ctx doesn't contain actor")
		s.serverError(w)
		return
	}

	var params types.RequestListParams
	if err := decoder.Decode(&params, r.URL.Query()); err != nil {
		s.validationError(w, "Malformed query parameters")
		return
	}

	filter := store.RequestFilter{
		PatientName: params.PatientName,
		Status:      params.Status,
		SortBy:      params.SortBy,
		SortOrder:   params.SortOrder,
	}

	if actor.IsAdmin {
		// Admins may scope to a specific owner and get the owner projection.
		filter.UserID = params.UserID

		requests, err := s.requests.RequestsWithOwner(ctx, filter)
		if err != nil {
			s.logger.WithError(err).Error("failed to list requests with owners")
			s.serverError(w)
			return
		}
		s.respondJSON(w, http.StatusOK, requests)
		return
	}

	// Non-admins only ever see their own rows, whatever userId says.
	filter.UserID = actor.ID

	requests, err := s.requests.Requests(ctx, filter)
	if err != nil {
		s.logger.WithError(err).Error("failed to list requests")
		s.serverError(w)
		return
	}

	s.respondJSON(w, http.StatusOK, requests)
}

func (s *Service) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, err := s.actorFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("ctx doesn't contain actor")
		s.serverError(w)
		return
	}

	request, ok := s.loadRequest(w, r)
	if !ok {
		return
	}

	if err := policy.CanRead(actor, request); err != nil {
		s.forbidden(w, "You are not authorized to view this request")
		return
	}

	files, err := s.files.FilesByRequestID(ctx, request.ID)
	if err != nil {
		s.logger.WithError(err).WithField("request_id", request.ID).Error("failed to load request files")
		s.serverError(w)
		return
	}

	detail := requestDetail{Request: request, Files: files}

	if actor.IsAdmin {
		owner, err := s.users.User(ctx, request.UserID)
		if err != nil && !errors.Is(err, types.ErrUserNotFound) {
			s.logger.WithError(err).WithField("request_id", request.ID).Error("failed to load request owner")
			s.serverError(w)
			return
		}

		enriched := adminRequestDetail{requestDetail: detail}
		if owner != nil {
			enriched.UserName = owner.FullName
			enriched.UserEmail = owner.Email
		}
		s.respondJSON(w, http.StatusOK, enriched)
		return
	}

	s.respondJSON(w, http.StatusOK, detail)
}

func (s *Service) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, err := s.actorFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("ctx doesn't contain actor")
		s.serverError(w)
		return
	}

	var input types.CreateRequestInput
	if !s.decodeJSON(w, r, &input) {
		return
	}

	request := &types.Request{
		UserID:        actor.ID,
		PatientName:   input.PatientName,
		PatientAge:    input.PatientAge,
		PatientGender: input.PatientGender,
		TreatmentType: input.TreatmentType,
		Notes:         input.Notes,
		TermsAccepted: input.TermsAccepted,
		Status:        types.StatusAwaitInformation,
	}

	if err := s.requests.CreateRequest(ctx, request); err != nil {
		s.logger.WithError(err).Error("failed to create request")
		s.serverError(w)
		return
	}

	s.respondJSON(w, http.StatusCreated, request)
}

func (s *Service) handleUpdateRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, err := s.actorFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("ctx doesn't contain actor")
		s.serverError(w)
		return
	}

	request, ok := s.loadRequest(w, r)
	if !ok {
		return
	}

	if err := policy.CanRead(actor, request); err != nil {
		s.forbidden(w, "You are not authorized to update this request")
		return
	}

	if err := policy.CanUpdateFields(actor, request); err != nil {
		s.forbidden(w, "This request cannot be updated in its current status")
		return
	}

	var input types.UpdateRequestInput
	if !s.decodeJSON(w, r, &input) {
		return
	}

	applyRequestUpdate(request, input)

	if err := s.requests.UpdateRequest(ctx, request.ID, request); err != nil {
		s.logger.WithError(err).WithField("request_id", request.ID).Error("failed to update request")
		s.serverError(w)
		return
	}

	s.respondJSON(w, http.StatusOK, request)
}

func (s *Service) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, err := s.actorFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("ctx doesn't contain actor")
		s.serverError(w)
		return
	}

	if err := policy.CanSetStatus(actor); err != nil {
		s.forbidden(w, "Only admins can update request status")
		return
	}

	request, ok := s.loadRequest(w, r)
	if !ok {
		return
	}

	var input types.UpdateStatusInput
	if !s.decodeJSON(w, r, &input) {
		return
	}

	// Deliberately no transition guard: this endpoint is the operator
	// escape hatch and may force any status from any status.
	if err := s.requests.SetStatus(ctx, request.ID, input.Status); err != nil {
		s.logger.WithError(err).WithField("request_id", request.ID).Error("failed to set request status")
		s.serverError(w)
		return
	}

	request.Status = input.Status
	s.respondJSON(w, http.StatusOK, request)
}

func (s *Service) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, err := s.actorFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("ctx doesn't contain actor")
		s.serverError(w)
		return
	}

	request, ok := s.loadRequest(w, r)
	if !ok {
		return
	}

	if err := policy.CanRead(actor, request); err != nil {
		s.forbidden(w, "You are not authorized to submit feedback for this request")
		return
	}

	if err := policy.CanSubmitFeedback(actor, request); err != nil {
		s.forbidden(w, "Feedback can only be submitted when the request is in validation status")
		return
	}

	var input types.FeedbackInput
	if !s.decodeJSON(w, r, &input) {
		return
	}

	next := policy.FeedbackOutcome(*input.Approved)
	if err := s.requests.SetFeedback(ctx, request.ID, next, input.Feedback); err != nil {
		s.logger.WithError(err).WithField("request_id", request.ID).Error("failed to record feedback")
		s.serverError(w)
		return
	}

	request.Status = next
	request.Notes = &input.Feedback

	message := "Changes requested"
	if *input.Approved {
		message = "Deliverable approved"
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"message": message,
		"request": request,
	})
}

// loadRequest resolves the :id route parameter, writing NotFound when the
// record does not exist. Resolution happens before any policy check so an
// unknown id is NotFound for every actor.
func (s *Service) loadRequest(w http.ResponseWriter, r *http.Request) (*types.Request, bool) {
	requestID := flow.Param(r.Context(), "id")

	request, err := s.requests.Request(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, types.ErrRequestNotFound) {
			s.notFound(w, "Request not found")
			return nil, false
		}
		s.logger.WithError(err).WithField("request_id", requestID).Error("failed to load request")
		s.serverError(w)
		return nil, false
	}

	return request, true
}

func applyRequestUpdate(request *types.Request, input types.UpdateRequestInput) {
	if input.PatientName != nil {
		request.PatientName = *input.PatientName
	}
	if input.PatientAge != nil {
		request.PatientAge = *input.PatientAge
	}
	if input.PatientGender != nil {
		request.PatientGender = *input.PatientGender
	}
	if input.TreatmentType != nil {
		request.TreatmentType = input.TreatmentType
	}
	if input.Notes != nil {
		request.Notes = input.Notes
	}
	if input.TermsAccepted != nil {
		request.TermsAccepted = *input.TermsAccepted
	}
}
