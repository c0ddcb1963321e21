// Package policy holds the pure authorization and lifecycle rules applied to
// treatment requests. Every function is a side-effect-free predicate over an
// actor and a request; handlers translate the returned sentinel errors into
// HTTP classifications.
//
// The ordering contract matters: callers resolve the request first (unknown
// id is NotFound for everyone), then consult policy (wrong actor or wrong
// lifecycle state is Forbidden), then validate payloads.
package policy

import "alignlab/pkg/types"

// CanRead reports whether the actor may view the request at all. Admins see
// everything; owners see their own.
func CanRead(actor types.Actor, req *types.Request) error {
	if actor.IsAdmin || actor.ID == req.UserID {
		return nil
	}
	return types.ErrForbidden
}

// CanUpdateFields gates partial edits of patient/treatment fields. Admins
// may edit in any state. Owners may edit only while the request is waiting
// on them: before production starts or after they asked for changes. This is
// a business rule, not a security boundary; it keeps patient data stable
// while the lab is producing.
func CanUpdateFields(actor types.Actor, req *types.Request) error {
	if err := CanRead(actor, req); err != nil {
		return err
	}
	if actor.IsAdmin {
		return nil
	}
	switch req.Status {
	case types.StatusAwaitInformation, types.StatusAskChange:
		return nil
	}
	return types.ErrForbidden
}

// CanUploadIntake gates intake material uploads (radiography, photos,
// scans). Ownership or admin is required; no state gate, matching the
// original workflow where late additions are allowed.
func CanUploadIntake(actor types.Actor, req *types.Request) error {
	return CanRead(actor, req)
}

// CanSetStatus gates the unconditional status override. Admin only, any
// state, any target value. This is the operator escape hatch and
// intentionally bypasses the transition table.
func CanSetStatus(actor types.Actor) error {
	if actor.IsAdmin {
		return nil
	}
	return types.ErrForbidden
}

// CanUploadDeliverable gates final STL/ZIP uploads. Admin only regardless of
// ownership.
func CanUploadDeliverable(actor types.Actor) error {
	if actor.IsAdmin {
		return nil
	}
	return types.ErrForbidden
}

// CanSubmitFeedback gates the owner's validate/reject decision. The request
// must be sitting in to_validate; anywhere else the submission is refused
// with the same forbidden classification as an ownership failure.
func CanSubmitFeedback(actor types.Actor, req *types.Request) error {
	if err := CanRead(actor, req); err != nil {
		return err
	}
	if req.Status != types.StatusToValidate {
		return types.ErrForbidden
	}
	return nil
}

// CanDownloadDeliverable gates fetching the signed URL for the final file.
// Admins may always fetch it; owners only once the request is done.
func CanDownloadDeliverable(actor types.Actor, req *types.Request) error {
	if err := CanRead(actor, req); err != nil {
		return err
	}
	if actor.IsAdmin {
		return nil
	}
	if req.Status != types.StatusDone {
		return types.ErrForbidden
	}
	return nil
}

// FeedbackOutcome maps an owner's decision to the next lifecycle state:
// approval completes the request, rejection sends it back for another
// production cycle.
func FeedbackOutcome(approved bool) types.RequestStatus {
	if approved {
		return types.StatusDone
	}
	return types.StatusAskChange
}

// NextStatusAfterIntake returns the status a request should hold after a
// successful intake upload. Only the very first upload moves the request
// forward; once in progress (or later) the status is left alone.
func NextStatusAfterIntake(current types.RequestStatus) (types.RequestStatus, bool) {
	if current == types.StatusAwaitInformation {
		return types.StatusInProgress, true
	}
	return current, false
}
