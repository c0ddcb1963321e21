package policy

import (
	"testing"

	"alignlab/pkg/types"

	"github.com/stretchr/testify/assert"
)

var (
	owner    = types.Actor{ID: "u-owner"}
	stranger = types.Actor{ID: "u-other"}
	admin    = types.Actor{ID: "u-admin", IsAdmin: true}
)

func reqIn(status types.RequestStatus) *types.Request {
	return &types.Request{ID: "r-1", UserID: owner.ID, Status: status}
}

func TestCanRead(t *testing.T) {
	req := reqIn(types.StatusInProgress)

	assert.NoError(t, CanRead(owner, req))
	assert.NoError(t, CanRead(admin, req))
	assert.ErrorIs(t, CanRead(stranger, req), types.ErrForbidden)
}

func TestCanUpdateFields_OwnerStateGate(t *testing.T) {
	editable := []types.RequestStatus{types.StatusAwaitInformation, types.StatusAskChange}
	frozen := []types.RequestStatus{types.StatusInProgress, types.StatusToValidate, types.StatusDone}

	for _, status := range editable {
		assert.NoError(t, CanUpdateFields(owner, reqIn(status)), "owner should edit in %s", status)
	}
	for _, status := range frozen {
		assert.ErrorIs(t, CanUpdateFields(owner, reqIn(status)), types.ErrForbidden, "owner must not edit in %s", status)
	}
}

func TestCanUpdateFields_AdminBypassesStateGate(t *testing.T) {
	for _, status := range []types.RequestStatus{
		types.StatusAwaitInformation, types.StatusInProgress,
		types.StatusToValidate, types.StatusAskChange, types.StatusDone,
	} {
		assert.NoError(t, CanUpdateFields(admin, reqIn(status)))
	}
}

func TestCanUpdateFields_StrangerForbiddenBeforeStateCheck(t *testing.T) {
	// A non-owner is refused even in a state the owner could edit in.
	assert.ErrorIs(t, CanUpdateFields(stranger, reqIn(types.StatusAwaitInformation)), types.ErrForbidden)
}

func TestAdminOnlyOperations(t *testing.T) {
	assert.NoError(t, CanSetStatus(admin))
	assert.ErrorIs(t, CanSetStatus(owner), types.ErrForbidden)

	assert.NoError(t, CanUploadDeliverable(admin))
	assert.ErrorIs(t, CanUploadDeliverable(owner), types.ErrForbidden)
}

func TestCanSubmitFeedback(t *testing.T) {
	assert.NoError(t, CanSubmitFeedback(owner, reqIn(types.StatusToValidate)))
	assert.NoError(t, CanSubmitFeedback(admin, reqIn(types.StatusToValidate)))

	for _, status := range []types.RequestStatus{
		types.StatusAwaitInformation, types.StatusInProgress,
		types.StatusAskChange, types.StatusDone,
	} {
		assert.ErrorIs(t, CanSubmitFeedback(owner, reqIn(status)), types.ErrForbidden, "feedback must be refused in %s", status)
	}

	assert.ErrorIs(t, CanSubmitFeedback(stranger, reqIn(types.StatusToValidate)), types.ErrForbidden)
}

func TestCanDownloadDeliverable(t *testing.T) {
	assert.ErrorIs(t, CanDownloadDeliverable(owner, reqIn(types.StatusToValidate)), types.ErrForbidden)
	assert.NoError(t, CanDownloadDeliverable(owner, reqIn(types.StatusDone)))

	// Admins may fetch the deliverable in any state.
	assert.NoError(t, CanDownloadDeliverable(admin, reqIn(types.StatusInProgress)))

	assert.ErrorIs(t, CanDownloadDeliverable(stranger, reqIn(types.StatusDone)), types.ErrForbidden)
}

func TestFeedbackOutcome(t *testing.T) {
	assert.Equal(t, types.StatusDone, FeedbackOutcome(true))
	assert.Equal(t, types.StatusAskChange, FeedbackOutcome(false))
}

func TestNextStatusAfterIntake(t *testing.T) {
	next, changed := NextStatusAfterIntake(types.StatusAwaitInformation)
	assert.True(t, changed)
	assert.Equal(t, types.StatusInProgress, next)

	for _, status := range []types.RequestStatus{
		types.StatusInProgress, types.StatusToValidate,
		types.StatusAskChange, types.StatusDone,
	} {
		next, changed := NextStatusAfterIntake(status)
		assert.False(t, changed)
		assert.Equal(t, status, next)
	}
}
