package deferred

import "errors"

// ErrPending is returned by Result before the Deferred settles.
var ErrPending = errors.New("deferred is pending")

// ErrNilReason replaces a nil rejection reason.
var ErrNilReason = errors.New("rejected without reason")
