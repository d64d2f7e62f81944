package domain

import "errors"

// ErrEngineUnavailable is the failure reason of jobs created while no
// transfer engine is attached.
var ErrEngineUnavailable = errors.New("transfer engine unavailable")
