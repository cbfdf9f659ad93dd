package notify

import "errors"

// ErrDispatchFailed wraps a channel delivery failure. It is logged,
// never returned to the code that triggered the notice.
var ErrDispatchFailed = errors.New("notify: dispatch failed")
