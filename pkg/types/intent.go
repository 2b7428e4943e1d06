package types

// Intent is the reason a delivery was attempted. It decides how the
// transport issues the request: teardown intents must survive the page
// being unloaded mid-request.
type Intent string

const (
	IntentThreshold        Intent = "threshold"
	IntentTimer            Intent = "timer"
	IntentRetry            Intent = "retry"
	IntentManual           Intent = "manual"
	IntentVisibilityHidden Intent = "visibility_hidden"
	IntentPageUnload       Intent = "page_unload"
	IntentContinuation     Intent = "continuation"
)

// Teardown reports whether the page may be torn down while the request is
// in flight.
func (i Intent) Teardown() bool {
	return i == IntentVisibilityHidden || i == IntentPageUnload
}

// String returns the intent name.
func (i Intent) String() string { return string(i) }
