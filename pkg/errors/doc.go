// Package errors provides the error types returned by the weblytics SDK.
//
// # Error Types
//
//   - APIError: a non-2xx response (or a network failure, reported as status 0)
//     carrying the HTTP status and the raw response body.
//   - ValidationError: a request rejected before any network I/O, such as
//     Identify with a blank user id.
//
// # Retry Classification
//
// 429, any 5xx, and network failures are retryable; every other non-2xx status
// is permanent. Buffered deliveries retry retryable failures with backoff; the
// error only reaches callers of Flush, TrackBatch, Identify and Query.
//
//	if apiErr, ok := errors.AsAPIError(err); ok && apiErr.IsRateLimited() {
//	    // slow down
//	}
//
// Sentinel APIErrors compare on status code:
//
//	if stdErrors.Is(err, errors.ErrUnauthorized) {
//	    // check the API key
//	}
package errors
