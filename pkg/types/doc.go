// Package types provides the wire data types for the weblytics SDK.
//
// These mirror the request and response bodies of the collection API
// (/track, /identify, /query). Users can import this package directly if they
// need the types without importing the full SDK.
package types
