// Package client is a Go client for the Dovol gRPC API.
//
// It speaks the JSON codec registered by the server package, keeps the
// bearer token returned by Login, and translates gRPC status codes back into
// the sentinel errors from internal/common so callers can use errors.Is.
package client
