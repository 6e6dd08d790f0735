package common

// AuthorizationHeaderName is the gRPC metadata key carrying the bearer token
// ("Bearer <token>").
const AuthorizationHeaderName = "authorization"

// AccessTokenHeaderName is accepted as a bare-token alternative to the
// authorization header.
const AccessTokenHeaderName = "access_token"

// BearerPrefix precedes the token in the authorization header.
const BearerPrefix = "Bearer "

// RequestIDHeaderName carries the server-assigned id of a call back to the
// client.
const RequestIDHeaderName = "x-request-id"
