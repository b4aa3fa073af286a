package common

// AuthorizationHeaderName is the gRPC metadata / HTTP header key used to
// carry the access token on protected calls.
const AuthorizationHeaderName = "authorization"

// BearerPrefix is the optional scheme prefix in front of an access token.
const BearerPrefix = "Bearer "
