// Package common contains shared constants, sentinel errors and the
// classified AppError used across chirper components.
package common

const (
	// AuthorizationHeaderName is the gRPC/HTTP metadata key carrying
	// "Bearer <access token>".
	AuthorizationHeaderName = "authorization"

	// AccessTokenHeaderName is the bare-token metadata key accepted as a
	// fallback when no Authorization header is present.
	AccessTokenHeaderName = "access_token"

	// BearerScheme is the Authorization scheme prefix.
	BearerScheme = "Bearer"
)
