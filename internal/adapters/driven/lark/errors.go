package lark

import (
	"fmt"

	"github.com/custodia-labs/taskbridge/internal/core/domain"
)

// Provider error codes. The refresh endpoint reports structural credential
// failures with 20xxx codes; the task API rejects a bad access token with
// 999xxx codes.
const (
	codeRefreshTokenExpired  = 20037
	codeRefreshTokenRevoked  = 20064
	codeAuthorizationRevoked = 20073
	codeUnauthorizedClient   = 20010

	codeAccessTokenInvalid = 99991663
	codeAccessTokenExpired = 99991661
)

// APIError is a non-zero provider response code.
type APIError struct {
	HTTPStatus  int
	Code        int
	Message     string
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("lark: api error %d: %s (%s)", e.Code, e.Message, e.Description)
	}
	return fmt.Sprintf("lark: api error %d: %s", e.Code, e.Message)
}

// mapRefreshError classifies a refresh failure. Terminal credential codes map
// to the matching sentinel so the token lifecycle can distinguish "re-authorize"
// from "retry later"; anything else passes through as a transient API error.
func mapRefreshError(apiErr *APIError) error {
	switch apiErr.Code {
	case codeRefreshTokenExpired:
		return fmt.Errorf("%w: %s", domain.ErrRefreshTokenExpired, apiErr.Message)
	case codeRefreshTokenRevoked, codeAuthorizationRevoked:
		return fmt.Errorf("%w: %s", domain.ErrRefreshTokenRevoked, apiErr.Message)
	case codeUnauthorizedClient:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorizedClient, apiErr.Message)
	default:
		return apiErr
	}
}

// mapTaskError classifies a task-fetch failure. Token rejections surface as
// ErrAuthRejected so the pipeline can run its single refresh-and-retry.
func mapTaskError(apiErr *APIError) error {
	switch apiErr.Code {
	case codeAccessTokenInvalid, codeAccessTokenExpired:
		return fmt.Errorf("%w: %s", domain.ErrAuthRejected, apiErr.Message)
	default:
		return apiErr
	}
}
