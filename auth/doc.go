// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth verifies the bearer tokens that carry a voter's identity.

# Tokens

Tokens are HS256 JWTs (github.com/golang-jwt/jwt/v5) signed with
AUTH_SECRET. The subject is the person ID:

	token, err := auth.IssueToken(personID, secret, 24*time.Hour)
	personID, err := auth.ParseToken(token, secret)

ParseToken accepts only HS256 with the livepoll issuer and rejects
expired tokens. Every failure wraps ErrInvalidToken.

IssueToken exists for tests and tooling; livepoll itself does not hand out
tokens.

# Requests

	token, err := auth.BearerToken(r) // ErrMissingToken when no header
*/
package auth
