// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (duration_ms).

# Authentication

Require a bearer token and read the person it names:

	mux.HandleFunc("POST /api/...", middleware.WithLogging(
		middleware.Authenticate(cfg.AuthSecret, handler)))

	personID, ok := middleware.PersonID(r.Context())

Missing or invalid tokens get 401. RequireAdmin, chained after
Authenticate, answers 403 for everyone but the configured admin, and 500
when no admin is configured.

# CORS Middleware

Enable cross-origin requests for frontend access:

	server := http.Server{
		Handler: middleware.CORS(cfg.AllowedOrigins, mux),
	}

An empty origin list allows every origin. Allows methods GET, POST, PUT,
PATCH, DELETE, OPTIONS with headers Content-Type, Authorization.
OriginAllowed applies the same rule to websocket upgrades.

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

Parse JSON request bodies:

	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

Get the original client IP (handles X-Forwarded-For, X-Real-IP):

	ip := middleware.GetClientIP(r)

Used as the remote address in request logs.
*/
package middleware
