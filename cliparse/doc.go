// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

LoadDotEnv reads an optional .env file (github.com/joho/godotenv), then
ParseFlags returns a Config struct with all settings:

	if err := cliparse.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3333)
  - DatabaseURL: Database connection string (required)
  - DatabaseType: sqlite or postgres (default: sqlite)
  - AuthSecret: HS256 token secret (required)
  - AdminPersonID: Person allowed to use the admin endpoints
  - WSSendBuffer: Messages queued per websocket before it counts as slow (default: 64)
  - AllowedOrigins: Browser origins for CORS and websockets (empty = any)
  - LogFormat, LogLevel: slog handler settings (default: text, info)

# CLI Flags

	-p             Server port
	-d             Database URL
	-t             Database type
	-auth-secret   Token secret
	-admin         Admin person ID
	-ws-buffer     Websocket send buffer
	-origins       Allowed origins
	-log-format    text or json
	-log-level     debug, info, warn, error

# Environment Variables

Flags fall back to environment variables:

	PORT            → -p
	DATABASE_URL    → -d
	DATABASE_TYPE   → -t
	AUTH_SECRET     → -auth-secret
	ADMIN_PERSON_ID → -admin
	WS_SEND_BUFFER  → -ws-buffer
	ALLOWED_ORIGINS → -origins
	LOG_FORMAT      → -log-format
	LOG_LEVEL       → -log-level

CLI flags take precedence over environment variables, and the environment
takes precedence over .env.

# Logging

	logger, err := cliparse.NewLogger(cfg, os.Stderr)
	slog.SetDefault(logger)
*/
package cliparse
