// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package broadcast holds the three live channel namespaces.

  - Results: keyed by poll id, carries {optionId, votes}
  - Admin: keyed by event id, carries models.AdminMessage
  - Events: single key GlobalKey, carries models.GlobalMessage

Each is created once in main and shared by the HTTP handlers (publishers)
and the gateway (subscribers). Announcer maps administrative transitions
onto the Admin and Events namespaces.
*/
package broadcast
