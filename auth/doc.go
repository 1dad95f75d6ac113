// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides identifiers and caller identity helpers.

# Identifiers

GenerateID returns a UUIDv4 string used for room primary keys:

	id := auth.GenerateID()

RandomString draws characters uniformly from an alphabet with crypto/rand.
The roomcode package builds shareable room codes on top of it:

	code, err := auth.RandomString("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", 8)

# Caller Identity

User identity is resolved by an upstream proxy and forwarded in the
X-User-ID header. UserIDFromRequest only checks that it is present and
reasonably sized:

	userID, err := auth.UserIDFromRequest(r)
	if err != nil {
		// 401
	}
*/
package auth
