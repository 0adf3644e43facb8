// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway is the soft-failing boundary between the assistant and
// the model server.
//
// A Gateway owns one cached connection, keyed by the server URL read from
// configuration on every call. When the URL changes the connection is
// rebuilt; otherwise it is reused. Every operation converts transport,
// protocol and server errors into an absent result plus a log line, so
// callers only ever branch on "got an answer" or "did not".
//
//	gw := gateway.New(settings, gateway.DefaultFactory)
//	models := gw.ListModels(ctx)           // empty on failure
//	answer, ok := gw.StreamChat(ctx, models[0], conv, func(partial string) {
//	    render(partial)                     // cumulative text so far
//	})
package gateway
