// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package mail reads the email currently selected in the desktop mail
// client.
//
// The mail client is reached through a Bridge that answers one question,
// "which message is selected?", with a Record: either an Email or an
// error reason such as "No email selected.". A Poller asks on a fixed
// interval between one and five seconds and keeps the latest answer for
// the rest of the program to read.
//
// Two bridges talk to real clients. FileBridge reads a JSON document that
// a mail client add-in rewrites whenever the selection changes.
// CommandBridge runs a helper program that prints the same document on
// stdout, e.g. a PowerShell script driving Outlook over COM.
package mail
