// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reasoning asks the model a classify-or-score question and
// reads back a strictly structured answer.
//
// A Task pairs an action ("how likely is this spam, 0 to 100") with the
// kind of value expected. Ask renders the fixed prompt, appends it to a
// copy of the conversation, makes one non-streaming request and parses
// the reply. The reply must be a JSON object with exactly the keys
// "reason" and "result", the latter of the expected kind. Anything else
// is a ContractError; replies are never repaired or retried.
package reasoning
