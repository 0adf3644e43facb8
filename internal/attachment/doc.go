// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package attachment turns files into model-ready content.
//
// Each file is routed by media type to one of three dispositions:
//
//   - Image (webp, png, jpeg, gif): base64 of the raw bytes
//   - Document (pdf): page texts joined by a blank line
//   - Opaque: everything else, kept by name only and never sent
//
// A Bundle groups the results of one send in input order. Files that
// could not be read or extracted are listed in Bundle.Failed and left out
// of the other groups.
package attachment
