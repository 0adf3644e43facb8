// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import "encoding/json"

// JSONExporter exports transcripts as indented JSON.
type JSONExporter struct{}

// Export encodes t.
func (JSONExporter) Export(t Transcript) ([]byte, error) {
	if len(t.Turns) == 0 {
		return nil, ErrEmpty
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// FileExtension returns ".json".
func (JSONExporter) FileExtension() string {
	return ".json"
}
