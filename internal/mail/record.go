// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mail

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jeranaias/mailassist/internal/util"
)

// NoSelection is the error reason reported when nothing is selected.
const NoSelection = "No email selected."

// =============================================================================
// EMAIL
// =============================================================================

// Email is a message selected in the mail client.
type Email struct {
	Subject      string
	Sender       string
	Recipient    string
	ReceivedTime time.Time
	Body         string

	// Attachments are local file paths, in the order the client lists them.
	Attachments []string
}

// FormatReceived renders the received time for prompts, or "" if unknown.
func (e *Email) FormatReceived() string {
	if e.ReceivedTime.IsZero() {
		return ""
	}
	return e.ReceivedTime.Format(time.RFC1123Z)
}

// Describe renders the headers and body the way prompts quote an email.
func (e *Email) Describe() string {
	return fmt.Sprintf("Subject:%s\nFrom:%s\nTo:%s\nReceived:%s\n%s",
		e.Subject, e.Sender, e.Recipient, e.FormatReceived(), util.NormalizeText(e.Body))
}

func (e *Email) equal(o *Email) bool {
	return e.Subject == o.Subject &&
		e.Sender == o.Sender &&
		e.Recipient == o.Recipient &&
		e.ReceivedTime.Equal(o.ReceivedTime) &&
		e.Body == o.Body &&
		slices.Equal(e.Attachments, o.Attachments)
}

// =============================================================================
// RECORD
// =============================================================================

// Record is the answer to "which message is selected": exactly one of
// Email and Err is set.
type Record struct {
	Email *Email
	Err   string
}

// Selected wraps an email as a successful record.
func Selected(e *Email) Record {
	return Record{Email: e}
}

// Failed builds an error record.
func Failed(reason string) Record {
	return Record{Err: reason}
}

// OK reports whether the record carries an email.
func (r Record) OK() bool {
	return r.Email != nil && r.Err == ""
}

// Equal reports whether two records describe the same state.
func (r Record) Equal(o Record) bool {
	if r.Err != o.Err || (r.Email == nil) != (o.Email == nil) {
		return false
	}
	return r.Email == nil || r.Email.equal(o.Email)
}

// recordJSON is the document bridges produce.
type recordJSON struct {
	Subject      string   `json:"subject"`
	Body         string   `json:"body"`
	Sender       string   `json:"sender"`
	Recipient    string   `json:"recipient"`
	ReceivedTime string   `json:"receivedTime"`
	Attachments  []string `json:"attachments"`
	Error        string   `json:"error,omitempty"`
}

func (d *recordJSON) empty() bool {
	return d.Subject == "" && d.Body == "" && d.Sender == "" &&
		d.Recipient == "" && d.ReceivedTime == "" && len(d.Attachments) == 0
}

var receivedLayouts = []string{
	time.RFC3339Nano,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02 15:04:05",
	"1/2/2006 3:04:05 PM",
}

func parseReceived(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range receivedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// UnmarshalJSON decodes a bridge document. A non-empty "error" field
// makes an error record regardless of the other fields. A null or
// empty document means nothing is selected.
func (r *Record) UnmarshalJSON(data []byte) error {
	var doc recordJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	if doc.Error != "" {
		*r = Failed(doc.Error)
		return nil
	}
	if doc.empty() {
		*r = Failed(NoSelection)
		return nil
	}

	*r = Selected(&Email{
		Subject:      doc.Subject,
		Sender:       doc.Sender,
		Recipient:    doc.Recipient,
		ReceivedTime: parseReceived(doc.ReceivedTime),
		Body:         doc.Body,
		Attachments:  doc.Attachments,
	})
	return nil
}

// MarshalJSON encodes the record in the bridge document shape.
func (r Record) MarshalJSON() ([]byte, error) {
	if !r.OK() {
		return json.Marshal(recordJSON{Error: r.Err})
	}
	doc := recordJSON{
		Subject:     r.Email.Subject,
		Body:        r.Email.Body,
		Sender:      r.Email.Sender,
		Recipient:   r.Email.Recipient,
		Attachments: r.Email.Attachments,
	}
	if !r.Email.ReceivedTime.IsZero() {
		doc.ReceivedTime = r.Email.ReceivedTime.Format(time.RFC3339)
	}
	return json.Marshal(doc)
}
