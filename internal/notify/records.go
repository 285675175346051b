package notify

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Placeholder is shown for notifications that carry no message text.
const Placeholder = "You have a new notification"

// Record is one notification-like item from a list response.
type Record struct {
	ID      string
	Message string // empty when the item had neither "message" nor "text"
}

// Text returns the message to surface for r.
func (r Record) Text() string {
	if r.Message == "" {
		return Placeholder
	}
	return r.Message
}

// Notification is what the watcher emits for each newly seen record.
type Notification struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
}

// extractor pulls the item list out of one accepted body shape. ok is false
// when the body does not have that shape.
type extractor func(body []byte) (items []json.RawMessage, ok bool)

// extractors are tried in order; the first match wins.
var extractors = []extractor{
	bareArray,
	arrayField("notifications"),
	arrayField("data"),
}

func bareArray(body []byte) ([]json.RawMessage, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil || items == nil {
		return nil, false
	}
	return items, true
}

func arrayField(name string) extractor {
	return func(body []byte) ([]json.RawMessage, bool) {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(body, &obj); err != nil {
			return nil, false
		}
		raw, ok := obj[name]
		if !ok {
			return nil, false
		}
		return bareArray(raw)
	}
}

// Normalize flattens a list response into records. Unknown shapes, invalid
// JSON and items without an identifier produce no records.
func Normalize(body []byte) []Record {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil
	}

	var items []json.RawMessage
	for _, extract := range extractors {
		if got, ok := extract(body); ok {
			items = got
			break
		}
	}

	records := make([]Record, 0, len(items))
	for _, item := range items {
		if r, ok := toRecord(item); ok {
			records = append(records, r)
		}
	}
	return records
}

func toRecord(item json.RawMessage) (Record, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
		return Record{}, false
	}

	id := coerceID(fields["_id"])
	if id == "" {
		id = coerceID(fields["id"])
	}
	if id == "" {
		return Record{}, false
	}

	msg := stringField(fields["message"])
	if msg == "" {
		msg = stringField(fields["text"])
	}
	return Record{ID: id, Message: msg}, true
}

// coerceID renders a string, number or {"$oid": "..."} identifier as a string.
func coerceID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	// Identifiers are compared verbatim, so string ids are not trimmed.
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	var oid struct {
		OID string `json:"$oid"`
	}
	if err := json.Unmarshal(raw, &oid); err == nil {
		return oid.OID
	}
	return ""
}

func stringField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
