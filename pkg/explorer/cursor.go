package explorer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/hello-xone/xone-explorer-sub000/internal/constants"
)

// CursorQueryParam is the query parameter carrying the cursor of a page.
const CursorQueryParam = constants.CursorQueryParam

const cursorParam = CursorQueryParam

// Cursor is the opaque next-page parameter object returned by a paginated
// resource. Its fields are never interpreted, only echoed back.
type Cursor map[string]any

// IsEmpty reports whether the cursor carries no parameters. An empty cursor
// addresses the first page.
func (c Cursor) IsEmpty() bool {
	return len(c) == 0
}

// Encode returns the canonical JSON form of the cursor with keys sorted, or
// "" for the empty cursor.
func (c Cursor) Encode() string {
	if c.IsEmpty() {
		return ""
	}

	data, err := json.Marshal(map[string]any(c))
	if err != nil {
		return ""
	}

	return string(data)
}

// UnmarshalJSON decodes a cursor object keeping numbers exact. null decodes
// to the empty cursor.
func (c *Cursor) UnmarshalJSON(data []byte) error {
	decoded, err := decodeCursorJSON(data)
	if err != nil {
		return err
	}

	*c = decoded

	return nil
}

// DecodeCursor parses the value of the cursor query parameter. It accepts
// the JSON object as sent, or its URL-escaped form. An empty value yields
// the empty cursor.
func DecodeCursor(value string) (Cursor, error) {
	if value == "" {
		return nil, nil
	}

	c, err := decodeCursorJSON([]byte(value))
	if err == nil {
		return c, nil
	}

	unescaped, uerr := url.QueryUnescape(value)
	if uerr != nil || unescaped == value {
		return nil, err
	}

	return decodeCursorJSON([]byte(unescaped))
}

// CursorToken renders a cursor as a URL-safe token suitable for restoring
// a pagination session.
func CursorToken(c Cursor) string {
	return url.QueryEscape(c.Encode())
}

// ParseCursorToken is the lenient inverse of CursorToken: malformed tokens
// yield the empty cursor.
func ParseCursorToken(token string) Cursor {
	c, err := DecodeCursor(token)
	if err != nil {
		return nil
	}

	return c
}

func decodeCursorJSON(data []byte) (Cursor, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var raw map[string]any

	err := dec.Decode(&raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCursor, err)
	}

	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", ErrMalformedCursor)
	}

	if len(raw) == 0 {
		return nil, nil
	}

	return Cursor(raw), nil
}

// nextPageEnvelope is the part of a list payload the cursor manager reads.
type nextPageEnvelope struct {
	NextPageParams json.RawMessage `json:"next_page_params"`
}

// extractNextCursor reads next_page_params from a page payload. Absent, null
// or empty params mean there is no next page.
func extractNextCursor(data []byte) (Cursor, error) {
	var envelope nextPageEnvelope

	err := json.Unmarshal(data, &envelope)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCursor, err)
	}

	return decodeCursorJSON(envelope.NextPageParams)
}
