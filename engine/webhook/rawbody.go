package webhook

import (
	"encoding/json"
	"fmt"
	"io"
)

// ReadRawJSON reads r up to limit bytes and validates it is well-formed
// JSON, returning the raw bytes unparsed so signature verification can run
// against the exact wire representation.
func ReadRawJSON(r io.Reader, limit int) ([]byte, error) {
	if limit < 0 {
		return nil, fmt.Errorf("webhook: invalid limit %d", limit)
	}
	data, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return nil, fmt.Errorf("webhook: failed to read body: %w", err)
	}
	if len(data) > limit {
		return nil, fmt.Errorf("webhook: payload too large (limit %d bytes)", limit)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("webhook: invalid json body")
	}
	return data, nil
}
