package backend

import (
	"encoding/json"

	"github.com/alanyoungcy/arbdeck/internal/domain"
)

// executionEnvelope covers every wrapped response shape the backend has
// produced for the execution log endpoint.
type executionEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Recent json.RawMessage `json:"recent"`
}

// decodeExecutionEnvelope normalizes the execution log response to a bare
// entry array. Detection order is fixed and deterministic:
//
//  1. bare array
//  2. {"data": [...]}
//  3. {"data": {"recent": [...]}}
//  4. {"recent": [...]}
//
// Anything else is a malformed payload.
func decodeExecutionEnvelope(body []byte) ([]domain.RawExecutionEntry, error) {
	if entries, ok := decodeEntryRows(body); ok {
		return entries, nil
	}

	var env executionEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, domain.ErrBadPayload
	}

	if len(env.Data) > 0 {
		if entries, ok := decodeEntryRows(env.Data); ok {
			return entries, nil
		}
		var inner executionEnvelope
		if err := json.Unmarshal(env.Data, &inner); err == nil && len(inner.Recent) > 0 {
			if entries, ok := decodeEntryRows(inner.Recent); ok {
				return entries, nil
			}
		}
	}

	if len(env.Recent) > 0 {
		if entries, ok := decodeEntryRows(env.Recent); ok {
			return entries, nil
		}
	}

	return nil, domain.ErrBadPayload
}

// decodeEntryRows decodes an entry array row by row. Rows that fail to
// decode are skipped so one malformed row never loses its siblings; the
// aggregation pass later drops unusable rows on its own terms. Returns
// false when raw is not a JSON array at all.
func decodeEntryRows(raw []byte) ([]domain.RawExecutionEntry, bool) {
	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, false
	}

	entries := make([]domain.RawExecutionEntry, 0, len(rows))
	for _, row := range rows {
		var e domain.RawExecutionEntry
		if err := json.Unmarshal(row, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, true
}
