package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnrecognizedPayload is returned when a records payload is neither a bare
// array nor a recognized wrapper object.
var ErrUnrecognizedPayload = errors.New("unrecognized records payload shape")

// wrapperKeys are the envelope keys upstream steps may wrap a record list in,
// checked in order.
var wrapperKeys = []string{"result", "records", "data"}

// DecodeSessionRecords decodes a record batch that arrives either as a bare
// JSON array or wrapped under a result/records/data key. The wrapper shape is
// resolved once here, at the pipeline boundary, so downstream stages only ever
// see []SessionRecord.
func DecodeSessionRecords(data []byte) ([]SessionRecord, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, ErrUnrecognizedPayload
	}

	if trimmed[0] == '[' {
		var records []SessionRecord
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decode record array: %w", err)
		}
		return records, nil
	}

	if trimmed[0] != '{' {
		return nil, ErrUnrecognizedPayload
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decode record envelope: %w", err)
	}

	for _, key := range wrapperKeys {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		var records []SessionRecord
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("decode records under %q: %w", key, err)
		}
		return records, nil
	}

	return nil, ErrUnrecognizedPayload
}
