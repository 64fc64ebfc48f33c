// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package manual

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pdiddy/manual-preview/pkg/types"
)

// ParseMetadata decodes a manual metadata blob. The blob must be a JSON
// object with a "manual_filename" key; the key may hold an empty string,
// which Render reports as ErrMissingManual. A null or absent
// "manual_render_params" decodes as "".
func ParseMetadata(raw []byte) (types.ManualMetadata, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return types.ManualMetadata{}, fmt.Errorf("%w: expected a JSON object", ErrMalformedMetadata)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return types.ManualMetadata{}, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}
	if _, ok := fields["manual_filename"]; !ok {
		return types.ManualMetadata{}, fmt.Errorf("%w: manual_filename is required", ErrMalformedMetadata)
	}

	var meta types.ManualMetadata
	if err := json.Unmarshal(trimmed, &meta); err != nil {
		return types.ManualMetadata{}, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}
	return meta, nil
}
