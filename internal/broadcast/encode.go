package broadcast

import (
	"encoding/json"
	"fmt"
)

func encodeSocketMessage(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	return data, nil
}

// encodeStreamEvent frames v as a single server-sent event: "data: <json>\n\n".
func encodeStreamEvent(v any) ([]byte, error) {
	body, err := encodeSocketMessage(v)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, 0, len(body)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, body...)
	frame = append(frame, '\n', '\n')
	return frame, nil
}
