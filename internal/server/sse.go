package server

import (
	"encoding/json"
	"fmt"
	"io"
)

func writeJSONBody(w io.Writer, payload any) error {
	encoder := json.NewEncoder(w)
	return encoder.Encode(payload)
}

// writeSSEEvent emits one server-sent event with a JSON data payload.
func writeSSEEvent(w io.Writer, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode sse payload: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return fmt.Errorf("write sse event: %w", err)
	}
	return nil
}
