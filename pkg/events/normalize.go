package events

import "encoding/json"

// Normalize decodes a raw queue message body and unwraps the single level of
// relay wrapping some upstream producers apply: a JSON object whose string
// field "Message" itself decodes to a JSON object carrying eventType. The
// unwrap is best effort; a Message field that is not nested JSON, or whose
// inner object lacks eventType, leaves the outer object untouched.
func Normalize(body []byte) (map[string]any, error) {
	var outer map[string]any
	if err := json.Unmarshal(body, &outer); err != nil {
		return nil, err
	}

	wrapped, ok := outer["Message"].(string)
	if !ok {
		return outer, nil
	}

	var inner map[string]any
	if err := json.Unmarshal([]byte(wrapped), &inner); err != nil {
		return outer, nil
	}
	if _, ok := inner["eventType"]; !ok {
		return outer, nil
	}
	return inner, nil
}
