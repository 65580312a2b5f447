package embedding

import (
	"bytes"
	"encoding/json"
)

// Body field names, in lookup order after "texts".
var fallbackFields = []string{"text", "content"}

// NormalizeTexts turns an embed request body into an ordered, non-empty list
// of texts. "texts" wins when present and non-null; otherwise "text" is used
// if the key exists, else "content". Each field accepts a string or a list of
// strings.
func NormalizeTexts(body []byte) ([]string, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, invalidInput("request body is empty")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, invalidInput("request body must be a JSON object")
	}
	if len(fields) == 0 {
		return nil, invalidInput("request body is empty")
	}

	raw, ok := fields["texts"]
	if !ok || isNull(raw) {
		raw = nil
		for _, name := range fallbackFields {
			if v, found := fields[name]; found {
				raw = v
				break
			}
		}
	}
	if raw == nil || isNull(raw) {
		return nil, invalidInput("no text provided")
	}

	return decodeTexts(raw)
}

func decodeTexts(raw json.RawMessage) ([]string, error) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}, nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, invalidInput("texts must be a string or a list of strings")
	}
	if len(list) == 0 {
		return nil, invalidInput("no text provided")
	}

	texts := make([]string, len(list))
	for i, item := range list {
		if err := json.Unmarshal(item, &texts[i]); err != nil || isNull(item) {
			return nil, invalidInput("texts must be a string or a list of strings")
		}
	}
	return texts, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
