package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"wa-group-gateway/internal/dto"
)

// sendBody is a /send payload decoded without types, so the secret can be
// checked before any other field is looked at.
type sendBody map[string]json.RawMessage

// decodeSendBody never fails. An empty or unparseable body, or anything other
// than a JSON object, yields no fields and therefore no secret.
func decodeSendBody(raw []byte) sendBody {
	var fields sendBody
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	return fields
}

// secret is only accepted as a JSON string.
func (b sendBody) secret() string {
	var s string
	if err := json.Unmarshal(b["secret"], &s); err != nil {
		return ""
	}
	return s
}

// request coerces groupName and message to text. Numbers keep their literal
// form, true becomes "true", and null, false and 0 count as absent. Arrays and
// objects are rejected.
func (b sendBody) request() (dto.SendRequest, error) {
	groupName, err := b.text("groupName")
	if err != nil {
		return dto.SendRequest{}, err
	}
	message, err := b.text("message")
	if err != nil {
		return dto.SendRequest{}, err
	}
	return dto.SendRequest{Secret: b.secret(), GroupName: groupName, Message: message}, nil
}

func (b sendBody) text(field string) (string, error) {
	raw := bytes.TrimSpace(b[field])
	if len(raw) == 0 {
		return "", nil
	}

	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("%s is not valid JSON", field)
	}

	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		if !t {
			return "", nil
		}
		return "true", nil
	case json.Number:
		if f, err := strconv.ParseFloat(t.String(), 64); err == nil && f == 0 {
			return "", nil
		}
		return t.String(), nil
	default:
		return "", fmt.Errorf("%s must be text", field)
	}
}
