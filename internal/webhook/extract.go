package webhook

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mistbot/kommorelay/internal/event"
)

// Kommo delivers the same chat message in several payload shapes depending
// on integration settings and webhook age. Extraction tries each known
// shape in order; the first one that yields any fields wins. Missing fields
// are never an error - the classifier rejects empty events downstream.

// fieldGetter returns the string value of a named message field, if present.
type fieldGetter func(name string) (string, bool)

// Extract parses the raw body according to its content type and pulls a
// canonical inbound event out of it. It returns an error only when the body
// cannot be parsed at all.
func Extract(contentType string, body []byte) (event.Inbound, error) {
	if strings.Contains(contentType, "application/x-www-form-urlencoded") {
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return event.Inbound{}, fmt.Errorf("parse form body: %w", err)
		}
		return buildEvent(formFields(values)), nil
	}

	var root map[string]any
	if err := json.Unmarshal(body, &root); err != nil {
		return event.Inbound{}, fmt.Errorf("parse json body: %w", err)
	}

	for _, locate := range jsonShapes {
		if msg, ok := locate(root); ok {
			return buildEvent(jsonFields(msg)), nil
		}
	}
	return event.Inbound{}, nil
}

// formFields reads the flat bracket keys Kommo uses for form-encoded
// deliveries: message[add][0][text], message[add][0][type], and so on.
func formFields(values url.Values) fieldGetter {
	return func(name string) (string, bool) {
		key := fmt.Sprintf("message[add][0][%s]", name)
		if !values.Has(key) {
			return "", false
		}
		return values.Get(key), true
	}
}

// jsonShapes locates the first message object inside a parsed JSON body.
// Order matters: newer shapes first.
var jsonShapes = []func(root map[string]any) (map[string]any, bool){
	// {"message": {"add": [{...}]}}
	func(root map[string]any) (map[string]any, bool) {
		msg, ok := root["message"].(map[string]any)
		if !ok {
			return nil, false
		}
		return firstObject(msg["add"])
	},
	// {"data": {"message": [{...}]}}
	func(root map[string]any) (map[string]any, bool) {
		data, ok := root["data"].(map[string]any)
		if !ok {
			return nil, false
		}
		return firstObject(data["message"])
	},
	// {"payload": {"message": [{...}]}}
	func(root map[string]any) (map[string]any, bool) {
		payload, ok := root["payload"].(map[string]any)
		if !ok {
			return nil, false
		}
		return firstObject(payload["message"])
	},
}

func firstObject(v any) (map[string]any, bool) {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return nil, false
	}
	obj, ok := list[0].(map[string]any)
	return obj, ok
}

func jsonFields(msg map[string]any) fieldGetter {
	return func(name string) (string, bool) {
		v, ok := msg[name]
		if !ok || v == nil {
			return "", false
		}
		switch t := v.(type) {
		case string:
			return t, true
		case float64:
			// JSON numbers decode as float64; ids and timestamps are integral
			return strconv.FormatInt(int64(t), 10), true
		case bool:
			return strconv.FormatBool(t), true
		default:
			return "", false
		}
	}
}

// buildEvent maps raw message fields onto the canonical event. The record
// id is taken from the first present of entity_id, lead_id, element_id;
// when the payload carries no explicit entity_type the source of the id
// decides it (lead_id implies a lead, anything else a contact).
func buildEvent(get fieldGetter) event.Inbound {
	var ev event.Inbound

	if text, ok := get("text"); ok {
		ev.Text = text
	}

	switch t, _ := get("type"); t {
	case "incoming":
		ev.Direction = event.DirectionIn
	case "outgoing":
		ev.Direction = event.DirectionOut
	default:
		ev.Direction = event.DirectionUnknown
	}

	idSource := ""
	for _, key := range []string{"entity_id", "lead_id", "element_id"} {
		if id, ok := get(key); ok && id != "" {
			ev.EntityID = id
			idSource = key
			break
		}
	}

	if et, ok := get("entity_type"); ok && et != "" {
		ev.EntityType = et
	} else if ev.EntityID != "" {
		if idSource == "lead_id" {
			ev.EntityType = "lead"
		} else {
			ev.EntityType = "contact"
		}
	}

	if ts, ok := get("created_at"); ok {
		if n, err := strconv.ParseInt(ts, 10, 64); err == nil {
			ev.CreatedAt = n
		}
	}

	return ev
}
