package svcerr

import "encoding/json"

// messageKeys is the ordered list of body fields tried when extracting a
// human-readable message from an error response.
var messageKeys = []string{"message", "error", "detail", "title", "errorMessage", "error_description"}

// extractMessage decodes body as JSON and returns the first populated field
// from messageKeys, in order. Returns "" if body isn't a JSON object or none
// of the keys are present/string-typed — callers fall back to a generic
// message plus the raw body snippet already captured on ErrorContext.
func extractMessage(body []byte) string {
	raw, ok := decodeObject(body)
	if !ok {
		return ""
	}
	for _, key := range messageKeys {
		if v, ok := raw[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// extractFieldErrors tries, in order, Spring-style "errors[]", RFC 7807
// "invalid-params[]", and "validationErrors[]" to build a field-level error
// list for KindUnprocessable responses.
func extractFieldErrors(body []byte) []FieldError {
	raw, ok := decodeObject(body)
	if !ok {
		return nil
	}

	if list, ok := raw["errors"].([]any); ok {
		return parseSpringErrors(list)
	}
	if list, ok := raw["invalid-params"].([]any); ok {
		return parseProblemInvalidParams(list)
	}
	if list, ok := raw["validationErrors"].([]any); ok {
		return parseGenericFieldErrors(list)
	}
	return nil
}

func decodeObject(body []byte) (map[string]any, bool) {
	if len(body) == 0 {
		return nil, false
	}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, false
	}
	return raw, true
}

// parseSpringErrors handles Spring's {"field": "...", "defaultMessage": "...", "code": "..."}
// per-entry shape.
func parseSpringErrors(list []any) []FieldError {
	out := make([]FieldError, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		fe := FieldError{}
		if f, ok := obj["field"].(string); ok {
			fe.Field = f
		}
		if m, ok := obj["defaultMessage"].(string); ok {
			fe.Message = m
		} else if m, ok := obj["message"].(string); ok {
			fe.Message = m
		}
		if c, ok := obj["code"].(string); ok {
			fe.Code = c
		}
		out = append(out, fe)
	}
	return out
}

// parseProblemInvalidParams handles RFC 7807's {"name": "...", "reason": "..."}.
func parseProblemInvalidParams(list []any) []FieldError {
	out := make([]FieldError, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		fe := FieldError{}
		if n, ok := obj["name"].(string); ok {
			fe.Field = n
		}
		if r, ok := obj["reason"].(string); ok {
			fe.Message = r
		}
		out = append(out, fe)
	}
	return out
}

// parseGenericFieldErrors handles {"field": "...", "message": "..."}.
func parseGenericFieldErrors(list []any) []FieldError {
	out := make([]FieldError, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		fe := FieldError{}
		if f, ok := obj["field"].(string); ok {
			fe.Field = f
		}
		if m, ok := obj["message"].(string); ok {
			fe.Message = m
		}
		if c, ok := obj["code"].(string); ok {
			fe.Code = c
		}
		out = append(out, fe)
	}
	return out
}
