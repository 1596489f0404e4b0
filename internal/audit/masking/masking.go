package masking

import "strings"

const maskToken = "****"

// sensitiveKeys hold free text or personal identifiers.
var sensitiveKeys = map[string]struct{}{
	"notes":    {},
	"actor_id": {},
	"email":    {},
}

// MaskSecret redacts a value while keeping a short suffix for correlation.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-4:]
}

// Redact returns a copy of metadata with sensitive string values masked.
func Redact(metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return nil
	}

	out := make(map[string]any, len(metadata))
	for key, value := range metadata {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		out[trimmedKey] = redactValue(trimmedKey, value)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func redactValue(key string, value any) any {
	switch cast := value.(type) {
	case string:
		if _, ok := sensitiveKeys[strings.ToLower(key)]; ok {
			return MaskSecret(cast)
		}
		return cast
	case map[string]any:
		return Redact(cast)
	default:
		return value
	}
}
