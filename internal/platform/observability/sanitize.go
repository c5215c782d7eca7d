package observability

import "unicode"

// Log field caps. Session cookies are minted at 32 characters and Firebase
// UIDs top out at 128, so anything longer is hostile input.
const (
	maxRouteField   = 180
	maxMethodField  = 10
	maxSessionField = 64
	maxActorField   = 64
	maxGenericField = 256
)

// scrubField strips control characters and truncates, keeping newlines and
// tabs out of single-line log values.
func scrubField(value string, limit int) string {
	if limit <= 0 {
		limit = maxGenericField
	}
	out := make([]rune, 0, len(value))
	for _, r := range value {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			continue
		}
		out = append(out, r)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return string(out)
}

// ScrubRoute normalizes a chi route pattern for logging.
func ScrubRoute(route string) string {
	if route == "" {
		return "/"
	}
	return scrubField(route, maxRouteField)
}

// ScrubMethod normalizes an HTTP method for logging.
func ScrubMethod(method string) string {
	return scrubField(method, maxMethodField)
}

// ScrubSessionID bounds a storefront session identifier before it reaches a
// log line. Session IDs are opaque cookie values supplied by the client, so
// they are treated as untrusted.
func ScrubSessionID(id string) string {
	if id == "" {
		return ""
	}
	return scrubField(id, maxSessionField)
}

// ScrubActorID bounds a staff Firebase UID for logging.
func ScrubActorID(uid string) string {
	if uid == "" {
		return ""
	}
	return scrubField(uid, maxActorField)
}
