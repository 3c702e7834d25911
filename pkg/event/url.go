package event

import (
	"net/url"
	"strings"
)

// ResolveURL rewrites a payload-embedded URL so a subscriber's browser can
// open it. Absolute URLs keep their path, query and fragment but have their
// origin replaced by base (payloads from internal instances carry internal
// origins); relative or schemeless values are joined onto base directly.
// With no base the input is returned unchanged.
func ResolveURL(raw, base string) string {
	if raw == "" {
		return ""
	}
	base = strings.TrimRight(base, "/")
	if base == "" {
		return raw
	}

	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		parsed, err := url.Parse(raw)
		if err != nil {
			return raw
		}
		resolved := base + parsed.Path
		if parsed.RawQuery != "" {
			resolved += "?" + parsed.RawQuery
		}
		if parsed.Fragment != "" {
			resolved += "#" + parsed.Fragment
		}
		return resolved
	}

	if strings.HasPrefix(raw, "/") {
		return base + raw
	}
	return base + "/" + raw
}
