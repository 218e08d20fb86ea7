// Package capture sequences a network-capture run against two MCP servers:
// navigate and fetch request records from a Playwright server, persist them
// as newline-delimited JSON through a Filesystem server.
package capture

import (
	"strconv"
	"strings"

	"github.com/ysmood/gson"
)

// CoerceRecords normalizes a fetched payload into a flat record list:
// nil becomes an empty list, a list is used as-is, a map with a list-valued
// "requests" field yields that inner list, any other map is wrapped as a
// single record, and any other scalar is wrapped as {"value": scalar}.
func CoerceRecords(payload any) []any {
	switch v := payload.(type) {
	case nil:
		return []any{}
	case []any:
		return v
	case map[string]any:
		if requests, ok := v["requests"].([]any); ok {
			return requests
		}
		return []any{v}
	default:
		return []any{map[string]any{"value": v}}
	}
}

// lookupString resolves a string field from a record, preferring the nested
// path (e.g. "request.url") and falling back to the flat key. Records carry
// no enforced schema; a missing field is "" rather than an error.
func lookupString(record any, nested, flat string) string {
	j := gson.New(record)
	if j.Has(nested) {
		if s := j.Get(nested).Str(); s != "" {
			return s
		}
	}
	if j.Has(flat) {
		return j.Get(flat).Str()
	}
	return ""
}

// lookupValue resolves a field of any type, nested path first.
func lookupValue(record any, nested, flat string) any {
	j := gson.New(record)
	if j.Has(nested) {
		if v := j.Get(nested).Val(); v != nil {
			return v
		}
	}
	if j.Has(flat) {
		return j.Get(flat).Val()
	}
	return nil
}

// statusInt coerces a status value to an integer. Strings are parsed;
// anything non-numeric reports ok=false.
func statusInt(v any) (int, bool) {
	switch s := v.(type) {
	case int:
		return s, true
	case int64:
		return int(s), true
	case float64:
		return int(s), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
