package capture

import (
	"regexp"
	"strings"
)

// Options are the declarative record predicates. The zero value filters
// nothing. Nil status bounds leave the status range unchecked.
type Options struct {
	// URLPattern is searched (not full-matched) against the request URL.
	URLPattern *regexp.Regexp

	// Method is compared case-insensitively against the request method.
	Method string

	// StatusMin / StatusMax bound the numeric response status, inclusive.
	StatusMin *int
	StatusMax *int
}

func (o Options) empty() bool {
	return o.URLPattern == nil && o.Method == "" && o.StatusMin == nil && o.StatusMax == nil
}

// FilterRecords returns the records passing every configured predicate,
// in their original order. With no predicates the input slice is returned
// unchanged.
//
// Field resolution is nested-then-flat: request.url then url, and so on.
// A record with a method filter set but no method is dropped. A record
// whose status is present but not coercible to an integer passes the
// status range regardless; the range is not enforced on malformed data.
func FilterRecords(records []any, opts Options) []any {
	if opts.empty() {
		return records
	}

	method := strings.ToUpper(opts.Method)
	filtered := make([]any, 0, len(records))
	for _, record := range records {
		if opts.URLPattern != nil {
			url := lookupString(record, "request.url", "url")
			if !opts.URLPattern.MatchString(url) {
				continue
			}
		}
		if method != "" {
			m := lookupString(record, "request.method", "method")
			if m == "" || !strings.EqualFold(m, method) {
				continue
			}
		}
		if opts.StatusMin != nil || opts.StatusMax != nil {
			if raw := lookupValue(record, "response.status", "status"); raw != nil {
				if status, ok := statusInt(raw); ok {
					if opts.StatusMin != nil && status < *opts.StatusMin {
						continue
					}
					if opts.StatusMax != nil && status > *opts.StatusMax {
						continue
					}
				}
			}
		}
		filtered = append(filtered, record)
	}
	return filtered
}
