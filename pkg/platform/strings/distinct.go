// Package strings provides order-preserving de-duplication for resolver output.
package strings

import (
	"strings"
)

// Distinct trims each value and drops blanks and repeats, keeping first-seen order.
//
//	Distinct([]string{" 93.184.216.34", "93.184.216.34", ""}) // ["93.184.216.34"]
func Distinct(values []string) []string {
	return distinct(values, func(s string) string { return s })
}

// DistinctFold is Distinct with case-insensitive comparison. The first
// spelling of each value is kept.
//
//	DistinctFold([]string{"A.IANA-SERVERS.NET", "a.iana-servers.net"}) // ["A.IANA-SERVERS.NET"]
func DistinctFold(values []string) []string {
	return distinct(values, strings.ToLower)
}

func distinct(values []string, key func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		k := key(trimmed)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
