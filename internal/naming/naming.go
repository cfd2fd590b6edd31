// Package naming provides the naming conventions for cluster members and
// the placeholder substitution used by per-member command templates.
package naming

import (
	"fmt"
	"strings"
)

// DefaultPlaceholder is the token replaced by a member's name in command templates.
const DefaultPlaceholder = "{}"

// MemberName returns the name of the n-th clone of a cluster.
// Format: {prefix}-{n}, numbered from 1.
//
// Example: MemberName("cluster", 2) → cluster-2
func MemberName(prefix string, n int) string {
	return fmt.Sprintf("%s-%d", prefix, n)
}

// MemberNames returns the names of copies clones of a cluster, in order.
func MemberNames(prefix string, copies int) []string {
	names := make([]string, 0, copies)
	for i := 1; i <= copies; i++ {
		names = append(names, MemberName(prefix, i))
	}
	return names
}

// Expand substitutes every occurrence of placeholder in template with id.
// An empty placeholder falls back to DefaultPlaceholder.
//
// Example: Expand("ssh {} uptime", "{}", "cluster-1") → ssh cluster-1 uptime
func Expand(template, placeholder, id string) string {
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	return strings.ReplaceAll(template, placeholder, id)
}

// ValidateIdentifier checks that id can be stored as one roster line.
// Identifiers are otherwise opaque and case-sensitive.
func ValidateIdentifier(id string) error {
	if id == "" {
		return fmt.Errorf("identifier is required")
	}
	if strings.ContainsAny(id, "\r\n") {
		return fmt.Errorf("identifier %q must not contain line breaks", id)
	}
	if strings.TrimSpace(id) != id {
		return fmt.Errorf("identifier %q must not have leading or trailing whitespace", id)
	}
	return nil
}
