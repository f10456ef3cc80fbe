package naming

import (
	"strings"

	"k8s.io/apimachinery/pkg/util/validation"
)

// ToResourcePrefix converts an application name into the prefix used for
// the Kubernetes resources of a submission. Service names are RFC 1035
// labels: lowercase alphanumerics and dashes, at most 63 characters,
// starting with a letter and ending alphanumeric. Invalid characters are
// replaced, separator runs collapsed, and the edges trimmed. An input
// with no usable start is grounded with "spark".
func ToResourcePrefix(s string) string {
	s = trimEdges(sanitize(s, false))
	if s == "" {
		return "spark"
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "spark-" + s
	}
	if len(s) > validation.DNS1123LabelMaxLength {
		s = trimEdges(s[:validation.DNS1123LabelMaxLength])
	}
	return s
}

// ToLabelValue converts an arbitrary string into a valid label value for
// the selector labels stamped onto driver pods and services: lowercase
// alphanumerics plus '-' and '.', alphanumeric at both ends, at most 63
// characters. An input with nothing usable becomes "x".
func ToLabelValue(s string) string {
	s = trimEdges(sanitize(s, true))
	if s == "" {
		return "x"
	}
	if len(s) > validation.LabelValueMaxLength {
		s = trimEdges(s[:validation.LabelValueMaxLength])
		if s == "" {
			return "x"
		}
	}
	return s
}

// sanitize lowercases the input, maps every rune outside the allowed set
// to '-', and collapses separator runs so "a--b" and "a..b" come out as
// "a-b" and "a.b". Dots survive only when keepDots is set, service names
// do not allow them.
func sanitize(s string, keepDots bool) string {
	var b strings.Builder
	b.Grow(len(s))
	var last byte
	for _, r := range strings.ToLower(s) {
		c := byte('-')
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			c = byte(r)
		case keepDots && r == '.':
			c = '.'
		}
		if (c == '-' || c == '.') && c == last {
			continue
		}
		b.WriteByte(c)
		last = c
	}
	return b.String()
}

// isAlnum reports whether c is a lowercase letter or digit. sanitize has
// already lowercased everything by the time this runs.
func isAlnum(c byte) bool {
	return ('a' <= c && c <= 'z') || ('0' <= c && c <= '9')
}

// trimEdges cuts non-alphanumeric characters off both ends.
func trimEdges(s string) string {
	start, end := 0, len(s)
	for start < end && !isAlnum(s[start]) {
		start++
	}
	for end > start && !isAlnum(s[end-1]) {
		end--
	}
	return s[start:end]
}
