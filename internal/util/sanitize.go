package util

import (
	"regexp"
	"strings"
)

var controlChars = regexp.MustCompile(`[\x00-\x1F\x7F]+`)

// SanitizeForLog removes control characters and newlines from user content before logging.
func SanitizeForLog(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return controlChars.ReplaceAllString(s, " ")
}

// TruncateForLog sanitizes s and cuts it to at most max bytes.
func TruncateForLog(s string, max int) string {
	s = SanitizeForLog(s)
	if max > 0 && len(s) > max {
		return s[:max]
	}
	return s
}

// MaskEmail keeps the first character of the local part and the domain so
// submitter addresses can be correlated in logs without being exposed.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	return SanitizeForLog(email[:1] + "***" + email[at:])
}
