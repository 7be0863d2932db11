// Package redact strips connection credentials, hosts, SQL text and stack
// traces from strings before they are logged. Database driver errors are
// the main source of such leaks.
package redact

import (
	"log/slog"
	"regexp"
)

// Placeholders substituted for redacted fragments.
const (
	CredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	HostPlaceholder       = "[REDACTED_HOST]"
	SQLPlaceholder        = "[REDACTED_SQL]"
	PathPlaceholder       = "[REDACTED_PATH]"
	StackPlaceholder      = "[STACK_TRACE_REDACTED]"
)

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Applied in order; later rules see the output of earlier ones.
var rules = []rule{
	{
		regexp.MustCompile(`(?s)goroutine \d+ \[.*`),
		StackPlaceholder,
	},
	// user:password in connection URLs
	{
		regexp.MustCompile(`(?i)\b((?:postgres(?:ql)?|pgx|mysql|redis)://)[^\s@/]+@`),
		"${1}" + CredentialPlaceholder + "@",
	},
	// password=..., key-value DSN style
	{
		regexp.MustCompile(`(?i)\b(password|passwd|pwd)\s*[=:]\s*[^\s&]+`),
		"${1}=" + CredentialPlaceholder,
	},
	// SQL statements echoed by drivers; keywords are upper case in our queries
	{
		regexp.MustCompile(`\b(?:SELECT|INSERT INTO|UPDATE|DELETE FROM|CREATE|ALTER|DROP)\s[^;"]*`),
		SQLPlaceholder,
	},
	{
		regexp.MustCompile(`\b\d{1,3}(?:\.\d{1,3}){3}(?::\d{1,5})?\b`),
		HostPlaceholder,
	},
	{
		regexp.MustCompile(`\b[A-Za-z][\w.-]*:\d{2,5}\b`),
		HostPlaceholder,
	},
	{
		regexp.MustCompile(`(?:/[\w.-]+){3,}`),
		PathPlaceholder,
	},
}

// String redacts sensitive fragments from s.
func String(s string) string {
	if s == "" {
		return s
	}
	for _, r := range rules {
		s = r.pattern.ReplaceAllString(s, r.replacement)
	}
	return s
}

// Error redacts err's message. A nil error yields "".
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}

// Attr returns err as a redacted "error" log attribute.
func Attr(err error) slog.Attr {
	return slog.String("error", Error(err))
}
