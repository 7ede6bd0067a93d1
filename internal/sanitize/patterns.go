// Package sanitize masks credential-shaped text before it is persisted
// or rendered into notes.
package sanitize

import (
	"fmt"
	"regexp"
)

// Pattern is a compiled detection rule. Replacement is a fixed placeholder
// per label; matched values are never partially revealed.
type Pattern struct {
	Label       string
	Regex       *regexp.Regexp
	Replacement string
}

// builtinPatterns are always applied, in order, before any custom patterns.
// Replacements are chosen so that masked output never re-matches a pattern
// with a different result.
var builtinPatterns = []Pattern{
	{
		Label:       "OPENAI_KEY",
		Regex:       regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`),
		Replacement: "[OPENAI_KEY]",
	},
	{
		Label:       "GOOGLE_KEY",
		Regex:       regexp.MustCompile(`AIza[a-zA-Z0-9\-_]{20,}`),
		Replacement: "[GOOGLE_KEY]",
	},
	{
		Label:       "GITHUB_PAT",
		Regex:       regexp.MustCompile(`ghp_[a-zA-Z0-9]{20,}`),
		Replacement: "[GITHUB_PAT]",
	},
	{
		Label:       "GITHUB_OAUTH",
		Regex:       regexp.MustCompile(`gho_[a-zA-Z0-9]{36}`),
		Replacement: "[GITHUB_OAUTH]",
	},
	{
		Label:       "SLACK_BOT",
		Regex:       regexp.MustCompile(`xoxb-[0-9\-a-zA-Z]{50,}`),
		Replacement: "[SLACK_BOT]",
	},
	{
		Label:       "SLACK_USER",
		Regex:       regexp.MustCompile(`xoxp-[0-9\-a-zA-Z]{50,}`),
		Replacement: "[SLACK_USER]",
	},
	{
		Label:       "AWS_ACCESS_KEY",
		Regex:       regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
		Replacement: "[AWS_ACCESS_KEY]",
	},
	{
		Label:       "PASSWORD",
		Regex:       regexp.MustCompile(`(?i)password\s*[=:]\s*["']?[^\s"']{4,}["']?`),
		Replacement: "password=[REDACTED]",
	},
	{
		Label:       "PASSWD",
		Regex:       regexp.MustCompile(`(?i)passwd\s*[=:]\s*["']?[^\s"']{4,}["']?`),
		Replacement: "passwd=[REDACTED]",
	},
	{
		Label:       "SECRET",
		Regex:       regexp.MustCompile(`(?i)secret\s*[=:]\s*["']?[^\s"']{8,}["']?`),
		Replacement: "secret=[REDACTED]",
	},
	{
		Label:       "TOKEN",
		Regex:       regexp.MustCompile(`(?i)token\s*[=:]\s*["']?[a-zA-Z0-9_\-]{20,}["']?`),
		Replacement: "token=[REDACTED]",
	},
	{
		Label:       "BEARER_TOKEN",
		Regex:       regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-._~+/]+=*`),
		Replacement: "Bearer [REDACTED]",
	},
	{
		Label:       "PRIVATE_KEY",
		Regex:       regexp.MustCompile(`-----BEGIN (?:RSA |EC )?PRIVATE KEY-----[\s\S]+?-----END (?:RSA |EC )?PRIVATE KEY-----`),
		Replacement: "[PRIVATE_KEY]",
	},
	{
		Label:       "DB_CONNECTION_STRING",
		Regex:       regexp.MustCompile(`(?i)(?:mysql|postgresql|mongodb|redis|amqp)://[^\s@]+@[^\s]+`),
		Replacement: "[DB_CONNECTION_STRING]",
	},
}

// Builtin returns a copy of the built-in pattern list.
func Builtin() []Pattern {
	result := make([]Pattern, len(builtinPatterns))
	copy(result, builtinPatterns)
	return result
}

const customLabelPrefixLen = 40

// CompileCustom compiles a user-configured pattern. The match is replaced
// with [REDACTED] and reported under the label CUSTOM:<pattern prefix>.
// Patterns are compiled case-insensitively.
func CompileCustom(raw string) (Pattern, error) {
	re, err := regexp.Compile("(?i)" + raw)
	if err != nil {
		return Pattern{}, fmt.Errorf("invalid sensitive pattern %q: %w", raw, err)
	}
	prefix := raw
	if len(prefix) > customLabelPrefixLen {
		prefix = prefix[:customLabelPrefixLen]
	}
	return Pattern{
		Label:       "CUSTOM:" + prefix,
		Regex:       re,
		Replacement: "[REDACTED]",
	}, nil
}
