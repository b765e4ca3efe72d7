package logging

import (
	"regexp"
	"strings"

	"mercator-hq/apigate/pkg/config"
)

// Redactor masks credentials in log values.
type Redactor struct {
	patterns []*redactPattern
}

type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternBearerToken = "bearer_token"
	PatternBasicAuth   = "basic_auth"
	PatternAPIKey      = "api_key"
	PatternPassword    = "password"
	PatternURLUserInfo = "url_userinfo"
)

var defaultPatterns = []struct {
	name        string
	regex       string
	replacement string
}{
	{PatternBearerToken, `(?i)bearer\s+[a-zA-Z0-9\-._~+/]+=*`, "Bearer ***"},
	{PatternBasicAuth, `(?i)basic\s+[a-zA-Z0-9+/]+=*`, "Basic ***"},
	{PatternAPIKey, `(?i)(api[-_]?key|access[-_]?token)([=:]\s*)[^\s&"]+`, "$1$2***"},
	{PatternPassword, `(?i)(password|passwd|pwd)([=:]\s*)[^\s&"]+`, "$1$2***"},
	{PatternURLUserInfo, `(https?://)[^/\s:@]+:[^/\s@]+@`, "$1***:***@"},
}

// sensitiveKeys are attribute names whose values are always masked.
var sensitiveKeys = []string{
	"password", "passwd", "secret", "token",
	"api_key", "apikey", "project_key",
	"authorization", "cookie",
}

// NewRedactor creates a Redactor with the built-in patterns plus any custom
// ones. Custom patterns that fail to compile are skipped.
func NewRedactor(custom []config.RedactPattern) *Redactor {
	r := &Redactor{}

	for _, p := range defaultPatterns {
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		})
	}

	for _, p := range custom {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.Name,
			regex:       regex,
			replacement: p.Replacement,
		})
	}

	return r
}

// RedactString applies every pattern to value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// RedactValue masks value when key names a secret, and otherwise applies
// the patterns to string values.
func (r *Redactor) RedactValue(key string, value string) string {
	if IsSensitiveKey(key) {
		return MaskSecret(value)
	}
	return r.RedactString(value)
}

// IsSensitiveKey reports whether an attribute name denotes a secret.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// MaskSecret keeps a four character prefix for identification.
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "***"
	}
	return secret[:4] + "***"
}
