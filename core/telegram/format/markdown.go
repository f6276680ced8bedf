// Package format escapes user and catalog text for Telegram parse modes.
package format

import (
	"regexp"
	"strings"
)

const v2Specials = "_*[]()~`>#+-=|{}.!\\"

var v2Re = regexp.MustCompile("([" + escapeClass(v2Specials) + "])")

// escapeClass backslash-escapes every character so the set is safe inside
// a regexp character class (a bare '-' would otherwise form a range).
func escapeClass(chars string) string {
	var b strings.Builder
	for _, r := range chars {
		b.WriteByte('\\')
		b.WriteRune(r)
	}
	return b.String()
}

// EscapeV2 escapes prose for MarkdownV2, where even '.' and '-' are reserved.
func EscapeV2(text string) string {
	return v2Re.ReplaceAllString(text, `\$1`)
}

// V2 joins prose and pre-rendered entities: even-indexed parts are escaped
// with EscapeV2, odd-indexed parts (CodeV2 output) are kept as they are.
func V2(parts ...string) string {
	var b strings.Builder
	for i, p := range parts {
		if i%2 == 0 {
			p = EscapeV2(p)
		}
		b.WriteString(p)
	}
	return b.String()
}

// CodeV2 wraps text in an inline code entity for MarkdownV2.
// Inside code entities only backslash and backtick need escaping.
func CodeV2(text string) string {
	r := strings.NewReplacer("\\", "\\\\", "`", "\\`")
	return "`" + r.Replace(text) + "`"
}

// EscapeHTML escapes the characters Telegram's HTML parse mode treats specially.
func EscapeHTML(text string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(text)
}
