package reconciliation

import (
	"regexp"
	"strings"
)

var twoDigits = regexp.MustCompile(`(?:^|\D)(\d{2})(?:\D|$)`)

// ExtractDepositCode returns the deposit code written in a bank memo: the one
// distinct standalone two-digit number in text. Zero or several distinct
// candidates yield "".
func ExtractDepositCode(text string) string {
	code := ""
	// A match consumes its trailing separator, so "12 34" would hide 34 from
	// FindAll. Scanning from the end of each code itself sees both.
	for rest := text; ; {
		loc := twoDigits.FindStringSubmatchIndex(rest)
		if loc == nil {
			break
		}
		found := rest[loc[2]:loc[3]]
		if code != "" && code != found {
			return ""
		}
		code = found
		rest = rest[loc[3]:]
	}
	return code
}

// depositorPattern matches name as a standalone token of a bank memo.
func depositorPattern(name string) *regexp.Regexp {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	return regexp.MustCompile(`(?:^|\D)` + regexp.QuoteMeta(name) + `(?:\D|$)`)
}
