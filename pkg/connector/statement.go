package connector

import "strings"

// Leading keywords of statements a read-only connector may run. PRAGMA is
// left out: it can change connection settings, query_only included.
var readKeywords = map[string]bool{
	"select":   true,
	"with":     true,
	"values":   true,
	"show":     true,
	"describe": true,
	"explain":  true,
}

// Keywords that make an otherwise reading statement write: data-modifying
// CTEs, SELECT ... INTO, RETURNING clauses and locking reads.
var writeKeywords = map[string]bool{
	"insert":    true,
	"update":    true,
	"delete":    true,
	"merge":     true,
	"into":      true,
	"returning": true,
}

// LeadingKeyword returns the first word of statement in lower case. Leading
// whitespace, comments and parentheses are skipped.
func LeadingKeyword(statement string) string {
	var first string
	scanTokens(statement, func(tok string) bool {
		if tok == ";" {
			return true
		}
		first = tok
		return false
	})
	return first
}

// HasKeyword reports whether keyword appears as a word in statement outside
// comments and string literals.
func HasKeyword(statement, keyword string) bool {
	keyword = strings.ToLower(keyword)
	found := false
	scanTokens(statement, func(tok string) bool {
		found = tok == keyword
		return !found
	})
	return found
}

// IsReadStatement reports whether statement is a single statement that only
// reads: it starts with a reading keyword and contains no writing keyword.
// Read-only connectors refuse everything else.
func IsReadStatement(statement string) bool {
	seen, ended, safe := false, false, true
	scanTokens(statement, func(tok string) bool {
		switch {
		case tok == ";":
			ended = seen
		case ended:
			safe = false
		case !seen:
			seen = true
			safe = readKeywords[tok]
		case writeKeywords[tok]:
			safe = false
		}
		return safe
	})
	return seen && safe
}

// scanTokens calls yield with every lower-cased word of statement and every
// ";" separator, skipping comments and quoted text, until yield returns
// false. Quoted runs holding a backslash and MySQL "/*!" comments are
// scanned as code, since some engines execute what is inside them.
func scanTokens(s string, yield func(tok string) bool) {
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '-' && i+1 < len(s) && s[i+1] == '-':
			end := strings.IndexByte(s[i:], '\n')
			if end < 0 {
				return
			}
			i += end + 1
		case c == '/' && i+1 < len(s) && s[i+1] == '*' && !strings.HasPrefix(s[i:], "/*!"):
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				return
			}
			i += end + 4
		case c == '\'' || c == '"' || c == '`':
			i = skipQuoted(s, i)
		case c == ';':
			if !yield(";") {
				return
			}
			i++
		case isWordByte(c):
			j := i
			for j < len(s) && isWordByte(s[j]) {
				j++
			}
			if !yield(strings.ToLower(s[i:j])) {
				return
			}
			i = j
		default:
			i++
		}
	}
}

// skipQuoted returns the index just past the quoted run starting at i. A
// doubled quote character is an escaped quote. A run holding a backslash is
// not skipped: the index after the opening quote is returned.
func skipQuoted(s string, i int) int {
	q := s[i]
	for j := i + 1; j < len(s); j++ {
		if s[j] == '\\' {
			return i + 1
		}
		if s[j] != q {
			continue
		}
		if j+1 < len(s) && s[j+1] == q {
			j++
			continue
		}
		return j + 1
	}
	return len(s)
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
