package agent

import (
	"regexp"
	"strings"
)

// Call is one parsed tool invocation from an agent reply.
type Call struct {
	// Tool is the invoked tool name.
	Tool string
	// Args holds the positional string and keyword-value arguments, in order.
	Args []string
	// List holds the items of the first list argument, if the call had one.
	List []string
}

// Arg returns the i-th positional argument, or "" if absent.
func (c Call) Arg(i int) string {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return ""
}

var callSitePattern = regexp.MustCompile(`\b([a-z][a-z0-9_]*)\s*\(`)

// ParseCalls extracts tool invocations from an agent reply, in order of
// appearance. Only names in allowed are parsed; anything that looks like a
// call but does not parse cleanly is skipped.
func ParseCalls(response string, allowed []string) []Call {
	allowedSet := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		allowedSet[name] = true
	}

	var calls []Call
	for _, loc := range callSitePattern.FindAllStringSubmatchIndex(response, -1) {
		name := response[loc[2]:loc[3]]
		if !allowedSet[name] {
			continue
		}
		call, ok := parseArgs(response, loc[1])
		if !ok {
			continue
		}
		call.Tool = name
		calls = append(calls, call)
	}
	return calls
}

// parseArgs parses an argument list starting just after the opening paren.
func parseArgs(s string, i int) (Call, bool) {
	var call Call
	for {
		i = skipSeparators(s, i)
		if i >= len(s) {
			return Call{}, false
		}
		switch c := s[i]; {
		case c == ')':
			return call, true
		case c == '\'' || c == '"':
			val, next, ok := parseQuoted(s, i)
			if !ok {
				return Call{}, false
			}
			call.Args = append(call.Args, val)
			i = next
		case c == '[':
			items, next, ok := parseStringList(s, i)
			if !ok {
				return Call{}, false
			}
			if call.List == nil {
				call.List = items
			}
			i = next
		case c >= '0' && c <= '9':
			start := i
			for i < len(s) && s[i] >= '0' && s[i] <= '9' {
				i++
			}
			call.Args = append(call.Args, s[start:i])
		case isIdentByte(c):
			// Keyword argument: skip the name and '=' then parse the value.
			for i < len(s) && isIdentByte(s[i]) {
				i++
			}
			i = skipSpace(s, i)
			if i >= len(s) || s[i] != '=' {
				return Call{}, false
			}
			i++
		default:
			return Call{}, false
		}
	}
}

// parseQuoted parses a single- or double-quoted string starting at i.
// Returns the unescaped value and the index just past the closing quote.
func parseQuoted(s string, i int) (string, int, bool) {
	quote := s[i]
	i++
	var b strings.Builder
	for i < len(s) {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '\\', '\'', '"':
				b.WriteByte(s[i+1])
			default:
				b.WriteByte('\\')
				b.WriteByte(s[i+1])
			}
			i += 2
			continue
		}
		if c == quote {
			return b.String(), i + 1, true
		}
		b.WriteByte(c)
		i++
	}
	return "", 0, false
}

// parseStringList parses a [ 'a', 'b' ] list of quoted strings starting at i.
func parseStringList(s string, i int) ([]string, int, bool) {
	i++ // past '['
	items := []string{}
	for {
		i = skipSeparators(s, i)
		if i >= len(s) {
			return nil, 0, false
		}
		switch c := s[i]; {
		case c == ']':
			return items, i + 1, true
		case c == '\'' || c == '"':
			val, next, ok := parseQuoted(s, i)
			if !ok {
				return nil, 0, false
			}
			items = append(items, val)
			i = next
		default:
			return nil, 0, false
		}
	}
}

func skipSeparators(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r' || s[i] == ',') {
		i++
	}
	return i
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
