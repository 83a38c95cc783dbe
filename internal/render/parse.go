package render

import (
	"errors"
	"fmt"
	"strings"
)

// Clause is one parsed filter_complex chain: its input labels, the filter
// description and its output labels
type Clause struct {
	Inputs  []string
	Filter  string
	Outputs []string
}

// ParseGraph splits a filter_complex string back into clauses. Quoted text
// and backslash escapes inside filter descriptions are honoured.
func ParseGraph(s string) ([]Clause, error) {
	if s == "" {
		return nil, nil
	}
	var clauses []Clause
	for i, raw := range splitTopLevel(s, ';') {
		c, err := parseClause(raw)
		if err != nil {
			return nil, fmt.Errorf("clause %d: %w", i, err)
		}
		clauses = append(clauses, c)
	}
	return clauses, nil
}

// CheckWiring verifies every input label of every clause is either an input
// stream reference or the output of an earlier clause, and that no output
// label is defined twice
func CheckWiring(clauses []Clause) error {
	defined := make(map[string]bool)
	for i, c := range clauses {
		for _, in := range c.Inputs {
			if isStreamRef(in) || defined[in] {
				continue
			}
			return fmt.Errorf("clause %d: dangling input label %q", i, in)
		}
		for _, out := range c.Outputs {
			if defined[out] {
				return fmt.Errorf("clause %d: label %q defined twice", i, out)
			}
			defined[out] = true
		}
	}
	return nil
}

// isStreamRef matches input stream specifiers such as 0:v or 2:v
func isStreamRef(label string) bool {
	idx, _, ok := strings.Cut(label, ":")
	if !ok || idx == "" {
		return false
	}
	for _, r := range idx {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func splitTopLevel(s string, sep byte) []string {
	var parts []string
	quoted, escaped := false, false
	start := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == '\'':
			quoted = !quoted
		case ch == sep && !quoted:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func parseClause(s string) (Clause, error) {
	var c Clause
	s = strings.TrimSpace(s)

	for strings.HasPrefix(s, "[") {
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return c, errors.New("unterminated input label")
		}
		c.Inputs = append(c.Inputs, s[1:end])
		s = s[end+1:]
	}

	quoted, escaped := false, false
	filterEnd := len(s)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' {
			escaped = true
			continue
		}
		if ch == '\'' {
			quoted = !quoted
			continue
		}
		if ch == '[' && !quoted {
			filterEnd = i
			break
		}
	}
	c.Filter = s[:filterEnd]
	if c.Filter == "" {
		return c, errors.New("empty filter description")
	}

	rest := s[filterEnd:]
	for rest != "" {
		if rest[0] != '[' {
			return c, fmt.Errorf("unexpected text after output labels: %q", rest)
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return c, errors.New("unterminated output label")
		}
		c.Outputs = append(c.Outputs, rest[1:end])
		rest = rest[end+1:]
	}
	return c, nil
}
