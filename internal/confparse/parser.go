// Package confparse implements a small indentation-sensitive configuration
// parser covering the subset of YAML the bundled config files use: nested
// mappings, sequences, scalars with light coercion, and `|` literal blocks.
// It exists so the pipeline has no hard dependency on a full YAML library;
// callers fall back to built-in defaults when parsing fails.
package confparse

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError reports malformed input along with the offending source line.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("confparse: line %d: %s", e.Line, e.Msg)
}

type srcLine struct {
	indent int
	text   string // content with indentation removed
	raw    string // original line, for literal blocks
	num    int    // 1-based line number in the input
	tabbed bool   // tab found in leading whitespace
}

type parser struct {
	lines []srcLine
}

// Parse parses the restricted indentation-based markup. The top level must be
// a mapping; empty input yields an empty mapping.
func Parse(text string) (Node, error) {
	p := &parser{lines: splitLines(text)}
	if len(p.lines) == 0 {
		return Mapping(), nil
	}

	root, next, err := p.parseBlock(0, p.lines[0].indent)
	if err != nil {
		return Node{}, err
	}
	if next != len(p.lines) {
		return Node{}, &ParseError{Line: p.lines[next].num, Msg: "content outside top-level block"}
	}
	if root.Kind() != KindMapping {
		return Node{}, &ParseError{Line: p.lines[0].num, Msg: "top level must be a mapping"}
	}
	return root, nil
}

// splitLines drops blank lines and full-line comments and records the
// indentation of everything else.
func splitLines(text string) []srcLine {
	var out []srcLine
	for i, raw := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		indent := 0
		tabbed := false
		j := 0
		for j < len(raw) && (raw[j] == ' ' || raw[j] == '\t') {
			if raw[j] == '\t' {
				tabbed = true
			} else {
				indent++
			}
			j++
		}
		out = append(out, srcLine{
			indent: indent,
			text:   strings.TrimRight(raw[j:], " \t\r"),
			raw:    strings.TrimRight(raw, "\r"),
			num:    i + 1,
			tabbed: tabbed,
		})
	}
	return out
}

// parseBlock consumes the block starting at lines[idx]. The block's own
// indentation is taken from its first line; the function returns the index of
// the first line it did not consume, so a shallower sibling ends the block.
func (p *parser) parseBlock(idx, blockIndent int) (Node, int, error) {
	if isSequenceLine(p.lines[idx].text) {
		return p.parseSequence(idx, blockIndent)
	}
	return p.parseMapping(idx, blockIndent)
}

func isSequenceLine(text string) bool {
	return text == "-" || strings.HasPrefix(text, "- ")
}

func (p *parser) parseSequence(idx, blockIndent int) (Node, int, error) {
	var elems []Node
	for idx < len(p.lines) {
		ln := p.lines[idx]
		if ln.indent < blockIndent {
			break
		}
		if ln.indent > blockIndent {
			return Node{}, 0, &ParseError{Line: ln.num, Msg: "unexpected indentation"}
		}
		if ln.tabbed {
			return Node{}, 0, &ParseError{Line: ln.num, Msg: "tab character in indentation"}
		}
		if !isSequenceLine(ln.text) {
			return Node{}, 0, &ParseError{Line: ln.num, Msg: "mapping entry inside a sequence block"}
		}

		rest := strings.TrimSpace(strings.TrimPrefix(ln.text, "-"))
		switch {
		case rest == "":
			// Nested block forms the element value.
			if idx+1 < len(p.lines) && p.lines[idx+1].indent > blockIndent {
				child, next, err := p.parseBlock(idx+1, p.lines[idx+1].indent)
				if err != nil {
					return Node{}, 0, err
				}
				elems = append(elems, child)
				idx = next
			} else {
				elems = append(elems, Scalar(nil))
				idx++
			}

		default:
			key, value, ok := splitEntry(rest)
			if !ok {
				// No colon: plain scalar element.
				elems = append(elems, Scalar(coerceScalar(rest)))
				idx++
				continue
			}

			// "- key: value" starts an inline mapping; deeper key/value
			// lines continue the same mapping (list-of-objects shorthand).
			item := Mapping()
			entryVal, next, err := p.parseEntryValue(value, idx, blockIndent)
			if err != nil {
				return Node{}, 0, err
			}
			item.Set(key, entryVal)
			idx = next

			if idx < len(p.lines) && p.lines[idx].indent > blockIndent {
				cont, contNext, err := p.parseMapping(idx, p.lines[idx].indent)
				if err != nil {
					return Node{}, 0, err
				}
				for _, k := range cont.Keys() {
					if _, dup := item.Get(k); dup {
						return Node{}, 0, &ParseError{Line: p.lines[idx].num, Msg: fmt.Sprintf("duplicate key %q in sequence item", k)}
					}
					v, _ := cont.Get(k)
					item.Set(k, v)
				}
				idx = contNext
			}
			elems = append(elems, item)
		}
	}
	return Sequence(elems...), idx, nil
}

func (p *parser) parseMapping(idx, blockIndent int) (Node, int, error) {
	m := Mapping()
	for idx < len(p.lines) {
		ln := p.lines[idx]
		if ln.indent < blockIndent {
			break
		}
		if ln.indent > blockIndent {
			return Node{}, 0, &ParseError{Line: ln.num, Msg: "unexpected indentation"}
		}
		if ln.tabbed {
			return Node{}, 0, &ParseError{Line: ln.num, Msg: "tab character in indentation"}
		}
		if isSequenceLine(ln.text) {
			return Node{}, 0, &ParseError{Line: ln.num, Msg: "sequence item inside a mapping block"}
		}

		key, value, ok := splitEntry(ln.text)
		if !ok {
			return Node{}, 0, &ParseError{Line: ln.num, Msg: "expected `key: value`"}
		}
		if _, dup := m.Get(key); dup {
			return Node{}, 0, &ParseError{Line: ln.num, Msg: fmt.Sprintf("duplicate key %q", key)}
		}

		if value == "|" {
			literal, next := p.consumeLiteral(idx+1, blockIndent+2)
			m.Set(key, Scalar(literal))
			idx = next
			continue
		}

		entryVal, next, err := p.parseEntryValue(value, idx, blockIndent)
		if err != nil {
			return Node{}, 0, err
		}
		m.Set(key, entryVal)
		idx = next
	}
	return m, idx, nil
}

// parseEntryValue resolves the value of a `key: value` line at lines[idx]. An
// empty value means the entry owns the nested block that follows, if any.
func (p *parser) parseEntryValue(value string, idx, entryIndent int) (Node, int, error) {
	if value == "" {
		if idx+1 < len(p.lines) && p.lines[idx+1].indent > entryIndent {
			return p.parseBlock(idx+1, p.lines[idx+1].indent)
		}
		return Scalar(nil), idx + 1, nil
	}
	return Scalar(coerceScalar(value)), idx + 1, nil
}

// consumeLiteral collects a `|` block: every following line indented at least
// minIndent, verbatim, with that indentation prefix removed.
func (p *parser) consumeLiteral(idx, minIndent int) (string, int) {
	var parts []string
	for idx < len(p.lines) && p.lines[idx].indent >= minIndent {
		parts = append(parts, p.lines[idx].raw[minIndent:])
		idx++
	}
	return strings.Join(parts, "\n"), idx
}

// splitEntry splits "key: value" on the first `: ` (or a trailing colon). A
// colon without a following space, as in URLs, does not count as a separator.
func splitEntry(text string) (key, value string, ok bool) {
	sep := strings.Index(text, ": ")
	if sep < 0 {
		if strings.HasSuffix(text, ":") {
			sep = len(text) - 1
		} else {
			return "", "", false
		}
	}
	key = stripQuotes(strings.TrimSpace(text[:sep]))
	value = strings.TrimSpace(text[sep+1:])
	if key == "" {
		return "", "", false
	}
	return key, value, true
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// coerceScalar maps a raw scalar token onto a typed Go value: quoted text is
// always a string, then booleans, null, integer, float, and finally the
// literal text itself.
func coerceScalar(s string) any {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	switch strings.ToLower(s) {
	case "true", "yes":
		return true
	case "false", "no":
		return false
	case "null", "none", "~":
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
