// Package logformat implements the LogFormat compiler: it turns an
// Apache-style LogFormat template into a deterministic, anchored regular
// expression plus the ordered field schema that regular expression's named
// capture groups provide.
//
// Quoted fields (rule 5 below) use a backslash-aware delimited-string
// pattern rather than a plain "\S+", so a quoted field containing a space
// (e.g. the request line) is captured whole instead of truncated at the
// first space.
package logformat

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mimecast/logrok/internal/errs"
	"github.com/mimecast/logrok/internal/record"
)

// Pattern is the compiled result of a LogFormat template: an anchored
// regular expression plus the ordered field schema its named groups
// produce. Two equal template inputs always produce equal Patterns.
type Pattern struct {
	Regexp *regexp.Regexp
	Schema *record.Schema
	// groupNames holds, in schema order, the capture-group name used inside
	// Regexp for each field ("f0", "f1", ...), so group names never depend
	// on what characters a field name contains.
	groupNames []string
}

// Compile turns a LogFormat template into a Pattern. Compile is pure and
// deterministic.
func Compile(format string) (*Pattern, error) {
	c := &compiler{src: []rune(format)}
	if err := c.run(); err != nil {
		return nil, err
	}

	full := "^" + c.out.String() + "$"
	re, err := regexp.Compile(full)
	if err != nil {
		return nil, errs.NewFormatError(fmt.Sprintf("internal pattern %q did not compile: %v", full, err))
	}

	return &Pattern{
		Regexp:     re,
		Schema:     record.NewSchema(c.fields),
		groupNames: c.groupNames,
	}, nil
}

// ResolvePreset resolves a named preset to its template, with extras
// taking precedence so a user-supplied presets file can shadow or extend
// the six built-ins.
func ResolvePreset(name string, extras map[string]string) (string, bool) {
	if extras != nil {
		if tmpl, ok := extras[name]; ok {
			return tmpl, true
		}
	}
	tmpl, ok := Presets[name]
	return tmpl, ok
}

type compiler struct {
	src   []rune
	pos   int
	out   strings.Builder
	names map[string]int
	fields []record.Descriptor
	groupNames []string
}

func (c *compiler) run() error {
	c.names = make(map[string]int)
	for c.pos < len(c.src) {
		ch := c.src[c.pos]
		if ch != '%' {
			if c.tryQuoted() {
				continue
			}
			c.out.WriteString(regexp.QuoteMeta(string(ch)))
			c.pos++
			continue
		}
		if err := c.directiveAt(c.pos); err != nil {
			return err
		}
	}
	return nil
}

// tryQuoted implements rule 5: when a literal quote character appears
// immediately before a directive and the same character appears
// immediately after it, the directive's field pattern is replaced with a
// backslash-aware delimited-string pattern spanning quote...quote.
func (c *compiler) tryQuoted() bool {
	if c.pos+1 >= len(c.src) || c.src[c.pos+1] != '%' {
		return false
	}
	quote := c.src[c.pos]
	// Spaces and tabs are literal field separators, never quote characters.
	if quote == ' ' || quote == '\t' {
		return false
	}
	end, letter, customName, ok := c.scanDirective(c.pos + 1)
	if !ok || end >= len(c.src) || c.src[end] != quote {
		return false
	}
	d, known := directiveTable[letter]
	if !known {
		return false
	}
	name := c.fieldName(customName, d.defaultName)
	q := regexp.QuoteMeta(string(quote))
	pattern := fmt.Sprintf(`[^%s\\]*(?:\\.[^%s\\]*)*`, q, q)
	c.out.WriteString(q)
	c.emitCapture(name, d.kind, pattern)
	c.out.WriteString(q)
	c.pos = end + 1
	return true
}

// directiveAt consumes one '%...X' directive starting at src[pos] (which
// must be '%') and appends its pattern to the output.
func (c *compiler) directiveAt(pos int) error {
	end, letter, customName, ok := c.scanDirective(pos)
	if !ok {
		return errs.NewFormatError(fmt.Sprintf("unterminated directive at position %d", pos))
	}
	d, known := directiveTable[letter]
	if !known {
		return errs.NewFormatError(fmt.Sprintf("unknown LogFormat directive %%%c", letter))
	}
	// %{...}t carrying '%' is a strftime layout (syslog-style dates), not a
	// capture name: the layout decides the value pattern, the field keeps
	// its default name, and no brackets are implied.
	if d.time && strings.ContainsRune(customName, '%') {
		name := c.fieldName("", d.defaultName)
		c.emitCapture(name, d.kind, strftimePattern(customName))
		c.pos = end
		return nil
	}
	name := c.fieldName(customName, d.defaultName)
	if d.time {
		c.out.WriteString(`\[`)
		c.emitCapture(name, d.kind, d.valuePattern)
		c.out.WriteString(`\]`)
	} else {
		c.emitCapture(name, d.kind, d.valuePattern)
	}
	c.pos = end
	return nil
}

// strftimePattern turns a strftime layout into a matching regular
// expression fragment. Unknown conversion letters fall back to a
// non-space run rather than erroring, since the layout only shapes the
// date field's text, not the schema.
func strftimePattern(layout string) string {
	var sb strings.Builder
	runes := []rune(layout)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '%' || i+1 >= len(runes) {
			sb.WriteString(regexp.QuoteMeta(string(runes[i])))
			continue
		}
		i++
		switch runes[i] {
		case 'Y':
			sb.WriteString(`\d{4}`)
		case 'y', 'm', 'H', 'M', 'S':
			sb.WriteString(`\d{2}`)
		case 'd', 'e':
			// syslog pads single-digit days with a space.
			sb.WriteString(`(?:\d{2}|\s\d)`)
		case 'b', 'a':
			sb.WriteString(`[A-Za-z]{3}`)
		case 'B', 'A':
			sb.WriteString(`[A-Za-z]+`)
		case 'z':
			sb.WriteString(`[+-]\d{4}`)
		case 'Z':
			sb.WriteString(`[A-Za-z]+`)
		case '%':
			sb.WriteString(`%`)
		default:
			sb.WriteString(`\S+`)
		}
	}
	return sb.String()
}

// scanDirective parses the directive starting at src[start] (== '%'),
// consuming modifiers (rules 3/4), an optional {name} (rule 2) and the
// directive letter, without emitting anything. It returns the index just
// past the directive letter.
func (c *compiler) scanDirective(start int) (end int, letter rune, customName string, ok bool) {
	i := start + 1 // skip '%'
	for i < len(c.src) {
		switch {
		case c.src[i] == '>' || c.src[i] == '<':
			i++
		case isCondChar(c.src[i]):
			for i < len(c.src) && isCondChar(c.src[i]) {
				i++
			}
		default:
			goto modifiersDone
		}
	}
modifiersDone:
	if i < len(c.src) && c.src[i] == '{' {
		j := i + 1
		for j < len(c.src) && c.src[j] != '}' {
			j++
		}
		if j >= len(c.src) {
			return 0, 0, "", false
		}
		customName = string(c.src[i+1 : j])
		i = j + 1
	}
	if i >= len(c.src) {
		return 0, 0, "", false
	}
	return i + 1, c.src[i], customName, true
}

// isCondChar matches the conditional-prefix character class of rule 4:
// "[!,\d\\]+".
func isCondChar(r rune) bool {
	return r == '!' || r == ',' || r == '\\' || (r >= '0' && r <= '9')
}

// fieldName resolves the effective field name for a directive: the
// custom %{name}X override (lower-cased, '-' -> '_') or the directive's
// default, then de-duplicated against names already used in this format.
func (c *compiler) fieldName(custom, def string) string {
	name := def
	if custom != "" {
		name = strings.ToLower(strings.ReplaceAll(custom, "-", "_"))
	}
	base := name
	n := c.names[base]
	c.names[base] = n + 1
	if n > 0 {
		name = fmt.Sprintf("%s_%d", base, n+1)
	}
	return name
}

func (c *compiler) emitCapture(name string, kind record.FieldKind, pattern string) {
	groupName := "f" + strconv.Itoa(len(c.fields))
	c.out.WriteString(fmt.Sprintf("(?P<%s>%s)", groupName, pattern))
	c.fields = append(c.fields, record.Descriptor{Name: name, Kind: kind})
	c.groupNames = append(c.groupNames, groupName)
}
