package logformat

import (
	"strconv"

	"github.com/mimecast/logrok/internal/errs"
	"github.com/mimecast/logrok/internal/record"
	"github.com/mimecast/logrok/internal/value"
)

// Extract applies the compiled pattern to one raw log line, producing a
// record. A non-matching line is dropped: ok is false and err is nil.
func (p *Pattern) Extract(line string) (rec record.Record, ok bool, err error) {
	m := p.Regexp.FindStringSubmatch(line)
	if m == nil {
		return record.Record{}, false, nil
	}

	values := make([]value.Value, len(p.Schema.Fields))
	for i, d := range p.Schema.Fields {
		raw := m[i+1] // m[0] is the whole match
		switch d.Kind {
		case record.KindInt:
			n, convErr := coerceInt(raw)
			if convErr != nil {
				return record.Record{}, false, convErr
			}
			values[i] = value.OfInt(n)
		default:
			values[i] = value.OfString(raw)
		}
	}

	return record.Record{Schema: p.Schema, Values: values}, true, nil
}

func coerceInt(raw string) (int64, error) {
	if raw == "-" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errs.NewFormatError("non-numeric value for integer field: " + raw)
	}
	return n, nil
}
