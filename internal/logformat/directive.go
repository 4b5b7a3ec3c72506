package logformat

import "github.com/mimecast/logrok/internal/record"

// directive describes one Apache LogFormat directive letter: its default
// field name, the kind of value it produces, and the regular expression
// fragment that matches that value.
type directive struct {
	defaultName string
	kind        record.FieldKind
	// valuePattern is the *uncaptured* regular expression matching the
	// raw text of the field. time is true for the one directive (%t)
	// whose value is wrapped in literal brackets rather than being
	// captured bare.
	valuePattern string
	time         bool
}

const (
	hostPattern   = `[A-Za-z0-9.\-]+`
	strPattern    = `\S+`
	anyPattern    = `.*`
	numberPattern = `\d+`
	// %b is body size, which Apache renders as "-" for zero bytes.
	numberOrDashPattern = `(?:\d+|-)`
	condStatusPattern   = `(?:X|\+|-)`
)

// directiveTable is the fixed mapping from format letter to
// value-pattern, default field name, and kind.
var directiveTable = map[rune]directive{
	'a': {defaultName: "remote_ip", kind: record.KindString, valuePattern: hostPattern},
	'A': {defaultName: "local_ip", kind: record.KindString, valuePattern: hostPattern},
	'B': {defaultName: "body_size", kind: record.KindInt, valuePattern: numberPattern},
	'b': {defaultName: "body_size", kind: record.KindInt, valuePattern: numberOrDashPattern},
	'C': {defaultName: "cookie", kind: record.KindString, valuePattern: strPattern},
	'D': {defaultName: "response_time_us", kind: record.KindInt, valuePattern: numberPattern},
	'e': {defaultName: "environment_var", kind: record.KindString, valuePattern: strPattern},
	'f': {defaultName: "filename", kind: record.KindString, valuePattern: strPattern},
	'h': {defaultName: "remote_host", kind: record.KindString, valuePattern: hostPattern},
	'H': {defaultName: "protocol", kind: record.KindString, valuePattern: strPattern},
	'i': {defaultName: "input_header", kind: record.KindString, valuePattern: strPattern},
	'l': {defaultName: "logname", kind: record.KindString, valuePattern: strPattern},
	'm': {defaultName: "method", kind: record.KindString, valuePattern: strPattern},
	'M': {defaultName: "message", kind: record.KindString, valuePattern: anyPattern},
	'n': {defaultName: "note", kind: record.KindString, valuePattern: strPattern},
	'o': {defaultName: "output_header", kind: record.KindString, valuePattern: strPattern},
	'p': {defaultName: "port", kind: record.KindInt, valuePattern: numberPattern},
	'P': {defaultName: "pid", kind: record.KindInt, valuePattern: numberPattern},
	'q': {defaultName: "query_string", kind: record.KindString, valuePattern: strPattern},
	'r': {defaultName: "request", kind: record.KindString, valuePattern: strPattern},
	's': {defaultName: "status_code", kind: record.KindInt, valuePattern: numberPattern},
	't': {defaultName: "date_time", kind: record.KindTimestamp, valuePattern: `[^\]]+`, time: true},
	'T': {defaultName: "response_time_s", kind: record.KindInt, valuePattern: numberPattern},
	'u': {defaultName: "auth_user", kind: record.KindString, valuePattern: strPattern},
	'U': {defaultName: "url", kind: record.KindString, valuePattern: strPattern},
	'v': {defaultName: "server_name", kind: record.KindString, valuePattern: hostPattern},
	'V': {defaultName: "canonical_server_name", kind: record.KindString, valuePattern: hostPattern},
	'X': {defaultName: "conn_status", kind: record.KindString, valuePattern: condStatusPattern},
	'I': {defaultName: "bytes_received", kind: record.KindInt, valuePattern: numberPattern},
	'O': {defaultName: "bytes_sent", kind: record.KindInt, valuePattern: numberPattern},
}

// Presets are the built-in named LogFormat templates.
var Presets = map[string]string{
	"apache-common":       `%h %l %u %t "%r" %>s %b`,
	"apache-common-vhost": `%v %h %l %u %t "%r" %>s %b`,
	"ncsa-combined":       `%h %l %u %t "%r" %>s %b "%{Referer}i" "%{User-agent}i"`,
	"referer":             `%{Referer}i -> %U`,
	"agent":                `%{User-agent}i`,
	"syslog":              `%{%b %d %H:%M:%S}t %h %v[%P]: %M`,
}
