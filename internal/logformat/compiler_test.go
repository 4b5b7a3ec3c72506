package logformat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimecast/logrok/internal/record"
)

func TestCompilePresetsRoundTrip(t *testing.T) {
	tests := []struct {
		preset string
		line   string
		want   map[string]string
	}{
		{
			preset: "apache-common",
			line:   `127.0.0.1 - frank [10/Oct/2000:13:55:36 -0700] "GET /a HTTP/1.0" 200 2326`,
			want: map[string]string{
				"remote_host": "127.0.0.1",
				"logname":     "-",
				"auth_user":   "frank",
				"date_time":   "10/Oct/2000:13:55:36 -0700",
				"request":     "GET /a HTTP/1.0",
				"status_code": "200",
				"body_size":   "2326",
			},
		},
		{
			preset: "apache-common-vhost",
			line:   `example.com 127.0.0.1 - frank [10/Oct/2000:13:55:36 -0700] "GET /a HTTP/1.0" 200 2326`,
			want: map[string]string{
				"server_name": "example.com",
				"remote_host": "127.0.0.1",
				"request":     "GET /a HTTP/1.0",
			},
		},
		{
			preset: "referer",
			line:   `http://example.com/start -> /landing`,
			want: map[string]string{
				"referer": "http://example.com/start",
				"url":     "/landing",
			},
		},
		{
			preset: "agent",
			line:   `Mozilla/5.0`,
			want:   map[string]string{"user_agent": "Mozilla/5.0"},
		},
		{
			preset: "syslog",
			line:   `Oct  2 13:55:36 myhost web01[1234]: disk almost full`,
			want: map[string]string{
				"date_time":   "Oct  2 13:55:36",
				"remote_host": "myhost",
				"server_name": "web01",
				"pid":         "1234",
				"message":     "disk almost full",
			},
		},
		{
			preset: "ncsa-combined",
			line:   `127.0.0.1 - joe [10/Oct/2000:13:55:37 -0700] "GET /b HTTP/1.0" 404 12 "http://example.com/" "Mozilla/5.0"`,
			want: map[string]string{
				"remote_host": "127.0.0.1",
				"request":     "GET /b HTTP/1.0",
				"status_code": "404",
				"referer":     "http://example.com/",
				"user_agent":  "Mozilla/5.0",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.preset, func(t *testing.T) {
			tmpl, ok := Presets[tt.preset]
			require.True(t, ok, "preset must exist")

			p, err := Compile(tmpl)
			require.NoError(t, err)

			rec, ok, err := p.Extract(tt.line)
			require.NoError(t, err)
			require.True(t, ok, "canonical line must match its own preset")

			for name, want := range tt.want {
				v, ok := rec.Get(name)
				require.True(t, ok, "field %q must be present", name)
				assert.Equal(t, want, v.String(), "field %q", name)
			}
		})
	}
}

func TestCompileSchemaStability(t *testing.T) {
	p, err := Compile(Presets["apache-common"])
	require.NoError(t, err)

	lines := []string{
		`127.0.0.1 - frank [10/Oct/2000:13:55:36 -0700] "GET /a HTTP/1.0" 200 2326`,
		`127.0.0.1 - joe [10/Oct/2000:13:55:37 -0700] "GET /b HTTP/1.0" 404 12`,
		`10.0.0.1 - mary [10/Oct/2000:13:55:38 -0700] "POST /a HTTP/1.0" 200 40`,
	}

	wantNames := p.Schema.Names()
	for _, line := range lines {
		rec, ok, err := p.Extract(line)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, wantNames, rec.Schema.Names())
	}
}

func TestCompileUnknownDirective(t *testing.T) {
	_, err := Compile("%Z")
	assert.Error(t, err)
}

func TestCompileQuotedFieldHandlesEmbeddedSpaces(t *testing.T) {
	p, err := Compile(`"%r"`)
	require.NoError(t, err)

	rec, ok, err := p.Extract(`"GET /a/b?c=d HTTP/1.1"`)
	require.NoError(t, err)
	require.True(t, ok)

	v, ok := rec.Get("request")
	require.True(t, ok)
	assert.Equal(t, "GET /a/b?c=d HTTP/1.1", v.String())
}

func TestCompileCustomFieldName(t *testing.T) {
	p, err := Compile(`%{X-Request-Id}i`)
	require.NoError(t, err)
	assert.Equal(t, []string{"x_request_id"}, p.Schema.Names())

	rec, ok, err := p.Extract("abc-123")
	require.NoError(t, err)
	require.True(t, ok)
	v, _ := rec.Get("x_request_id")
	assert.Equal(t, "abc-123", v.String())
}

func TestCompileBodySizeDash(t *testing.T) {
	p, err := Compile(`%b`)
	require.NoError(t, err)

	rec, ok, err := p.Extract("-")
	require.NoError(t, err)
	require.True(t, ok)
	v, _ := rec.Get("body_size")
	assert.Equal(t, record.KindInt, p.Schema.Fields[0].Kind)
	assert.Equal(t, "0", v.String())
}
