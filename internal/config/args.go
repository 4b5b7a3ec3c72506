package config

import (
	"flag"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/mimecast/logrok/internal/errs"
)

// ParseFlags populates an Args directly via flag.*Var calls before a
// single flag.Parse(). The log file operands are whatever flag.Args()
// leaves over.
func ParseFlags(fs *flag.FlagSet, argv []string) (*Args, error) {
	a := &Args{}

	fs.StringVar(&a.Type, "t", DefaultLogType, "Use a built-in log type")
	fs.StringVar(&a.Type, "type", DefaultLogType, "Use a built-in log type")
	fs.StringVar(&a.Format, "f", "", "Log format (Apache LogFormat string)")
	fs.StringVar(&a.Format, "format", "", "Log format (Apache LogFormat string)")
	fs.StringVar(&a.ConfigFile, "C", "", "httpd.conf file to find a LogFormat string in")
	fs.StringVar(&a.ConfigFile, "config", "", "httpd.conf file to find a LogFormat string in")
	fs.StringVar(&a.ConfigType, "T", "", "type name of the LogFormat to extract from -C/--config")
	fs.StringVar(&a.ConfigType, "ctype", "", "type name of the LogFormat to extract from -C/--config")
	fs.IntVar(&a.Processes, "j", -1, "number of worker goroutines to use (-1 means automatic)")
	fs.IntVar(&a.Processes, "processes", -1, "number of worker goroutines to use (-1 means automatic)")
	fs.IntVar(&a.Lines, "l", 0, "only process the first LINES lines of input")
	fs.IntVar(&a.Lines, "lines", 0, "only process the first LINES lines of input")
	fs.BoolVar(&a.Interactive, "i", false, "use the interactive line-based shell")
	fs.BoolVar(&a.Interactive, "interactive", false, "use the interactive line-based shell")
	fs.StringVar(&a.Query, "q", "", "the query to run")
	fs.StringVar(&a.Query, "query", "", "the query to run")
	fs.BoolVar(&a.Debug, "d", false, "turn debugging on")
	fs.BoolVar(&a.Debug, "debug", false, "turn debugging on")
	fs.StringVar(&a.LogLevel, "logLevel", DefaultLogLevel, "logrus level")
	fs.StringVar(&a.PresetsFile, "presets", "", "TOML file of custom named LogFormat presets")
	fs.StringVar(&a.MetricsAddr, "metricsAddr", "", "address to serve /metrics and /debug/pool on (empty disables)")

	if err := fs.Parse(argv); err != nil {
		return nil, err
	}
	a.LogFiles = fs.Args()

	typeSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" || f.Name == "type" {
			typeSet = true
		}
	})
	if typeSet && (a.Format != "" || a.ConfigFile != "") {
		return nil, errs.NewSemanticError("type", "-t/--type is mutually exclusive with -f/--format and -C/--config")
	}
	if a.Format != "" && a.ConfigFile != "" {
		return nil, errs.NewSemanticError("format", "-f/--format and -C/--config are mutually exclusive")
	}
	if a.ConfigFile != "" && a.ConfigType == "" {
		return nil, errs.NewSemanticError("config", "-C/--config requires -T/--ctype")
	}
	if a.ConfigType != "" && a.ConfigFile == "" {
		return nil, errs.NewSemanticError("ctype", "-T/--ctype only works with -C/--config")
	}
	if a.Interactive && a.Query != "" {
		return nil, errs.NewSemanticError("query", "-i/--interactive and -q/--query are mutually exclusive")
	}

	if a.ConfigFile != "" {
		format, err := extractLogFormat(a.ConfigFile, a.ConfigType)
		if err != nil {
			return nil, err
		}
		a.Format = format
	}

	return a, nil
}

// httpdLogFormatRe is a case-insensitive, multiline search for
// `LogFormat <string> <type-name>` within an httpd.conf-style file.
func httpdLogFormatRe(ctype string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)^logformat\s+(.*)\s+` + regexp.QuoteMeta(ctype) + `\s*$`)
}

// extractLogFormat reads an httpd.conf-style file and pulls out the
// LogFormat string named by ctype, unquoting and unescaping it.
func extractLogFormat(path, ctype string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errs.NewIOError(err)
	}
	m := httpdLogFormatRe(ctype).FindStringSubmatch(string(data))
	if m == nil {
		return "", errs.NewSemanticError(ctype, fmt.Sprintf("LogFormat %q not found in %s", ctype, path))
	}
	format := strings.TrimSpace(m[1])
	if len(format) >= 2 {
		if (format[0] == '\'' || format[0] == '"') && format[len(format)-1] == format[0] {
			format = format[1 : len(format)-1]
		}
	}
	format = strings.ReplaceAll(format, `\'`, `'`)
	format = strings.ReplaceAll(format, `\"`, `"`)
	return format, nil
}

// LoadPresets reads a TOML file of custom named LogFormat presets. A
// missing path is not an error: presets are optional.
func LoadPresets(path string) (Presets, error) {
	if path == "" {
		return Presets{}, nil
	}
	var presets Presets
	if _, err := toml.DecodeFile(path, &presets); err != nil {
		return nil, errs.NewIOError(err)
	}
	if presets == nil {
		presets = Presets{}
	}
	return presets, nil
}
