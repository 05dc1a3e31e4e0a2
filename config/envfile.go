package config

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// envLine matches KEY=value, KEY='value', KEY="value" and KEY=`value`
// lines. Quoted values may span lines and a trailing "# comment" is
// dropped.
var envLine = regexp2.MustCompile("^([^#=\\r\\n]+?)=(?:(['\"`])([\\s\\S]*?)\\2|([^\\r\\n#]*))\\s*(?:#.*)?$", regexp2.Multiline)

var crlf = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// ParseEnvFile parses dotenv content into a flat map of strings. Keys
// and values are trimmed, surrounding quotes are removed and quoted
// values have their \n and \r sequences turned into line breaks. Later
// duplicates win. Variable references are left for PostBuild.
func ParseEnvFile(content string) (map[string]any, error) {
	out := map[string]any{}
	contents := crlf.Replace(content)

	m, err := envLine.FindStringMatch(contents)
	for ; m != nil && err == nil; m, err = envLine.FindNextMatch(m) {
		key := strings.TrimSpace(group(m, 1))
		quoted := group(m, 3)
		value := quoted
		if value == "" {
			value = group(m, 4)
		}
		value = stripQuotes(strings.TrimSpace(value))

		if quoted != "" {
			value = strings.ReplaceAll(value, `\n`, "\n")
			value = strings.ReplaceAll(value, `\r`, "\r")
		}
		out[key] = value
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func group(m *regexp2.Match, n int) string {
	g := m.GroupByNumber(n)
	if g == nil || len(g.Captures) == 0 {
		return ""
	}
	return g.String()
}

func stripQuotes(s string) string {
	if len(s) < 2 {
		return s
	}
	switch q := s[0]; q {
	case '\'', '"', '`':
		if s[len(s)-1] == q {
			return s[1 : len(s)-1]
		}
	}
	return s
}
