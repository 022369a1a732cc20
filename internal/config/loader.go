package config

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// envExpr matches ${NAME} and ${NAME:-fallback} references. Expansion runs
// on the raw bytes before YAML parsing, so references work anywhere in the
// document, keys included.
var envExpr = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-((?:[^}\\]|\\.)*))?\}`)

// Load reads, expands, and parses the configuration file at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	expanded, err := expand(raw)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	cfg := new(Config)
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// expand substitutes environment references in raw. A reference with no
// fallback whose variable is unset is an error; every such name is
// collected so one run reports them all.
func expand(raw []byte) ([]byte, error) {
	var missing []string
	var out bytes.Buffer

	last := 0
	for _, loc := range envExpr.FindAllSubmatchIndex(raw, -1) {
		out.Write(raw[last:loc[0]])
		last = loc[1]

		name := string(raw[loc[2]:loc[3]])
		if value, ok := os.LookupEnv(name); ok {
			out.WriteString(value)
			continue
		}
		if loc[4] >= 0 {
			// ":-fallback" present, possibly empty.
			out.Write(raw[loc[6]:loc[7]])
			continue
		}
		missing = append(missing, name)
	}
	out.Write(raw[last:])

	if len(missing) > 0 {
		return nil, fmt.Errorf("unresolved variables: %s", strings.Join(missing, ", "))
	}
	return out.Bytes(), nil
}
