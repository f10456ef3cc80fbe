package conf

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// Load reads a spark-defaults.conf style properties file: one property per
// line, key separated from value by whitespace, '#' lines and blank lines
// ignored. A key without a value is set to the empty string.
func Load(path string) (*SparkConf, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening properties file %s: %w", path, err)
	}
	defer f.Close()

	props := map[string]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value := line, ""
		if i := strings.IndexAny(line, " \t"); i >= 0 {
			key, value = line[:i], strings.TrimSpace(line[i+1:])
		}
		props[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading properties file %s: %w", path, err)
	}
	return FromMap(props), nil
}

// FromYAML builds a snapshot from a flat YAML mapping of property keys to
// scalar values. Non-string scalars are stringified; nested values are
// rejected.
func FromYAML(content []byte) (*SparkConf, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling YAML properties: %w", err)
	}
	props := make(map[string]string, len(raw))
	for k, v := range raw {
		switch value := v.(type) {
		case nil:
			props[k] = ""
		case string:
			props[k] = value
		case bool, int, int64, float64:
			props[k] = fmt.Sprintf("%v", value)
		default:
			return nil, fmt.Errorf("property %s: expected scalar value, got %T", k, v)
		}
	}
	return FromMap(props), nil
}
