package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/bytedance/sonic"
)

// parseInputs merges an optional JSON inputs file with key=value pairs.
// Pairs win over the file. A value that parses as JSON is used as such,
// anything else is a string: `n=42` is a number, `s="42"` and `s=abc` are
// strings.
func parseInputs(file string, pairs []string) (map[string]any, error) {
	inputs := map[string]any{}
	if file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read inputs file: %w", err)
		}
		if err := sonic.Unmarshal(raw, &inputs); err != nil {
			return nil, fmt.Errorf("inputs file %s must hold a JSON object: %w", file, err)
		}
	}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid input %q: expected key=value", pair)
		}
		inputs[key] = inputValue(value)
	}
	return inputs, nil
}

func inputValue(s string) any {
	var v any
	if err := sonic.UnmarshalString(s, &v); err == nil {
		return v
	}
	return s
}
