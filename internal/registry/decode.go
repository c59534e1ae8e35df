package registry

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/specialistvlad/gridflow/internal/ctyval"
	"github.com/zclconf/go-cty/cty"
)

// DecodeConfig decodes a node's raw config into out. Scalars are converted
// leniently; keys that out does not declare are rejected.
func DecodeConfig(cfg map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
		TagName:          "mapstructure",
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

var refPattern = regexp.MustCompile(`\$\{([A-Za-z0-9_\-]+)\}`)

// Substitute replaces ${port} references with the textual form of the
// corresponding input value. References to unknown ports are left intact.
func Substitute(s string, inputs map[string]cty.Value) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return refPattern.ReplaceAllStringFunc(s, func(m string) string {
		name := refPattern.FindStringSubmatch(m)[1]
		v, ok := inputs[name]
		if !ok {
			return m
		}
		return ctyval.String(v)
	})
}

// References returns the port names referenced as ${port} in s.
func References(s string) []string {
	var refs []string
	for _, m := range refPattern.FindAllStringSubmatch(s, -1) {
		refs = append(refs, m[1])
	}
	return refs
}
