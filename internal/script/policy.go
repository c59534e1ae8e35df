package script

import (
	"fmt"
	"strings"
)

// DefaultDenyList holds command fragments that are never executed.
var DefaultDenyList = []string{
	"rm -rf /",
	"mkfs",
	"shutdown",
	"reboot",
	":(){",
	"dd if=",
	"> /dev/sd",
}

// Policy rejects commands before they start.
type Policy struct {
	Deny []string
}

// DefaultPolicy returns a Policy using DefaultDenyList.
func DefaultPolicy() *Policy {
	return &Policy{Deny: append([]string(nil), DefaultDenyList...)}
}

// Check returns an error naming the first denied fragment found in cmd.
func (p *Policy) Check(cmd *Command) error {
	if p == nil {
		return nil
	}
	line := strings.Join(cmd.Args, " ")
	for _, frag := range p.Deny {
		if frag != "" && strings.Contains(line, frag) {
			return fmt.Errorf("command rejected by policy: contains %q", frag)
		}
	}
	return nil
}
