package app

import (
	"github.com/specialistvlad/gridflow/internal/registry"
	"github.com/specialistvlad/gridflow/modules/condition"
	"github.com/specialistvlad/gridflow/modules/delay"
	"github.com/specialistvlad/gridflow/modules/http_request"
	"github.com/specialistvlad/gridflow/modules/input"
	"github.com/specialistvlad/gridflow/modules/log_message"
	"github.com/specialistvlad/gridflow/modules/output"
	"github.com/specialistvlad/gridflow/modules/process"
)

// coreModules is the definitive list of all node kinds that are compiled
// into the gridflow binary.
func coreModules() []registry.Module {
	return []registry.Module{
		&input.Module{},
		&process.Module{},
		&condition.Module{},
		&output.Module{},
		&http_request.Module{},
		&delay.Module{},
		&log_message.Module{},
	}
}
