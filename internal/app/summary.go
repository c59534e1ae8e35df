package app

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bytedance/sonic"
	"github.com/fatih/color"
	"github.com/specialistvlad/gridflow/internal/engine"
	"github.com/specialistvlad/gridflow/internal/model"
)

type palette struct {
	ok, fail, skip, dim, bold *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		ok:   color.New(color.FgGreen),
		fail: color.New(color.FgRed, color.Bold),
		skip: color.New(color.FgYellow),
		dim:  color.New(color.Faint),
		bold: color.New(color.Bold),
	}
	if noColor {
		for _, c := range []*color.Color{p.ok, p.fail, p.skip, p.dim, p.bold} {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) status(s model.NodeStatus) string {
	switch s {
	case model.NodeSucceeded:
		return p.ok.Sprint("✓ " + string(s))
	case model.NodeFailed:
		return p.fail.Sprint("✗ " + string(s))
	default:
		return p.skip.Sprint("- " + string(s))
	}
}

func (p palette) runStatus(s model.RunStatus) string {
	if s == model.RunSucceeded {
		return p.ok.Sprint(string(s))
	}
	return p.fail.Sprint(string(s))
}

// PrintSummary writes one line per node followed by the values that reached
// Output nodes. g may be nil, in which case nodes are sorted by id and no
// output values are listed.
func PrintSummary(w io.Writer, g *model.Graph, res *engine.Result, noColor bool) {
	p := newPalette(noColor)

	var took time.Duration
	if res.FinishedAt != nil {
		took = res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond)
	}
	fmt.Fprintf(w, "%s %s %s in %s\n", p.bold.Sprint("Run"), res.RunID, p.runStatus(res.Status), took)
	if res.Error != "" {
		fmt.Fprintf(w, "%s\n", p.dim.Sprint(firstLine(res.Error)))
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, id := range nodeOrder(g, res) {
		n := res.NodeResults[id]
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", id, p.status(n.Status), fmt.Sprintf("%dms", n.DurationMs), detail(n))
	}
	_ = tw.Flush()

	counts := res.Counts()
	fmt.Fprintf(w, "Nodes: %s, %s, %s\n",
		p.ok.Sprintf("%d succeeded", counts[model.NodeSucceeded]),
		p.fail.Sprintf("%d failed", counts[model.NodeFailed]),
		p.skip.Sprintf("%d skipped", counts[model.NodeSkipped]))

	if g == nil {
		return
	}
	for _, n := range g.Nodes {
		if n.Kind != model.KindOutput {
			continue
		}
		report, ok := res.NodeResults[n.ID]
		if !ok || report.Status != model.NodeSucceeded {
			continue
		}
		ports := make([]string, 0, len(report.Outputs))
		for port := range report.Outputs {
			ports = append(ports, port)
		}
		sort.Strings(ports)
		for _, port := range ports {
			fmt.Fprintf(w, "%s = %s\n", p.bold.Sprintf("%s.%s", n.ID, port), render(report.Outputs[port]))
		}
	}
}

// nodeOrder lists graph nodes in declaration order, then any ids only the
// result knows.
func nodeOrder(g *model.Graph, res *engine.Result) []string {
	seen := make(map[string]bool, len(res.NodeResults))
	ids := make([]string, 0, len(res.NodeResults))
	if g == nil {
		return res.NodeIDs()
	}
	for _, n := range g.Nodes {
		if _, ok := res.NodeResults[n.ID]; ok && !seen[n.ID] {
			seen[n.ID] = true
			ids = append(ids, n.ID)
		}
	}
	for _, id := range res.NodeIDs() {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

func detail(n engine.NodeReport) string {
	parts := []string{}
	if n.Status == model.NodeFailed && n.ExitCode != 0 {
		parts = append(parts, fmt.Sprintf("exit %d", n.ExitCode))
	}
	if n.Reason != "" {
		parts = append(parts, string(n.Reason))
	}
	if n.Branch != "" {
		parts = append(parts, "branch "+n.Branch)
	}
	if n.Truncated {
		parts = append(parts, "truncated")
	}
	msg := n.Diagnostic
	if msg == "" {
		msg = n.Error
	}
	if msg != "" && n.Status != model.NodeSucceeded {
		parts = append(parts, firstLine(msg))
	}
	return strings.Join(parts, "  ")
}

func render(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	raw, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
