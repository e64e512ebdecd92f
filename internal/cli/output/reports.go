package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/marmos91/bootkit/pkg/configbind"
	bserrors "github.com/marmos91/bootkit/pkg/errors"
	"github.com/marmos91/bootkit/pkg/graph"
)

// PropertyTable is the configuration report printed by check.
type PropertyTable []configbind.PropertyReport

func (t PropertyTable) Headers() []string {
	return []string{"Component", "Property", "Default", "Runtime", "Description"}
}

func (t PropertyTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, p := range t {
		rows = append(rows, []string{p.Component, p.Key, p.Default, p.Runtime, p.Description})
	}
	return rows
}

// GraphNode is one constructed component.
type GraphNode struct {
	Ordinal   int      `json:"ordinal" yaml:"ordinal"`
	TypeID    string   `json:"type" yaml:"type"`
	Deps      []string `json:"deps,omitempty" yaml:"deps,omitempty"`
	StartHook bool     `json:"start_hook" yaml:"start_hook"`
	StopHook  bool     `json:"stop_hook" yaml:"stop_hook"`
}

// GraphTable lists components in construction order.
type GraphTable []GraphNode

// NewGraphTable describes the instances of g.
func NewGraphTable(g *graph.Graph) GraphTable {
	instances := g.Instances()
	t := make(GraphTable, 0, len(instances))
	for _, inst := range instances {
		deps := make([]string, len(inst.Deps))
		for i, d := range inst.Deps {
			deps[i] = string(d)
		}
		t = append(t, GraphNode{
			Ordinal:   inst.Ordinal,
			TypeID:    string(inst.TypeID),
			Deps:      deps,
			StartHook: inst.Start != nil,
			StopHook:  inst.Stop != nil,
		})
	}
	return t
}

func (t GraphTable) Headers() []string {
	return []string{"#", "Type", "Depends On", "Hooks"}
}

// Caption notes the hook order.
func (t GraphTable) Caption() string {
	if len(t) == 0 {
		return ""
	}
	return fmt.Sprintf("%d components: start hooks run top to bottom, stop hooks bottom to top", len(t))
}

func (t GraphTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, n := range t {
		var hooks []string
		if n.StartHook {
			hooks = append(hooks, "start")
		}
		if n.StopHook {
			hooks = append(hooks, "stop")
		}
		rows = append(rows, []string{
			strconv.Itoa(n.Ordinal),
			n.TypeID,
			dash(strings.Join(n.Deps, ", ")),
			dash(strings.Join(hooks, ",")),
		})
	}
	return rows
}

// ErrorReport is the machine-readable form of a failed initialization.
type ErrorReport struct {
	Kind     string   `json:"kind" yaml:"kind"`
	ExitCode int      `json:"exit_code" yaml:"exit_code"`
	Messages []string `json:"messages" yaml:"messages"`
}

// NewErrorReport describes err.
func NewErrorReport(err error) ErrorReport {
	kind := "Error"
	if k := bserrors.KindOf(err); k != 0 {
		kind = k.String()
	}
	return ErrorReport{
		Kind:     kind,
		ExitCode: bserrors.ExitCode(err),
		Messages: bserrors.MessagesOf(err),
	}
}

func (r ErrorReport) Headers() []string { return []string{"Kind", "Message"} }

// Caption gives the exit code the failure maps to.
func (r ErrorReport) Caption() string {
	return fmt.Sprintf("%d error(s), exit code %d", len(r.Messages), r.ExitCode)
}

func (r ErrorReport) Rows() [][]string {
	rows := make([][]string, 0, len(r.Messages))
	for _, m := range r.Messages {
		rows = append(rows, []string{r.Kind, m})
	}
	return rows
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
