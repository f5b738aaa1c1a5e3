package commands

import (
	"strconv"
	"strings"

	"github.com/haivivi/versioner/pkg/cli"
	"github.com/haivivi/versioner/pkg/graph"
	"github.com/haivivi/versioner/pkg/versioner"
)

// The view types below give command results a table rendering. They
// marshal exactly like the slices they wrap.

type nodeView []*graph.Node

func (v nodeView) Table() cli.Table {
	t := cli.Table{Header: []string{"ID", "LABELS", "PROPS"}}
	for _, n := range v {
		t.Rows = append(t.Rows, []string{string(n.ID), strings.Join(n.Labels, ","), n.Props.String()})
	}
	return t
}

type edgeView []*graph.Edge

func (v edgeView) Table() cli.Table {
	t := cli.Table{Header: []string{"ID", "TYPE", "FROM", "TO", "PROPS"}}
	for _, e := range v {
		t.Rows = append(t.Rows, []string{string(e.ID), e.Type, string(e.From), string(e.To), e.Props.String()})
	}
	return t
}

type stateView []versioner.StateRecord

func (v stateView) Table() cli.Table {
	t := cli.Table{Header: []string{"", "STATE", "INTERVAL", "PREVIOUS", "ROLLBACK OF", "PROPS"}}
	for _, r := range v {
		mark := ""
		if r.Current {
			mark = "*"
		}
		t.Rows = append(t.Rows, []string{
			mark,
			string(r.State.ID),
			cli.FormatInterval(r.Start, r.End),
			string(r.Previous),
			string(r.RollbackOf),
			r.State.Props.String(),
		})
	}
	return t
}

type diffView []versioner.DiffEntry

func (v diffView) Table() cli.Table {
	t := cli.Table{Header: []string{"OP", "KEY", "OLD", "NEW"}}
	for _, d := range v {
		row := []string{string(d.Operation), d.Key, "", ""}
		if d.OldValue.IsValid() {
			row[2] = d.OldValue.String()
		}
		if d.NewValue.IsValid() {
			row[3] = d.NewValue.String()
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

type relView []versioner.Relationship

func (v relView) Table() cli.Table {
	t := cli.Table{Header: []string{"TYPE", "DESTINATION", "STATE", "PROPS"}}
	for _, r := range v {
		t.Rows = append(t.Rows, []string{r.Edge.Type, string(r.Destination), string(r.Edge.From), r.Edge.Props.String()})
	}
	return t
}

type deleteResult struct {
	Destination graph.NodeID `json:"destination" yaml:"destination"`
	Deleted     bool         `json:"deleted" yaml:"deleted"`
}

type deleteView []deleteResult

func (v deleteView) Table() cli.Table {
	t := cli.Table{Header: []string{"DESTINATION", "DELETED"}}
	for _, r := range v {
		t.Rows = append(t.Rows, []string{string(r.Destination), strconv.FormatBool(r.Deleted)})
	}
	return t
}

type ctxView []cli.CtxInfo

func (v ctxView) Table() cli.Table {
	t := cli.Table{Header: []string{"CURRENT", "NAME"}}
	for _, c := range v {
		mark := ""
		if c.Current {
			mark = "*"
		}
		t.Rows = append(t.Rows, []string{mark, c.Name})
	}
	return t
}

type pathList []string

func (v pathList) Table() cli.Table {
	t := cli.Table{Header: []string{"PATH"}}
	for _, p := range v {
		t.Rows = append(t.Rows, []string{p})
	}
	return t
}

// emitNode outputs n, or reports that there is nothing when n is nil.
func emitNode(n *graph.Node, none string) error {
	if n == nil {
		cli.PrintInfo("%s", none)
		return nil
	}
	return output(nodeView{n})
}
