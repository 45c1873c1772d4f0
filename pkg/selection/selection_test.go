package selection_test

import (
	"fmt"
	"reflect"
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/filecanvas/pkg/model"
	"github.com/vanderheijden86/filecanvas/pkg/selection"
)

type nodeList []model.Node

func (l *nodeList) Nodes() []model.Node { return *l }

func newList(ids ...string) *nodeList {
	l := make(nodeList, len(ids))
	for i, id := range ids {
		l[i] = model.Node{ID: id}
	}
	return &l
}

func TestToggleSelectsThenDeselects(t *testing.T) {
	sel := selection.New(newList("a", "b"))

	sel.SelectNode("a", true)
	if got := sel.SelectedIDs(); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("after first toggle got %v", got)
	}

	sel.SelectNode("a", true)
	if sel.Len() != 0 {
		t.Fatalf("after second toggle got %v", sel.SelectedIDs())
	}
}

func TestSingleSelectReplaces(t *testing.T) {
	sel := selection.New(newList("a", "b", "c"))
	sel.SelectNode("a", true)
	sel.SelectNode("b", true)

	sel.SelectNode("c", false)

	if got := sel.SelectedIDs(); !reflect.DeepEqual(got, []string{"c"}) {
		t.Fatalf("got %v, want [c]", got)
	}
}

func TestUnknownIDsAreIgnored(t *testing.T) {
	sel := selection.New(newList("a"))
	sel.SelectNode("ghost", false)
	sel.SelectMultiple([]string{"a", "ghost"})

	if got := sel.SelectedIDs(); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("got %v, want [a]", got)
	}
	if sel.IsSelected("ghost") {
		t.Fatal("unknown id reported selected")
	}
}

func TestSelectAllAndClear(t *testing.T) {
	sel := selection.New(newList("a", "b", "c"))
	sel.SelectAll()
	if sel.Len() != 3 {
		t.Fatalf("select all picked %d", sel.Len())
	}
	sel.ClearSelection()
	if sel.Len() != 0 {
		t.Fatalf("clear left %v", sel.SelectedIDs())
	}
}

func TestSelectedNodesFollowNodeOrder(t *testing.T) {
	sel := selection.New(newList("a", "b", "c", "d"))
	sel.SelectMultiple([]string{"d", "b"})

	if got := sel.SelectedIDs(); !reflect.DeepEqual(got, []string{"b", "d"}) {
		t.Fatalf("got %v, want [b d]", got)
	}
}

func TestSelectRange(t *testing.T) {
	tests := []struct {
		name   string
		anchor string
		target string
		want   []string
	}{
		{"forward", "b", "d", []string{"b", "c", "d"}},
		{"backward", "d", "a", []string{"a", "b", "c", "d"}},
		{"same", "c", "c", []string{"c"}},
		{"no anchor", "", "c", []string{"c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := selection.New(newList("a", "b", "c", "d", "e"))
			if tt.anchor != "" {
				sel.SelectNode(tt.anchor, false)
			}
			sel.SelectRange(tt.target)
			if got := sel.SelectedIDs(); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPruneDropsRemovedNodes(t *testing.T) {
	list := newList("a", "b", "c")
	sel := selection.New(list)
	sel.SelectAll()

	*list = (*list)[:1]
	sel.Prune()

	if got := sel.SelectedIDs(); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("got %v, want [a]", got)
	}
	if sel.IsSelected("b") || sel.IsSelected("c") {
		t.Fatal("pruned ids still reported selected")
	}
}

func TestSelectionStaysSubsetOfNodes(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(t, "n")
		ids := make([]string, n)
		for i := range ids {
			ids[i] = fmt.Sprintf("n%d", i)
		}
		list := newList(ids...)
		sel := selection.New(list)

		pick := rapid.IntRange(0, n+2)
		ops := rapid.IntRange(1, 40).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			id := fmt.Sprintf("n%d", pick.Draw(t, "id"))
			switch rapid.IntRange(0, 5).Draw(t, "op") {
			case 0:
				sel.SelectNode(id, false)
			case 1:
				sel.SelectNode(id, true)
			case 2:
				sel.SelectRange(id)
			case 3:
				sel.SelectAll()
			case 4:
				*list = (*list)[:len(*list)/2+1]
				sel.Prune()
			case 5:
				sel.ClearSelection()
			}
			known := map[string]bool{}
			for _, node := range *list {
				known[node.ID] = true
			}
			for _, sid := range sel.SelectedIDs() {
				if !known[sid] {
					t.Fatalf("selection holds %q which is not a node", sid)
				}
			}
			if sel.Len() > len(*list) {
				t.Fatalf("selection size %d exceeds node count %d", sel.Len(), len(*list))
			}
		}
	})
}
