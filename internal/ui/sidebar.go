package ui

import (
	"context"
	"net/url"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/quire/internal/cache"
	"github.com/five82/quire/internal/library"
)

// childrenFamily namespaces sidebar entries in the children cache.
const childrenFamily = "library"

func childrenKey(folderID string) string {
	return cache.QueryKey(childrenFamily, url.Values{"folderId": {folderID}})
}

type childrenMsg struct {
	folderID string
	nodes    []library.Node
	err      error
}

func loadChildrenCmd(ctx context.Context, tree *library.Tree, parent library.Node) tea.Cmd {
	return func() tea.Msg {
		nodes, err := tree.Children(ctx, parent)
		return childrenMsg{folderID: parent.ID(), nodes: nodes, err: err}
	}
}

// flatten lists the visible sidebar rows: roots, then the cached children of
// every expanded folder right below it. Expanded folders whose children are
// not cached are returned in missing.
func flatten(roots []library.Node, expanded *library.Expansion, children *cache.Cache[[]library.Node]) (rows, missing []library.Node) {
	var visit func(nodes []library.Node)
	visit = func(nodes []library.Node) {
		for _, n := range nodes {
			rows = append(rows, n)
			if !n.IsFolder() || !expanded.IsExpanded(n.ID()) {
				continue
			}
			kids, ok := children.Get(childrenKey(n.ID()))
			if !ok {
				missing = append(missing, n)
				continue
			}
			visit(kids)
		}
	}
	visit(roots)
	return rows, missing
}

func cloneNodes(nodes []library.Node) []library.Node {
	out := make([]library.Node, len(nodes))
	for i, n := range nodes {
		n.Ancestors = append([]string(nil), n.Ancestors...)
		out[i] = n
	}
	return out
}
