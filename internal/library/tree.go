package library

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/go-logr/logr"

	"github.com/five82/quire/internal/api"
)

// ErrCycle marks a folder listed below itself. It is wrapped in a validation
// *api.Error so errors.Is matches both.
var ErrCycle = errors.New("library: folder cycle")

// Lister lists one folder's direct children. *api.Library satisfies it.
type Lister interface {
	Pages(q api.LibraryListQuery, opts ...api.CallOption) *api.Pager[api.LibraryItem]
}

// Node is an item placed in the tree.
type Node struct {
	Item api.LibraryItem
	// Ancestors holds the folder ids from the root down to the parent.
	Ancestors []string
}

func (n Node) ID() string    { return n.Item.RecordID() }
func (n Node) Title() string { return n.Item.Title() }
func (n Node) Depth() int    { return len(n.Ancestors) }

// IsFolder reports whether the node can have children.
func (n Node) IsFolder() bool { return n.Item.Type == api.LibraryFolder }

// ParentID returns the id of the containing folder, or "" at the root.
func (n Node) ParentID() string {
	if len(n.Ancestors) == 0 {
		return ""
	}
	return n.Ancestors[len(n.Ancestors)-1]
}

// Tree loads the library lazily: a folder's children are fetched only when
// asked for.
type Tree struct {
	lister Lister
	log    logr.Logger
}

// New builds a tree over lister.
func New(lister Lister, log logr.Logger) *Tree {
	return &Tree{lister: lister, log: log}
}

// Roots lists the top level of the library.
func (t *Tree) Roots(ctx context.Context) ([]Node, error) {
	return t.list(ctx, "", nil)
}

// Children lists the direct children of parent. Feeds and collections have
// none.
func (t *Tree) Children(ctx context.Context, parent Node) ([]Node, error) {
	if !parent.IsFolder() {
		return nil, nil
	}
	ancestors := append(slices.Clone(parent.Ancestors), parent.ID())
	return t.list(ctx, parent.ID(), ancestors)
}

func (t *Tree) list(ctx context.Context, folderID string, ancestors []string) ([]Node, error) {
	items, err := api.Collect(ctx, t.lister.Pages(api.LibraryListQuery{FolderID: folderID}))
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, len(items))
	for _, item := range items {
		if item.Type == api.LibraryFolder {
			id := item.RecordID()
			if id == folderID || slices.Contains(ancestors, id) {
				t.log.Info("folder cycle in library", "folder", id, "parent", folderID)
				return nil, cycleError(id, folderID)
			}
		}
		nodes = append(nodes, Node{Item: item, Ancestors: ancestors})
	}
	t.log.V(1).Info("listed library", "folder", folderID, "items", len(nodes))
	return nodes, nil
}

// Walk visits every node depth first, children right after their folder.
// Returning a non-nil error from fn stops the walk with that error.
func (t *Tree) Walk(ctx context.Context, fn func(Node) error) error {
	roots, err := t.Roots(ctx)
	if err != nil {
		return err
	}
	visited := make(map[string]struct{})
	var visit func(nodes []Node) error
	visit = func(nodes []Node) error {
		for _, n := range nodes {
			if err := fn(n); err != nil {
				return err
			}
			if !n.IsFolder() {
				continue
			}
			if _, seen := visited[n.ID()]; seen {
				return cycleError(n.ID(), n.ParentID())
			}
			visited[n.ID()] = struct{}{}
			children, err := t.Children(ctx, n)
			if err != nil {
				return err
			}
			if err := visit(children); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(roots)
}

func cycleError(folderID, parentID string) error {
	return &api.Error{
		Kind:    api.KindValidation,
		Op:      "library.list",
		Message: fmt.Sprintf("folder %s is listed below itself (under %s)", folderID, parentID),
		Err:     ErrCycle,
	}
}
