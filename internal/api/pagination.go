package api

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// ErrDone is returned by Pager.Next after the final page.
var ErrDone = errors.New("api: no more pages")

// Page is one slice of a list. A nil Cursor marks the final page. Cursors are
// opaque: they are only ever copied from a previous page.
type Page[T any] struct {
	Data   []T     `json:"data"`
	Cursor *string `json:"cursor,omitempty"`
}

// Last reports whether no page follows this one.
func (p Page[T]) Last() bool { return p.Cursor == nil }

func (p Page[T]) Validate(path *field.Path) field.ErrorList {
	var errs field.ErrorList
	if p.Data == nil {
		errs = append(errs, field.Required(path.Child("data"), ""))
	}
	if p.Cursor != nil && *p.Cursor == "" {
		errs = append(errs, field.Invalid(path.Child("cursor"), "", "must be absent or non-empty"))
	}
	for i, item := range p.Data {
		if v, ok := any(item).(Validatable); ok {
			errs = append(errs, v.Validate(path.Child("data").Index(i))...)
		}
	}
	return errs
}

// PageFunc fetches the page that starts at cursor; nil requests the first.
type PageFunc[T any] func(ctx context.Context, cursor *string) (Page[T], error)

// Pager walks a list forward, one page at a time. Next calls are serialized
// so a page is never requested before the previous cursor is known.
type Pager[T any] struct {
	mu     sync.Mutex
	fetch  PageFunc[T]
	key    func(T) string
	cursor *string
	done   bool
	seen   map[string]struct{}
}

// NewPager starts a traversal. key, when non-nil, identifies items so that an
// id repeated across pages is reported instead of silently re-yielded.
func NewPager[T any](fetch PageFunc[T], key func(T) string) *Pager[T] {
	return &Pager[T]{fetch: fetch, key: key, seen: make(map[string]struct{})}
}

// Next returns the next page, or ErrDone once the final page was returned.
// An empty page with a cursor is not the end. A page echoing the cursor it
// was sent is a Validation error, even when empty, since following it would
// loop; start a new pager to poll again. On error the pager stays on the
// same cursor.
func (p *Pager[T]) Next(ctx context.Context) (Page[T], error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done {
		return Page[T]{}, ErrDone
	}
	sent := p.cursor
	page, err := p.fetch(ctx, sent)
	if err != nil {
		return Page[T]{}, err
	}
	if sent != nil && page.Cursor != nil && *sent == *page.Cursor {
		return Page[T]{}, protocolError("pagination", "cursor", "server returned the cursor it was sent")
	}
	if p.key != nil {
		fresh := make(map[string]struct{}, len(page.Data))
		for _, item := range page.Data {
			k := p.key(item)
			_, before := p.seen[k]
			_, within := fresh[k]
			if before || within {
				return Page[T]{}, protocolError("pagination", "data", fmt.Sprintf("id %q returned twice", k))
			}
			fresh[k] = struct{}{}
		}
		for k := range fresh {
			p.seen[k] = struct{}{}
		}
	}
	if page.Cursor != nil {
		next := *page.Cursor
		p.cursor = &next
	} else {
		p.cursor = nil
		p.done = true
	}
	return page, nil
}

// Done reports whether the final page has been returned.
func (p *Pager[T]) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// All yields every remaining item. Iteration stops at the first error.
func (p *Pager[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			page, err := p.Next(ctx)
			if errors.Is(err, ErrDone) {
				return
			}
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			for _, item := range page.Data {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

// Collect drains p and returns the items in server order.
func Collect[T any](ctx context.Context, p *Pager[T]) ([]T, error) {
	var out []T
	for item, err := range p.All(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func protocolError(op, fieldName, detail string) *Error {
	return validationError(op, field.ErrorList{field.Invalid(field.NewPath("response", fieldName), nil, detail)})
}

// Traversal is the state behind one list screen. Restart abandons the current
// traversal: its in-flight request is cancelled and its late results are
// never appended.
type Traversal[T any] struct {
	mu     sync.Mutex
	gen    uint64
	pager  *Pager[T]
	items  []T
	genCtx context.Context
	stop   context.CancelFunc
}

// Restart begins a new traversal backed by p.
func (t *Traversal[T]) Restart(p *Pager[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		t.stop()
	}
	t.gen++
	t.pager = p
	t.items = nil
	t.genCtx, t.stop = context.WithCancel(context.Background())
}

// Close cancels any in-flight request without starting a new traversal.
func (t *Traversal[T]) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		t.stop()
	}
	t.gen++
	t.pager = nil
	t.items = nil
}

// LoadMore fetches the next page and appends it. If the traversal was
// restarted meanwhile the page is dropped and a Cancelled error returned.
func (t *Traversal[T]) LoadMore(ctx context.Context) ([]T, error) {
	return t.LoadMoreAt(ctx, t.Generation())
}

// LoadMoreAt is LoadMore pinned to generation gen. When the traversal has
// moved past gen nothing is fetched and a Cancelled error is returned.
func (t *Traversal[T]) LoadMoreAt(ctx context.Context, gen uint64) ([]T, error) {
	t.mu.Lock()
	current, pager, genCtx := t.gen, t.pager, t.genCtx
	t.mu.Unlock()
	if current != gen {
		return nil, cancelledError("traversal")
	}
	if pager == nil {
		return nil, ErrDone
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(genCtx, cancel)
	defer stop()

	page, err := pager.Next(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen {
		return nil, cancelledError("traversal")
	}
	if err != nil {
		return nil, err
	}
	t.items = append(t.items, page.Data...)
	return page.Data, nil
}

// Items returns a copy of everything loaded so far.
func (t *Traversal[T]) Items() []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]T, len(t.items))
	copy(out, t.items)
	return out
}

// Done reports whether the current traversal reached its final page.
func (t *Traversal[T]) Done() bool {
	t.mu.Lock()
	pager := t.pager
	t.mu.Unlock()
	return pager == nil || pager.Done()
}

// Generation identifies the current traversal.
func (t *Traversal[T]) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen
}
