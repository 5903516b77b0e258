package api

import (
	"context"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// family binds a resource's endpoints to its Go shapes.
type family[T Record, C Validatable, U Delta, Q Query] struct {
	name string
	eps  crud
	diff func(current, desired T) U
}

// Resource is the uniform list/get/create/update/delete client shared by
// every resource family.
type Resource[T Record, C Validatable, U Delta, Q Query] struct {
	client *Client
	fam    family[T, C, U, Q]
}

func newResource[T Record, C Validatable, U Delta, Q Query](c *Client, f family[T, C, U, Q]) *Resource[T, C, U, Q] {
	return &Resource[T, C, U, Q]{client: c, fam: f}
}

// List fetches one page. A nil cursor requests the first page.
func (r *Resource[T, C, U, Q]) List(ctx context.Context, q Q, cursor *string, opts ...CallOption) (Page[T], error) {
	values := q.Values()
	if cursor != nil {
		if *cursor == "" {
			return Page[T]{}, validationError(r.fam.name+".list", field.ErrorList{
				field.Invalid(field.NewPath("query", "cursor"), "", "must be a cursor returned by the previous page"),
			})
		}
		values.Set("cursor", *cursor)
	}
	var page Page[T]
	if err := r.client.do(ctx, r.fam.eps.list, call{query: q, values: values, dest: &page}, opts); err != nil {
		return Page[T]{}, err
	}
	return page, nil
}

// Pages starts a cursor traversal over the list matching q.
func (r *Resource[T, C, U, Q]) Pages(q Q, opts ...CallOption) *Pager[T] {
	return NewPager[T](func(ctx context.Context, cursor *string) (Page[T], error) {
		return r.List(ctx, q, cursor, opts...)
	}, func(item T) string { return item.RecordID() })
}

// Get fetches one record.
func (r *Resource[T, C, U, Q]) Get(ctx context.Context, id string, opts ...CallOption) (*T, error) {
	var out T
	if err := r.client.do(ctx, r.fam.eps.get, call{params: map[string]string{"id": id}, dest: &out}, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create sends body and returns the record the server stored.
func (r *Resource[T, C, U, Q]) Create(ctx context.Context, body C, opts ...CallOption) (*T, error) {
	var out T
	if err := r.client.do(ctx, r.fam.eps.create, call{body: &body, dest: &out}, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update sends delta and returns the authoritative record. An empty delta
// is a local no-op: nothing is sent and (nil, nil) is returned.
func (r *Resource[T, C, U, Q]) Update(ctx context.Context, id string, delta U, opts ...CallOption) (*T, error) {
	op := r.fam.name + ".update"
	if errs := ValidateID(id, field.NewPath("path", "id")); len(errs) > 0 {
		return nil, validationError(op, errs)
	}
	if n, ok := any(&delta).(Normalizer); ok {
		n.Normalize()
	}
	if delta.Empty() {
		r.client.log.V(1).Info("skipping empty update", "endpoint", op, "id", id)
		return nil, nil
	}
	var out T
	if err := r.client.do(ctx, r.fam.eps.update, call{params: map[string]string{"id": id}, body: &delta, dest: &out}, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// Save updates current so it matches desired, sending only changed fields.
// When nothing differs it returns current without a network call.
func (r *Resource[T, C, U, Q]) Save(ctx context.Context, current, desired T, opts ...CallOption) (*T, error) {
	if current.RecordID() != desired.RecordID() {
		return nil, validationError(r.fam.name+".update", field.ErrorList{
			field.Invalid(field.NewPath("body", "id"), desired.RecordID(), "desired record has a different id"),
		})
	}
	if r.fam.diff == nil {
		return nil, validationError(r.fam.name+".update", field.ErrorList{
			field.Forbidden(field.NewPath("body"), "resource does not support updates"),
		})
	}
	delta := r.fam.diff(current, desired)
	if delta.Empty() {
		return &current, nil
	}
	return r.Update(ctx, current.RecordID(), delta, opts...)
}

// Delete removes a record.
func (r *Resource[T, C, U, Q]) Delete(ctx context.Context, id string, opts ...CallOption) error {
	return r.client.do(ctx, r.fam.eps.delete, call{params: map[string]string{"id": id}}, opts)
}
