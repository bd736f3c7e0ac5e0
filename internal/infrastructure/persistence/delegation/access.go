package delegation

import (
	"context"
	"fmt"
	"reflect"
)

// Read returns the current value of a delegated attribute, resolving the
// association first if needed.
func (d *Delegator[T]) Read(ctx context.Context, rec *T, attr string) (any, error) {
	b, err := d.lookup(attr)
	if err != nil {
		return nil, err
	}
	assoc, err := d.resolve(ctx, rec, b.target)
	if err != nil {
		return nil, err
	}
	v, _ := b.field.ValueOf(ctx, assoc.Elem())
	return v, nil
}

// Write sets a delegated attribute on the associated record in memory. The
// value is persisted by the next cascading save.
func (d *Delegator[T]) Write(ctx context.Context, rec *T, attr string, value any) error {
	b, err := d.lookup(attr)
	if err != nil {
		return err
	}
	assoc, err := d.resolve(ctx, rec, b.target)
	if err != nil {
		return err
	}
	if err := b.field.Set(ctx, assoc.Elem(), value); err != nil {
		return fmt.Errorf("set %s.%s: %w", b.target.schema.Name, b.field.DBName, err)
	}
	return nil
}

// Get is a typed Read.
func Get[V any, T any](ctx context.Context, d *Delegator[T], rec *T, attr string) (V, error) {
	var zero V
	v, err := d.Read(ctx, rec, attr)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(V)
	if !ok {
		return zero, fmt.Errorf("attribute %q holds %T, not %T", attr, v, zero)
	}
	return typed, nil
}

// Association returns the associated record for name, loading or building
// it on first access.
func (d *Delegator[T]) Association(ctx context.Context, rec *T, name string) (any, error) {
	for _, t := range d.targets {
		if t.name == name {
			assoc, err := d.resolve(ctx, rec, t)
			if err != nil {
				return nil, err
			}
			return assoc.Interface(), nil
		}
	}
	return nil, fmt.Errorf("%s does not delegate to %q", d.schema.Name, name)
}

// resolve returns a pointer to t's associated record, stored on rec. A
// persisted rec gets its association loaded from the database; when there
// is no row, or rec is new, an empty record is built.
func (d *Delegator[T]) resolve(ctx context.Context, rec *T, t *target) (reflect.Value, error) {
	fv := t.rel.Field.ReflectValueOf(ctx, reflect.ValueOf(rec).Elem())
	if !fv.IsNil() {
		return fv, nil
	}

	ptr := reflect.New(t.schema.ModelType)
	if baseOf(rec).persisted {
		if err := d.db.WithContext(ctx).Model(rec).Association(t.name).Find(ptr.Interface()); err != nil {
			return reflect.Value{}, fmt.Errorf("load %s.%s: %w", d.schema.Name, t.name, err)
		}
		if !isNew(ctx, t.schema, ptr.Elem()) {
			markPersisted(ctx, t.schema, ptr)
		}
	}
	fv.Set(ptr)
	return ptr, nil
}

func baseOf(rec any) *Model {
	return rec.(Record).base()
}
