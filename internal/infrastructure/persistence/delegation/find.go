package delegation

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"gorm.io/gorm/clause"
)

// Find loads the record with the given primary key, with every delegated
// association preloaded. A missing row yields an error wrapping
// gorm.ErrRecordNotFound.
func (d *Delegator[T]) Find(ctx context.Context, id any) (*T, error) {
	rec := new(T)
	query := d.db.WithContext(ctx)
	for _, t := range d.targets {
		query = query.Preload(t.name)
	}
	if err := query.Where(clause.Eq{Column: clause.PrimaryColumn, Value: id}).First(rec).Error; err != nil {
		return nil, fmt.Errorf("find %s %v: %w", d.schema.Name, id, err)
	}
	d.loaded(ctx, rec)
	return rec, nil
}

// Reload replaces rec with a freshly loaded copy. Unsaved changes, including
// delegated ones, are discarded.
func (d *Delegator[T]) Reload(ctx context.Context, rec *T) error {
	if d.schema.PrioritizedPrimaryField == nil {
		return errors.New("reload: model has no primary key")
	}
	id, zero := d.schema.PrioritizedPrimaryField.ValueOf(ctx, reflect.ValueOf(rec).Elem())
	if zero {
		return fmt.Errorf("reload %s: record has no primary key", d.schema.Name)
	}
	fresh, err := d.Find(ctx, id)
	if err != nil {
		return err
	}
	*rec = *fresh
	return nil
}

// loaded marks rec and its preloaded associations as persisted.
func (d *Delegator[T]) loaded(ctx context.Context, rec *T) {
	rv := reflect.ValueOf(rec)
	markPersisted(ctx, d.schema, rv)
	for _, t := range d.targets {
		fv := t.rel.Field.ReflectValueOf(ctx, rv.Elem())
		if !fv.IsNil() {
			markPersisted(ctx, t.schema, fv)
		}
	}
}
