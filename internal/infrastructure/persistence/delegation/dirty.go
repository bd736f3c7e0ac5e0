package delegation

import (
	"context"
	"reflect"

	"gorm.io/gorm/schema"
)

// trackedFields are the columns compared for dirty tracking. Primary keys
// and auto-managed timestamps are left out.
func trackedFields(s *schema.Schema) []*schema.Field {
	var out []*schema.Field
	for _, f := range s.Fields {
		if f.DBName == "" || f.PrimaryKey || !f.Updatable {
			continue
		}
		if f.AutoCreateTime > 0 || f.AutoUpdateTime > 0 {
			continue
		}
		out = append(out, f)
	}
	return out
}

func takeSnapshot(ctx context.Context, s *schema.Schema, rv reflect.Value) map[string]any {
	fields := trackedFields(s)
	snap := make(map[string]any, len(fields))
	for _, f := range fields {
		v, _ := f.ValueOf(ctx, rv)
		snap[f.DBName] = detach(v)
	}
	return snap
}

// detach copies the target of a pointer value, so later in-place writes
// through the pointer show up as changes.
func detach(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr {
		return v
	}
	if rv.IsNil() {
		return nil
	}
	return rv.Elem().Interface()
}

// changedColumns lists the columns of rv that differ from snap. Without a
// snapshot every tracked column counts as changed.
func changedColumns(ctx context.Context, s *schema.Schema, rv reflect.Value, snap map[string]any) []string {
	var cols []string
	for _, f := range trackedFields(s) {
		v, _ := f.ValueOf(ctx, rv)
		old, ok := snap[f.DBName]
		if ok && reflect.DeepEqual(old, detach(v)) {
			continue
		}
		cols = append(cols, f.DBName)
	}
	return cols
}

// markPersisted flags ptr's record as stored and resets its snapshot.
func markPersisted(ctx context.Context, s *schema.Schema, ptr reflect.Value) {
	m := baseOf(ptr.Interface())
	m.persisted = true
	m.snapshot = takeSnapshot(ctx, s, ptr.Elem())
}

func isNew(ctx context.Context, s *schema.Schema, rv reflect.Value) bool {
	if s.PrioritizedPrimaryField == nil {
		return true
	}
	_, zero := s.PrioritizedPrimaryField.ValueOf(ctx, rv)
	return zero
}

// Changed returns the primary record's columns that differ from the values
// it was loaded or last saved with.
func (d *Delegator[T]) Changed(ctx context.Context, rec *T) []string {
	return changedColumns(ctx, d.schema, reflect.ValueOf(rec).Elem(), baseOf(rec).snapshot)
}
