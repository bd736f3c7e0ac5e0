package delegation

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/delegates/backend/internal/infrastructure/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

type saveOptions struct {
	validate bool
	cascade  bool
}

// SaveOption changes how Save treats validations and associations.
type SaveOption func(*saveOptions)

// Cascade controls whether associated records are saved with the primary.
// Cascade(false) leaves them unsaved, and also skips the primary's own
// validations.
func Cascade(enabled bool) SaveOption {
	return func(o *saveOptions) {
		o.cascade = enabled
		if !enabled {
			o.validate = false
		}
	}
}

// SkipValidation saves without running the primary's validations.
// Associated records are still saved.
func SkipValidation() SaveOption {
	return func(o *saveOptions) {
		o.validate = false
	}
}

// pendingRecord is a record written in the current transaction, marked
// persisted once it commits.
type pendingRecord struct {
	schema *schema.Schema
	ptr    reflect.Value
}

// Valid runs the primary's validations and AfterValidate hooks, replacing
// the contents of its Errors collection.
func (d *Delegator[T]) Valid(ctx context.Context, rec *T) bool {
	errs := baseOf(rec).Errors()
	errs.Clear()
	d.validator.check(ctx, d.schema, rec, errs)
	for _, h := range d.hooks {
		h.AfterValidate(ctx, rec, errs)
	}
	return errs.Empty()
}

// Save persists rec and, unless Cascade(false) is given, its resolved
// associations, in one transaction. It returns false with a nil error when
// rec fails validation; rec.Errors() then holds the messages. Invalid
// associated records are logged and saved regardless.
func (d *Delegator[T]) Save(ctx context.Context, rec *T, opts ...SaveOption) (bool, error) {
	start := time.Now()
	ok, err := d.save(ctx, rec, opts...)
	d.metrics.recordSave(ctx, d.schema.Name, start, ok, err)
	return ok, err
}

func (d *Delegator[T]) save(ctx context.Context, rec *T, opts ...SaveOption) (bool, error) {
	o := saveOptions{validate: true, cascade: true}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, span := d.tracer.Start(ctx, "delegation.Save", trace.WithAttributes(
		attribute.String("delegation.model", d.schema.Name),
		attribute.Bool("delegation.cascade", o.cascade),
		attribute.Bool("delegation.validate", o.validate),
	))
	defer span.End()

	if o.validate {
		if !d.Valid(ctx, rec) {
			span.SetAttributes(attribute.Bool("delegation.invalid", true))
			return false, nil
		}
	} else {
		baseOf(rec).Errors().Clear()
	}

	var pending []pendingRecord
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pending = pending[:0]
		for _, h := range d.hooks {
			if err := h.BeforeSave(ctx, tx, rec); err != nil {
				return err
			}
		}

		rv := reflect.ValueOf(rec)
		if o.cascade {
			for _, t := range d.targets {
				if t.rel.Type != schema.BelongsTo {
					continue
				}
				saved, err := d.saveAssociation(ctx, tx, rv, t)
				if err != nil {
					return err
				}
				pending = append(pending, saved...)
			}
		}

		if err := d.persist(ctx, tx, d.schema, rv); err != nil {
			return fmt.Errorf("save %s: %w", d.schema.Name, err)
		}
		pending = append(pending, pendingRecord{schema: d.schema, ptr: rv})

		if o.cascade {
			for _, t := range d.targets {
				if t.rel.Type != schema.HasOne {
					continue
				}
				saved, err := d.saveAssociation(ctx, tx, rv, t)
				if err != nil {
					return err
				}
				pending = append(pending, saved...)
			}
		}

		for _, h := range d.hooks {
			if err := h.AfterSave(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	for _, p := range pending {
		markPersisted(ctx, p.schema, p.ptr)
	}
	return true, nil
}

// SaveStrict is Save, except that an invalid primary record yields a
// *RecordInvalidError.
func (d *Delegator[T]) SaveStrict(ctx context.Context, rec *T, opts ...SaveOption) error {
	ok, err := d.Save(ctx, rec, opts...)
	if err != nil {
		return err
	}
	if !ok {
		return &RecordInvalidError{Model: d.schema.Name, Errors: baseOf(rec).Errors().clone()}
	}
	return nil
}

// saveAssociation writes t's associated record, if it was ever resolved,
// and links the foreign key on whichever side owns it.
func (d *Delegator[T]) saveAssociation(ctx context.Context, tx *gorm.DB, rv reflect.Value, t *target) ([]pendingRecord, error) {
	fv := t.rel.Field.ReflectValueOf(ctx, rv.Elem())
	if fv.IsNil() {
		return nil, nil
	}
	d.checkAssociation(ctx, t, fv)

	switch t.rel.Type {
	case schema.HasOne:
		for _, ref := range t.rel.References {
			var value any
			switch {
			case ref.OwnPrimaryKey:
				value, _ = ref.PrimaryKey.ValueOf(ctx, rv.Elem())
			case ref.PrimaryValue != "":
				value = ref.PrimaryValue
			default:
				continue
			}
			if err := ref.ForeignKey.Set(ctx, fv.Elem(), value); err != nil {
				return nil, fmt.Errorf("link %s.%s: %w", d.schema.Name, t.name, err)
			}
		}
		if err := d.persist(ctx, tx, t.schema, fv); err != nil {
			return nil, fmt.Errorf("save %s.%s: %w", d.schema.Name, t.name, err)
		}

	case schema.BelongsTo:
		if err := d.persist(ctx, tx, t.schema, fv); err != nil {
			return nil, fmt.Errorf("save %s.%s: %w", d.schema.Name, t.name, err)
		}
		for _, ref := range t.rel.References {
			if ref.OwnPrimaryKey || ref.PrimaryKey == nil {
				continue
			}
			value, _ := ref.PrimaryKey.ValueOf(ctx, fv.Elem())
			if err := ref.ForeignKey.Set(ctx, rv.Elem(), value); err != nil {
				return nil, fmt.Errorf("link %s.%s: %w", d.schema.Name, t.name, err)
			}
		}
	}

	return []pendingRecord{{schema: t.schema, ptr: fv}}, nil
}

// checkAssociation validates an associated record. Failures are logged and
// left on the record's own Errors; they never block the save.
func (d *Delegator[T]) checkAssociation(ctx context.Context, t *target, ptr reflect.Value) {
	errs := baseOf(ptr.Interface()).Errors()
	errs.Clear()
	d.validator.check(ctx, t.schema, ptr.Interface(), errs)
	d.metrics.recordAssociation(ctx, d.schema.Name, t.name, errs.Empty())
	if errs.Empty() {
		return
	}
	logger.WithLogger(ctx, d.logger).Warn("Associated record invalid, saving anyway",
		zap.String("model", d.schema.Name),
		zap.String("association", t.name),
		zap.Strings("errors", errs.FullMessages()),
	)
}

// persist inserts a new record or updates a stored one. With partial
// updates only changed columns are written, and unchanged records are skipped.
func (d *Delegator[T]) persist(ctx context.Context, tx *gorm.DB, s *schema.Schema, ptr reflect.Value) error {
	value := ptr.Interface()
	m := baseOf(value)
	if !m.persisted {
		return tx.Omit(clause.Associations).Create(value).Error
	}
	if !d.partialUpdates {
		return tx.Omit(clause.Associations).Save(value).Error
	}
	cols := changedColumns(ctx, s, ptr.Elem(), m.snapshot)
	if len(cols) == 0 {
		return nil
	}
	result := tx.Model(value).Select(cols).Omit(clause.Associations).Updates(value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// the row is gone; write the whole record as a full save would
		return tx.Omit(clause.Associations).Save(value).Error
	}
	return nil
}
