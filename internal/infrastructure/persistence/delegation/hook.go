package delegation

import (
	"context"

	"gorm.io/gorm"
)

// Hook is an extension point in the save lifecycle. Hooks run in
// registration order:
//
//  1. AfterValidate, after the primary's validations and only when they ran.
//     Messages added to errs make the record invalid.
//  2. BeforeSave, inside the transaction before anything is written.
//  3. AfterSave, inside the transaction after the primary and its
//     associations are written.
//
// An error from BeforeSave or AfterSave rolls the transaction back.
type Hook interface {
	AfterValidate(ctx context.Context, record any, errs *Errors)
	BeforeSave(ctx context.Context, tx *gorm.DB, record any) error
	AfterSave(ctx context.Context, tx *gorm.DB, record any) error
}

// BaseHook implements Hook with no-ops. Embed it to override only some methods.
type BaseHook struct{}

func (BaseHook) AfterValidate(context.Context, any, *Errors) {}

func (BaseHook) BeforeSave(context.Context, *gorm.DB, any) error { return nil }

func (BaseHook) AfterSave(context.Context, *gorm.DB, any) error { return nil }

// HookFuncs adapts plain functions to Hook. Nil fields are skipped.
type HookFuncs struct {
	AfterValidateFunc func(ctx context.Context, record any, errs *Errors)
	BeforeSaveFunc    func(ctx context.Context, tx *gorm.DB, record any) error
	AfterSaveFunc     func(ctx context.Context, tx *gorm.DB, record any) error
}

func (h HookFuncs) AfterValidate(ctx context.Context, record any, errs *Errors) {
	if h.AfterValidateFunc != nil {
		h.AfterValidateFunc(ctx, record, errs)
	}
}

func (h HookFuncs) BeforeSave(ctx context.Context, tx *gorm.DB, record any) error {
	if h.BeforeSaveFunc != nil {
		return h.BeforeSaveFunc(ctx, tx, record)
	}
	return nil
}

func (h HookFuncs) AfterSave(ctx context.Context, tx *gorm.DB, record any) error {
	if h.AfterSaveFunc != nil {
		return h.AfterSaveFunc(ctx, tx, record)
	}
	return nil
}
