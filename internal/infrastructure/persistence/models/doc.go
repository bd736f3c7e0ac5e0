// Package models contains the GORM persistence models that map to database tables.
//
// Every model embeds delegation.Model, which provides the UUID primary key,
// timestamps and the validation/dirty-tracking state the delegation package
// relies on. Validation rules live in `validate` struct tags next to the
// `gorm` tags.
//
// Structure:
// - identity.go: User and its Contact, the record User delegates to
package models
