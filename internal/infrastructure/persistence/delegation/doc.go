// Package delegation lets a GORM record read and write attributes that are
// stored on one of its associations, as if it owned them.
//
// A Delegator is built once per primary model type:
//
//	users, err := delegation.New[models.User](db,
//		delegation.To("Contact", "lastname", "email"),
//		delegation.WithLogger(log),
//	)
//
// Reads and writes go through the association, which is loaded on first use
// (or built when there is no row yet):
//
//	_ = users.Write(ctx, user, "lastname", "Marley")
//	ok, err := users.Save(ctx, user)
//
// Save validates the primary record only. Associated records are validated
// too, but their errors are logged and never block the save. Cascade(false)
// leaves associated records unsaved; SkipValidation saves without running the
// primary's validations.
//
// Records must embed Model, which carries the UUID primary key, timestamps,
// the Errors collection and the dirty-tracking snapshot used for partial
// updates.
package delegation
