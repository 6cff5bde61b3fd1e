package models

// All lists every persisted model, in dependency order, for AutoMigrate callers
// (sqlite development databases and repository tests).
func All() []any {
	return []any{
		&User{},
		&Material{},
	}
}
