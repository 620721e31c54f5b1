package models

// All lists every table, in dependency order, for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Message{},
		&Follow{},
		&Like{},
		&AuditLog{},
		&ProfileView{},
	}
}
