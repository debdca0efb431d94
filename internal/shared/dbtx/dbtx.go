// Package dbtx binds gorm repositories to a database/sql transaction opened by
// a service, so that service code keeps the BeginTx/Commit shape while gorm
// statements run inside the same transaction.
package dbtx

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

// Bind returns a gorm handle whose statements execute on tx. With a nil tx the
// handle is db itself.
func Bind(ctx context.Context, db *gorm.DB, tx *sql.Tx) *gorm.DB {
	if tx == nil {
		return db.WithContext(ctx)
	}
	session := db.Session(&gorm.Session{Context: ctx, NewDB: true})
	session.Statement.ConnPool = tx
	return session
}
