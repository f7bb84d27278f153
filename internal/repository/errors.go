// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// reservation coordinator and handlers to distinguish between different
// failure scenarios without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a point lookup matches no row. Handlers
// should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert collides with an existing
// unique key, such as a replayed ticket idempotency key. Handlers
// should translate this into an HTTP 409 response unless the caller
// resolves the conflict itself.
var ErrConflict = errors.New("conflict")

const mysqlErrDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrDuplicateEntry
}
