package repomanager

import (
	"context"
	"database/sql"

	"github.com/Eyad010/postfeed/internal/dbx"
	"github.com/Eyad010/postfeed/internal/server/repositories/posts"
	"github.com/Eyad010/postfeed/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Posts(db dbx.DBTX) posts.Repository
}
