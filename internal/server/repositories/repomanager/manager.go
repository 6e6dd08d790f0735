package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/dovol/internal/dbx"
	"github.com/dmitrijs2005/dovol/internal/server/repositories/applications"
	"github.com/dmitrijs2005/dovol/internal/server/repositories/otps"
	"github.com/dmitrijs2005/dovol/internal/server/repositories/skills"
	"github.com/dmitrijs2005/dovol/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/dovol/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX handle. Repos built
// from the same transactional handle share that transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	OTPs(db dbx.DBTX) otps.Repository
	Tasks(db dbx.DBTX) tasks.Repository
	Applications(db dbx.DBTX) applications.Repository
	Skills(db dbx.DBTX) skills.Repository
}
