// Package tasky holds the application services behind the CLI and the HTTP
// API: task generation, status reconciliation, user management and
// mirroring into Google Tasks.
package tasky

import (
	"github.com/colonyops/tasky/internal/core/config"
	"github.com/colonyops/tasky/internal/data/db"
)

// App is the central entry point for all tasky operations.
// Commands and the HTTP API consume App instead of cherry-picking raw dependencies.
type App struct {
	Generate *GenerateService
	Tasks    *TaskService
	Users    *UserService
	Exports  *ExportService

	Config *config.Config
	DB     *db.DB
}

// NewApp constructs an App from explicit dependencies.
func NewApp(
	generate *GenerateService,
	tasks *TaskService,
	users *UserService,
	exports *ExportService,
	cfg *config.Config,
	database *db.DB,
) *App {
	return &App{
		Generate: generate,
		Tasks:    tasks,
		Users:    users,
		Exports:  exports,
		Config:   cfg,
		DB:       database,
	}
}
