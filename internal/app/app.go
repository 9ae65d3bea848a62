// Package app wires the store, engine, fanout hub, sheets mirror and email
// ingestion into one runnable unit shared by the server and the CLI.
package app

import (
	"context"
	"database/sql"
	"log"

	"kriya/internal/config"
	"kriya/internal/db"
	"kriya/internal/domain"
	"kriya/internal/engine"
	"kriya/internal/ingest"
	"kriya/internal/migrate"
	"kriya/internal/notify"
	"kriya/internal/sheets"
)

type App struct {
	DB     *sql.DB
	Config *config.Config
	Engine *engine.Engine
	Hub    *notify.Hub
	Mirror *sheets.Mirror
	Ingest ingest.Service
}

// Setup opens the workspace database, applies migrations, seeds the default
// spreadsheet id, and registers the post-commit task hooks: fanout first,
// then mirror, both best-effort.
func Setup(ctx context.Context, workspace string, cfg *config.Config) (*App, error) {
	conn, err := db.Open(workspace)
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}

	eng := engine.New(conn, cfg)

	existing, err := eng.Repo.GetSetting(ctx, domain.SettingSpreadsheetID)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if existing == "" && cfg.Sheets.DefaultSpreadsheetID != "" {
		if err := eng.Repo.SetSetting(ctx, domain.SettingSpreadsheetID, cfg.Sheets.DefaultSpreadsheetID); err != nil {
			conn.Close()
			return nil, err
		}
	}

	hub := notify.NewHub()
	mirror := sheets.New(eng.Repo, cfg)
	mirror.Notify = hub.Broadcast

	eng.OnTaskMutation(func(ctx context.Context) {
		tasks, err := eng.ListTasks(ctx)
		if err != nil {
			log.Printf("fanout: list tasks: %v", err)
			return
		}
		if tasks == nil {
			tasks = []domain.Task{}
		}
		hub.Broadcast("tasks_updated", tasks)
	})
	eng.OnTaskMutation(func(ctx context.Context) {
		if err := mirror.Sync(ctx); err != nil {
			log.Printf("sheets: sync failed: %v", err)
		}
	})

	return &App{
		DB:     conn,
		Config: cfg,
		Engine: eng,
		Hub:    hub,
		Mirror: mirror,
		Ingest: ingest.Service{Engine: eng, TrustedSender: cfg.Ingest.TrustedSender},
	}, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}
