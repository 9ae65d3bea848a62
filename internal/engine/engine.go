package engine

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"kriya/internal/config"
	"kriya/internal/domain"
	"kriya/internal/events"
	"kriya/internal/repo"
)

// Hook is a post-commit side effect invoked after every successful task
// mutation. Hooks are best-effort: they log their own failures and never
// affect the outcome of the mutation that triggered them.
type Hook func(ctx context.Context)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time

	hooks []Hook
}

func New(db *sql.DB, cfg *config.Config) *Engine {
	return &Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// OnTaskMutation registers a post-commit hook.
func (e *Engine) OnTaskMutation(h Hook) {
	e.hooks = append(e.hooks, h)
}

func (e *Engine) taskMutated(ctx context.Context) {
	for _, h := range e.hooks {
		h(ctx)
	}
}

// TaskFields carries the mutable fields of a task.
type TaskFields struct {
	Title       string
	ClientName  string
	ProjectName string
	Description string
	Status      string
	Priority    string
	Category    string
	Stage       string
	Assignee    string
	Deadline    string
}

func (f TaskFields) withDefaults() TaskFields {
	if f.Status == "" {
		f.Status = domain.StatusToDo
	}
	if f.Priority == "" {
		f.Priority = domain.PriorityMedium
	}
	if f.Category == "" {
		f.Category = domain.CategoryProduk
	}
	if f.Stage == "" {
		f.Stage = domain.StageInbox
	}
	return f
}

func (e *Engine) ListTasks(ctx context.Context) ([]domain.Task, error) {
	return e.Repo.ListTasks(ctx)
}

// CreateTask inserts a task, applying the documented defaults for omitted
// fields, and triggers the registered post-commit hooks.
func (e *Engine) CreateTask(ctx context.Context, fields TaskFields) (domain.Task, error) {
	if fields.Title == "" {
		return domain.Task{}, errors.New("title is required")
	}
	fields = fields.withDefaults()
	t := domain.Task{
		Title:       fields.Title,
		ClientName:  fields.ClientName,
		ProjectName: fields.ProjectName,
		Description: fields.Description,
		Status:      fields.Status,
		Priority:    fields.Priority,
		Category:    fields.Category,
		Stage:       fields.Stage,
		Assignee:    fields.Assignee,
		Deadline:    fields.Deadline,
		CreatedAt:   e.now().UTC().Format(time.RFC3339),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	id, err := e.Repo.InsertTask(ctx, tx, t)
	if err != nil {
		return domain.Task{}, err
	}
	t.ID = id
	if err := e.Events.Append(ctx, tx, "task.created", "task", itoa(id), events.EventPayload{"title": t.Title, "stage": t.Stage}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	e.taskMutated(ctx)
	return t, nil
}

// UpdateTask overwrites all mutable fields of a task by id. Updating a
// missing id succeeds with zero rows affected; hooks still run, so connected
// clients converge on current state either way.
func (e *Engine) UpdateTask(ctx context.Context, id int64, fields TaskFields) error {
	t := domain.Task{
		ID:          id,
		Title:       fields.Title,
		ClientName:  fields.ClientName,
		ProjectName: fields.ProjectName,
		Description: fields.Description,
		Status:      fields.Status,
		Priority:    fields.Priority,
		Category:    fields.Category,
		Stage:       fields.Stage,
		Assignee:    fields.Assignee,
		Deadline:    fields.Deadline,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	affected, err := e.Repo.UpdateTask(ctx, tx, t)
	if err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "task.updated", "task", itoa(id), events.EventPayload{"rows": affected}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.taskMutated(ctx)
	return nil
}

// DeleteTask removes a task by id with the same missing-id semantics as
// UpdateTask.
func (e *Engine) DeleteTask(ctx context.Context, id int64) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	affected, err := e.Repo.DeleteTask(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "task.deleted", "task", itoa(id), events.EventPayload{"rows": affected}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.taskMutated(ctx)
	return nil
}

func (e *Engine) ListCrew(ctx context.Context) ([]domain.CrewMember, error) {
	return e.Repo.ListCrew(ctx)
}

// CreateCrew inserts a crew member. Name and role are required by contract;
// storage accepts what it is given. Crew changes are not broadcast.
func (e *Engine) CreateCrew(ctx context.Context, c domain.CrewMember) (domain.CrewMember, error) {
	id, err := e.Repo.InsertCrew(ctx, c)
	if err != nil {
		return domain.CrewMember{}, err
	}
	c.ID = id
	return c, nil
}

func (e *Engine) DeleteCrew(ctx context.Context, id int64) error {
	_, err := e.Repo.DeleteCrew(ctx, id)
	return err
}

func (e *Engine) ListClients(ctx context.Context) ([]domain.Client, error) {
	return e.Repo.ListClients(ctx)
}

// EnsureClient creates a client by name or returns the existing one.
func (e *Engine) EnsureClient(ctx context.Context, name string) (domain.Client, error) {
	if name == "" {
		return domain.Client{}, errors.New("name is required")
	}
	id, err := e.Repo.EnsureClient(ctx, name)
	if err != nil {
		return domain.Client{}, err
	}
	return domain.Client{ID: id, Name: name}, nil
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
