package repo

import (
	"context"
	"database/sql"
	"errors"

	"kriya/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const taskColumns = `id, title,
	COALESCE(client_name,'') AS client_name,
	COALESCE(project_name,'') AS project_name,
	COALESCE(description,'') AS description,
	COALESCE(status,'') AS status,
	COALESCE(priority,'') AS priority,
	COALESCE(category,'') AS category,
	COALESCE(stage,'') AS stage,
	COALESCE(assignee,'') AS assignee,
	COALESCE(deadline,'') AS deadline,
	created_at`

func scanTask(s interface{ Scan(...any) error }) (domain.Task, error) {
	var t domain.Task
	err := s.Scan(&t.ID, &t.Title, &t.ClientName, &t.ProjectName, &t.Description,
		&t.Status, &t.Priority, &t.Category, &t.Stage, &t.Assignee, &t.Deadline, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

// ListTasks returns all tasks newest first. Ties on created_at break by
// insertion order, newest insert first.
func (r Repo) ListTasks(ctx context.Context) ([]domain.Task, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	return scanTask(r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id))
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO tasks(title, client_name, project_name, description, status, priority, category, stage, assignee, deadline, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		t.Title, nullable(t.ClientName), nullable(t.ProjectName), nullable(t.Description),
		t.Status, t.Priority, t.Category, t.Stage, nullable(t.Assignee), nullable(t.Deadline), t.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateTask overwrites every mutable field of a task. Updating a missing id
// is not an error; it reports zero rows affected.
func (r Repo) UpdateTask(ctx context.Context, tx *sql.Tx, t domain.Task) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE tasks SET title=?, client_name=?, project_name=?, description=?, status=?, priority=?, category=?, stage=?, assignee=?, deadline=? WHERE id=?`,
		t.Title, nullable(t.ClientName), nullable(t.ProjectName), nullable(t.Description),
		t.Status, t.Priority, t.Category, t.Stage, nullable(t.Assignee), nullable(t.Deadline), t.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r Repo) DeleteTask(ctx context.Context, tx *sql.Tx, id int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r Repo) CountTasksByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r Repo) ListCrew(ctx context.Context) ([]domain.CrewMember, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, name,
			COALESCE(role,'') AS role,
			COALESCE(photo,'') AS photo,
			COALESCE(phone,'') AS phone,
			COALESCE(address,'') AS address,
			COALESCE(join_date,'') AS join_date,
			COALESCE(performance,0) AS performance
		 FROM crew ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.CrewMember
	for rows.Next() {
		var c domain.CrewMember
		if err := rows.Scan(&c.ID, &c.Name, &c.Role, &c.Photo, &c.Phone, &c.Address, &c.JoinDate, &c.Performance); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) InsertCrew(ctx context.Context, c domain.CrewMember) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO crew(name, role, photo, phone, address, join_date, performance) VALUES (?,?,?,?,?,?,?)`,
		c.Name, nullable(c.Role), nullable(c.Photo), nullable(c.Phone), nullable(c.Address), nullable(c.JoinDate), c.Performance)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) DeleteCrew(ctx context.Context, id int64) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM crew WHERE id=?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FindCrewByName resolves a free-text name to a stored crew member by
// case-insensitive substring match. SQLite's LIKE is case-insensitive for
// ASCII, matching the lookup the email template relies on.
func (r Repo) FindCrewByName(ctx context.Context, name string) (domain.CrewMember, error) {
	var c domain.CrewMember
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(role,'') FROM crew WHERE name LIKE ? ORDER BY id ASC LIMIT 1`,
		"%"+name+"%").Scan(&c.ID, &c.Name, &c.Role)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

func (r Repo) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name FROM clients ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Client
	for rows.Next() {
		var c domain.Client
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// EnsureClient inserts a client by name, returning the id of the existing row
// on a name conflict. Idempotent under concurrent duplicate creation.
func (r Repo) EnsureClient(ctx context.Context, name string) (int64, error) {
	if _, err := r.DB.ExecContext(ctx, `INSERT INTO clients(name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
		return 0, err
	}
	var id int64
	err := r.DB.QueryRowContext(ctx, `SELECT id FROM clients WHERE name=?`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	return id, err
}

// GetSetting returns "" with no error for an absent key.
func (r Repo) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(value,'') FROM settings WHERE key=?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r Repo) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO settings(key, value) VALUES (?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	return err
}

func (r Repo) DeleteSetting(ctx context.Context, key string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM settings WHERE key=?`, key)
	return err
}

func (r Repo) LatestEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, ts, type, entity_kind, COALESCE(entity_id,''), payload_json FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (r Repo) EventsAfter(ctx context.Context, limit int, afterID int64) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, ts, type, entity_kind, COALESCE(entity_id,''), payload_json FROM events WHERE id > ? ORDER BY id ASC LIMIT ?`, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
