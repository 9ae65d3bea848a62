package ingest

import (
	"context"
	"errors"
	"testing"

	"kriya/internal/config"
	"kriya/internal/db"
	"kriya/internal/domain"
	"kriya/internal/engine"
	"kriya/internal/migrate"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name    string
		subject string
		body    string
		want    string
		wantErr bool
	}{
		{name: "spk in subject", subject: "SPK Baru", body: "isi", want: "SPK"},
		{name: "spd in body", subject: "penting", body: "ini spd untuk minggu depan", want: "SPD"},
		{name: "lowercase spk", subject: "spk kilat", body: "", want: "SPK"},
		{name: "spk wins over spd", subject: "SPK", body: "juga SPD", want: "SPK"},
		{name: "neither", subject: "undangan", body: "rapat besok", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Classify(tc.subject, tc.body)
			if tc.wantErr {
				if !errors.Is(err, ErrNotRecognized) {
					t.Fatalf("expected ErrNotRecognized, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("classify: %v", err)
			}
			if got != tc.want {
				t.Fatalf("kind = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	body := "Kode: SPK-2024-088\nKlien: Kriya Nusantara\nProyek: Souvenir Eksklusif G20\nPenanggung Jawab: Ahmad\nDeskripsi: Segera buatkan desain.\nDetail menyusul."
	f := Extract("SPK", body)
	if f.Title != "SPK-2024-088" {
		t.Errorf("title = %q", f.Title)
	}
	if f.ClientName != "Kriya Nusantara" {
		t.Errorf("client = %q", f.ClientName)
	}
	if f.ProjectName != "Souvenir Eksklusif G20" {
		t.Errorf("project = %q", f.ProjectName)
	}
	if f.AssigneeName != "Ahmad" {
		t.Errorf("assignee = %q", f.AssigneeName)
	}
	if f.Description != "Segera buatkan desain.\nDetail menyusul." {
		t.Errorf("description = %q", f.Description)
	}
}

func TestExtractFallbacks(t *testing.T) {
	body := "tidak ada label sama sekali"
	f := Extract("SPD", body)
	if f.Title != "SPD-NEW" {
		t.Errorf("title = %q", f.Title)
	}
	if f.ClientName != "Unknown Client" {
		t.Errorf("client = %q", f.ClientName)
	}
	if f.ProjectName != "New Project" {
		t.Errorf("project = %q", f.ProjectName)
	}
	if f.Description != body {
		t.Errorf("description = %q, want full body", f.Description)
	}
	if f.AssigneeName != "" {
		t.Errorf("assignee = %q, want empty", f.AssigneeName)
	}
}

func TestExtractLabelsAreLineScoped(t *testing.T) {
	body := "Kode: SPK-7\nKlien: A\nCatatan lain"
	f := Extract("SPK", body)
	if f.Title != "SPK-7" {
		t.Errorf("title = %q, capture must stop at line end", f.Title)
	}
	if f.ClientName != "A" {
		t.Errorf("client = %q", f.ClientName)
	}
}

func newTestService(t *testing.T) Service {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(workspace)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default()
	return Service{
		Engine:        engine.New(conn, cfg),
		TrustedSender: cfg.Ingest.TrustedSender,
	}
}

func TestProcessRejectsUntrustedSender(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Process(context.Background(), Message{
		From: "spoofer@example.com",
		Body: "Kode: SPK-1",
	})
	if !errors.Is(err, ErrUnauthorizedSender) {
		t.Fatalf("expected ErrUnauthorizedSender, got %v", err)
	}
	tasks, err := svc.Engine.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("rejected mail must leave no tasks, got %d", len(tasks))
	}
}

func TestProcessResolvesAssigneeByPartialName(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Engine.CreateCrew(ctx, domain.CrewMember{Name: "Ahmad Fauzi", Role: "Designer"}); err != nil {
		t.Fatalf("create crew: %v", err)
	}

	task, err := svc.Process(ctx, Message{
		From:    svc.TrustedSender,
		Subject: "SPK",
		Body:    "Kode: SPK-9\nKlien: B\nPenanggung Jawab: Ahmad",
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if task.Assignee != "Ahmad Fauzi" {
		t.Fatalf("assignee = %q, want stored crew name", task.Assignee)
	}
	if task.Priority != domain.PriorityHigh || task.Stage != domain.StageInbox {
		t.Fatalf("unexpected task: %+v", task)
	}
}

func TestProcessUnknownAssigneeLeftBlank(t *testing.T) {
	svc := newTestService(t)
	task, err := svc.Process(context.Background(), Message{
		From:    svc.TrustedSender,
		Subject: "SPD",
		Body:    "Kode: SPD-3\nPenanggung Jawab: Nobody",
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if task.Assignee != "" {
		t.Fatalf("assignee = %q, want blank for unknown crew", task.Assignee)
	}
}
