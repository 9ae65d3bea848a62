package sheets

import (
	"context"
	"strings"
	"testing"

	"golang.org/x/oauth2"
	sheetsapi "google.golang.org/api/sheets/v4"

	"kriya/internal/config"
	"kriya/internal/db"
	"kriya/internal/domain"
	"kriya/internal/migrate"
	"kriya/internal/repo"
)

func newTestMirror(t *testing.T) *Mirror {
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
	return New(repo.Repo{DB: conn}, config.Default())
}

func TestSyncNoOpWithoutToken(t *testing.T) {
	m := newTestMirror(t)
	m.newService = func(ctx context.Context, ts oauth2.TokenSource) (*sheetsapi.Service, error) {
		t.Fatal("no outbound call expected without stored credentials")
		return nil, nil
	}
	if err := m.Repo.SetSetting(context.Background(), domain.SettingSpreadsheetID, "sheet-1"); err != nil {
		t.Fatalf("set setting: %v", err)
	}
	if err := m.Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	lastSync, err := m.Repo.GetSetting(context.Background(), domain.SettingLastSync)
	if err != nil {
		t.Fatalf("get last sync: %v", err)
	}
	if lastSync != "" {
		t.Fatalf("last_sync = %q, want untouched", lastSync)
	}
}

func TestSyncNoOpWithoutSpreadsheet(t *testing.T) {
	m := newTestMirror(t)
	m.newService = func(ctx context.Context, ts oauth2.TokenSource) (*sheetsapi.Service, error) {
		t.Fatal("no outbound call expected without a spreadsheet id")
		return nil, nil
	}
	if err := m.SaveToken(context.Background(), &oauth2.Token{AccessToken: "tok"}); err != nil {
		t.Fatalf("save token: %v", err)
	}
	if err := m.Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	m := newTestMirror(t)
	ctx := context.Background()

	tok, err := m.Token(ctx)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if tok != nil {
		t.Fatalf("expected nil token before connect")
	}

	saved := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"}
	if err := m.SaveToken(ctx, saved); err != nil {
		t.Fatalf("save: %v", err)
	}
	tok, err = m.Token(ctx)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if tok == nil || tok.AccessToken != "access" || tok.RefreshToken != "refresh" {
		t.Fatalf("unexpected token: %+v", tok)
	}
}

func TestAuthURLRequestsOfflineConsent(t *testing.T) {
	m := newTestMirror(t)
	url := m.AuthURL("state-1")
	if !strings.Contains(url, "access_type=offline") {
		t.Errorf("url missing offline access: %s", url)
	}
	if !strings.Contains(url, "prompt=consent") {
		t.Errorf("url missing consent prompt: %s", url)
	}
	if !strings.Contains(url, "state=state-1") {
		t.Errorf("url missing state: %s", url)
	}
	if !strings.Contains(url, "spreadsheets") {
		t.Errorf("url missing sheets scope: %s", url)
	}
}
