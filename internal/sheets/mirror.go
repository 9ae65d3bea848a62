// Package sheets mirrors the task table to one Google Sheets document. The
// mirror is best-effort: it runs after task mutations, no-ops without stored
// credentials or a configured spreadsheet, and never fails the mutation that
// triggered it.
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	sheetsapi "google.golang.org/api/sheets/v4"
	"google.golang.org/api/option"

	"kriya/internal/config"
	"kriya/internal/domain"
	"kriya/internal/repo"
)

// header row of the mirrored sheet, fixed column order.
var header = []any{
	"ID", "Kode SPK/SPD", "Klien", "Proyek", "Deskripsi", "Status",
	"Prioritas", "Kategori", "Stage", "Penanggung Jawab", "Deadline", "Dibuat Pada",
}

type Mirror struct {
	Repo  repo.Repo
	OAuth *oauth2.Config
	Now   func() time.Time

	// Notify is called with ("sync_status", {lastSync}) after a successful
	// sync. Optional.
	Notify func(event string, payload any)

	// newService builds the Sheets client; tests swap it to observe or block
	// outbound calls.
	newService func(ctx context.Context, ts oauth2.TokenSource) (*sheetsapi.Service, error)
}

func New(r repo.Repo, cfg *config.Config) *Mirror {
	return &Mirror{
		Repo:  r,
		OAuth: OAuthConfig(cfg),
		Now:   time.Now,
	}
}

// OAuthConfig builds the oauth2 client config for the Sheets scope.
func OAuthConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
		Scopes:       []string{sheetsapi.SpreadsheetsScope},
		Endpoint:     google.Endpoint,
	}
}

func (m *Mirror) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *Mirror) service(ctx context.Context, ts oauth2.TokenSource) (*sheetsapi.Service, error) {
	if m.newService != nil {
		return m.newService(ctx, ts)
	}
	return sheetsapi.NewService(ctx, option.WithTokenSource(ts))
}

// Token returns the stored OAuth token, or nil when not connected.
func (m *Mirror) Token(ctx context.Context) (*oauth2.Token, error) {
	raw, err := m.Repo.GetSetting(ctx, domain.SettingGoogleTokens)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var tok oauth2.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil, fmt.Errorf("decode stored token: %w", err)
	}
	return &tok, nil
}

// SaveToken persists an OAuth token into settings.
func (m *Mirror) SaveToken(ctx context.Context, tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return m.Repo.SetSetting(ctx, domain.SettingGoogleTokens, string(data))
}

// AuthURL returns the consent URL for the Sheets scope. AccessTypeOffline
// makes Google return a refresh token.
func (m *Mirror) AuthURL(state string) string {
	return m.OAuth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades an authorization code for a token and stores it.
func (m *Mirror) Exchange(ctx context.Context, code string) error {
	tok, err := m.OAuth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange code: %w", err)
	}
	return m.SaveToken(ctx, tok)
}

// Sync exports the full task list to the first sheet of the configured
// spreadsheet as a header row plus one row per task, overwriting from A1.
// Without stored credentials or a spreadsheet id it returns nil without any
// outbound call. A failed sync leaves last_sync untouched; the next task
// mutation retries naturally.
func (m *Mirror) Sync(ctx context.Context) error {
	tok, err := m.Token(ctx)
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	spreadsheetID, err := m.Repo.GetSetting(ctx, domain.SettingSpreadsheetID)
	if err != nil {
		return err
	}
	if spreadsheetID == "" {
		return nil
	}

	ts := m.OAuth.TokenSource(ctx, tok)
	srv, err := m.service(ctx, ts)
	if err != nil {
		return fmt.Errorf("sheets client: %w", err)
	}

	meta, err := srv.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	sheetName := "Sheet1"
	if len(meta.Sheets) > 0 && meta.Sheets[0].Properties != nil && meta.Sheets[0].Properties.Title != "" {
		sheetName = meta.Sheets[0].Properties.Title
	}

	tasks, err := m.Repo.ListTasks(ctx)
	if err != nil {
		return err
	}
	values := [][]any{header}
	for _, t := range tasks {
		values = append(values, []any{
			t.ID, t.Title, t.ClientName, t.ProjectName, t.Description,
			t.Status, t.Priority, t.Category, t.Stage, t.Assignee, t.Deadline, t.CreatedAt,
		})
	}
	_, err = srv.Spreadsheets.Values.
		Update(spreadsheetID, sheetName+"!A1", &sheetsapi.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update values: %w", err)
	}

	m.persistRefreshedToken(ctx, ts, tok)

	lastSync := m.now().UTC().Format(time.RFC3339)
	if err := m.Repo.SetSetting(ctx, domain.SettingLastSync, lastSync); err != nil {
		return err
	}
	if m.Notify != nil {
		m.Notify("sync_status", map[string]string{"lastSync": lastSync})
	}
	return nil
}

// persistRefreshedToken re-saves the token when the source refreshed it, so
// the stored refresh credentials stay current.
func (m *Mirror) persistRefreshedToken(ctx context.Context, ts oauth2.TokenSource, old *oauth2.Token) {
	cur, err := ts.Token()
	if err != nil {
		return
	}
	if cur.AccessToken != old.AccessToken || cur.RefreshToken != old.RefreshToken {
		if err := m.SaveToken(ctx, cur); err != nil {
			log.Printf("sheets: save refreshed token: %v", err)
		}
	}
}
