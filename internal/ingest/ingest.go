// Package ingest turns inbound work-order emails into tasks. The upstream
// mail template is fixed, so extraction is one pattern per labeled field:
// case-insensitive label, rest-of-line capture, with Deskripsi capturing
// through the end of the text.
package ingest

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"kriya/internal/domain"
	"kriya/internal/engine"
	"kriya/internal/repo"
)

var (
	// ErrUnauthorizedSender rejects mail from anyone but the trusted sender.
	ErrUnauthorizedSender = errors.New("unauthorized sender")
	// ErrNotRecognized rejects mail without an SPK or SPD marker.
	ErrNotRecognized = errors.New("not an SPK/SPD email")
)

type Message struct {
	From    string `json:"from"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Fields is the structured result of scanning a message body.
type Fields struct {
	Kind         string // "SPK" or "SPD"
	Title        string
	ClientName   string
	ProjectName  string
	AssigneeName string // raw extracted name, unresolved
	Description  string
}

var (
	reKode      = regexp.MustCompile(`(?i)Kode:\s*(.*)`)
	reKlien     = regexp.MustCompile(`(?i)Klien:\s*(.*)`)
	reProyek    = regexp.MustCompile(`(?i)Proyek:\s*(.*)`)
	rePenanggun = regexp.MustCompile(`(?i)Penanggung Jawab:\s*(.*)`)
	reDeskripsi = regexp.MustCompile(`(?is)Deskripsi:\s*(.*)`)
)

func extract(re *regexp.Regexp, body string) string {
	m := re.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// Classify reports the work-order kind of a message, or ErrNotRecognized.
// SPK wins when both markers appear, matching the upstream template.
func Classify(subject, body string) (string, error) {
	upper := strings.ToUpper(subject) + "\n" + strings.ToUpper(body)
	if strings.Contains(upper, "SPK") {
		return "SPK", nil
	}
	if strings.Contains(upper, "SPD") {
		return "SPD", nil
	}
	return "", ErrNotRecognized
}

// Extract scans the body for labeled fields. Unmatched fields fall back to
// placeholders; nothing in extraction is fatal.
func Extract(kind, body string) Fields {
	f := Fields{
		Kind:         kind,
		Title:        extract(reKode, body),
		ClientName:   extract(reKlien, body),
		ProjectName:  extract(reProyek, body),
		AssigneeName: extract(rePenanggun, body),
		Description:  extract(reDeskripsi, body),
	}
	if f.Title == "" {
		f.Title = kind + "-NEW"
	}
	if f.ClientName == "" {
		f.ClientName = "Unknown Client"
	}
	if f.ProjectName == "" {
		f.ProjectName = "New Project"
	}
	if f.Description == "" {
		f.Description = body
	}
	return f
}

// Service validates, parses and lands inbound messages as tasks.
type Service struct {
	Engine        *engine.Engine
	TrustedSender string
}

// Process handles one inbound message. Authorization and classification
// failures are terminal and leave no side effects; from there on the service
// extracts what it can. The created task always lands in Inbox with High
// priority, regardless of message content.
func (s Service) Process(ctx context.Context, msg Message) (domain.Task, error) {
	if msg.From != s.TrustedSender {
		return domain.Task{}, ErrUnauthorizedSender
	}
	kind, err := Classify(msg.Subject, msg.Body)
	if err != nil {
		return domain.Task{}, err
	}
	fields := Extract(kind, msg.Body)

	// The assignee must be an existing crew member's exact stored name;
	// ingestion never invents crew.
	assignee := ""
	if fields.AssigneeName != "" {
		member, err := s.Engine.Repo.FindCrewByName(ctx, fields.AssigneeName)
		if err == nil {
			assignee = member.Name
		} else if !errors.Is(err, repo.ErrNotFound) {
			return domain.Task{}, err
		}
	}

	if _, err := s.Engine.EnsureClient(ctx, fields.ClientName); err != nil {
		return domain.Task{}, err
	}

	return s.Engine.CreateTask(ctx, engine.TaskFields{
		Title:       fields.Title,
		ClientName:  fields.ClientName,
		ProjectName: fields.ProjectName,
		Description: fields.Description,
		Status:      domain.StatusToDo,
		Priority:    domain.PriorityHigh,
		Category:    domain.CategoryProduk,
		Stage:       domain.StageInbox,
		Assignee:    assignee,
	})
}
