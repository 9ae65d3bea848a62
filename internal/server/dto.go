package server

import (
	"time"

	"kriya/internal/domain"
	"kriya/internal/engine"
)

// Request payloads

type TaskRequest struct {
	Title       string `json:"title"`
	ClientName  string `json:"clientName,omitempty"`
	ProjectName string `json:"projectName,omitempty"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty" enum:"To Do,In Progress,Review,Done"`
	Priority    string `json:"priority,omitempty" enum:"Low,Medium,High,Urgent"`
	Category    string `json:"category,omitempty" enum:"Produk,Interior,Motif,Drafter"`
	Stage       string `json:"stage,omitempty"`
	Assignee    string `json:"assignee,omitempty"`
	Deadline    string `json:"deadline,omitempty"`
}

type CreateCrewRequest struct {
	Name        string `json:"name"`
	Role        string `json:"role,omitempty"`
	Photo       string `json:"photo,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
	JoinDate    string `json:"joinDate,omitempty"`
	Performance int    `json:"performance,omitempty"`
}

type CreateClientRequest struct {
	Name string `json:"name"`
}

type WebhookEmailRequest struct {
	From    string `json:"from"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
}

type SpreadsheetRequest struct {
	SpreadsheetID string `json:"spreadsheetId"`
}

// Response payloads

type TaskResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	ClientName  string `json:"clientName"`
	ProjectName string `json:"projectName"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status" enum:"To Do,In Progress,Review,Done"`
	Priority    string `json:"priority" enum:"Low,Medium,High,Urgent"`
	Category    string `json:"category" enum:"Produk,Interior,Motif,Drafter"`
	Stage       string `json:"stage"`
	Assignee    string `json:"assignee,omitempty"`
	Deadline    string `json:"deadline,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

type CrewResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role,omitempty"`
	Photo       string `json:"photo,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
	JoinDate    string `json:"joinDate,omitempty"`
	Performance int    `json:"performance"`
	Tenure      string `json:"tenure" enum:"Senior,Junior,Pemula"`
}

type ClientResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type WebhookResponse struct {
	Success bool   `json:"success"`
	TaskID  int64  `json:"taskId,omitempty"`
	Message string `json:"message"`
}

type SpreadsheetResponse struct {
	SpreadsheetID string `json:"spreadsheetId"`
	Connected     bool   `json:"isConnected"`
	LastSync      string `json:"lastSync,omitempty"`
}

type AuthURLResponse struct {
	URL string `json:"url"`
}

type EventResponse struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entityKind"`
	EntityID   string `json:"entityId,omitempty"`
	Payload    string `json:"payload,omitempty"`
}

func taskResponse(t domain.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		ClientName:  t.ClientName,
		ProjectName: t.ProjectName,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		Category:    t.Category,
		Stage:       t.Stage,
		Assignee:    t.Assignee,
		Deadline:    t.Deadline,
		CreatedAt:   t.CreatedAt,
	}
}

func mapTasks(items []domain.Task) []TaskResponse {
	res := []TaskResponse{}
	for _, t := range items {
		res = append(res, taskResponse(t))
	}
	return res
}

func crewResponse(c domain.CrewMember, now time.Time) CrewResponse {
	return CrewResponse{
		ID:          c.ID,
		Name:        c.Name,
		Role:        c.Role,
		Photo:       c.Photo,
		Phone:       c.Phone,
		Address:     c.Address,
		JoinDate:    c.JoinDate,
		Performance: c.Performance,
		Tenure:      c.Tenure(now),
	}
}

func mapCrew(items []domain.CrewMember, now time.Time) []CrewResponse {
	res := []CrewResponse{}
	for _, c := range items {
		res = append(res, crewResponse(c, now))
	}
	return res
}

func mapClients(items []domain.Client) []ClientResponse {
	res := []ClientResponse{}
	for _, c := range items {
		res = append(res, ClientResponse{ID: c.ID, Name: c.Name})
	}
	return res
}

func mapEvents(items []domain.Event) []EventResponse {
	res := []EventResponse{}
	for _, ev := range items {
		res = append(res, EventResponse{
			ID:         ev.ID,
			TS:         ev.TS,
			Type:       ev.Type,
			EntityKind: ev.EntityKind,
			EntityID:   ev.EntityID,
			Payload:    ev.Payload,
		})
	}
	return res
}

func taskFields(r TaskRequest) engine.TaskFields {
	return engine.TaskFields{
		Title:       r.Title,
		ClientName:  r.ClientName,
		ProjectName: r.ProjectName,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		Category:    r.Category,
		Stage:       r.Stage,
		Assignee:    r.Assignee,
		Deadline:    r.Deadline,
	}
}
