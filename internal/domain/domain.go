package domain

import "time"

// Task statuses.
const (
	StatusToDo       = "To Do"
	StatusInProgress = "In Progress"
	StatusReview     = "Review"
	StatusDone       = "Done"
)

// Task priorities.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
	PriorityUrgent = "Urgent"
)

// Task categories. Each category has its own stage pipeline, configured and
// advisory only at the storage layer.
const (
	CategoryProduk   = "Produk"
	CategoryInterior = "Interior"
	CategoryMotif    = "Motif"
	CategoryDrafter  = "Drafter"
)

// StageInbox is where every new task lands.
const StageInbox = "Inbox"

type Task struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	ClientName  string `json:"clientName"`
	ProjectName string `json:"projectName"`
	Description string `json:"description"`
	Status      string `json:"status" enum:"To Do,In Progress,Review,Done"`
	Priority    string `json:"priority" enum:"Low,Medium,High,Urgent"`
	Category    string `json:"category" enum:"Produk,Interior,Motif,Drafter"`
	Stage       string `json:"stage"`
	Assignee    string `json:"assignee"`
	Deadline    string `json:"deadline,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

// Crew tenure categories derived from join date.
const (
	TenureSenior = "Senior"
	TenureJunior = "Junior"
	TenurePemula = "Pemula"
)

type CrewMember struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Photo       string `json:"photo,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
	JoinDate    string `json:"joinDate,omitempty"`
	Performance int    `json:"performance"`
}

// Tenure classifies a crew member by time since join date: Senior after five
// years, Pemula under one, Junior in between. Empty or malformed join dates
// classify as Pemula.
func (c CrewMember) Tenure(now time.Time) string {
	joined, err := time.Parse("2006-01-02", c.JoinDate)
	if err != nil {
		return TenurePemula
	}
	years := now.Sub(joined).Hours() / (24 * 365)
	switch {
	case years >= 5:
		return TenureSenior
	case years >= 1:
		return TenureJunior
	default:
		return TenurePemula
	}
}

type Client struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Well-known settings keys.
const (
	SettingSpreadsheetID = "spreadsheet_id"
	SettingGoogleTokens  = "google_tokens"
	SettingLastSync      = "last_sync"
)

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json"`
}
