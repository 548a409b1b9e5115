package models

import "time"

// CreateMeetingRequest is the request body for creating a meeting
type CreateMeetingRequest struct {
	CreatedBy string `json:"created_by"`
	Name      string `json:"name,omitempty"`
	Link      string `json:"link,omitempty"`
}

// SubmitUpdateRequest is the request body for submitting a status update
type SubmitUpdateRequest struct {
	User     string `json:"user"`
	Progress string `json:"progress"`
	Blockers string `json:"blockers"`
	Goals    string `json:"goals"`
}

// CloseMeetingRequest is the request body for closing a meeting
type CloseMeetingRequest struct {
	ClosedBy string `json:"closed_by"`
}

// MeetingResponse is the meeting representation returned to callers
type MeetingResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name,omitempty"`
	Link        string     `json:"link,omitempty"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdateCount int        `json:"update_count"`
	Updates     []Update   `json:"updates"`
	IsClosed    bool       `json:"is_closed"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
}

// ToResponse converts a Meeting to its API representation
func (m *Meeting) ToResponse() *MeetingResponse {
	return &MeetingResponse{
		ID:          m.ID,
		Name:        m.Name,
		Link:        m.Link,
		CreatedBy:   m.CreatedBy,
		CreatedAt:   m.CreatedAt,
		UpdateCount: len(m.Updates),
		Updates:     m.Updates,
		IsClosed:    m.IsClosed,
		ClosedAt:    m.ClosedAt,
	}
}

// ListMeetingsResponse is the response for listing meetings
type ListMeetingsResponse struct {
	Meetings []string `json:"meetings"`
	Total    int      `json:"total"`
}

// ErrorResponse is the uniform error payload for API failures
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Rule  string `json:"rule,omitempty"`
}
