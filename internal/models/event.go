package models

import (
	"strings"
	"time"
)

var EventCategories = []string{
	"conferenza", "workshop", "concerto", "sport", "networking", "festa",
	"formazione", "charity", "arte", "tecnologia", "business", "altro",
}

func ValidCategory(c string) bool {
	for _, known := range EventCategories {
		if c == known {
			return true
		}
	}
	return false
}

type Location struct {
	Address string `json:"address" bson:"address"`
	City    string `json:"city" bson:"city"`
	Country string `json:"country" bson:"country"`
}

type EventDates struct {
	Start time.Time `json:"start" bson:"start"`
	End   time.Time `json:"end" bson:"end"`
}

type Price struct {
	Amount   float64 `json:"amount" bson:"amount"`
	Currency string  `json:"currency" bson:"currency"`
	IsFree   bool    `json:"isFree" bson:"is_free"`
}

type EventSettings struct {
	AllowChat               bool `json:"allowChat" bson:"allow_chat"`
	AutoApproveParticipants bool `json:"autoApproveParticipants" bson:"auto_approve_participants"`
	IsPrivate               bool `json:"isPrivate" bson:"is_private"`
}

func DefaultEventSettings() EventSettings {
	return EventSettings{AllowChat: true, AutoApproveParticipants: true}
}

type Moderation struct {
	ReviewedBy string     `json:"reviewedBy,omitempty" bson:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewedAt,omitempty" bson:"reviewed_at,omitempty"`
	Reason     string     `json:"reason,omitempty" bson:"reason,omitempty"`
}

type Participant struct {
	User     string            `json:"user" bson:"user_id"`
	JoinedAt time.Time         `json:"joinedAt" bson:"joined_at"`
	Status   ParticipantStatus `json:"status" bson:"status"`
}

// EmbeddedReport is the per-event copy of a report kept for duplicate checks.
type EmbeddedReport struct {
	User        string    `json:"user" bson:"user_id"`
	Reason      string    `json:"reason" bson:"reason"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	ReportedAt  time.Time `json:"reportedAt" bson:"reported_at"`
}

type Event struct {
	ID           string           `json:"id" bson:"_id"`
	Slug         string           `json:"slug" bson:"slug"`
	Title        string           `json:"title" bson:"title"`
	Description  string           `json:"description" bson:"description"`
	Category     string           `json:"category" bson:"category"`
	Location     Location         `json:"location" bson:"location"`
	Date         EventDates       `json:"date" bson:"date"`
	Capacity     int              `json:"capacity" bson:"capacity"`
	Price        Price            `json:"price" bson:"price"`
	Image        string           `json:"image,omitempty" bson:"image,omitempty"`
	Tags         []string         `json:"tags" bson:"tags"`
	CreatedBy    string           `json:"createdBy" bson:"created_by"`
	Status       EventStatus      `json:"status" bson:"status"`
	Moderation   Moderation       `json:"moderation" bson:"moderation"`
	Participants []Participant    `json:"participants" bson:"participants"`
	Reports      []EmbeddedReport `json:"-" bson:"reports"`
	ReportCount  int              `json:"reportCount" bson:"report_count"`
	ViewCount    int              `json:"viewCount" bson:"view_count"`
	Settings     EventSettings    `json:"settings" bson:"settings"`
	CreatedAt    time.Time        `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time        `json:"updatedAt" bson:"updated_at"`
}

func (e *Event) ActiveParticipantsCount() int {
	n := 0
	for _, p := range e.Participants {
		if p.Status == ParticipantConfirmed {
			n++
		}
	}
	return n
}

func (e *Event) Participant(userID string) (Participant, bool) {
	for _, p := range e.Participants {
		if p.User == userID {
			return p, true
		}
	}
	return Participant{}, false
}

func (e *Event) IsConfirmedParticipant(userID string) bool {
	p, ok := e.Participant(userID)
	return ok && p.Status == ParticipantConfirmed
}

func (e *Event) HasReportFrom(userID string) bool {
	for _, r := range e.Reports {
		if r.User == userID {
			return true
		}
	}
	return false
}

func (e *Event) ConfirmedParticipantIDs() []string {
	ids := make([]string, 0, len(e.Participants))
	for _, p := range e.Participants {
		if p.Status == ParticipantConfirmed {
			ids = append(ids, p.User)
		}
	}
	return ids
}

// EventView is the enriched single-event response.
type EventView struct {
	*Event
	Creator                 *PublicUser `json:"creator,omitempty"`
	ActiveParticipantsCount int         `json:"activeParticipantsCount"`
	IsUserParticipant       bool        `json:"isUserParticipant"`
	IsUserCreator           bool        `json:"isUserCreator"`
	CanUserReport           bool        `json:"canUserReport"`
}

// EventUpdate carries the optional fields a store applies to an event document.
type EventUpdate struct {
	Title       *string
	Slug        *string
	Description *string
	Category    *string
	Location    *Location
	Date        *EventDates
	Capacity    *int
	Price       *Price
	Image       *string
	Tags        []string
	Settings    *EventSettings
}

type EventFilter struct {
	Status    EventStatus
	Category  string
	City      string
	Search    string
	From      *time.Time
	To        *time.Time
	CreatedBy string

	CreatedSince *time.Time

	// Participant matches events where the user holds a confirmed roster entry.
	Participant string

	// NewestFirst sorts by creation time instead of start date.
	NewestFirst bool
}

type EventRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Location    Location       `json:"location"`
	Date        EventDates     `json:"date"`
	Capacity    int            `json:"capacity"`
	Price       *Price         `json:"price"`
	Image       string         `json:"image"`
	Tags        []string       `json:"tags"`
	Settings    *EventSettings `json:"settings"`
}

func (r *EventRequest) Validate() map[string]string {
	return r.validateAt(time.Now())
}

func (r *EventRequest) validateAt(now time.Time) map[string]string {
	errors := make(map[string]string)

	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Location.Address = strings.TrimSpace(r.Location.Address)
	r.Location.City = strings.TrimSpace(r.Location.City)
	if r.Location.Country == "" {
		r.Location.Country = "Italia"
	}

	if n := len([]rune(r.Title)); n < 3 || n > 100 {
		errors["title"] = "Title must be between 3 and 100 characters"
	}
	if n := len([]rune(r.Description)); n < 10 || n > 2000 {
		errors["description"] = "Description must be between 10 and 2000 characters"
	}
	if !ValidCategory(r.Category) {
		errors["category"] = "Category is not valid"
	}
	if n := len([]rune(r.Location.Address)); n < 5 || n > 200 {
		errors["location.address"] = "Address must be between 5 and 200 characters"
	}
	if n := len([]rune(r.Location.City)); n < 2 || n > 50 {
		errors["location.city"] = "City must be between 2 and 50 characters"
	}
	if r.Date.Start.IsZero() {
		errors["date.start"] = "Start date is required"
	} else if !r.Date.Start.After(now) {
		errors["date.start"] = "Start date must be in the future"
	}
	if r.Date.End.IsZero() {
		r.Date.End = r.Date.Start.Add(2 * time.Hour)
	} else if !r.Date.End.After(r.Date.Start) {
		errors["date.end"] = "End date must be after start date"
	}
	if r.Capacity < 1 || r.Capacity > 10000 {
		errors["capacity"] = "Capacity must be between 1 and 10000"
	}
	if r.Price != nil {
		if r.Price.Amount < 0 {
			errors["price.amount"] = "Price cannot be negative"
		}
		if r.Price.Currency == "" {
			r.Price.Currency = "EUR"
		}
		r.Price.IsFree = r.Price.Amount == 0
	}
	if len(r.Tags) > 10 {
		errors["tags"] = "At most 10 tags are allowed"
	}
	for i, t := range r.Tags {
		r.Tags[i] = strings.ToLower(strings.TrimSpace(t))
	}

	return errors
}

func (r *EventRequest) PriceOrFree() Price {
	if r.Price == nil {
		return Price{Currency: "EUR", IsFree: true}
	}
	return *r.Price
}

type RejectEventRequest struct {
	Reason string `json:"reason"`
}

func (r *RejectEventRequest) Validate() map[string]string {
	errors := make(map[string]string)
	r.Reason = strings.TrimSpace(r.Reason)
	if n := len([]rune(r.Reason)); n < 10 || n > 500 {
		errors["reason"] = "Reason must be between 10 and 500 characters"
	}
	return errors
}

type ChatSettingsRequest struct {
	AllowChat *bool `json:"allowChat"`
}

func (r *ChatSettingsRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.AllowChat == nil {
		errors["allowChat"] = "allowChat must be a boolean"
	}
	return errors
}

type CategoryCount struct {
	Category string `json:"category" bson:"_id"`
	Count    int    `json:"count" bson:"count"`
}

type EventPagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalEvents int64 `json:"totalEvents"`
	HasNext     bool  `json:"hasNext"`
	HasPrev     bool  `json:"hasPrev"`
}

func NewEventPagination(p Page, total int64) EventPagination {
	pg := NewPagination(p, total)
	return EventPagination{
		CurrentPage: pg.CurrentPage,
		TotalPages:  pg.TotalPages,
		TotalEvents: total,
		HasNext:     pg.HasNext,
		HasPrev:     pg.HasPrev,
	}
}

type EventList struct {
	Events     []*EventView    `json:"events"`
	Pagination EventPagination `json:"pagination"`
}

type PublicStats struct {
	TotalEvents int64 `json:"totalEvents"`
	TotalUsers  int64 `json:"totalUsers"`
	TotalCities int   `json:"totalCities"`
}
