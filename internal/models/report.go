package models

import (
	"strings"
	"time"
)

var ReportReasons = []string{
	"contenuto-inappropriato", "spam", "informazioni-false", "evento-cancellato",
	"violazione-termini", "contenuto-offensivo", "truffa", "altro",
}

type ReportAction string

const (
	ReportActionNone          ReportAction = "none"
	ReportActionWarningSent   ReportAction = "warning_sent"
	ReportActionEventRemoved  ReportAction = "event_removed"
	ReportActionUserWarned    ReportAction = "user_warned"
	ReportActionUserSuspended ReportAction = "user_suspended"
	ReportActionEventEdited   ReportAction = "event_edited"
)

func (a ReportAction) Valid() bool {
	switch a {
	case ReportActionNone, ReportActionWarningSent, ReportActionEventRemoved,
		ReportActionUserWarned, ReportActionUserSuspended, ReportActionEventEdited:
		return true
	}
	return false
}

type EventReport struct {
	ID          string       `json:"id" bson:"_id"`
	Event       string       `json:"event" bson:"event_id"`
	ReportedBy  string       `json:"reportedBy" bson:"reported_by"`
	Reason      string       `json:"reason" bson:"reason"`
	Description string       `json:"description,omitempty" bson:"description,omitempty"`
	Status      ReportStatus `json:"status" bson:"status"`
	ReviewedBy  string       `json:"reviewedBy,omitempty" bson:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time   `json:"reviewedAt,omitempty" bson:"reviewed_at,omitempty"`
	AdminNotes  string       `json:"adminNotes,omitempty" bson:"admin_notes,omitempty"`
	ActionTaken ReportAction `json:"actionTaken" bson:"action_taken"`
	CreatedAt   time.Time    `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time    `json:"updatedAt" bson:"updated_at"`
}

type ReportFilter struct {
	// Status empty means every status.
	Status  ReportStatus
	EventID string
}

type ReportRequest struct {
	Reason      string `json:"reason"`
	Description string `json:"description"`
}

func validReason(r string) bool {
	for _, known := range ReportReasons {
		if r == known {
			return true
		}
	}
	return false
}

func (r *ReportRequest) Validate() map[string]string {
	errors := make(map[string]string)
	r.Description = strings.TrimSpace(r.Description)
	if !validReason(r.Reason) {
		errors["reason"] = "Report reason is not valid"
	}
	if len([]rune(r.Description)) > 1000 {
		errors["description"] = "Description cannot exceed 1000 characters"
	}
	return errors
}

type ReviewReportRequest struct {
	Status      ReportStatus `json:"status"`
	AdminNotes  string       `json:"adminNotes"`
	ActionTaken ReportAction `json:"actionTaken"`
}

func (r *ReviewReportRequest) Validate() map[string]string {
	errors := make(map[string]string)
	r.AdminNotes = strings.TrimSpace(r.AdminNotes)
	switch r.Status {
	case ReportReviewed, ReportResolved, ReportDismissed:
	default:
		errors["status"] = "Status must be reviewed, resolved or dismissed"
	}
	if len([]rune(r.AdminNotes)) > 500 {
		errors["adminNotes"] = "Admin notes cannot exceed 500 characters"
	}
	if r.ActionTaken == "" {
		r.ActionTaken = ReportActionNone
	}
	if !r.ActionTaken.Valid() {
		errors["actionTaken"] = "Action is not valid"
	}
	return errors
}

// ReportEventInfo is the slice of the reported event shown to reviewers.
type ReportEventInfo struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Status      EventStatus `json:"status"`
	CreatedBy   string      `json:"createdBy"`
	ReportCount int         `json:"reportCount"`
}

type ReportView struct {
	*EventReport
	EventInfo *ReportEventInfo `json:"eventInfo,omitempty"`
	Reporter  *PublicUser      `json:"reporter,omitempty"`
}

type ReportList struct {
	Reports    []*ReportView `json:"reports"`
	Pagination Pagination    `json:"pagination"`
}
