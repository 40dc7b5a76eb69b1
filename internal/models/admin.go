package models

import "time"

type DashboardStats struct {
	TotalUsers      int64 `json:"totalUsers"`
	TotalEvents     int64 `json:"totalEvents"`
	PendingEvents   int64 `json:"pendingEvents"`
	TotalReports    int64 `json:"totalReports"`
	PendingReports  int64 `json:"pendingReports"`
	BlockedUsers    int64 `json:"blockedUsers"`
	EventsThisMonth int64 `json:"eventsThisMonth"`
	UsersThisMonth  int64 `json:"usersThisMonth"`
}

type ReportedEventSummary struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	ReportCount int         `json:"reportCount"`
	Creator     *PublicUser `json:"creator,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

type DashboardCharts struct {
	EventsByCategory   []CategoryCount        `json:"eventsByCategory"`
	MostReportedEvents []ReportedEventSummary `json:"mostReportedEvents"`
}

type Dashboard struct {
	Stats  DashboardStats  `json:"stats"`
	Charts DashboardCharts `json:"charts"`
}

// QuickStats is the lightweight counter set polled by the admin header.
type QuickStats struct {
	TotalUsers    int64 `json:"totalUsers"`
	TotalEvents   int64 `json:"totalEvents"`
	PendingEvents int64 `json:"pendingEvents"`
}

type UserList struct {
	Users      []*User    `json:"users"`
	Pagination Pagination `json:"pagination"`
}
