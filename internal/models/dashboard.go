package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DashboardStats is the per-user snapshot refreshed on every summary read.
// It is never read back as a source of truth.
type DashboardStats struct {
	UserID           primitive.ObjectID `bson:"userId" json:"userId"`
	TotalLeads       int64              `bson:"totalLeads" json:"totalLeads"`
	ActiveLeads      int64              `bson:"activeLeads" json:"activeLeads"`
	WonLeads         int64              `bson:"wonLeads" json:"wonLeads"`
	TotalContacts    int64              `bson:"totalContacts" json:"totalContacts"`
	PendingTasks     int64              `bson:"pendingTasks" json:"pendingTasks"`
	OverdueTasks     int64              `bson:"overdueTasks" json:"overdueTasks"`
	ConversionRate   string             `bson:"conversionRate" json:"conversionRate"`
	LeadByStatus     map[string]int64   `bson:"leadByStatus" json:"leadByStatus"`
	LeadBySource     map[string]int64   `bson:"leadBySource" json:"leadBySource"`
	RecentActivities []Activity         `bson:"recentActivities" json:"recentActivities"`
	LastUpdated      time.Time          `bson:"lastUpdated" json:"lastUpdated"`
}

type LeadDayPoint struct {
	Date  string  `bson:"_id" json:"date"`
	Total int64   `bson:"total" json:"total"`
	Won   int64   `bson:"won" json:"won"`
	Value float64 `bson:"value" json:"value"`
}

type TaskDayPoint struct {
	Date      string `bson:"_id" json:"date"`
	Total     int64  `bson:"total" json:"total"`
	Completed int64  `bson:"completed" json:"completed"`
}

type MetricsSummary struct {
	TotalLeads     int64   `json:"totalLeads"`
	WonLeads       int64   `json:"wonLeads"`
	TotalValue     float64 `json:"totalValue"`
	TotalTasks     int64   `json:"totalTasks"`
	CompletedTasks int64   `json:"completedTasks"`
	ConversionRate string  `json:"conversionRate"`
	CompletionRate string  `json:"completionRate"`
}

type DashboardMetrics struct {
	Period    string         `json:"period"`
	StartDate time.Time      `json:"startDate"`
	EndDate   time.Time      `json:"endDate"`
	Leads     []LeadDayPoint `json:"leadMetrics"`
	Tasks     []TaskDayPoint `json:"taskMetrics"`
	Summary   MetricsSummary `json:"summary"`
}

type RecentItems struct {
	Leads      []Lead     `json:"recentLeads"`
	Tasks      []Task     `json:"recentTasks"`
	Contacts   []Contact  `json:"recentContacts"`
	Activities []Activity `json:"recentActivities"`
}

type TimelineDay struct {
	Date       string     `json:"date"`
	Activities []Activity `json:"activities"`
}

type SearchResults struct {
	Leads      []Lead    `json:"leads"`
	Tasks      []Task    `json:"tasks"`
	Contacts   []Contact `json:"contacts"`
	TotalCount int       `json:"totalResults"`
}

type QuickStats struct {
	TotalLeads         int64  `json:"totalLeads"`
	ActiveLeads        int64  `json:"activeLeads"`
	WonLeads           int64  `json:"wonLeads"`
	TotalContacts      int64  `json:"totalContacts"`
	TotalTasks         int64  `json:"totalTasks"`
	CompletedTasks     int64  `json:"completedTasks"`
	PendingTasks       int64  `json:"pendingTasks"`
	OverdueTasks       int64  `json:"overdueTasks"`
	ConversionRate     string `json:"conversionRate"`
	TaskCompletionRate string `json:"taskCompletionRate"`
}
