package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)

func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskCancelled:
		return true
	}
	return false
}

func ValidTaskPriority(p Priority) bool {
	return p.Rank() > 0
}

// Task may reference a contact and/or a lead. References are not checked
// against the target collections and can dangle after deletes.
type Task struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID primitive.ObjectID `bson:"userId" json:"userId"`

	Title        string     `bson:"title" json:"title"`
	Description  string     `bson:"description,omitempty" json:"description"`
	DueDate      time.Time  `bson:"dueDate" json:"dueDate"`
	ReminderDate *time.Time `bson:"reminderDate,omitempty" json:"reminderDate,omitempty"`
	Priority     Priority   `bson:"priority" json:"priority"`
	Status       TaskStatus `bson:"status" json:"status"`

	ContactID *primitive.ObjectID `bson:"contactId,omitempty" json:"contactId,omitempty"`
	LeadID    *primitive.ObjectID `bson:"leadId,omitempty" json:"leadId,omitempty"`

	IsReminderSent bool       `bson:"isReminderSent" json:"isReminderSent"`
	CompletedAt    *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CreatedAt      time.Time  `bson:"createdAt" json:"createdAt"`
	LastModified   time.Time  `bson:"lastModified" json:"lastModified"`
}

type TaskStats struct {
	StatusStats   map[string]int64 `json:"statusStats"`
	PriorityStats map[string]int64 `json:"priorityStats"`
	TodayTasks    int64            `json:"todayTasks"`
	OverdueTasks  int64            `json:"overdueTasks"`
	TotalTasks    int64            `json:"totalTasks"`
}
