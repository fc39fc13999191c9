package models

import "time"

type ActivityType string

const (
	ActivityLeadCreated   ActivityType = "lead_created"
	ActivityLeadStatus    ActivityType = "lead_status_changed"
	ActivityLeadNote      ActivityType = "lead_note_added"
	ActivityContactAdded  ActivityType = "contact_created"
	ActivityTaskCompleted ActivityType = "task_completed"
)

// Activity is a timeline entry kept in the optional relational feed.
type Activity struct {
	ID          string       `bson:"id" json:"id"`
	UserID      string       `bson:"userId" json:"userId"`
	Type        ActivityType `bson:"type" json:"type"`
	Description string       `bson:"description" json:"description"`
	EntityType  string       `bson:"entityType" json:"entityType"`
	EntityID    string       `bson:"entityId" json:"entityId"`
	CreatedAt   time.Time    `bson:"createdAt" json:"createdAt"`
}
