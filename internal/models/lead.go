package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type LeadStatus string

const (
	LeadNew         LeadStatus = "new"
	LeadContacted   LeadStatus = "contacted"
	LeadQualified   LeadStatus = "qualified"
	LeadProposal    LeadStatus = "proposal"
	LeadNegotiation LeadStatus = "negotiation"
	LeadClosedWon   LeadStatus = "closed_won"
	LeadClosedLost  LeadStatus = "closed_lost"
)

// LeadPipeline lists the statuses in pipeline order.
var LeadPipeline = []LeadStatus{
	LeadNew, LeadContacted, LeadQualified, LeadProposal, LeadNegotiation, LeadClosedWon, LeadClosedLost,
}

func ValidLeadStatus(s LeadStatus) bool {
	for _, p := range LeadPipeline {
		if p == s {
			return true
		}
	}
	return false
}

// IsOpen reports whether the lead is still in the pipeline.
func (s LeadStatus) IsOpen() bool {
	return s != LeadClosedWon && s != LeadClosedLost
}

type LeadSource string

const (
	LeadSourceWebsite       LeadSource = "website"
	LeadSourceReferral      LeadSource = "referral"
	LeadSourceSocialMedia   LeadSource = "social_media"
	LeadSourceAdvertisement LeadSource = "advertisement"
	LeadSourceEvent         LeadSource = "event"
	LeadSourceOther         LeadSource = "other"
)

func ValidLeadSource(s LeadSource) bool {
	switch s {
	case LeadSourceWebsite, LeadSourceReferral, LeadSourceSocialMedia, LeadSourceAdvertisement, LeadSourceEvent, LeadSourceOther:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Rank orders priorities from low (1) to urgent (4); unknown values rank 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	}
	return 0
}

// Note is an entry in a lead's append-only history.
type Note struct {
	ID        primitive.ObjectID `bson:"_id" json:"_id"`
	Content   string             `bson:"content" json:"content"`
	CreatedBy primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

type Lead struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"_id"`

	FirstName string `bson:"firstName" json:"firstName"`
	LastName  string `bson:"lastName,omitempty" json:"lastName"`
	Email     string `bson:"email" json:"email"`
	Phone     string `bson:"phone,omitempty" json:"phone"`
	Company   string `bson:"company,omitempty" json:"company"`
	JobTitle  string `bson:"jobTitle,omitempty" json:"jobTitle"`

	Source   LeadSource `bson:"source" json:"source"`
	Status   LeadStatus `bson:"status" json:"status"`
	Priority Priority   `bson:"priority" json:"priority"`
	Value    float64    `bson:"value" json:"value"`
	Budget   float64    `bson:"budget" json:"budget"`

	Notes        []Note                 `bson:"notes" json:"notes"`
	AssignedTo   *primitive.ObjectID    `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	CreatedBy    primitive.ObjectID     `bson:"createdBy" json:"createdBy"`
	CustomFields map[string]interface{} `bson:"customFields,omitempty" json:"customFields,omitempty"`

	LastContacted *time.Time `bson:"lastContacted,omitempty" json:"lastContacted,omitempty"`
	NextFollowUp  *time.Time `bson:"nextFollowUp,omitempty" json:"nextFollowUp,omitempty"`
	CreatedAt     time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// LeadFacets holds the distinct values present across the whole lead
// collection, used to populate filter options.
type LeadFacets struct {
	Statuses   []string         `json:"status"`
	Sources    []string         `json:"source"`
	Priorities []string         `json:"priority"`
	ByStatus   map[string]int64 `json:"-"`
}

type MonthCount struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

// LeadStats is the faceted pipeline summary.
type LeadStats struct {
	TotalLeads     int64            `json:"totalLeads"`
	ByStatus       map[string]int64 `json:"byStatus"`
	BySource       map[string]int64 `json:"bySource"`
	ByPriority     map[string]int64 `json:"byPriority"`
	ByMonth        []MonthCount     `json:"byMonth"`
	HotLeads       int64            `json:"hotLeads"`
	ConversionRate string           `json:"conversionRate"`
}
