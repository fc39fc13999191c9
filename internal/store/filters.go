package store

import (
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/crm-backend/internal/models"
)

// containsRegex matches term anywhere in a field, case-insensitively.
// The term is quoted so user input never becomes a pattern.
func containsRegex(term string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
}

func exactRegex(term string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(term) + "$", Options: "i"}
}

func anyFieldContains(term string, fields ...string) bson.A {
	rx := containsRegex(term)
	or := make(bson.A, 0, len(fields))
	for _, f := range fields {
		or = append(or, bson.M{f: rx})
	}
	return or
}

// sortSpec turns "field" / "-field" into a sort document when field is in
// allowed, otherwise returns fallback. _id is appended as a tie breaker so
// pages are stable.
func sortSpec(sort string, allowed []string, fallback bson.D) bson.D {
	sort = strings.TrimSpace(sort)
	dir := 1
	if strings.HasPrefix(sort, "-") {
		dir = -1
		sort = sort[1:]
	}
	for _, a := range allowed {
		if a == sort {
			return bson.D{{Key: sort, Value: dir}, {Key: "_id", Value: dir}}
		}
	}
	return fallback
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

// ContactQuery selects an owner's live contacts.
type ContactQuery struct {
	OwnerID  primitive.ObjectID
	Search   string
	Company  string
	Tag      string
	Source   string
	Favorite *bool
	Sort     string
	Skip     int64
	Limit    int64
}

var contactSortFields = []string{"firstName", "lastName", "email", "company", "createdAt", "lastModified"}

func ContactFilter(q ContactQuery) bson.M {
	filter := bson.M{
		"userId":    q.OwnerID,
		"isDeleted": bson.M{"$ne": true},
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		filter["$or"] = anyFieldContains(s, "firstName", "lastName", "email", "company", "tags")
	}
	if c := strings.TrimSpace(q.Company); c != "" {
		filter["company"] = exactRegex(c)
	}
	if t := strings.TrimSpace(q.Tag); t != "" {
		filter["tags"] = t
	}
	if s := strings.TrimSpace(q.Source); s != "" {
		filter["source"] = s
	}
	if q.Favorite != nil {
		filter["isFavorite"] = *q.Favorite
	}
	return filter
}

func ContactSort(sort string) bson.D {
	return sortSpec(sort, contactSortFields, newestFirst)
}

// LeadQuery selects leads from the shared pipeline.
type LeadQuery struct {
	Status     string
	Source     string
	Priority   string
	AssignedTo *primitive.ObjectID
	CreatedBy  *primitive.ObjectID
	Search     string
	From       *time.Time
	To         *time.Time
	SortBy     string
	SortDesc   bool
	Skip       int64
	Limit      int64
}

var leadSortFields = []string{
	"createdAt", "updatedAt", "firstName", "lastName", "email", "company",
	"status", "priority", "value", "lastContacted", "nextFollowUp",
}

func LeadFilter(q LeadQuery) bson.M {
	filter := bson.M{}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	if q.Source != "" {
		filter["source"] = q.Source
	}
	if q.Priority != "" {
		filter["priority"] = q.Priority
	}
	if q.AssignedTo != nil {
		filter["assignedTo"] = *q.AssignedTo
	}
	if q.CreatedBy != nil {
		filter["createdBy"] = *q.CreatedBy
	}
	if q.From != nil || q.To != nil {
		created := bson.M{}
		if q.From != nil {
			created["$gte"] = *q.From
		}
		if q.To != nil {
			created["$lte"] = *q.To
		}
		filter["createdAt"] = created
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		filter["$or"] = anyFieldContains(s, "firstName", "lastName", "email", "company", "jobTitle")
	}
	return filter
}

func LeadSort(q LeadQuery) bson.D {
	sort := q.SortBy
	if q.SortDesc {
		sort = "-" + sort
	}
	return sortSpec(sort, leadSortFields, newestFirst)
}

type TaskOrder int

const (
	TaskOrderNewest TaskOrder = iota
	TaskOrderDueAsc
)

// TaskQuery selects a user's tasks. DueFrom and DueUntil are inclusive,
// DueBefore exclusive.
type TaskQuery struct {
	UserID        primitive.ObjectID
	Status        string
	Priority      string
	StatusIn      []models.TaskStatus
	ExcludeStatus models.TaskStatus
	DueFrom       *time.Time
	DueBefore     *time.Time
	DueUntil      *time.Time
	Search        string
	Order         TaskOrder
	Skip          int64
	Limit         int64
}

func TaskFilter(q TaskQuery) bson.M {
	filter := bson.M{"userId": q.UserID}

	status := bson.M{}
	if q.Status != "" {
		status["$eq"] = q.Status
	}
	if len(q.StatusIn) > 0 {
		in := make(bson.A, 0, len(q.StatusIn))
		for _, s := range q.StatusIn {
			in = append(in, string(s))
		}
		status["$in"] = in
	}
	if q.ExcludeStatus != "" {
		status["$ne"] = string(q.ExcludeStatus)
	}
	if len(status) > 0 {
		filter["status"] = status
	}

	if q.Priority != "" {
		filter["priority"] = q.Priority
	}
	due := bson.M{}
	if q.DueFrom != nil {
		due["$gte"] = *q.DueFrom
	}
	if q.DueBefore != nil {
		due["$lt"] = *q.DueBefore
	}
	if q.DueUntil != nil {
		due["$lte"] = *q.DueUntil
	}
	if len(due) > 0 {
		filter["dueDate"] = due
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		filter["$or"] = anyFieldContains(s, "title", "description")
	}
	return filter
}

func TaskSort(order TaskOrder) bson.D {
	if order == TaskOrderDueAsc {
		return bson.D{{Key: "dueDate", Value: 1}, {Key: "_id", Value: 1}}
	}
	return newestFirst
}
