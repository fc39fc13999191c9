package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ContactSource string

const (
	ContactSourceWebsite  ContactSource = "website"
	ContactSourceReferral ContactSource = "referral"
	ContactSourceSocial   ContactSource = "social"
	ContactSourceEvent    ContactSource = "event"
	ContactSourceOther    ContactSource = "other"
)

// ValidContactSource reports whether s is one of the known contact sources.
func ValidContactSource(s ContactSource) bool {
	switch s {
	case ContactSourceWebsite, ContactSourceReferral, ContactSourceSocial, ContactSourceEvent, ContactSourceOther:
		return true
	}
	return false
}

type ContactAddress struct {
	Street  string `bson:"street,omitempty" json:"street,omitempty"`
	City    string `bson:"city,omitempty" json:"city,omitempty"`
	State   string `bson:"state,omitempty" json:"state,omitempty"`
	ZipCode string `bson:"zipCode,omitempty" json:"zipCode,omitempty"`
	Country string `bson:"country,omitempty" json:"country,omitempty"`
}

// Contact belongs to exactly one user. Deleted contacts stay in the
// collection with IsDeleted set and are hidden from every read.
type Contact struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	OwnerID primitive.ObjectID `bson:"userId" json:"userId"`

	FirstName string          `bson:"firstName" json:"firstName"`
	LastName  string          `bson:"lastName,omitempty" json:"lastName"`
	Email     string          `bson:"email,omitempty" json:"email"`
	Phone     string          `bson:"phone,omitempty" json:"phone"`
	Company   string          `bson:"company,omitempty" json:"company"`
	JobTitle  string          `bson:"jobTitle,omitempty" json:"jobTitle"`
	Address   *ContactAddress `bson:"address,omitempty" json:"address,omitempty"`
	Tags      []string        `bson:"tags" json:"tags"`
	Notes     string          `bson:"notes,omitempty" json:"notes"`
	Source    ContactSource   `bson:"source" json:"source"`

	IsFavorite    bool       `bson:"isFavorite" json:"isFavorite"`
	IsDeleted     bool       `bson:"isDeleted" json:"-"`
	LastContacted *time.Time `bson:"lastContacted,omitempty" json:"lastContacted,omitempty"`
	CreatedAt     time.Time  `bson:"createdAt" json:"createdAt"`
	LastModified  time.Time  `bson:"lastModified" json:"lastModified"`
}

// FullName joins first and last name.
func (c *Contact) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

type ContactStats struct {
	Total       int64            `json:"total"`
	RecentWeek  int64            `json:"recentWeek"`
	RecentMonth int64            `json:"recentMonth"`
	Favorites   int64            `json:"favorites"`
	BySource    map[string]int64 `json:"bySource"`
}

type TagCount struct {
	Tag   string `bson:"_id" json:"tag"`
	Count int64  `bson:"count" json:"count"`
}
