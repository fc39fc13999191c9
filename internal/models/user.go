package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

type AddressType string

const (
	AddressHome  AddressType = "home"
	AddressWork  AddressType = "work"
	AddressOther AddressType = "other"
)

// DefaultCountry is applied to addresses saved without a country.
const DefaultCountry = "India"

// Address is embedded in the user document. Exactly one entry of a
// non-empty list has IsDefault set.
type Address struct {
	ID          primitive.ObjectID `bson:"_id" json:"_id"`
	Street      string             `bson:"street" json:"street"`
	City        string             `bson:"city" json:"city"`
	State       string             `bson:"state" json:"state"`
	Country     string             `bson:"country" json:"country"`
	ZipCode     string             `bson:"zipCode" json:"zipCode"`
	AddressType AddressType        `bson:"addressType" json:"addressType"`
	IsDefault   bool               `bson:"isDefault" json:"isDefault"`
}

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`

	Name     string `bson:"name" json:"name"`
	Email    string `bson:"email" json:"email"`
	Password string `bson:"password" json:"-"`

	Phone                  string    `bson:"phone,omitempty" json:"phone"`
	ProfileImage           string    `bson:"profileImage,omitempty" json:"profileImage"`
	Theme                  Theme     `bson:"theme" json:"theme"`
	NewsletterSubscription bool      `bson:"newsletterSubscription" json:"newsletterSubscription"`
	Addresses              []Address `bson:"addresses" json:"addresses"`

	Role          Role       `bson:"role" json:"role"`
	IsActive      bool       `bson:"isActive" json:"isActive"`
	EmailVerified bool       `bson:"emailVerified" json:"emailVerified"`
	LastSync      *time.Time `bson:"lastSync,omitempty" json:"lastSync"`
	LastLogin     *time.Time `bson:"lastLogin,omitempty" json:"lastLogin"`
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// DefaultAddress returns the address flagged as default, if any.
func (u *User) DefaultAddress() (Address, bool) {
	for _, a := range u.Addresses {
		if a.IsDefault {
			return a, true
		}
	}
	return Address{}, false
}

// UserStats is the admin overview of the account base.
type UserStats struct {
	TotalUsers       int64 `json:"totalUsers"`
	TotalAdmins      int64 `json:"totalAdmins"`
	TotalActiveUsers int64 `json:"totalActiveUsers"`
	NewUsersToday    int64 `json:"newUsersToday"`
}
