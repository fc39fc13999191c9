package services

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/crm-backend/internal/apperr"
	"github.com/AnshRaj112/crm-backend/internal/models"
)

// The functions below own the address list invariant: a non-empty list
// has exactly one default. They never mutate their input.

type AddressInput struct {
	Street      string             `json:"street"`
	City        string             `json:"city"`
	State       string             `json:"state"`
	Country     string             `json:"country"`
	ZipCode     string             `json:"zipCode"`
	AddressType models.AddressType `json:"addressType"`
	IsDefault   bool               `json:"isDefault"`
}

type AddressPatch struct {
	Street      *string             `json:"street"`
	City        *string             `json:"city"`
	State       *string             `json:"state"`
	Country     *string             `json:"country"`
	ZipCode     *string             `json:"zipCode"`
	AddressType *models.AddressType `json:"addressType"`
	IsDefault   *bool               `json:"isDefault"`
}

func newAddress(in AddressInput, position int) models.Address {
	a := models.Address{
		ID:          primitive.NewObjectID(),
		Street:      strings.TrimSpace(in.Street),
		City:        strings.TrimSpace(in.City),
		State:       strings.TrimSpace(in.State),
		Country:     strings.TrimSpace(in.Country),
		ZipCode:     strings.TrimSpace(in.ZipCode),
		AddressType: in.AddressType,
		IsDefault:   in.IsDefault,
	}
	if a.Country == "" {
		a.Country = models.DefaultCountry
	}
	if a.AddressType == "" {
		if position == 0 {
			a.AddressType = models.AddressHome
		} else {
			a.AddressType = models.AddressOther
		}
	}
	return a
}

func validateAddress(a models.Address) error {
	var missing []string
	if a.Street == "" {
		missing = append(missing, "street is required")
	}
	if a.City == "" {
		missing = append(missing, "city is required")
	}
	if a.State == "" {
		missing = append(missing, "state is required")
	}
	if a.ZipCode == "" {
		missing = append(missing, "zipCode is required")
	}
	switch a.AddressType {
	case models.AddressHome, models.AddressWork, models.AddressOther:
	default:
		missing = append(missing, "addressType must be one of home, work, other")
	}
	if len(missing) > 0 {
		return apperr.Invalid("Please provide street, city, state and zip code", missing...)
	}
	return nil
}

// normalizeAddresses builds the list saved at registration. When no entry
// is flagged the first becomes default; when several are, the first
// flagged one wins.
func normalizeAddresses(in []AddressInput) []models.Address {
	out := make([]models.Address, 0, len(in))
	defaultAt := -1
	for i, raw := range in {
		a := newAddress(raw, i)
		if a.IsDefault && defaultAt == -1 {
			defaultAt = i
		}
		out = append(out, a)
	}
	if len(out) == 0 {
		return out
	}
	if defaultAt == -1 {
		defaultAt = 0
	}
	return withDefaultAt(out, defaultAt)
}

func withDefaultAt(list []models.Address, idx int) []models.Address {
	for i := range list {
		list[i].IsDefault = i == idx
	}
	return list
}

func cloneAddresses(list []models.Address) []models.Address {
	out := make([]models.Address, len(list))
	copy(out, list)
	return out
}

func indexOfAddress(list []models.Address, id primitive.ObjectID) int {
	for i, a := range list {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func defaultIndex(list []models.Address) int {
	for i, a := range list {
		if a.IsDefault {
			return i
		}
	}
	return -1
}

// appendAddress adds in to the list. The first address, or one flagged
// default, becomes the default.
func appendAddress(list []models.Address, in AddressInput) ([]models.Address, models.Address, error) {
	a := newAddress(in, len(list))
	if err := validateAddress(a); err != nil {
		return nil, models.Address{}, err
	}
	out := append(cloneAddresses(list), a)
	if len(list) == 0 || in.IsDefault || defaultIndex(list) == -1 {
		out = withDefaultAt(out, len(out)-1)
	}
	return out, a, nil
}

// patchAddress applies p to the address with id. Clearing the flag of
// the current default hands it to the first other address.
func patchAddress(list []models.Address, id primitive.ObjectID, p AddressPatch) ([]models.Address, error) {
	idx := indexOfAddress(list, id)
	if idx == -1 {
		return nil, apperr.NotFound("Address")
	}
	out := cloneAddresses(list)
	a := &out[idx]
	if p.Street != nil {
		a.Street = strings.TrimSpace(*p.Street)
	}
	if p.City != nil {
		a.City = strings.TrimSpace(*p.City)
	}
	if p.State != nil {
		a.State = strings.TrimSpace(*p.State)
	}
	if p.Country != nil {
		a.Country = strings.TrimSpace(*p.Country)
		if a.Country == "" {
			a.Country = models.DefaultCountry
		}
	}
	if p.ZipCode != nil {
		a.ZipCode = strings.TrimSpace(*p.ZipCode)
	}
	if p.AddressType != nil {
		a.AddressType = *p.AddressType
	}
	if err := validateAddress(*a); err != nil {
		return nil, err
	}

	if p.IsDefault != nil {
		switch {
		case *p.IsDefault:
			out = withDefaultAt(out, idx)
		case out[idx].IsDefault && len(out) > 1:
			next := 0
			if idx == 0 {
				next = 1
			}
			out = withDefaultAt(out, next)
		}
	}
	return out, nil
}

// removeAddress deletes the address with id. The last address cannot be
// removed. If the default goes, the first remaining address takes over.
func removeAddress(list []models.Address, id primitive.ObjectID) ([]models.Address, error) {
	idx := indexOfAddress(list, id)
	if idx == -1 {
		return nil, apperr.NotFound("Address")
	}
	if len(list) == 1 {
		return nil, apperr.ErrLastAddress
	}
	wasDefault := list[idx].IsDefault
	out := make([]models.Address, 0, len(list)-1)
	out = append(out, list[:idx]...)
	out = append(out, list[idx+1:]...)
	if wasDefault || defaultIndex(out) == -1 {
		out = withDefaultAt(out, 0)
	}
	return out, nil
}

func markDefaultAddress(list []models.Address, id primitive.ObjectID) ([]models.Address, error) {
	idx := indexOfAddress(list, id)
	if idx == -1 {
		return nil, apperr.NotFound("Address")
	}
	return withDefaultAt(cloneAddresses(list), idx), nil
}
