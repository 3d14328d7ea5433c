package services

import (
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

var (
	validate   = newValidator()
	phoneRegex = regexp.MustCompile(`^\+?[0-9]{10,11}$`)
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phoneRegex.MatchString(fl.Field().String())
	})
	return v
}

// Customer is the identity written onto a seating.
type Customer struct {
	Name  string
	Phone string
}

func (c Customer) normalized() Customer {
	return Customer{Name: strings.TrimSpace(c.Name), Phone: strings.TrimSpace(c.Phone)}
}

func (c Customer) empty() bool {
	return c.Name == "" && c.Phone == ""
}

type bookingCustomer struct {
	Name  string `validate:"required,max=20"`
	Phone string `validate:"required,phone"`
}

type seatingCustomer struct {
	Name  string `validate:"required,max=30"`
	Phone string `validate:"required,phone"`
}

type optionalCustomer struct {
	Name  string `validate:"omitempty,max=30"`
	Phone string `validate:"omitempty,phone"`
}

func validateBookingCustomer(c Customer) error {
	if err := validate.Struct(bookingCustomer(c)); err != nil {
		return validationFailure(err)
	}
	return nil
}

// validateSeatingCustomer checks caller-supplied identity; required decides
// whether both fields must be present.
func validateSeatingCustomer(c Customer, required bool) error {
	var err error
	if required {
		err = validate.Struct(seatingCustomer(c))
	} else {
		err = validate.Struct(optionalCustomer(c))
	}
	if err != nil {
		return validationFailure(err)
	}
	return nil
}

// ItemQuantity is one (menu item, quantity) selection.
type ItemQuantity struct {
	MenuItemID uint `json:"menu_item_id"`
	Quantity   int  `json:"quantity"`
}

// validateSelection rejects negative quantities and duplicate ids. With
// allowZero, zero quantities are ignored; at least one positive quantity is
// always required. The positive selections are returned.
func validateSelection(items []ItemQuantity, allowZero bool) ([]ItemQuantity, error) {
	if len(items) == 0 {
		return nil, Validation("no items selected")
	}
	seen := make(map[uint]struct{}, len(items))
	picked := make([]ItemQuantity, 0, len(items))
	for _, it := range items {
		if it.MenuItemID == 0 {
			return nil, Validation("menu item id is required")
		}
		if _, dup := seen[it.MenuItemID]; dup {
			return nil, Validation("menu item %d selected more than once", it.MenuItemID)
		}
		seen[it.MenuItemID] = struct{}{}
		switch {
		case it.Quantity < 0:
			return nil, Validation("quantity for menu item %d must not be negative", it.MenuItemID)
		case it.Quantity == 0 && !allowZero:
			return nil, Validation("quantity for menu item %d must be positive", it.MenuItemID)
		case it.Quantity > 0:
			picked = append(picked, it)
		}
	}
	if len(picked) == 0 {
		return nil, Validation("at least one item with a positive quantity is required")
	}
	return picked, nil
}

// parseSlot parses a reservation date and time in loc.
func parseSlot(date, clock string, loc *time.Location) (time.Time, error) {
	date, clock = strings.TrimSpace(date), strings.TrimSpace(clock)
	if _, err := time.Parse(dateLayout, date); err != nil {
		return time.Time{}, Validation("reservation date must be YYYY-MM-DD")
	}
	if _, err := time.Parse(timeLayout, clock); err != nil {
		return time.Time{}, Validation("reservation time must be HH:MM")
	}
	t, err := time.ParseInLocation(dateLayout+" "+timeLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, Validation("invalid reservation slot")
	}
	return t, nil
}
