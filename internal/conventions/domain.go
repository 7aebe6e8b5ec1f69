package conventions

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/boothkeeper/boothkeeper/internal/platform/httpx"
)

var (
	// ErrNotFound is returned when a record does not exist for the owner.
	ErrNotFound = fmt.Errorf("conventions: %w", httpx.ErrNotFound)
	// ErrInvalid wraps input validation failures.
	ErrInvalid = fmt.Errorf("conventions: %w", httpx.ErrValidation)
	// ErrUnauthorized is returned when a call carries no owner scope.
	ErrUnauthorized = fmt.Errorf("conventions: owner scope required: %w", httpx.ErrUnauthorized)
	// ErrLengthMismatch is returned when an edit would change the effective length.
	ErrLengthMismatch = fmt.Errorf("conventions: dates do not match convention length: %w", httpx.ErrValidation)
	// ErrLocked is returned when editing a convention protected against edits.
	ErrLocked = fmt.Errorf("conventions: convention is locked: %w", httpx.ErrConflict)
	// ErrDayOutside is returned when a day falls outside the convention.
	ErrDayOutside = fmt.Errorf("conventions: day outside convention: %w", httpx.ErrValidation)
)

// Convention is a time-boxed sales event. EndDate is StartDate + Length - 1 day.
type Convention struct {
	ID        int64     `json:"id"`
	OwnerID   string    `json:"-"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Length    int       `json:"length"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Locked    bool      `json:"locked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Contains reports whether day falls within the convention.
func (c Convention) Contains(day time.Time) bool {
	return !day.Before(c.StartDate) && !day.After(c.EndDate)
}

// CustomReport is a one-off sellable item that only exists within a convention.
type CustomReport struct {
	ID           int64           `json:"id"`
	OwnerID      string          `json:"-"`
	ConventionID int64           `json:"convention_id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
}

// CustomDiscount is a one-off discount that only exists within a convention.
type CustomDiscount struct {
	ID           int64           `json:"id"`
	OwnerID      string          `json:"-"`
	ConventionID int64           `json:"convention_id"`
	Name         string          `json:"name"`
	Amount       decimal.Decimal `json:"amount"`
}

// ItemKind tells which table a daily entry's line item lives in.
type ItemKind string

const (
	KindProduct        ItemKind = "product"
	KindVariation      ItemKind = "variation"
	KindCustom         ItemKind = "custom"
	KindDiscount       ItemKind = "discount"
	KindCustomDiscount ItemKind = "custom_discount"
)

// Valid reports whether k is a known kind.
func (k ItemKind) Valid() bool {
	switch k {
	case KindProduct, KindVariation, KindCustom, KindDiscount, KindCustomDiscount:
		return true
	}
	return false
}

// IsDiscount reports whether entries of this kind reduce revenue.
func (k ItemKind) IsDiscount() bool {
	return k == KindDiscount || k == KindCustomDiscount
}

// ItemRef identifies a line item across the catalog and custom tables.
type ItemRef struct {
	Kind ItemKind `json:"kind"`
	ID   int64    `json:"id"`
}

// String renders the ref as kind:id.
func (r ItemRef) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

// Entry is a daily revenue entry: cash and card counts for one line item on
// one calendar day of one convention.
type Entry struct {
	ConventionID int64     `json:"convention_id"`
	Item         ItemRef   `json:"item"`
	Day          time.Time `json:"day"`
	Cash         int       `json:"cash"`
	Card         int       `json:"card"`
}
