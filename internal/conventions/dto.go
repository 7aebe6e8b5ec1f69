package conventions

import "github.com/shopspring/decimal"

// CreateConventionRequest is the payload for a new convention.
type CreateConventionRequest struct {
	Name      string `json:"name" validate:"required,max=200"`
	Location  string `json:"location" validate:"max=200"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	Length    int    `json:"length" validate:"required,min=1,max=60"`
	Locked    bool   `json:"locked"`
}

// UpdateConventionRequest holds only the fields the form marked dirty.
type UpdateConventionRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=200"`
	Location  *string `json:"location" validate:"omitempty,max=200"`
	StartDate *string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   *string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Length    *int    `json:"length" validate:"omitempty,min=1,max=60"`
	Locked    *bool   `json:"locked"`
}

// CreateCustomReportRequest is the payload for a custom line item.
type CreateCustomReportRequest struct {
	Name  string          `json:"name" validate:"required,max=200"`
	Price decimal.Decimal `json:"price" validate:"gte=0"`
}

// UpdateCustomReportRequest holds only the fields the form marked dirty.
type UpdateCustomReportRequest struct {
	Name  *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Price *decimal.Decimal `json:"price" validate:"omitempty,gte=0"`
}

// CreateCustomDiscountRequest is the payload for a custom discount.
type CreateCustomDiscountRequest struct {
	Name   string          `json:"name" validate:"max=200"`
	Amount decimal.Decimal `json:"amount" validate:"gte=0"`
}

// UpdateCustomDiscountRequest holds only the fields the form marked dirty.
type UpdateCustomDiscountRequest struct {
	Name   *string          `json:"name" validate:"omitempty,max=200"`
	Amount *decimal.Decimal `json:"amount" validate:"omitempty,gte=0"`
}

// DailyCount is one line of the daily sales form.
type DailyCount struct {
	Kind ItemKind `json:"kind" validate:"required"`
	ID   int64    `json:"id" validate:"required,gt=0"`
	Cash int      `json:"cash" validate:"gte=0"`
	Card int      `json:"card" validate:"gte=0"`
}

// UpsertDailyCountsRequest records the counts for one day. Lines with both
// counts at zero remove the stored entry.
type UpsertDailyCountsRequest struct {
	Counts []DailyCount `json:"counts" validate:"required,min=1,dive"`
}

// BulkDeleteRequest deletes several records selected together.
type BulkDeleteRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1,dive,gt=0"`
}
