package conventions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/boothkeeper/boothkeeper/internal/shared"
)

// Invalidator drops cached reports after writes that change report figures.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service implements convention editing and daily count entry.
type Service struct {
	repo        Repository
	invalidator Invalidator
	logger      *slog.Logger
}

// NewService constructs a Service. invalidator may be nil.
func NewService(repo Repository, invalidator Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, invalidator: invalidator, logger: logger}
}

func requireOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return ErrUnauthorized
	}
	return nil
}

func (s *Service) bump(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Bump(ctx); err != nil {
		s.logger.Warn("report cache bump failed", slog.Any("error", err))
	}
}

// List returns a page of the owner's conventions, newest first.
func (s *Service) List(ctx context.Context, ownerID string, params shared.ListParams) ([]Convention, shared.Pagination, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, shared.Pagination{}, err
	}
	items, total, err := s.repo.ListConventions(ctx, ownerID, params)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(params.Page, params.PerPage, total), nil
}

// Get returns one convention.
func (s *Service) Get(ctx context.Context, ownerID string, id int64) (Convention, error) {
	if err := requireOwner(ownerID); err != nil {
		return Convention{}, err
	}
	return s.repo.GetConvention(ctx, ownerID, id)
}

// Create stores a new convention. The end date is derived from the length.
func (s *Service) Create(ctx context.Context, ownerID string, req CreateConventionRequest) (Convention, error) {
	if err := requireOwner(ownerID); err != nil {
		return Convention{}, err
	}
	if err := shared.ValidateStruct(req); err != nil {
		return Convention{}, err
	}
	start, err := shared.ParseDay(req.StartDate)
	if err != nil {
		return Convention{}, fmt.Errorf("%w: start_date", ErrInvalid)
	}
	created, err := s.repo.CreateConvention(ctx, Convention{
		OwnerID:   ownerID,
		Name:      strings.TrimSpace(req.Name),
		Location:  strings.TrimSpace(req.Location),
		Length:    req.Length,
		StartDate: start,
		EndDate:   shared.AddDays(start, req.Length-1),
		Locked:    req.Locked,
	})
	if err != nil {
		return Convention{}, err
	}
	s.logger.Info("convention created", slog.Int64("convention_id", created.ID), slog.Int("length", created.Length))
	return created, nil
}

// Update applies the dirty fields. A locked convention only accepts edits
// that unlock it. Moving only the start shifts the end; changing only the
// length recomputes the end; an explicit end must agree with the length.
func (s *Service) Update(ctx context.Context, ownerID string, id int64, req UpdateConventionRequest) (Convention, error) {
	if err := requireOwner(ownerID); err != nil {
		return Convention{}, err
	}
	if err := shared.ValidateStruct(req); err != nil {
		return Convention{}, err
	}
	current, err := s.repo.GetConvention(ctx, ownerID, id)
	if err != nil {
		return Convention{}, err
	}
	if current.Locked && (req.Locked == nil || *req.Locked) {
		return Convention{}, ErrLocked
	}
	next, err := applyUpdate(current, req)
	if err != nil {
		return Convention{}, err
	}
	saved, err := s.repo.SaveConvention(ctx, next)
	if err != nil {
		return Convention{}, err
	}
	if reportFieldsChanged(current, saved) {
		s.bump(ctx)
	}
	return saved, nil
}

// reportFieldsChanged reports whether an edit touches fields cached reports
// carry: the dates and the labels of ConventionSummary.
func reportFieldsChanged(before, after Convention) bool {
	return !before.StartDate.Equal(after.StartDate) ||
		!before.EndDate.Equal(after.EndDate) ||
		before.Name != after.Name ||
		before.Location != after.Location
}

func applyUpdate(c Convention, req UpdateConventionRequest) (Convention, error) {
	if req.Name != nil {
		c.Name = strings.TrimSpace(*req.Name)
	}
	if req.Location != nil {
		c.Location = strings.TrimSpace(*req.Location)
	}
	if req.Locked != nil {
		c.Locked = *req.Locked
	}
	if req.StartDate != nil {
		start, err := shared.ParseDay(*req.StartDate)
		if err != nil {
			return Convention{}, fmt.Errorf("%w: start_date", ErrInvalid)
		}
		c.StartDate = start
	}
	if req.Length != nil {
		c.Length = *req.Length
	}
	if req.EndDate == nil {
		c.EndDate = shared.AddDays(c.StartDate, c.Length-1)
		return c, nil
	}
	end, err := shared.ParseDay(*req.EndDate)
	if err != nil {
		return Convention{}, fmt.Errorf("%w: end_date", ErrInvalid)
	}
	if end.Before(c.StartDate) || shared.DaysInclusive(c.StartDate, end) != c.Length {
		return Convention{}, ErrLengthMismatch
	}
	c.EndDate = end
	return c, nil
}

// Delete bulk deletes conventions. Locked conventions are skipped. When
// nothing was deleted the error tells locked ids from unknown ones.
func (s *Service) Delete(ctx context.Context, ownerID string, req BulkDeleteRequest) (int64, error) {
	if err := requireOwner(ownerID); err != nil {
		return 0, err
	}
	if err := shared.ValidateStruct(req); err != nil {
		return 0, err
	}
	n, err := s.repo.DeleteConventions(ctx, ownerID, req.IDs)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, s.explainNothingDeleted(ctx, ownerID, req.IDs)
	}
	s.bump(ctx)
	return n, nil
}

func (s *Service) explainNothingDeleted(ctx context.Context, ownerID string, ids []int64) error {
	for _, id := range ids {
		conv, err := s.repo.GetConvention(ctx, ownerID, id)
		switch {
		case errors.Is(err, ErrNotFound):
			continue
		case err != nil:
			return err
		case conv.Locked:
			return fmt.Errorf("nothing deleted: %w", ErrLocked)
		}
	}
	return fmt.Errorf("nothing deleted: %w", ErrNotFound)
}

// CustomReports lists the custom line items of a convention.
func (s *Service) CustomReports(ctx context.Context, ownerID string, conventionID int64) ([]CustomReport, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return s.repo.ListCustomReports(ctx, ownerID, &conventionID)
}

// CreateCustomReport adds a custom line item to a convention.
func (s *Service) CreateCustomReport(ctx context.Context, ownerID string, conventionID int64, req CreateCustomReportRequest) (CustomReport, error) {
	if err := requireOwner(ownerID); err != nil {
		return CustomReport{}, err
	}
	if err := shared.ValidateStruct(req); err != nil {
		return CustomReport{}, err
	}
	if _, err := s.repo.GetConvention(ctx, ownerID, conventionID); err != nil {
		return CustomReport{}, err
	}
	return s.repo.CreateCustomReport(ctx, CustomReport{
		OwnerID:      ownerID,
		ConventionID: conventionID,
		Name:         strings.TrimSpace(req.Name),
		Price:        req.Price,
	})
}

// UpdateCustomReport applies the dirty fields of a custom line item.
func (s *Service) UpdateCustomReport(ctx context.Context, ownerID string, id int64, req UpdateCustomReportRequest) (CustomReport, error) {
	if err := requireOwner(ownerID); err != nil {
		return CustomReport{}, err
	}
	if err := shared.ValidateStruct(req); err != nil {
		return CustomReport{}, err
	}
	if req.Name == nil && req.Price == nil {
		return CustomReport{}, fmt.Errorf("%w: no fields to update", ErrInvalid)
	}
	var price any
	if req.Price != nil {
		price = *req.Price
	}
	updated, err := s.repo.UpdateCustomReport(ctx, ownerID, id, trimmed(req.Name), price)
	if err != nil {
		return CustomReport{}, err
	}
	if req.Price != nil {
		s.bump(ctx)
	}
	return updated, nil
}

// DeleteCustomReports bulk deletes custom line items. Their entries cascade.
func (s *Service) DeleteCustomReports(ctx context.Context, ownerID string, conventionID int64, req BulkDeleteRequest) (int64, error) {
	if err := requireOwner(ownerID); err != nil {
		return 0, err
	}
	if err := shared.ValidateStruct(req); err != nil {
		return 0, err
	}
	n, err := s.repo.DeleteCustomReports(ctx, ownerID, conventionID, req.IDs)
	if err != nil {
		return 0, err
	}
	s.bump(ctx)
	return n, nil
}

// CustomDiscounts lists the custom discounts of a convention.
func (s *Service) CustomDiscounts(ctx context.Context, ownerID string, conventionID int64) ([]CustomDiscount, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return s.repo.ListCustomDiscounts(ctx, ownerID, &conventionID)
}

// CreateCustomDiscount adds a custom discount to a convention.
func (s *Service) CreateCustomDiscount(ctx context.Context, ownerID string, conventionID int64, req CreateCustomDiscountRequest) (CustomDiscount, error) {
	if err := requireOwner(ownerID); err != nil {
		return CustomDiscount{}, err
	}
	if err := shared.ValidateStruct(req); err != nil {
		return CustomDiscount{}, err
	}
	if _, err := s.repo.GetConvention(ctx, ownerID, conventionID); err != nil {
		return CustomDiscount{}, err
	}
	return s.repo.CreateCustomDiscount(ctx, CustomDiscount{
		OwnerID:      ownerID,
		ConventionID: conventionID,
		Name:         strings.TrimSpace(req.Name),
		Amount:       req.Amount,
	})
}

// UpdateCustomDiscount applies the dirty fields of a custom discount.
func (s *Service) UpdateCustomDiscount(ctx context.Context, ownerID string, id int64, req UpdateCustomDiscountRequest) (CustomDiscount, error) {
	if err := requireOwner(ownerID); err != nil {
		return CustomDiscount{}, err
	}
	if err := shared.ValidateStruct(req); err != nil {
		return CustomDiscount{}, err
	}
	if req.Name == nil && req.Amount == nil {
		return CustomDiscount{}, fmt.Errorf("%w: no fields to update", ErrInvalid)
	}
	var amount any
	if req.Amount != nil {
		amount = *req.Amount
	}
	updated, err := s.repo.UpdateCustomDiscount(ctx, ownerID, id, trimmed(req.Name), amount)
	if err != nil {
		return CustomDiscount{}, err
	}
	if req.Amount != nil {
		s.bump(ctx)
	}
	return updated, nil
}

// DeleteCustomDiscounts bulk deletes custom discounts. Their entries cascade.
func (s *Service) DeleteCustomDiscounts(ctx context.Context, ownerID string, conventionID int64, req BulkDeleteRequest) (int64, error) {
	if err := requireOwner(ownerID); err != nil {
		return 0, err
	}
	if err := shared.ValidateStruct(req); err != nil {
		return 0, err
	}
	n, err := s.repo.DeleteCustomDiscounts(ctx, ownerID, conventionID, req.IDs)
	if err != nil {
		return 0, err
	}
	s.bump(ctx)
	return n, nil
}

// UpsertDailyCounts records one day's cash and card counts. The day must fall
// within the convention; lines with both counts at zero drop the entry.
func (s *Service) UpsertDailyCounts(ctx context.Context, ownerID string, conventionID int64, day time.Time, req UpsertDailyCountsRequest) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	if err := shared.ValidateStruct(req); err != nil {
		return err
	}
	for _, c := range req.Counts {
		if !c.Kind.Valid() {
			return fmt.Errorf("%w: unknown item kind %q", ErrInvalid, c.Kind)
		}
	}
	conv, err := s.repo.GetConvention(ctx, ownerID, conventionID)
	if err != nil {
		return err
	}
	day = shared.DayOf(day, time.UTC)
	if !conv.Contains(day) {
		return fmt.Errorf("%s: %w", shared.FormatDay(day), ErrDayOutside)
	}
	if err := s.repo.UpsertEntries(ctx, ownerID, conventionID, day, req.Counts); err != nil {
		return err
	}
	s.logger.Info("daily counts recorded",
		slog.Int64("convention_id", conventionID),
		slog.String("day", shared.FormatDay(day)),
		slog.Int("lines", len(req.Counts)))
	s.bump(ctx)
	return nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}
