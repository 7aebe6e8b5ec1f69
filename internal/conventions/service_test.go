package conventions

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boothkeeper/boothkeeper/internal/platform/httpx"
	"github.com/boothkeeper/boothkeeper/internal/shared"
)

type entryKey struct {
	conventionID int64
	day          string
	item         ItemRef
}

type memRepo struct {
	conventions     map[int64]Convention
	customReports   map[int64]CustomReport
	customDiscounts map[int64]CustomDiscount
	entries         map[entryKey]Entry
	nextID          int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		conventions:     map[int64]Convention{},
		customReports:   map[int64]CustomReport{},
		customDiscounts: map[int64]CustomDiscount{},
		entries:         map[entryKey]Entry{},
		nextID:          1,
	}
}

func (m *memRepo) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *memRepo) ListConventions(ctx context.Context, ownerID string, params shared.ListParams) ([]Convention, int, error) {
	var out []Convention
	for _, c := range m.conventions {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, len(out), nil
}

func (m *memRepo) ListConventionsOverlapping(ctx context.Context, ownerID string, from, to time.Time) ([]Convention, error) {
	var out []Convention
	for _, c := range m.conventions {
		if c.OwnerID == ownerID && !c.StartDate.After(to) && !c.EndDate.Before(from) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memRepo) ListActiveOwners(ctx context.Context, from, to time.Time) ([]string, error) {
	var out []string
	for _, c := range m.conventions {
		if !c.StartDate.After(to) && !c.EndDate.Before(from) && !slices.Contains(out, c.OwnerID) {
			out = append(out, c.OwnerID)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (m *memRepo) GetConvention(ctx context.Context, ownerID string, id int64) (Convention, error) {
	c, ok := m.conventions[id]
	if !ok || c.OwnerID != ownerID {
		return Convention{}, ErrNotFound
	}
	return c, nil
}

func (m *memRepo) CreateConvention(ctx context.Context, c Convention) (Convention, error) {
	c.ID = m.id()
	m.conventions[c.ID] = c
	return c, nil
}

func (m *memRepo) SaveConvention(ctx context.Context, c Convention) (Convention, error) {
	if _, err := m.GetConvention(ctx, c.OwnerID, c.ID); err != nil {
		return Convention{}, err
	}
	m.conventions[c.ID] = c
	return c, nil
}

func (m *memRepo) DeleteConventions(ctx context.Context, ownerID string, ids []int64) (int64, error) {
	var n int64
	for _, id := range ids {
		if c, ok := m.conventions[id]; ok && c.OwnerID == ownerID && !c.Locked {
			delete(m.conventions, id)
			n++
		}
	}
	return n, nil
}

func (m *memRepo) ListCustomReports(ctx context.Context, ownerID string, conventionID *int64) ([]CustomReport, error) {
	var out []CustomReport
	for _, r := range m.customReports {
		if r.OwnerID == ownerID && (conventionID == nil || r.ConventionID == *conventionID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRepo) CreateCustomReport(ctx context.Context, r CustomReport) (CustomReport, error) {
	r.ID = m.id()
	m.customReports[r.ID] = r
	return r, nil
}

func (m *memRepo) UpdateCustomReport(ctx context.Context, ownerID string, id int64, name *string, price any) (CustomReport, error) {
	r, ok := m.customReports[id]
	if !ok || r.OwnerID != ownerID {
		return CustomReport{}, ErrNotFound
	}
	if name != nil {
		r.Name = *name
	}
	if price != nil {
		r.Price = price.(decimal.Decimal)
	}
	m.customReports[id] = r
	return r, nil
}

func (m *memRepo) DeleteCustomReports(ctx context.Context, ownerID string, conventionID int64, ids []int64) (int64, error) {
	var n int64
	for _, id := range ids {
		if r, ok := m.customReports[id]; ok && r.ConventionID == conventionID {
			delete(m.customReports, id)
			n++
		}
	}
	return n, nil
}

func (m *memRepo) ListCustomDiscounts(ctx context.Context, ownerID string, conventionID *int64) ([]CustomDiscount, error) {
	var out []CustomDiscount
	for _, d := range m.customDiscounts {
		if d.OwnerID == ownerID && (conventionID == nil || d.ConventionID == *conventionID) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memRepo) CreateCustomDiscount(ctx context.Context, d CustomDiscount) (CustomDiscount, error) {
	d.ID = m.id()
	m.customDiscounts[d.ID] = d
	return d, nil
}

func (m *memRepo) UpdateCustomDiscount(ctx context.Context, ownerID string, id int64, name *string, amount any) (CustomDiscount, error) {
	d, ok := m.customDiscounts[id]
	if !ok || d.OwnerID != ownerID {
		return CustomDiscount{}, ErrNotFound
	}
	if name != nil {
		d.Name = *name
	}
	if amount != nil {
		d.Amount = amount.(decimal.Decimal)
	}
	m.customDiscounts[id] = d
	return d, nil
}

func (m *memRepo) DeleteCustomDiscounts(ctx context.Context, ownerID string, conventionID int64, ids []int64) (int64, error) {
	var n int64
	for _, id := range ids {
		if d, ok := m.customDiscounts[id]; ok && d.ConventionID == conventionID {
			delete(m.customDiscounts, id)
			n++
		}
	}
	return n, nil
}

func (m *memRepo) ListEntries(ctx context.Context, ownerID string, conventionID *int64, from, to time.Time) ([]Entry, error) {
	var out []Entry
	for _, e := range m.entries {
		if conventionID != nil && e.ConventionID != *conventionID {
			continue
		}
		if e.Day.Before(from) || e.Day.After(to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memRepo) UpsertEntries(ctx context.Context, ownerID string, conventionID int64, day time.Time, counts []DailyCount) error {
	for _, c := range counts {
		key := entryKey{conventionID: conventionID, day: shared.FormatDay(day), item: ItemRef{Kind: c.Kind, ID: c.ID}}
		if c.Cash == 0 && c.Card == 0 {
			delete(m.entries, key)
			continue
		}
		m.entries[key] = Entry{ConventionID: conventionID, Item: key.item, Day: day, Cash: c.Cash, Card: c.Card}
	}
	return nil
}

type countingInvalidator struct{ bumps int }

func (c *countingInvalidator) Bump(ctx context.Context) error {
	c.bumps++
	return nil
}

func ptr[T any](v T) *T { return &v }

func day(s string) time.Time {
	d, err := shared.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newConvention(t *testing.T, svc *Service, locked bool) Convention {
	t.Helper()
	conv, err := svc.Create(context.Background(), "artist", CreateConventionRequest{
		Name:      "Anime Expo",
		Location:  "Los Angeles",
		StartDate: "2024-07-04",
		Length:    4,
		Locked:    locked,
	})
	require.NoError(t, err)
	return conv
}

func TestCreateDerivesEndDate(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil)
	conv := newConvention(t, svc, false)
	assert.Equal(t, day("2024-07-07"), conv.EndDate)
	assert.True(t, conv.Contains(day("2024-07-04")))
	assert.True(t, conv.Contains(day("2024-07-07")))
	assert.False(t, conv.Contains(day("2024-07-08")))
}

func TestUpdateKeepsLengthConsistent(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemRepo(), nil, nil)
	conv := newConvention(t, svc, false)

	moved, err := svc.Update(ctx, "artist", conv.ID, UpdateConventionRequest{StartDate: ptr("2024-07-10")})
	require.NoError(t, err)
	assert.Equal(t, day("2024-07-13"), moved.EndDate)
	assert.Equal(t, 4, moved.Length)

	longer, err := svc.Update(ctx, "artist", conv.ID, UpdateConventionRequest{Length: ptr(5)})
	require.NoError(t, err)
	assert.Equal(t, day("2024-07-14"), longer.EndDate)

	_, err = svc.Update(ctx, "artist", conv.ID, UpdateConventionRequest{EndDate: ptr("2024-07-20")})
	assert.ErrorIs(t, err, ErrLengthMismatch)
	assert.ErrorIs(t, err, httpx.ErrValidation)

	both, err := svc.Update(ctx, "artist", conv.ID, UpdateConventionRequest{EndDate: ptr("2024-07-15"), Length: ptr(6)})
	require.NoError(t, err)
	assert.Equal(t, day("2024-07-15"), both.EndDate)

	_, err = svc.Update(ctx, "artist", conv.ID, UpdateConventionRequest{EndDate: ptr("2024-07-01")})
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestLockedConventionOnlyAcceptsUnlock(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemRepo(), nil, nil)
	conv := newConvention(t, svc, true)

	_, err := svc.Update(ctx, "artist", conv.ID, UpdateConventionRequest{Name: ptr("Renamed")})
	assert.ErrorIs(t, err, ErrLocked)
	assert.ErrorIs(t, err, httpx.ErrConflict)

	_, err = svc.Delete(ctx, "artist", BulkDeleteRequest{IDs: []int64{conv.ID}})
	assert.ErrorIs(t, err, ErrLocked)

	unlocked, err := svc.Update(ctx, "artist", conv.ID, UpdateConventionRequest{Locked: ptr(false), Name: ptr("Renamed")})
	require.NoError(t, err)
	assert.False(t, unlocked.Locked)
	assert.Equal(t, "Renamed", unlocked.Name)

	n, err := svc.Delete(ctx, "artist", BulkDeleteRequest{IDs: []int64{conv.ID}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestDeleteTellsLockedFromUnknown(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemRepo(), nil, nil)
	locked := newConvention(t, svc, true)

	_, err := svc.Delete(ctx, "artist", BulkDeleteRequest{IDs: []int64{404}})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrLocked)

	_, err = svc.Delete(ctx, "someone-else", BulkDeleteRequest{IDs: []int64{locked.ID}})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Delete(ctx, "artist", BulkDeleteRequest{IDs: []int64{404, locked.ID}})
	assert.ErrorIs(t, err, ErrLocked)
}

func TestUpdateBumpsCacheOnReportFields(t *testing.T) {
	ctx := context.Background()
	inv := &countingInvalidator{}
	svc := NewService(newMemRepo(), inv, nil)
	conv := newConvention(t, svc, false)
	base := inv.bumps

	_, err := svc.Update(ctx, "artist", conv.ID, UpdateConventionRequest{Name: ptr("Anime Expo 2024")})
	require.NoError(t, err)
	assert.Equal(t, base+1, inv.bumps)

	_, err = svc.Update(ctx, "artist", conv.ID, UpdateConventionRequest{Location: ptr("Anaheim")})
	require.NoError(t, err)
	assert.Equal(t, base+2, inv.bumps)

	_, err = svc.Update(ctx, "artist", conv.ID, UpdateConventionRequest{Name: ptr("Anime Expo 2024")})
	require.NoError(t, err)
	assert.Equal(t, base+2, inv.bumps, "unchanged name")

	_, err = svc.Update(ctx, "artist", conv.ID, UpdateConventionRequest{Locked: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, base+2, inv.bumps, "lock flag is not reported")
}

func TestUpsertDailyCounts(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	inv := &countingInvalidator{}
	svc := NewService(repo, inv, nil)
	conv := newConvention(t, svc, false)

	err := svc.UpsertDailyCounts(ctx, "artist", conv.ID, day("2024-07-05"), UpsertDailyCountsRequest{Counts: []DailyCount{
		{Kind: KindProduct, ID: 7, Cash: 2, Card: 1},
		{Kind: KindDiscount, ID: 3, Cash: 1},
	}})
	require.NoError(t, err)
	assert.Len(t, repo.entries, 2)
	assert.Equal(t, 1, inv.bumps)

	err = svc.UpsertDailyCounts(ctx, "artist", conv.ID, day("2024-07-05"), UpsertDailyCountsRequest{Counts: []DailyCount{
		{Kind: KindDiscount, ID: 3},
	}})
	require.NoError(t, err)
	assert.Len(t, repo.entries, 1)

	err = svc.UpsertDailyCounts(ctx, "artist", conv.ID, day("2024-07-09"), UpsertDailyCountsRequest{Counts: []DailyCount{
		{Kind: KindProduct, ID: 7, Cash: 1},
	}})
	assert.ErrorIs(t, err, ErrDayOutside)

	err = svc.UpsertDailyCounts(ctx, "artist", conv.ID, day("2024-07-05"), UpsertDailyCountsRequest{Counts: []DailyCount{
		{Kind: KindProduct, ID: 7, Cash: -1},
	}})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	err = svc.UpsertDailyCounts(ctx, "artist", conv.ID, day("2024-07-05"), UpsertDailyCountsRequest{Counts: []DailyCount{
		{Kind: "bundle", ID: 7, Cash: 1},
	}})
	assert.ErrorIs(t, err, ErrInvalid)

	err = svc.UpsertDailyCounts(ctx, "someone-else", conv.ID, day("2024-07-05"), UpsertDailyCountsRequest{Counts: []DailyCount{
		{Kind: KindProduct, ID: 7, Cash: 1},
	}})
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestCustomItemsBelongToConvention(t *testing.T) {
	ctx := context.Background()
	inv := &countingInvalidator{}
	svc := NewService(newMemRepo(), inv, nil)
	conv := newConvention(t, svc, false)

	item, err := svc.CreateCustomReport(ctx, "artist", conv.ID, CreateCustomReportRequest{Name: " Commission ", Price: decimal.NewFromInt(40)})
	require.NoError(t, err)
	assert.Equal(t, "Commission", item.Name)

	_, err = svc.CreateCustomReport(ctx, "artist", 999, CreateCustomReportRequest{Name: "Ghost", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, httpx.ErrNotFound)

	updated, err := svc.UpdateCustomReport(ctx, "artist", item.ID, UpdateCustomReportRequest{Price: ptr(decimal.NewFromInt(45))})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(decimal.NewFromInt(45)))
	assert.Equal(t, 1, inv.bumps)

	_, err = svc.UpdateCustomReport(ctx, "artist", item.ID, UpdateCustomReportRequest{})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	disc, err := svc.CreateCustomDiscount(ctx, "artist", conv.ID, CreateCustomDiscountRequest{Name: "Bundle", Amount: decimal.NewFromInt(5)})
	require.NoError(t, err)
	items, err := svc.CustomDiscounts(ctx, "artist", conv.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	n, err := svc.DeleteCustomDiscounts(ctx, "artist", conv.ID, BulkDeleteRequest{IDs: []int64{disc.ID}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestConventionsRequireOwner(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil)
	_, err := svc.Get(context.Background(), "", 1)
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
	err = svc.UpsertDailyCounts(context.Background(), "", 1, day("2024-07-05"), UpsertDailyCountsRequest{})
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}
