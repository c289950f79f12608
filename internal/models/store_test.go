package models

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scmmishra/qrtrack/internal/db"
	"github.com/scmmishra/qrtrack/internal/utm"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func newCode(shortCode string) *TrackedCode {
	return &TrackedCode{
		OwnerID:        "owner-1",
		Name:           "Flyer " + shortCode,
		DestinationURL: "https://example.com/" + shortCode,
		ShortCode:      shortCode,
		EnableTracking: true,
	}
}

func mustCreate(t *testing.T, s *Store, c *TrackedCode) *TrackedCode {
	t.Helper()
	require.NoError(t, s.CreateCode(context.Background(), c))
	return c
}

func TestCreateCode_SetsDefaults(t *testing.T) {
	s := testStore(t)
	c := mustCreate(t, s, newCode("abc12345"))

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, StatusActive, c.Status)
	assert.Equal(t, "#000000", c.QRColor)
	assert.Equal(t, DefaultCTAText, c.LandingPage.CTAText)
	assert.False(t, c.CreatedAt.IsZero())
	assert.EqualValues(t, 0, c.TotalScans)
	assert.Nil(t, c.ExpiresAt)
}

func TestCreateCode_RoundTripsOptionalFields(t *testing.T) {
	s := testStore(t)
	expires := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	c := newCode("abc12345")
	c.UTM = utm.Params{Source: "newsletter", Medium: "email", Content: "hero"}
	c.LandingPage = LandingPage{Enabled: true, Title: "Sale", LogoURL: "https://example.com/logo.png", CTAText: "Shop"}
	c.ExpiresAt = &expires
	mustCreate(t, s, c)

	got, err := s.GetCode(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.UTM, got.UTM)
	assert.Equal(t, c.LandingPage, got.LandingPage)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, expires.Equal(*got.ExpiresAt))
}

func TestCreateCode_DuplicateShortCode(t *testing.T) {
	s := testStore(t)
	mustCreate(t, s, newCode("abc12345"))

	err := s.CreateCode(context.Background(), newCode("abc12345"))
	assert.Error(t, err)
}

func TestGetCode_NotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.GetCode(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetActiveCodeByShortCode(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	active := mustCreate(t, s, newCode("abc12345"))
	inactive := newCode("off00000")
	inactive.Status = StatusInactive
	mustCreate(t, s, inactive)

	got, err := s.GetActiveCodeByShortCode(ctx, "abc12345")
	require.NoError(t, err)
	assert.Equal(t, active.ID, got.ID)

	_, err = s.GetActiveCodeByShortCode(ctx, "off00000")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetActiveCodeByShortCode(ctx, "ABC12345")
	assert.ErrorIs(t, err, ErrNotFound, "lookup is case-sensitive")

	_, err = s.GetActiveCodeByShortCode(ctx, "zzz00000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestShortCodeExists(t *testing.T) {
	s := testStore(t)
	c := newCode("off00000")
	c.Status = StatusInactive
	mustCreate(t, s, c)

	exists, err := s.ShortCodeExists(context.Background(), "off00000")
	require.NoError(t, err)
	assert.True(t, exists, "inactive codes still reserve their short code")

	exists, err = s.ShortCodeExists(context.Background(), "free0000")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestListCodes_FiltersAndPagination(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	for _, sc := range []string{"aaaa0001", "aaaa0002", "aaaa0003"} {
		mustCreate(t, s, newCode(sc))
	}
	other := newCode("bbbb0001")
	other.OwnerID = "owner-2"
	other.Status = StatusInactive
	other.Name = "Window sticker"
	mustCreate(t, s, other)

	codes, total, err := s.ListCodes(ctx, ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, codes, 2)
	assert.Equal(t, 4, total)

	codes, total, err = s.ListCodes(ctx, ListFilter{Limit: 10, Offset: 3})
	require.NoError(t, err)
	assert.Len(t, codes, 1)
	assert.Equal(t, 4, total)

	codes, _, err = s.ListCodes(ctx, ListFilter{OwnerID: "owner-2", Limit: 10})
	require.NoError(t, err)
	require.Len(t, codes, 1)
	assert.Equal(t, "bbbb0001", codes[0].ShortCode)

	_, total, err = s.ListCodes(ctx, ListFilter{Status: StatusActive, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	codes, _, err = s.ListCodes(ctx, ListFilter{Search: "sticker", Limit: 10})
	require.NoError(t, err)
	require.Len(t, codes, 1)
	assert.Equal(t, other.ID, codes[0].ID)
}

func TestUpdateCode(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	c := mustCreate(t, s, newCode("abc12345"))

	c.Name = "Renamed"
	c.Status = StatusInactive
	c.EnableTracking = false
	c.UTM = utm.Params{Campaign: "summer"}
	c.ShortCode = "changed0"
	require.NoError(t, s.UpdateCode(ctx, c))

	assert.Equal(t, "Renamed", c.Name)
	assert.Equal(t, StatusInactive, c.Status)
	assert.False(t, c.EnableTracking)
	assert.Equal(t, utm.Params{Campaign: "summer"}, c.UTM)
	assert.Equal(t, "abc12345", c.ShortCode, "short code is immutable")
}

func TestUpdateCode_NotFound(t *testing.T) {
	s := testStore(t)
	c := newCode("abc12345")
	c.ID = "missing"
	c.Status = StatusActive
	assert.ErrorIs(t, s.UpdateCode(context.Background(), c), ErrNotFound)
}

func TestDeleteCode_CascadesScans(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	c := mustCreate(t, s, newCode("abc12345"))
	require.NoError(t, s.InsertScan(ctx, &ScanEvent{CodeID: c.ID, ScannedAt: time.Now(), DeviceType: "desktop", OS: "Unknown", Browser: "Unknown"}))

	require.NoError(t, s.DeleteCode(ctx, c.ID))

	n, err := s.ScanCount(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.ErrorIs(t, s.DeleteCode(ctx, c.ID), ErrNotFound)
}

func TestInsertScan_RequiresExistingCode(t *testing.T) {
	s := testStore(t)
	err := s.InsertScan(context.Background(), &ScanEvent{CodeID: "missing", ScannedAt: time.Now()})
	assert.Error(t, err)
}

func TestBatchInsertScans(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	a := mustCreate(t, s, newCode("aaaa0001"))
	b := mustCreate(t, s, newCode("bbbb0001"))
	now := time.Now()

	err := s.BatchInsertScans(ctx, []ScanEvent{
		{CodeID: a.ID, ScannedAt: now, DeviceType: "mobile", OS: "iOS", Browser: "Safari", UTMSnapshot: &utm.Params{Source: "poster"}},
		{CodeID: a.ID, ScannedAt: now.Add(time.Second), DeviceType: "desktop", OS: "Windows", Browser: "Chrome", IP: "203.0.113.7"},
		{CodeID: b.ID, ScannedAt: now, DeviceType: "tablet", OS: "Android", Browser: "Chrome"},
	})
	require.NoError(t, err)

	scans, err := s.ListScans(ctx, a.ID, 10)
	require.NoError(t, err)
	require.Len(t, scans, 2)
	assert.Equal(t, "Windows", scans[0].OS, "newest first")
	assert.Equal(t, "203.0.113.7", scans[0].IP)
	assert.Nil(t, scans[0].UTMSnapshot)
	require.NotNil(t, scans[1].UTMSnapshot)
	assert.Equal(t, "poster", scans[1].UTMSnapshot.Source)

	require.NoError(t, s.BatchInsertScans(ctx, nil))
}

func TestBatchInsertScans_RollsBackOnFailure(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	a := mustCreate(t, s, newCode("aaaa0001"))

	err := s.BatchInsertScans(ctx, []ScanEvent{
		{CodeID: a.ID, ScannedAt: time.Now()},
		{CodeID: "missing", ScannedAt: time.Now()},
	})
	require.Error(t, err)

	n, err := s.ScanCount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestIncrementScanCounts(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	a := mustCreate(t, s, newCode("aaaa0001"))
	b := mustCreate(t, s, newCode("bbbb0001"))

	require.NoError(t, s.IncrementScanCounts(ctx, map[string]int{a.ID: 3, b.ID: 1}))
	require.NoError(t, s.IncrementScanCounts(ctx, map[string]int{a.ID: 2}))

	got, err := s.GetCode(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 5, got.TotalScans)

	got, err = s.GetCode(ctx, b.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.TotalScans)
}

func TestExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.False(t, (&TrackedCode{}).Expired(now))
	assert.True(t, (&TrackedCode{ExpiresAt: &past}).Expired(now))
	assert.True(t, (&TrackedCode{ExpiresAt: &now}).Expired(now))
	assert.False(t, (&TrackedCode{ExpiresAt: &future}).Expired(now))
}

func TestServable(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)

	assert.True(t, (&TrackedCode{Status: StatusActive}).Servable(now))
	assert.False(t, (&TrackedCode{Status: StatusInactive}).Servable(now))
	assert.False(t, (&TrackedCode{Status: StatusActive, ExpiresAt: &past}).Servable(now))
}
