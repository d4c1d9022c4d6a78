package database_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tourbase/backend/internal/adapters/database"
	"github.com/tourbase/backend/internal/domain/repositories"
	"github.com/tourbase/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/tourbase/backend/pkg/errors"
)

func newTourAdapter(t *testing.T) (repositories.TourRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return database.NewTourAdapter(postgres.NewClientWithDB(db)), mock
}

var tourColumns = []string{
	"id", "name", "slug", "duration", "max_group_size", "difficulty",
	"ratings_average", "ratings_quantity", "price", "price_discount",
	"summary", "description", "image_cover", "images", "start_dates",
	"start_latitude", "start_longitude", "start_address",
	"start_description", "locations", "guide_ids", "created_at",
	"updated_at",
}

// tourRow renders a tours row the way the driver delivers it: array and
// jsonb columns arrive as raw bytes.
func tourRow(startDates interface{}) *sqlmock.Rows {
	return sqlmock.NewRows(tourColumns).AddRow(
		"tour-1", "The Forest Hiker", "the-forest-hiker", 5, 25, "easy",
		4.7, 12, 497.0, nil,
		"Breathtaking hike through the Canadian Banff National Park",
		"Long description", "tour-1-cover.jpg",
		[]byte(`{tour-1-1.jpg,tour-1-2.jpg}`), startDates,
		51.178456, -115.570154, "Banff, CAN", "Banff National Park",
		[]byte(`[{"latitude":51.417611,"longitude":-116.214531,"day":1}]`),
		[]byte(`{guide-1,guide-2}`),
		time.Now(), time.Now(),
	)
}

func TestTourAdapter_GetByID(t *testing.T) {
	t.Run("scans a row with populated start dates", func(t *testing.T) {
		adapter, mock := newTourAdapter(t)

		mock.ExpectQuery(`(?s)SELECT .+ FROM tours WHERE id = \$1`).
			WithArgs("tour-1").
			WillReturnRows(tourRow([]byte(`{"2026-04-25 09:00:00+00","2026-07-20 09:00:00+00","2026-10-05 09:00:00+00"}`)))

		tour, err := adapter.GetByID(context.Background(), "tour-1")

		require.NoError(t, err)
		assert.Equal(t, "The Forest Hiker", tour.Name)
		require.Len(t, tour.StartDates, 3)
		assert.Equal(t, time.Date(2026, time.April, 25, 9, 0, 0, 0, time.UTC), tour.StartDates[0].UTC())
		assert.Equal(t, time.Date(2026, time.October, 5, 9, 0, 0, 0, time.UTC), tour.StartDates[2].UTC())
		assert.Equal(t, []string{"tour-1-1.jpg", "tour-1-2.jpg"}, tour.Images)
		assert.Equal(t, []string{"guide-1", "guide-2"}, tour.GuideIDs)
		require.Len(t, tour.Locations, 1)
		assert.Equal(t, 1, tour.Locations[0].Day)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("tolerates fractional seconds and offsets in start dates", func(t *testing.T) {
		adapter, mock := newTourAdapter(t)

		mock.ExpectQuery(`(?s)SELECT .+ FROM tours WHERE id = \$1`).
			WithArgs("tour-1").
			WillReturnRows(tourRow([]byte(`{"2026-04-25 09:00:00.123456+01"}`)))

		tour, err := adapter.GetByID(context.Background(), "tour-1")

		require.NoError(t, err)
		require.Len(t, tour.StartDates, 1)
		assert.Equal(t, time.Date(2026, time.April, 25, 8, 0, 0, 123456000, time.UTC), tour.StartDates[0].UTC())
	})

	t.Run("an empty array literal scans to no dates", func(t *testing.T) {
		adapter, mock := newTourAdapter(t)

		mock.ExpectQuery(`(?s)SELECT .+ FROM tours WHERE id = \$1`).
			WithArgs("tour-1").
			WillReturnRows(tourRow([]byte(`{}`)))

		tour, err := adapter.GetByID(context.Background(), "tour-1")

		require.NoError(t, err)
		assert.Empty(t, tour.StartDates)
	})

	t.Run("a null start dates column scans to no dates", func(t *testing.T) {
		adapter, mock := newTourAdapter(t)

		mock.ExpectQuery(`(?s)SELECT .+ FROM tours WHERE id = \$1`).
			WithArgs("tour-1").
			WillReturnRows(tourRow(nil))

		tour, err := adapter.GetByID(context.Background(), "tour-1")

		require.NoError(t, err)
		assert.Empty(t, tour.StartDates)
	})

	t.Run("returns not found when no row matches", func(t *testing.T) {
		adapter, mock := newTourAdapter(t)

		mock.ExpectQuery(`(?s)SELECT .+ FROM tours WHERE id = \$1`).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		tour, err := adapter.GetByID(context.Background(), "missing")

		require.Error(t, err)
		assert.Nil(t, tour)
		assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.TypeOf(err))
	})
}

func TestTourAdapter_List(t *testing.T) {
	t.Run("scans every row including start dates", func(t *testing.T) {
		adapter, mock := newTourAdapter(t)

		mock.ExpectQuery(`(?s)SELECT .+ FROM tours`).
			WillReturnRows(tourRow([]byte(`{"2026-04-25 09:00:00+00","2026-07-20 09:00:00+00"}`)))

		tours, err := adapter.List(context.Background(), repositories.TourFilter{})

		require.NoError(t, err)
		require.Len(t, tours, 1)
		assert.Len(t, tours[0].StartDates, 2)
	})

	t.Run("surfaces an internal error when a row cannot be scanned", func(t *testing.T) {
		adapter, mock := newTourAdapter(t)

		mock.ExpectQuery(`(?s)SELECT .+ FROM tours`).
			WillReturnRows(tourRow([]byte(`not-an-array-literal`)))

		tours, err := adapter.List(context.Background(), repositories.TourFilter{})

		require.Error(t, err)
		assert.Nil(t, tours)
		assert.Equal(t, apperrors.ErrorTypeInternal, apperrors.TypeOf(err))
	})
}

func TestTourAdapter_Within(t *testing.T) {
	t.Run("scans matching rows including start dates", func(t *testing.T) {
		adapter, mock := newTourAdapter(t)

		mock.ExpectQuery(`(?s)SELECT .+ FROM tours\s+WHERE`).
			WithArgs(34.111745, -118.113491, 250.0).
			WillReturnRows(tourRow([]byte(`{"2026-04-25 09:00:00+00"}`)))

		tours, err := adapter.Within(context.Background(), repositories.GeoQuery{
			Latitude:  34.111745,
			Longitude: -118.113491,
			Radius:    250,
			Miles:     true,
		})

		require.NoError(t, err)
		require.Len(t, tours, 1)
		assert.Len(t, tours[0].StartDates, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
