package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/tourbase/backend/internal/domain/entities"
	"github.com/tourbase/backend/internal/domain/repositories"
	"github.com/tourbase/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/tourbase/backend/pkg/errors"
)

// BookingAdapter implements the BookingRepository interface
type BookingAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewBookingAdapter creates a new booking adapter
func NewBookingAdapter(client *postgres.Client) repositories.BookingRepository {
	return &BookingAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var bookingColumns = []interface{}{
	"id", "tour_id", "user_id", "price", "reference", "status",
	"paid_amount", "created_at", "updated_at",
}

// Create inserts a booking. A partial unique index on (tour_id, user_id)
// over pending/paid rows makes the duplicate-booking guard atomic; a
// violation maps to a conflict.
func (a *BookingAdapter) Create(ctx context.Context, booking *entities.Booking) error {
	record := goqu.Record{
		"id":         booking.ID,
		"tour_id":    booking.TourID,
		"user_id":    booking.UserID,
		"price":      booking.Price,
		"reference":  booking.Reference,
		"status":     booking.Status,
		"created_at": booking.CreatedAt,
		"updated_at": booking.UpdatedAt,
	}

	query, args, err := a.db.Insert("bookings").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build booking insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError("an active booking for this tour already exists")
		}
		return apperrors.NewInternalError("failed to create booking", err)
	}

	return nil
}

// GetByID retrieves a booking by ID
func (a *BookingAdapter) GetByID(ctx context.Context, id string) (*entities.Booking, error) {
	query, args, err := a.db.Select(bookingColumns...).From("bookings").Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build booking query", err)
	}

	booking, err := scanBooking(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("booking with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get booking", err)
	}
	return booking, nil
}

// GetByReference retrieves a booking by payment reference
func (a *BookingAdapter) GetByReference(ctx context.Context, reference string) (*entities.Booking, error) {
	query, args, err := a.db.Select(bookingColumns...).From("bookings").Where(goqu.Ex{"reference": reference}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build booking query", err)
	}

	booking, err := scanBooking(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("no booking with that reference")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get booking", err)
	}
	return booking, nil
}

// GetActiveByTourAndUser returns the pending or paid booking for the pair
func (a *BookingAdapter) GetActiveByTourAndUser(ctx context.Context, tourID, userID string) (*entities.Booking, error) {
	query, args, err := a.db.Select(bookingColumns...).From("bookings").Where(goqu.Ex{
		"tour_id": tourID,
		"user_id": userID,
		"status":  []string{string(entities.BookingStatusPending), string(entities.BookingStatusPaid)},
	}).Limit(1).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build active booking query", err)
	}

	booking, err := scanBooking(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("no active booking for this tour and user")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get active booking", err)
	}
	return booking, nil
}

// List retrieves bookings matching the filter
func (a *BookingAdapter) List(ctx context.Context, filter repositories.BookingFilter) ([]*entities.Booking, error) {
	ds := a.db.Select(bookingColumns...).From("bookings")

	if filter.TourID != "" {
		ds = ds.Where(goqu.Ex{"tour_id": filter.TourID})
	}
	if filter.UserID != "" {
		ds = ds.Where(goqu.Ex{"user_id": filter.UserID})
	}
	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"status": filter.Status})
	}

	ds = ds.Order(goqu.I("created_at").Desc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build booking list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list bookings", err)
	}
	defer rows.Close()

	var bookings []*entities.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan booking", err)
		}
		bookings = append(bookings, booking)
	}

	return bookings, nil
}

// Update applies an admin override to a booking
func (a *BookingAdapter) Update(ctx context.Context, id string, update repositories.BookingUpdate) (*entities.Booking, error) {
	record := goqu.Record{"updated_at": time.Now()}
	if update.Price != nil {
		record["price"] = *update.Price
	}
	if update.Status != nil {
		record["status"] = *update.Status
	}

	query, args, err := a.db.Update("bookings").Set(record).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build booking update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewConflictError("an active booking for this tour already exists")
		}
		return nil, apperrors.NewInternalError("failed to update booking", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("booking with id %s not found", id))
	}

	return a.GetByID(ctx, id)
}

// Delete removes a booking
func (a *BookingAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete("bookings").Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build booking delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete booking", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("booking with id %s not found", id))
	}

	return nil
}

// Transition atomically moves the booking with the given reference out of
// pending. The status condition makes redundant webhook deliveries safe:
// only the first delivery that finds the row still pending effects the
// transition.
func (a *BookingAdapter) Transition(ctx context.Context, reference string, to entities.BookingStatus, paidAmount *float64) (bool, error) {
	record := goqu.Record{
		"status":     to,
		"updated_at": time.Now(),
	}
	if paidAmount != nil {
		record["paid_amount"] = *paidAmount
	}

	query, args, err := a.db.Update("bookings").Set(record).Where(goqu.Ex{
		"reference": reference,
		"status":    entities.BookingStatusPending,
	}).ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build transition query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperrors.NewInternalError("failed to transition booking", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewInternalError("failed to get rows affected", err)
	}

	return rowsAffected > 0, nil
}

func scanBooking(row rowScanner) (*entities.Booking, error) {
	booking := &entities.Booking{}
	var paidAmount sql.NullFloat64

	err := row.Scan(
		&booking.ID,
		&booking.TourID,
		&booking.UserID,
		&booking.Price,
		&booking.Reference,
		&booking.Status,
		&paidAmount,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if paidAmount.Valid {
		booking.PaidAmount = &paidAmount.Float64
	}

	return booking, nil
}
