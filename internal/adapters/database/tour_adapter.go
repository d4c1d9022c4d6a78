package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"
	"github.com/tourbase/backend/internal/domain/entities"
	"github.com/tourbase/backend/internal/domain/repositories"
	"github.com/tourbase/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/tourbase/backend/pkg/errors"
)

// Haversine radius constants, matching the unit of the query
const (
	earthRadiusKm = 6371.0
	earthRadiusMi = 3959.0
)

// TourAdapter implements the TourRepository interface
type TourAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewTourAdapter creates a new tour adapter
func NewTourAdapter(client *postgres.Client) repositories.TourRepository {
	return &TourAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

const tourSelectColumns = `id, name, slug, duration, max_group_size, difficulty,
	ratings_average, ratings_quantity, price, price_discount, summary,
	description, image_cover, images, start_dates, start_latitude,
	start_longitude, start_address, start_description, locations, guide_ids,
	created_at, updated_at`

// sortableColumns maps API sort fields to table columns
var sortableColumns = map[string]string{
	"name":             "name",
	"price":            "price",
	"duration":         "duration",
	"ratings_average":  "ratings_average",
	"ratings_quantity": "ratings_quantity",
	"max_group_size":   "max_group_size",
	"created_at":       "created_at",
}

// Create creates a new tour
func (a *TourAdapter) Create(ctx context.Context, tour *entities.Tour) error {
	record, err := tourRecord(tour)
	if err != nil {
		return err
	}
	record["id"] = tour.ID
	record["created_at"] = tour.CreatedAt
	record["ratings_average"] = tour.RatingsAverage
	record["ratings_quantity"] = tour.RatingsQuantity

	query, args, err := a.db.Insert("tours").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build tour insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError("a tour with this name already exists")
		}
		return apperrors.NewInternalError("failed to create tour", err)
	}

	return nil
}

// GetByID retrieves a tour by ID
func (a *TourAdapter) GetByID(ctx context.Context, id string) (*entities.Tour, error) {
	query := fmt.Sprintf("SELECT %s FROM tours WHERE id = $1", tourSelectColumns)

	tour, err := scanTour(a.client.DB().QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("tour with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get tour", err)
	}
	return tour, nil
}

// List retrieves tours matching the filter
func (a *TourAdapter) List(ctx context.Context, filter repositories.TourFilter) ([]*entities.Tour, error) {
	var conditions []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Difficulty != "" {
		conditions = append(conditions, "difficulty = "+arg(filter.Difficulty))
	}
	if filter.PriceGte != nil {
		conditions = append(conditions, "price >= "+arg(*filter.PriceGte))
	}
	if filter.PriceLte != nil {
		conditions = append(conditions, "price <= "+arg(*filter.PriceLte))
	}
	if filter.DurationGte != nil {
		conditions = append(conditions, "duration >= "+arg(*filter.DurationGte))
	}
	if filter.DurationLte != nil {
		conditions = append(conditions, "duration <= "+arg(*filter.DurationLte))
	}

	query := fmt.Sprintf("SELECT %s FROM tours", tourSelectColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY " + buildOrderClause(filter.Sort)

	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list tours", err)
	}
	defer rows.Close()

	var tours []*entities.Tour
	for rows.Next() {
		tour, err := scanTour(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan tour", err)
		}
		tours = append(tours, tour)
	}

	return tours, nil
}

// Update updates a tour. Rating aggregate columns are deliberately not part
// of the record; only UpdateRatingStats writes them.
func (a *TourAdapter) Update(ctx context.Context, tour *entities.Tour) error {
	record, err := tourRecord(tour)
	if err != nil {
		return err
	}

	query, args, err := a.db.Update("tours").Set(record).Where(goqu.Ex{"id": tour.ID}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build tour update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError("a tour with this name already exists")
		}
		return apperrors.NewInternalError("failed to update tour", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("tour with id %s not found", tour.ID))
	}

	return nil
}

// Delete removes a tour
func (a *TourAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete("tours").Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build tour delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete tour", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("tour with id %s not found", id))
	}

	return nil
}

// UpdateRatingStats writes the recomputed review aggregate onto the tour
func (a *TourAdapter) UpdateRatingStats(ctx context.Context, tourID string, stats entities.RatingStats) error {
	query, args, err := a.db.Update("tours").Set(goqu.Record{
		"ratings_quantity": stats.Quantity,
		"ratings_average":  stats.Average,
		"updated_at":       time.Now(),
	}).Where(goqu.Ex{"id": tourID}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build rating stats query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to update rating stats", err)
	}

	return nil
}

// Within returns tours whose start point lies inside the query radius
func (a *TourAdapter) Within(ctx context.Context, q repositories.GeoQuery) ([]*entities.Tour, error) {
	radius := earthRadiusKm
	if q.Miles {
		radius = earthRadiusMi
	}

	query := fmt.Sprintf(`
		SELECT %s FROM tours
		WHERE (%f * acos(least(1.0,
			cos(radians($1)) * cos(radians(start_latitude)) *
			cos(radians(start_longitude) - radians($2)) +
			sin(radians($1)) * sin(radians(start_latitude))))) <= $3`,
		tourSelectColumns, radius)

	rows, err := a.client.DB().QueryContext(ctx, query, q.Latitude, q.Longitude, q.Radius)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query tours within radius", err)
	}
	defer rows.Close()

	var tours []*entities.Tour
	for rows.Next() {
		tour, err := scanTour(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan tour", err)
		}
		tours = append(tours, tour)
	}

	return tours, nil
}

// Distances returns the distance from the query point to every tour,
// nearest first
func (a *TourAdapter) Distances(ctx context.Context, q repositories.GeoQuery) ([]*entities.TourDistance, error) {
	radius := earthRadiusKm
	if q.Miles {
		radius = earthRadiusMi
	}

	query := fmt.Sprintf(`
		SELECT id, name,
			(%f * acos(least(1.0,
				cos(radians($1)) * cos(radians(start_latitude)) *
				cos(radians(start_longitude) - radians($2)) +
				sin(radians($1)) * sin(radians(start_latitude))))) AS distance
		FROM tours
		ORDER BY distance`, radius)

	rows, err := a.client.DB().QueryContext(ctx, query, q.Latitude, q.Longitude)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query tour distances", err)
	}
	defer rows.Close()

	var distances []*entities.TourDistance
	for rows.Next() {
		d := &entities.TourDistance{}
		if err := rows.Scan(&d.ID, &d.Name, &d.Distance); err != nil {
			return nil, apperrors.NewInternalError("failed to scan tour distance", err)
		}
		distances = append(distances, d)
	}

	return distances, nil
}

// Stats returns the per-difficulty aggregate of the catalog
func (a *TourAdapter) Stats(ctx context.Context) ([]*entities.TourStats, error) {
	query := `
		SELECT difficulty, COUNT(*) AS num_tours,
			AVG(ratings_average) AS avg_rating,
			AVG(price) AS avg_price,
			MIN(price) AS min_price,
			MAX(price) AS max_price
		FROM tours
		GROUP BY difficulty
		ORDER BY avg_price`

	rows, err := a.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query tour stats", err)
	}
	defer rows.Close()

	var stats []*entities.TourStats
	for rows.Next() {
		s := &entities.TourStats{}
		if err := rows.Scan(&s.Difficulty, &s.NumTours, &s.AvgRating, &s.AvgPrice, &s.MinPrice, &s.MaxPrice); err != nil {
			return nil, apperrors.NewInternalError("failed to scan tour stats", err)
		}
		stats = append(stats, s)
	}

	return stats, nil
}

// MonthlyPlan counts tour starts per month of the year, busiest month first
func (a *TourAdapter) MonthlyPlan(ctx context.Context, year int) ([]*entities.MonthlyPlanEntry, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	query := `
		SELECT EXTRACT(MONTH FROM d)::int AS month,
			COUNT(*) AS num_starts,
			array_agg(name) AS tours
		FROM tours, unnest(start_dates) AS d
		WHERE d >= $1 AND d < $2
		GROUP BY month
		ORDER BY num_starts DESC`

	rows, err := a.client.DB().QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query monthly plan", err)
	}
	defer rows.Close()

	var plan []*entities.MonthlyPlanEntry
	for rows.Next() {
		entry := &entities.MonthlyPlanEntry{}
		if err := rows.Scan(&entry.Month, &entry.NumStarts, pq.Array(&entry.Tours)); err != nil {
			return nil, apperrors.NewInternalError("failed to scan monthly plan entry", err)
		}
		plan = append(plan, entry)
	}

	return plan, nil
}

// tourRecord builds the mutable column set shared by Create and Update
func tourRecord(tour *entities.Tour) (goqu.Record, error) {
	locations, err := json.Marshal(tour.Locations)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to marshal tour locations", err)
	}

	var priceDiscount sql.NullFloat64
	if tour.PriceDiscount != nil {
		priceDiscount = sql.NullFloat64{Float64: *tour.PriceDiscount, Valid: true}
	}

	return goqu.Record{
		"name":              tour.Name,
		"slug":              tour.Slug,
		"duration":          tour.Duration,
		"max_group_size":    tour.MaxGroupSize,
		"difficulty":        tour.Difficulty,
		"price":             tour.Price,
		"price_discount":    priceDiscount,
		"summary":           tour.Summary,
		"description":       tour.Description,
		"image_cover":       tour.ImageCover,
		"images":            pq.Array(tour.Images),
		"start_dates":       pq.Array(tour.StartDates),
		"start_latitude":    tour.StartLocation.Latitude,
		"start_longitude":   tour.StartLocation.Longitude,
		"start_address":     tour.StartLocation.Address,
		"start_description": tour.StartLocation.Description,
		"locations":         locations,
		"guide_ids":         pq.Array(tour.GuideIDs),
		"updated_at":        time.Now(),
	}, nil
}

func buildOrderClause(sort string) string {
	if sort == "" {
		return "created_at DESC"
	}

	var clauses []string
	for _, field := range strings.Split(sort, ",") {
		field = strings.TrimSpace(field)
		desc := strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")

		column, ok := sortableColumns[field]
		if !ok {
			continue
		}
		if desc {
			column += " DESC"
		}
		clauses = append(clauses, column)
	}

	if len(clauses) == 0 {
		return "created_at DESC"
	}
	return strings.Join(clauses, ", ")
}

func scanTour(row rowScanner) (*entities.Tour, error) {
	tour := &entities.Tour{}
	var priceDiscount sql.NullFloat64
	var description, startAddress, startDescription sql.NullString
	var locations []byte
	var startDates timeArray

	err := row.Scan(
		&tour.ID,
		&tour.Name,
		&tour.Slug,
		&tour.Duration,
		&tour.MaxGroupSize,
		&tour.Difficulty,
		&tour.RatingsAverage,
		&tour.RatingsQuantity,
		&tour.Price,
		&priceDiscount,
		&tour.Summary,
		&description,
		&tour.ImageCover,
		pq.Array(&tour.Images),
		&startDates,
		&tour.StartLocation.Latitude,
		&tour.StartLocation.Longitude,
		&startAddress,
		&startDescription,
		&locations,
		pq.Array(&tour.GuideIDs),
		&tour.CreatedAt,
		&tour.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if priceDiscount.Valid {
		tour.PriceDiscount = &priceDiscount.Float64
	}
	tour.Description = description.String
	tour.StartDates = []time.Time(startDates)
	tour.StartLocation.Address = startAddress.String
	tour.StartLocation.Description = startDescription.String

	if len(locations) > 0 {
		if err := json.Unmarshal(locations, &tour.Locations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tour locations: %w", err)
		}
	}

	return tour, nil
}

// timeArray scans a timestamptz[] column. pq.Array only reads arrays whose
// element type implements sql.Scanner, which time.Time does not, so the
// array literal is parsed here.
type timeArray []time.Time

// Timestamp renderings Postgres emits inside array literals. The offset
// carries minutes or seconds only when they are non-zero.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999Z07:00:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
}

func (a *timeArray) Scan(src interface{}) error {
	var literal string
	switch v := src.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		literal = string(v)
	case string:
		literal = v
	default:
		return fmt.Errorf("cannot scan %T into a timestamp array", src)
	}

	if len(literal) < 2 || literal[0] != '{' || literal[len(literal)-1] != '}' {
		return fmt.Errorf("malformed timestamp array literal %q", literal)
	}

	elements, err := splitArrayLiteral(literal[1 : len(literal)-1])
	if err != nil {
		return err
	}

	parsed := make(timeArray, 0, len(elements))
	for _, element := range elements {
		t, err := parseArrayTimestamp(element)
		if err != nil {
			return err
		}
		parsed = append(parsed, t)
	}

	*a = parsed
	return nil
}

// splitArrayLiteral splits the body of an array literal on commas, honouring
// double-quoted elements and backslash escapes.
func splitArrayLiteral(s string) ([]string, error) {
	var elements []string
	for i := 0; i < len(s); {
		if s[i] == '"' {
			var sb strings.Builder
			i++
			for {
				if i >= len(s) {
					return nil, fmt.Errorf("unterminated quoted element in array literal %q", s)
				}
				if s[i] == '\\' && i+1 < len(s) {
					sb.WriteByte(s[i+1])
					i += 2
					continue
				}
				if s[i] == '"' {
					i++
					break
				}
				sb.WriteByte(s[i])
				i++
			}
			elements = append(elements, sb.String())
		} else {
			j := i
			for j < len(s) && s[j] != ',' {
				j++
			}
			elements = append(elements, s[i:j])
			i = j
		}
		if i < len(s) && s[i] == ',' {
			i++
		}
	}
	return elements, nil
}

func parseArrayTimestamp(s string) (time.Time, error) {
	if s == "NULL" {
		return time.Time{}, fmt.Errorf("null element in timestamp array")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp %q", s)
}
