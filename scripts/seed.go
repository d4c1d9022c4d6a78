package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tourbase/backend/internal/adapters/database"
	"github.com/tourbase/backend/internal/domain/entities"
	"github.com/tourbase/backend/internal/infrastructure/clients/postgres"
	"github.com/tourbase/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pgClient.Close()

	userRepo := database.NewUserAdapter(pgClient)
	tourRepo := database.NewTourAdapter(pgClient)
	reviewRepo := database.NewReviewAdapter(pgClient)

	ctx := context.Background()

	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, truncating tables before seeding")
		_, err := pgClient.DB().ExecContext(ctx, `
			TRUNCATE TABLE
				webhook_events,
				bookings,
				reviews,
				tours,
				users
			RESTART IDENTITY CASCADE
		`)
		if err != nil {
			log.Fatalf("Failed to reset tables: %v", err)
		}
	}

	// 1. Seed users
	password, err := bcrypt.GenerateFromPassword([]byte("pass1234"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash seed password: %v", err)
	}

	now := time.Now()
	users := []entities.User{
		{ID: uuid.New().String(), Name: "Admin", Email: "admin@tourbase.io", Role: entities.RoleAdmin},
		{ID: uuid.New().String(), Name: "Lisa Brown", Email: "lisa@example.com", Role: entities.RoleLeadGuide},
		{ID: uuid.New().String(), Name: "Steve Miller", Email: "steve@example.com", Role: entities.RoleGuide},
		{ID: uuid.New().String(), Name: "Laura Wilson", Email: "laura@example.com", Role: entities.RoleUser},
		{ID: uuid.New().String(), Name: "Max Smith", Email: "max@example.com", Role: entities.RoleUser},
	}
	for i := range users {
		users[i].PasswordHash = string(password)
		users[i].Active = true
		users[i].CreatedAt = now
		users[i].UpdatedAt = now
		if err := userRepo.Create(ctx, &users[i]); err != nil {
			log.Printf("Failed to create user %s: %v", users[i].Email, err)
		}
	}

	// 2. Seed tours
	discount := 397.0
	tours := []entities.Tour{
		{
			ID:             uuid.New().String(),
			Name:           "The Forest Hiker",
			Slug:           "the-forest-hiker",
			Duration:       5,
			MaxGroupSize:   25,
			Difficulty:     entities.DifficultyEasy,
			RatingsAverage: entities.DefaultRatingsAverage,
			Price:          497,
			PriceDiscount:  &discount,
			Summary:        "Breathtaking hike through the Canadian Banff National Park",
			ImageCover:     "tour-1-cover.jpg",
			StartDates: []time.Time{
				time.Date(now.Year()+1, time.April, 25, 9, 0, 0, 0, time.UTC),
				time.Date(now.Year()+1, time.July, 20, 9, 0, 0, 0, time.UTC),
			},
			StartLocation: entities.Location{
				Latitude:  34.111745,
				Longitude: -118.113491,
				Address:   "224 Banff Ave, Banff, AB, Canada",
			},
			Locations: []entities.Location{
				{Latitude: 34.0173, Longitude: -118.2854, Description: "Banff National Park", Day: 1},
				{Latitude: 34.0304, Longitude: -118.8344, Description: "Jasper National Park", Day: 3},
			},
		},
		{
			ID:             uuid.New().String(),
			Name:           "The Sea Explorer",
			Slug:           "the-sea-explorer",
			Duration:       7,
			MaxGroupSize:   15,
			Difficulty:     entities.DifficultyMedium,
			RatingsAverage: entities.DefaultRatingsAverage,
			Price:          997,
			Summary:        "Exploring the jaw-dropping US east coast by foot and by boat",
			ImageCover:     "tour-2-cover.jpg",
			StartDates: []time.Time{
				time.Date(now.Year()+1, time.June, 19, 9, 0, 0, 0, time.UTC),
			},
			StartLocation: entities.Location{
				Latitude:  25.768981,
				Longitude: -80.190933,
				Address:   "301 Biscayne Blvd, Miami, FL, USA",
			},
		},
		{
			ID:             uuid.New().String(),
			Name:           "The Snow Adventurer",
			Slug:           "the-snow-adventurer",
			Duration:       4,
			MaxGroupSize:   10,
			Difficulty:     entities.DifficultyDifficult,
			RatingsAverage: entities.DefaultRatingsAverage,
			Price:          1497,
			Summary:        "Exciting adventure in the snow with snowboarding and skiing",
			ImageCover:     "tour-3-cover.jpg",
			StartDates: []time.Time{
				time.Date(now.Year()+1, time.January, 5, 9, 0, 0, 0, time.UTC),
			},
			StartLocation: entities.Location{
				Latitude:  39.605696,
				Longitude: -106.516623,
				Address:   "20 Vail Rd, Vail, CO, USA",
			},
		},
	}
	for i := range tours {
		tours[i].CreatedAt = now
		tours[i].UpdatedAt = now
		if err := tourRepo.Create(ctx, &tours[i]); err != nil {
			log.Printf("Failed to create tour %s: %v", tours[i].Name, err)
		}
	}

	// 3. Seed a few reviews and recompute the aggregates
	reviews := []entities.Review{
		{ID: uuid.New().String(), TourID: tours[0].ID, UserID: users[3].ID, Review: "Amazing views, great guide.", Rating: 5},
		{ID: uuid.New().String(), TourID: tours[0].ID, UserID: users[4].ID, Review: "Good trip, a bit crowded.", Rating: 4},
		{ID: uuid.New().String(), TourID: tours[1].ID, UserID: users[3].ID, Review: "The boat days were the highlight.", Rating: 5},
	}
	for i := range reviews {
		reviews[i].CreatedAt = now
		reviews[i].UpdatedAt = now
		if err := reviewRepo.Create(ctx, &reviews[i]); err != nil {
			log.Printf("Failed to create review: %v", err)
			continue
		}
		stats, ok, err := reviewRepo.AggregateByTour(ctx, reviews[i].TourID)
		if err != nil || !ok {
			continue
		}
		if err := tourRepo.UpdateRatingStats(ctx, reviews[i].TourID, stats); err != nil {
			log.Printf("Failed to update rating stats: %v", err)
		}
	}

	log.Printf("Seeded %d users, %d tours, %d reviews", len(users), len(tours), len(reviews))
}
