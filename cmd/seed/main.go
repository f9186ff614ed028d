package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"deskly/internal/bookings"
	"deskly/internal/cancellation"
	"deskly/internal/listings"
	"deskly/internal/shared/config"
	"deskly/internal/shared/database"
	"deskly/internal/users"
	"deskly/pkg/logger"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type Seeder struct {
	db       *database.DB
	cfg      *config.Config
	listings listings.Service
	bookings bookings.Service
}

func main() {
	fmt.Println("Starting Deskly database seeder...")

	_ = godotenv.Load()
	cfg := config.Load()

	appLogger := logger.New()
	db, err := database.InitDB(cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{
		db:       db,
		cfg:      cfg,
		listings: listings.NewService(listings.NewRepository(db.PostgreSQL)),
		bookings: bookings.NewService(bookings.NewRepository(db.PostgreSQL), appLogger),
	}

	fmt.Println("\nCleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("Database cleaned")

	fmt.Println("\nSeeding database...")
	if err := seeder.SeedAll(context.Background()); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("\nSeeding completed. Log in with any seeded email and password \"qwerty\".")
}

// CleanDatabase truncates all tables in reverse dependency order
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"refund_transactions",
		"cancellation_requests",
		"bookings",
		"listings",
		"users",
	}

	tx := s.db.PostgreSQL.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Exec("SET CONSTRAINTS ALL DEFERRED").Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to defer constraints: %w", err)
	}

	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	if err := tx.Exec("SET CONSTRAINTS ALL IMMEDIATE").Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to restore constraints: %w", err)
	}

	return tx.Commit().Error
}

// SeedAll seeds users, listings with each policy preset and a spread of bookings
func (s *Seeder) SeedAll(ctx context.Context) error {
	userIDs, err := s.SeedUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	listingIDs, err := s.SeedListings(ctx, userIDs["owner"])
	if err != nil {
		return fmt.Errorf("failed to seed listings: %w", err)
	}

	if err := s.SeedBookings(ctx, userIDs, listingIDs); err != nil {
		return fmt.Errorf("failed to seed bookings: %w", err)
	}

	// Cached policies and booking pages would point at truncated rows
	if err := s.db.Redis.FlushDB(ctx).Err(); err != nil {
		log.Printf("Warning: failed to clear Redis cache: %v", err)
	}

	return nil
}

// SeedUsers creates an admin, a workspace owner and two clients
func (s *Seeder) SeedUsers(ctx context.Context) (map[string]uuid.UUID, error) {
	fmt.Println("  Seeding users...")

	userIDs := make(map[string]uuid.UUID)

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("qwerty"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	usersData := []struct {
		key       string
		firstName string
		lastName  string
		email     string
		role      users.Role
	}{
		{"admin", "Admin", "User", "admin@deskly.dev", users.RoleAdmin},
		{"owner", "Olivia", "Owner", "owner@deskly.dev", users.RoleOwner},
		{"client1", "Carl", "Client", "carl@deskly.dev", users.RoleUser},
		{"client2", "Dana", "Client", "dana@deskly.dev", users.RoleUser},
	}

	repo := users.NewRepository(s.db.PostgreSQL)
	for _, userData := range usersData {
		user := &users.User{
			FirstName: userData.firstName,
			LastName:  userData.lastName,
			Email:     userData.email,
			Password:  string(hashedPassword),
			Role:      userData.role,
		}

		if err := repo.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user %s: %w", userData.email, err)
		}

		userIDs[userData.key] = user.ID
		fmt.Printf("    Created user: %s (%s)\n", user.Email, user.Role)
	}

	return userIDs, nil
}

// SeedListings creates one listing per cancellation policy preset
func (s *Seeder) SeedListings(ctx context.Context, ownerID uuid.UUID) (map[cancellation.PolicyType]uuid.UUID, error) {
	fmt.Println("  Seeding listings...")

	listingsData := []struct {
		policy  cancellation.PolicyType
		title   string
		city    string
		address string
		rate    string
		seats   int
	}{
		{cancellation.PolicyFlexible, "Sunny Hot Desk", "Lisbon", "Rua Augusta 12", "12.50", 1},
		{cancellation.PolicyModerate, "Harbour Meeting Room", "Hamburg", "Am Sandtorkai 5", "45.00", 8},
		{cancellation.PolicyStrict, "Rooftop Event Loft", "Barcelona", "Carrer de Mallorca 301", "120.00", 40},
		{cancellation.PolicyNone, "Quiet Focus Booth", "Berlin", "Torstrasse 88", "9.00", 1},
	}

	listingIDs := make(map[cancellation.PolicyType]uuid.UUID)
	for _, data := range listingsData {
		listing, err := s.listings.CreateListing(ctx, ownerID, listings.CreateListingRequest{
			Title:          data.title,
			Description:    fmt.Sprintf("%s in %s", data.title, data.city),
			City:           data.city,
			Address:        data.address,
			Capacity:       data.seats,
			HourlyRate:     decimal.RequireFromString(data.rate),
			Currency:       s.cfg.PaymentGateway.Currency,
			PolicyTemplate: string(data.policy),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create listing %s: %w", data.title, err)
		}

		listingIDs[data.policy] = listing.ID
		fmt.Printf("    Created listing: %s (%s policy)\n", listing.Title, data.policy)
	}

	return listingIDs, nil
}

// SeedBookings spreads confirmed bookings across refund tiers. The fail_ reference
// makes the mock gateway decline so the failed refund path can be exercised.
func (s *Seeder) SeedBookings(ctx context.Context, userIDs map[string]uuid.UUID, listingIDs map[cancellation.PolicyType]uuid.UUID) error {
	fmt.Println("  Seeding bookings...")

	now := time.Now().UTC().Truncate(time.Hour)
	bookingsData := []struct {
		client    string
		policy    cancellation.PolicyType
		startsIn  time.Duration
		hours     int
		price     string
		reference string
	}{
		{"client1", cancellation.PolicyFlexible, 72 * time.Hour, 4, "50.00", "pay_seed_flexible_full"},
		{"client1", cancellation.PolicyFlexible, 6 * time.Hour, 2, "25.00", "pay_seed_flexible_late"},
		{"client1", cancellation.PolicyModerate, 10 * 24 * time.Hour, 3, "135.00", "pay_seed_moderate"},
		{"client2", cancellation.PolicyStrict, 20 * 24 * time.Hour, 5, "600.00", "pay_seed_strict"},
		{"client2", cancellation.PolicyStrict, 3 * 24 * time.Hour, 2, "240.00", "fail_seed_strict_declined"},
		{"client2", cancellation.PolicyNone, 48 * time.Hour, 8, "72.00", "pay_seed_no_policy"},
		{"client2", cancellation.PolicyModerate, 5 * 24 * time.Hour, 1, "45.00", ""},
	}

	for _, data := range bookingsData {
		start := now.Add(data.startsIn)
		booking, err := s.bookings.CreateBooking(ctx, bookings.CreateBookingInput{
			UserID:           userIDs[data.client],
			ListingID:        listingIDs[data.policy],
			StartDate:        start,
			EndDate:          start.Add(time.Duration(data.hours) * time.Hour),
			TotalPrice:       decimal.RequireFromString(data.price),
			Currency:         s.cfg.PaymentGateway.Currency,
			Status:           bookings.StatusConfirmed,
			PaymentReference: data.reference,
		})
		if err != nil {
			return fmt.Errorf("failed to create booking for %s: %w", data.client, err)
		}

		fmt.Printf("    Created booking: %s (%s, starts %s)\n", booking.BookingRef, data.policy, start.Format(time.RFC3339))
	}

	return nil
}
