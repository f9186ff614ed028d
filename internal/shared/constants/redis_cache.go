package constants

import (
	"fmt"
	"time"
)

// Redis Cache Configuration
// Pattern: deskly:{module}:{operation}:{identifier}:{params?}

// ================== CACHE TTL DURATIONS ==================

const (
	TTL_SEMI_STATIC_MEDIUM = 2 * time.Hour
	TTL_DYNAMIC_SHORT      = 5 * time.Minute
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "deskly"
)

// ================== CANCELLATION MODULE ==================

// Cancellation Cache Keys
const (
	CACHE_KEY_CANCELLATION_POLICY = CACHE_PREFIX + ":cancellation:policy:listing:" // + listing-id
)

// Cancellation Cache TTLs
const (
	TTL_CANCELLATION_POLICY = TTL_SEMI_STATIC_MEDIUM // 2 hours
)

// ================== BOOKINGS MODULE ==================

// Booking Cache Keys
const (
	CACHE_KEY_USER_BOOKINGS = CACHE_PREFIX + ":bookings:user:uuid:" // + user-id:page:X:limit:Y
)

// Booking Cache TTLs
const (
	TTL_USER_BOOKINGS = TTL_DYNAMIC_SHORT // 5 minutes
)

// ================== RATE LIMIT ==================

const (
	CACHE_KEY_RATE_LIMIT = CACHE_PREFIX + ":ratelimit:" // + type:identifier
)

// ================== HELPER FUNCTIONS ==================

// BuildCancellationPolicyKey -> "deskly:cancellation:policy:listing:<id>"
func BuildCancellationPolicyKey(listingID string) string {
	return CACHE_KEY_CANCELLATION_POLICY + listingID
}

func BuildUserBookingsKey(userID string, page, limit int) string {
	return CACHE_KEY_USER_BOOKINGS + userID + ":page:" + fmt.Sprintf("%d", page) + ":limit:" + fmt.Sprintf("%d", limit)
}

// PatternUserBookings matches every cached page for a user
func PatternUserBookings(userID string) string {
	return CACHE_KEY_USER_BOOKINGS + userID + ":*"
}

func BuildRateLimitKey(limitType, identifier string) string {
	return CACHE_KEY_RATE_LIMIT + limitType + ":" + identifier
}
