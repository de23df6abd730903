package user

import "context"

// Repository is the storage contract for users.
type Repository interface {
	// Create inserts a new user. Returns shared.ErrUserAlreadyExists when the
	// SteamID is already registered.
	Create(ctx context.Context, u *User) error

	// GetByID returns a user by internal ID.
	// Returns shared.ErrUserNotFound when absent.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetBySteamID returns a user by Steam identity.
	// Returns shared.ErrUserNotFound when absent.
	GetBySteamID(ctx context.Context, steamID SteamID) (*User, error)

	// UpdateProfile persists the display metadata after a profile refresh.
	UpdateProfile(ctx context.Context, u *User) error

	// SetHouse persists a house assignment.
	SetHouse(ctx context.Context, userID string, houseID int64) error

	// TopByGeneralPoints returns up to limit users ordered by lifetime
	// points descending, ties broken by username ascending.
	TopByGeneralPoints(ctx context.Context, limit int) ([]*User, error)

	// ListIDs returns user IDs in pages, ordered by ID ascending. An empty
	// afterID starts from the beginning. Used by the re-evaluation sweep.
	ListIDs(ctx context.Context, afterID string, limit int) ([]string, error)
}
