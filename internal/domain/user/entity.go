// Package user contains the user aggregate: Steam identity, house membership
// and the lifetime point total awards accrue into.
package user

import (
	"strings"
	"time"

	"github.com/yomigarei-dotcom/houses-steam-planner/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// SteamID is the 64-bit Steam community identifier in string form.
type SteamID string

// IsValid checks the SteamID shape: 17 decimal digits starting with 7656.
func (s SteamID) IsValid() bool {
	str := string(s)
	if len(str) != 17 || !strings.HasPrefix(str, "7656") {
		return false
	}
	for _, c := range str {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// String returns the string representation of the SteamID.
func (s SteamID) String() string {
	return string(s)
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: USER
// ══════════════════════════════════════════════════════════════════════════════

// User is a registered Steam account tracked by the planner.
type User struct {
	// ID is the internal identifier (UUID in string form).
	ID string

	// SteamID is the external Steam identity the account is bound to.
	SteamID SteamID

	// Username is the Steam persona name from the last profile sync.
	Username string

	// AvatarURL and ProfileURL are display metadata from the Steam profile.
	AvatarURL  string
	ProfileURL string

	// HouseID is the house the user belongs to; 0 means unassigned.
	HouseID int64

	// GeneralPoints is the lifetime point total across all seasons. It is
	// only ever incremented by the award ledger, never set directly.
	GeneralPoints int

	// StartDate is when the account joined the planner.
	StartDate time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser creates a user from a verified Steam identity.
func NewUser(id string, steamID SteamID, username, avatarURL, profileURL string) (*User, error) {
	if id == "" {
		return nil, shared.NewDomainError("user", "New", shared.ErrInvalidID, "user id is required")
	}
	if !steamID.IsValid() {
		return nil, shared.ErrInvalidSteamID
	}

	now := time.Now().UTC()
	return &User{
		ID:         id,
		SteamID:    steamID,
		Username:   strings.TrimSpace(username),
		AvatarURL:  avatarURL,
		ProfileURL: profileURL,
		StartDate:  now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// HasHouse returns true once the user has been sorted into a house.
func (u *User) HasHouse() bool {
	return u.HouseID > 0
}

// JoinHouse assigns the user to a house. Re-sorting into another house is
// allowed; the original membership simply moves.
func (u *User) JoinHouse(houseID int64) error {
	if houseID <= 0 {
		return shared.ErrHouseNotFound
	}
	u.HouseID = houseID
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// RefreshProfile updates the display metadata after a Steam profile sync.
func (u *User) RefreshProfile(username, avatarURL, profileURL string) {
	if username = strings.TrimSpace(username); username != "" {
		u.Username = username
	}
	if avatarURL != "" {
		u.AvatarURL = avatarURL
	}
	if profileURL != "" {
		u.ProfileURL = profileURL
	}
	u.UpdatedAt = time.Now().UTC()
}

// Clone returns a copy of the user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}
