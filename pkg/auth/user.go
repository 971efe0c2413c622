package auth

import "time"

// User is the durable identity record for a guild member.
//
// ProviderID is the Battle.net account id and is unique and immutable
// once set. ID never changes and is the only key the rest of the
// application references. BattleTag may be empty when the provider has
// not yet returned one; NeedsRefresh marks such records for a later
// profile re-fetch instead of storing a magic placeholder string.
type User struct {
	ID           int64
	ProviderID   string
	BattleTag    string
	NeedsRefresh bool
	Email        string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
	LastLogin    time.Time
	CreatedAt    time.Time
	IsMember     bool
	IsOfficer    bool
	Region       string
	Locale       string
	AvatarURL    string
}

// PublicUser is the externally visible view of a user. It carries no
// token material and is safe to serialize into API responses.
type PublicUser struct {
	ID        int64  `json:"id"`
	BattleTag string `json:"battle_tag"`
	AvatarURL string `json:"avatar_url,omitempty"`
	IsMember  bool   `json:"is_member"`
	IsOfficer bool   `json:"is_officer"`
	Region    string `json:"region,omitempty"`
	Locale    string `json:"locale,omitempty"`
}

// Public returns the token-free view of the user. An unresolved
// BattleTag is rendered as "Unknown" at this edge only; the stored
// record keeps the empty value and the NeedsRefresh flag.
func (u *User) Public() PublicUser {
	tag := u.BattleTag
	if tag == "" {
		tag = "Unknown"
	}
	return PublicUser{
		ID:        u.ID,
		BattleTag: tag,
		AvatarURL: u.AvatarURL,
		IsMember:  u.IsMember,
		IsOfficer: u.IsOfficer,
		Region:    u.Region,
		Locale:    u.Locale,
	}
}

// TokenExpired reports whether the stored access token has passed its
// recorded expiry.
func (u *User) TokenExpired() bool {
	return !u.TokenExpiry.IsZero() && time.Now().After(u.TokenExpiry)
}
