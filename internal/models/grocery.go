package models

// GroceryItem is one tracked product, stored as a document in the
// "groceries" collection. Purchase and expiration dates are calendar
// dates in YYYY-MM-DD form; CreatedAt/UpdatedAt are RFC 3339 timestamps
// stamped by the client at write time.
type GroceryItem struct {
	ID             string   `json:"id"`
	UserID         string   `json:"userId"`
	Name           string   `json:"name"`
	Category       Category `json:"category"`
	PurchaseDate   string   `json:"purchaseDate"`
	ExpirationDate string   `json:"expirationDate"`
	PhotoURL       string   `json:"photoUrl,omitempty"`
	CreatedAt      string   `json:"createdAt"`
	UpdatedAt      string   `json:"updatedAt"`
}

// UserSettings is the per-user settings document, keyed by user id in
// the "settings" collection.
type UserSettings struct {
	UserID            string `json:"userId"`
	AutoDeleteExpired bool   `json:"autoDeleteExpired"`
	DeleteAfterDays   int    `json:"deleteAfterDays"`
	ExpiringReminders bool   `json:"expiringReminders"`
	UpdatedAt         string `json:"updatedAt"`
}

// DefaultSettings returns the settings a new user starts with.
func DefaultSettings(userID string) UserSettings {
	return UserSettings{
		UserID:            userID,
		AutoDeleteExpired: true,
		DeleteAfterDays:   3,
		ExpiringReminders: true,
	}
}

// DeleteAfterDayOptions are the thresholds offered by the settings screen.
var DeleteAfterDayOptions = []int{1, 2, 3, 5, 7}
