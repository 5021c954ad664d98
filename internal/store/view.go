package store

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/emilianosoriano/Grocery-Expiration-Tracker/internal/models"
)

// ExpiringSoonDays is the inclusive window for the "expiring" filter.
const ExpiringSoonDays = 7

// ListFilter selects either the expiring-soon view or one category.
type ListFilter string

// FilterExpiring shows items expiring within ExpiringSoonDays,
// including already-expired ones.
const FilterExpiring ListFilter = "expiring"

// CategoryFilter builds a filter matching a single category.
func CategoryFilter(c models.Category) ListFilter {
	return ListFilter(c)
}

// DaysUntilExpiration returns the whole days from today's midnight to
// the expiration date's midnight, rounded up. Negative means expired.
// A malformed date counts as expiring today.
func DaysUntilExpiration(expirationDate string, now time.Time) int {
	exp, err := time.ParseInLocation("2006-01-02", expirationDate, now.Location())
	if err != nil {
		return 0
	}
	diff := exp.Sub(midnight(now)).Hours() / 24
	return int(math.Ceil(diff))
}

// DaysOverExpiration returns the whole days today's midnight is past
// the expiration date's midnight, rounded down. Negative means not yet
// expired.
func DaysOverExpiration(expirationDate string, now time.Time) int {
	exp, err := time.ParseInLocation("2006-01-02", expirationDate, now.Location())
	if err != nil {
		return 0
	}
	diff := midnight(now).Sub(exp).Hours() / 24
	return int(math.Floor(diff))
}

func midnight(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// FilterItems applies the home-screen filter pipeline: a non-empty
// search term restricts by case-insensitive name substring and
// suppresses the category/expiring filter entirely; otherwise exactly
// one of the expiring window or a category equality filter applies. A
// zero-value filter applies no restriction.
func FilterItems(items []models.GroceryItem, search string, filter ListFilter, now time.Time) []models.GroceryItem {
	out := make([]models.GroceryItem, 0, len(items))

	if term := strings.TrimSpace(search); term != "" {
		term = strings.ToLower(term)
		for _, item := range items {
			if strings.Contains(strings.ToLower(item.Name), term) {
				out = append(out, item)
			}
		}
		return out
	}

	if filter == "" {
		return append(out, items...)
	}

	for _, item := range items {
		if filter == FilterExpiring {
			if DaysUntilExpiration(item.ExpirationDate, now) <= ExpiringSoonDays {
				out = append(out, item)
			}
		} else if item.Category == models.Category(filter) {
			out = append(out, item)
		}
	}
	return out
}

// Urgency classifies how close to expiring an item is, for display.
type Urgency int

const (
	UrgencyOK Urgency = iota
	UrgencyWarning
	UrgencyDanger
)

// UrgencyFor maps days remaining to a display urgency tier.
func UrgencyFor(days int) Urgency {
	switch {
	case days <= 2:
		return UrgencyDanger
	case days <= 5:
		return UrgencyWarning
	default:
		return UrgencyOK
	}
}

// FormatDaysRemaining renders a days-remaining count for display.
func FormatDaysRemaining(days int) string {
	switch {
	case days < 0:
		return "Expired"
	case days == 0:
		return "Today"
	case days == 1:
		return "1 day"
	default:
		return strconv.Itoa(days) + " days"
	}
}
