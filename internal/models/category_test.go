package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryByID(t *testing.T) {
	info := CategoryByID(CategoryDairyEggs)
	require.NotNil(t, info)
	assert.Equal(t, "Dairy & Eggs", info.Label)
	assert.NotEmpty(t, info.Emoji)

	assert.Nil(t, CategoryByID("weapons"))
}

func TestCategoryIsValid(t *testing.T) {
	for _, info := range Categories {
		assert.True(t, info.ID.IsValid(), string(info.ID))
	}
	assert.False(t, Category("").IsValid())
	assert.False(t, Category("Dairy-Eggs").IsValid(), "ids are lowercase")
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings("alice")
	assert.Equal(t, "alice", s.UserID)
	assert.True(t, s.AutoDeleteExpired)
	assert.Equal(t, 3, s.DeleteAfterDays)
	assert.True(t, s.ExpiringReminders)
	assert.Contains(t, DeleteAfterDayOptions, s.DeleteAfterDays)
}
