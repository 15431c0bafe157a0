package verification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(time.Minute)
	defer store.Stop()

	store.Save(&Context{
		Email:    "user@example.com",
		UID:      "uid1",
		Service:  "abc123",
		ClientID: "abc123",
	})

	got := store.Load("user@example.com", "uid1")
	require.NotNil(t, got)
	assert.Equal(t, "abc123", got.ClientID)

	// A different uid under the same email is a different flow.
	assert.Nil(t, store.Load("user@example.com", "uid2"))

	store.Delete("user@example.com", "uid1")
	assert.Nil(t, store.Load("user@example.com", "uid1"))
}

func TestStoreExpiry(t *testing.T) {
	store := NewStore(20 * time.Millisecond)
	defer store.Stop()

	store.Save(&Context{Email: "a@b.c", UID: "u"})
	require.NotNil(t, store.Load("a@b.c", "u"))

	time.Sleep(60 * time.Millisecond)
	assert.Nil(t, store.Load("a@b.c", "u"))
}
