package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bhashakit/core"
)

func TestMemoryStorePutGet(t *testing.T) {
	store := NewMemoryStore()

	_, ok := store.Get("missing")
	assert.False(t, ok)

	store.Put(&Session{ID: "s1", primingLen: 1})
	s, ok := store.Get("s1")
	require.True(t, ok)
	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, 1, s.PrimingLen())
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStoreWithLockUnknownSession(t *testing.T) {
	store := NewMemoryStore()
	err := store.WithLock("missing", func(s *Session) error { return nil })
	require.Error(t, err)
}

func TestMemoryStoreWithLockSerializesMutation(t *testing.T) {
	store := NewMemoryStore()
	store.Put(&Session{ID: "s1"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.WithLock("s1", func(s *Session) error {
				s.History = append(s.History, core.ChatMessage{Role: core.ChatRoleUser, Text: "x"})
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s, _ := store.Get("s1")
	assert.Len(t, s.History, 50)
}
