package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caldermed/triage/internal/domain"
)

func TestAppendAndHistoryPreserveOrder(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.Append("s1", domain.ChatTurn{Role: domain.ChatRoleUser, Text: "first"}))
	require.NoError(t, store.Append("s1", domain.ChatTurn{Role: domain.ChatRoleAssistant, Text: "second"}))
	require.NoError(t, store.Append("s1", domain.ChatTurn{Role: domain.ChatRoleUser, Text: "third"}))

	history := store.History("s1")
	require.Len(t, history, 3)
	assert.Equal(t, "first", history[0].Text)
	assert.Equal(t, "second", history[1].Text)
	assert.Equal(t, "third", history[2].Text)
	assert.False(t, history[0].Timestamp.IsZero())
}

func TestAppendRejectsInvalidTurns(t *testing.T) {
	store := NewStore()

	err := store.Append("s1", domain.ChatTurn{Role: "system", Text: "hi"})
	assert.ErrorIs(t, err, domain.ErrInvalidChatRole)

	err = store.Append("s1", domain.ChatTurn{Role: domain.ChatRoleUser, Text: "  "})
	assert.Error(t, err)

	assert.Empty(t, store.History("s1"))
}

func TestHistoryUnknownSessionIsEmpty(t *testing.T) {
	store := NewStore()
	assert.Empty(t, store.History("missing"))
}

func TestHistoryReturnsCopy(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Append("s1", domain.ChatTurn{Role: domain.ChatRoleUser, Text: "original"}))

	history := store.History("s1")
	history[0].Text = "mutated"

	assert.Equal(t, "original", store.History("s1")[0].Text)
}

func TestClearRemovesSession(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Append("s1", domain.ChatTurn{Role: domain.ChatRoleUser, Text: "hi"}))

	store.Clear("s1")
	assert.Empty(t, store.History("s1"))

	// Unknown session is a no-op.
	store.Clear("missing")
}

func TestConcurrentAppendsKeepEveryTurn(t *testing.T) {
	store := NewStore()

	const writers = 8
	const perWriter = 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				err := store.Append("shared", domain.ChatTurn{
					Role: domain.ChatRoleUser,
					Text: fmt.Sprintf("writer %d turn %d", w, i),
				})
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	history := store.History("shared")
	assert.Len(t, history, writers*perWriter)

	// Each writer's own turns appear in its submission order.
	positions := make(map[int]int, writers)
	for _, turn := range history {
		var w, i int
		_, err := fmt.Sscanf(turn.Text, "writer %d turn %d", &w, &i)
		require.NoError(t, err)
		assert.Equal(t, positions[w], i)
		positions[w]++
	}
}

func TestWindowReturnsMostRecentTurns(t *testing.T) {
	turns := make([]domain.ChatTurn, 0, 30)
	for i := 0; i < 30; i++ {
		turns = append(turns, domain.ChatTurn{Role: domain.ChatRoleUser, Text: fmt.Sprintf("turn %d", i)})
	}

	window := Window(turns, 20)
	require.Len(t, window, 20)
	assert.Equal(t, "turn 10", window[0].Text)
	assert.Equal(t, "turn 29", window[19].Text)

	assert.Len(t, Window(turns[:5], 20), 5)
	assert.Len(t, Window(turns, 0), 30)
}
