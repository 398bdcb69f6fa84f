package notifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrySendDropsWhenFull(t *testing.T) {
	q := NewQueue(2)

	assert.True(t, q.TrySend(UserProfile{Name: "did:plc:a"}))
	assert.True(t, q.TrySend(UserProfile{Name: "did:plc:b"}))
	assert.False(t, q.TrySend(UserProfile{Name: "did:plc:c"}))

	// draining one slot makes room again
	got := <-q.C()
	assert.Equal(t, "did:plc:a", got.Name)
	assert.True(t, q.TrySend(UserProfile{Name: "did:plc:d"}))
}

func TestQueueSizeFallback(t *testing.T) {
	q := NewQueue(0)
	for i := 0; i < 30; i++ {
		assert.True(t, q.TrySend(UserProfile{}))
	}
	assert.False(t, q.TrySend(UserProfile{}))
}
