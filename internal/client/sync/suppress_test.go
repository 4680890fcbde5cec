package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSuppressor_MarkAndClear(t *testing.T) {
	s := NewSuppressor(20 * time.Millisecond)

	assert.False(t, s.Suppressed("n1"))

	s.MarkEditing("n1")
	assert.True(t, s.Suppressed("n1"))
	assert.False(t, s.Suppressed("n2"))

	// suppression holds until DoneEditing arms the clear
	time.Sleep(50 * time.Millisecond)
	assert.True(t, s.Suppressed("n1"))

	s.DoneEditing("n1")
	assert.True(t, s.Suppressed("n1"))

	assert.Eventually(t, func() bool { return !s.Suppressed("n1") },
		time.Second, 5*time.Millisecond)
}

func TestSuppressor_ReEditRearmsTimer(t *testing.T) {
	s := NewSuppressor(40 * time.Millisecond)

	s.MarkEditing("n1")
	s.DoneEditing("n1")

	// a new edit before the delay elapses cancels the pending clear
	time.Sleep(20 * time.Millisecond)
	s.MarkEditing("n1")
	time.Sleep(60 * time.Millisecond)
	assert.True(t, s.Suppressed("n1"))

	s.DoneEditing("n1")
	assert.Eventually(t, func() bool { return !s.Suppressed("n1") },
		time.Second, 5*time.Millisecond)
}

func TestSuppressor_DoneWithoutMarkIsNoop(t *testing.T) {
	s := NewSuppressor(10 * time.Millisecond)
	s.DoneEditing("never-marked")
	assert.False(t, s.Suppressed("never-marked"))
}
