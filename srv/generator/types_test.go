package generator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgress_SubscribeReceivesUpdates(t *testing.T) {
	p := NewProgress("abc", nil)
	p.UpdateOutput("before subscribe")

	history, updates, cancel := p.Subscribe(4)
	defer cancel()
	require.Len(t, history, 1)
	assert.Equal(t, "before subscribe", history[0].Message)

	p.UpdateState(StateGenerating)
	select {
	case msg := <-updates:
		assert.Equal(t, string(StateGenerating), msg.Status)
		assert.Equal(t, "update", msg.Type)
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}
	assert.Equal(t, StateGenerating, p.GetState())
}

func TestProgress_SlowSubscriberDoesNotBlock(t *testing.T) {
	p := NewProgress("abc", nil)
	_, _, cancel := p.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			p.UpdateOutput(fmt.Sprintf("line %d", i))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SendUpdate blocked on a full subscriber")
	}
	assert.Len(t, p.History(), 10)
}

func TestProgress_CancelIsIdempotent(t *testing.T) {
	p := NewProgress("abc", nil)
	_, updates, cancel := p.Subscribe(1)
	cancel()
	cancel()
	_, open := <-updates
	assert.False(t, open)
	p.UpdateOutput("nobody listening")
}

func TestProgress_HistoryIsBounded(t *testing.T) {
	p := NewProgress("abc", nil)
	for i := 0; i < maxHistory+25; i++ {
		p.UpdateOutput("x")
	}
	assert.Len(t, p.History(), maxHistory)
}

func TestRun(t *testing.T) {
	p := NewProgress("abc", nil)
	err := Run(context.Background(), p, time.Second, "Generating suggestions", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, p.GetState())

	err = Run(context.Background(), p, 10*time.Millisecond, "Generating endings", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateError, p.GetState())

	history := p.History()
	assert.Equal(t, string(StateError), history[len(history)-1].Status)
}
