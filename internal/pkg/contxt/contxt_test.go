package contxt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewContext(t *testing.T) {
	ctx := NewContext(context.Background(), 10*time.Millisecond)
	select {
	case <-ctx.Done():
		assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("context not cancelled")
	}
}

func TestNewContext_ParentCancelled(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx := NewContext(parent, time.Hour)
	cancel()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestNewContext_NoTimeout(t *testing.T) {
	parent := context.Background()
	assert.Equal(t, parent, NewContext(parent, 0))
}
