package shutdown

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManager_RunsHooksInPriorityOrder(t *testing.T) {
	m := NewManager(5*time.Second, nil)

	var mu sync.Mutex
	var order []string
	record := func(name string) HookFunc {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}

	m.Register("database", 10, record("database"))
	m.Register("server", 30, record("server"))
	m.Register("workers", 20, record("workers"))

	m.Shutdown()

	assert.Equal(t, []string{"server", "workers", "database"}, order)
}

func TestManager_HookErrorDoesNotStopOthers(t *testing.T) {
	m := NewManager(5*time.Second, nil)

	ran := false
	m.Register("failing", 20, func(context.Context) error {
		return errors.New("boom")
	})
	m.Register("after", 10, func(context.Context) error {
		ran = true
		return nil
	})

	m.Shutdown()
	assert.True(t, ran)
}

func TestManager_RecoversHookPanic(t *testing.T) {
	m := NewManager(5*time.Second, nil)

	ran := false
	m.Register("panicking", 20, func(context.Context) error {
		panic("boom")
	})
	m.Register("after", 10, func(context.Context) error {
		ran = true
		return nil
	})

	m.Shutdown()
	assert.True(t, ran)
}

func TestManager_ShutdownIsIdempotent(t *testing.T) {
	m := NewManager(5*time.Second, nil)

	count := 0
	m.Register("once", 10, func(context.Context) error {
		count++
		return nil
	})

	m.Shutdown()
	m.Shutdown()

	assert.Equal(t, 1, count)

	select {
	case <-m.Done():
	default:
		t.Fatal("done channel not closed")
	}
}
