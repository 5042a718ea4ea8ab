package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestCacheService(t *testing.T) {
	defer goleak.VerifyNone(t)

	cs := NewCacheService(time.Hour)
	defer cs.Close()

	clock := time.Now()
	cs.now = func() time.Time { return clock }

	cs.Set("idem:a", 1, time.Minute)
	v, ok := cs.Get("idem:a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	assert.False(t, cs.SetIfAbsent("idem:a", 2, time.Minute))
	assert.True(t, cs.SetIfAbsent("idem:b", 2, time.Minute))

	clock = clock.Add(2 * time.Minute)
	_, ok = cs.Get("idem:a")
	assert.False(t, ok, "expired entries are invisible")
	assert.True(t, cs.SetIfAbsent("idem:a", 3, time.Minute), "expired entries can be replaced")

	cs.sweep()
	assert.Equal(t, 1, cs.Len())

	cs.Set("other", 1, time.Minute)
	cs.InvalidateByPrefix("idem:")
	assert.Equal(t, 1, cs.Len())

	cs.Close()
	cs.Close()
}
