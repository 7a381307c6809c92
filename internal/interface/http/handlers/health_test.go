package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestCompositeHealthChecker_NoChecks(t *testing.T) {
	status := NewCompositeHealthChecker("v1").Check(context.Background())
	assert.True(t, status.Healthy)
	assert.True(t, status.Ready)
	assert.Equal(t, "v1", status.Version)
}

func TestCompositeHealthChecker_RequiredAndOptional(t *testing.T) {
	c := NewCompositeHealthChecker("v1")
	c.AddCheck("postgres", NewPingCheck(pinger{}))
	c.AddOptionalCheck("redis", NewPingCheck(pinger{err: errors.New("connection refused")}))

	status := c.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.True(t, status.Ready)
	assert.Equal(t, "Some checks failed: redis", status.Message)
	assert.True(t, status.Checks["postgres"].Healthy)
	assert.Equal(t, "connection refused", status.Checks["redis"].Message)
	assert.True(t, status.Checks["redis"].Optional)

	c.AddCheck("postgres", NewPingCheck(nil))
	status = c.Check(context.Background())
	assert.False(t, status.Ready)
	assert.Equal(t, "Some checks failed: postgres, redis", status.Message)
	assert.Equal(t, ErrNotConfigured.Error(), status.Checks["postgres"].Message)

	c.RemoveCheck("postgres")
	c.RemoveCheck("redis")
	assert.True(t, c.Check(context.Background()).Healthy)
}

func TestCompositeHealthChecker_Timeout(t *testing.T) {
	c := NewCompositeHealthChecker("v1")
	c.SetTimeout(20 * time.Millisecond)
	c.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	status := c.Check(context.Background())
	assert.False(t, status.Ready)
	assert.Equal(t, context.DeadlineExceeded.Error(), status.Checks["slow"].Message)
}
