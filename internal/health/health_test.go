package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCheckBasic(t *testing.T) {
	ok := NewHealthChecker(pingFunc(func(context.Context) error { return nil }), nil)
	status := ok.CheckBasic(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "disabled", status.Redis)
	assert.Nil(t, status.Host)

	down := NewHealthChecker(pingFunc(func(context.Context) error { return errors.New("refused") }),
		func() bool { return false })
	status = down.CheckBasic(context.Background())
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "unavailable", status.Redis)
}

func TestRedisDoesNotAffectOverallStatus(t *testing.T) {
	h := NewHealthChecker(pingFunc(func(context.Context) error { return nil }), func() bool { return false })
	assert.Equal(t, "healthy", h.CheckBasic(context.Background()).Status)
}

func TestCheckDetailedIncludesHost(t *testing.T) {
	h := NewHealthChecker(pingFunc(func(context.Context) error { return nil }), nil)
	assert.NotNil(t, h.CheckDetailed(context.Background()).Host)
}
