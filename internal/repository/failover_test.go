package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.Bool(1), args.Error(2)
}

func (m *mockCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, data, ttl)
	return args.Error(0)
}

func (m *mockCache) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockCache) CheckRateLimit(ctx context.Context, clientID string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, clientID, limit, window)
	return args.Bool(0), args.Error(1)
}

func TestFailoverListingCache(t *testing.T) {
	primary := new(mockCache)
	fallback := new(mockCache)
	logger := zerolog.New(io.Discard)
	cache := NewFailoverListingCache(primary, fallback, &logger)
	ctx := context.Background()

	t.Run("PrimarySuccess", func(t *testing.T) {
		primary.On("Get", ctx, "k1").Return([]byte("v1"), true, nil).Once()

		data, ok, err := cache.Get(ctx, "k1")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("v1"), data)
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		primary.On("Get", ctx, "k2").Return(nil, false, errors.New("fail")).Once()
		fallback.On("Get", ctx, "k2").Return([]byte("v2"), true, nil).Once()

		data, ok, err := cache.Get(ctx, "k2")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("v2"), data)
		assert.True(t, cache.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("SetUsesFallbackWhileDown", func(t *testing.T) {
		fallback.On("Set", ctx, "k3", []byte("v3"), time.Minute).Return(nil).Once()

		err := cache.Set(ctx, "k3", []byte("v3"), time.Minute)
		assert.NoError(t, err)
		fallback.AssertExpectations(t)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		cache.isDown.Store(true)
		cache.lastCheck = time.Now().Add(-2 * time.Minute)

		primary.On("Get", ctx, "k4").Return([]byte("v4"), true, nil).Once()

		data, ok, err := cache.Get(ctx, "k4")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("v4"), data)
		assert.False(t, cache.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("InvalidateClearsBoth", func(t *testing.T) {
		cache.isDown.Store(false)
		primary.On("Invalidate", ctx).Return(nil).Once()
		fallback.On("Invalidate", ctx).Return(nil).Once()

		err := cache.Invalidate(ctx)
		assert.NoError(t, err)
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("RateLimitFailover", func(t *testing.T) {
		cache.isDown.Store(false)
		primary.On("CheckRateLimit", ctx, "c1", 5, time.Minute).Return(false, errors.New("fail")).Once()
		fallback.On("CheckRateLimit", ctx, "c1", 5, time.Minute).Return(true, nil).Once()

		allowed, err := cache.CheckRateLimit(ctx, "c1", 5, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})
}
