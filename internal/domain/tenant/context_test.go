package tenant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrent(t *testing.T) {
	t.Run("absent outside any binding", func(t *testing.T) {
		_, ok := Current(context.Background())
		assert.False(t, ok)
		assert.Empty(t, TenantID(context.Background()))
	})

	t.Run("returns the bound identity inside Run", func(t *testing.T) {
		want := Identity{TenantID: "t-1", UserID: "u-1", Role: RoleSeller}
		err := Run(context.Background(), want, func(ctx context.Context) error {
			got, ok := Current(ctx)
			require.True(t, ok)
			assert.Equal(t, want, got)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("Run propagates the callback error", func(t *testing.T) {
		boom := errors.New("boom")
		err := Run(context.Background(), Identity{TenantID: "t-1"}, func(context.Context) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("nil context is unbound", func(t *testing.T) {
		//nolint:staticcheck // exercising the nil guard
		_, ok := Current(nil)
		assert.False(t, ok)
	})
}

func TestRequireTenantID(t *testing.T) {
	t.Run("fails closed without a tenant", func(t *testing.T) {
		id, err := RequireTenantID(context.Background())
		assert.Empty(t, id)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNoTenant)

		var ctxErr *ContextError
		assert.ErrorAs(t, err, &ctxErr)
	})

	t.Run("fails on an empty tenant id", func(t *testing.T) {
		ctx := WithIdentity(context.Background(), Identity{Role: RoleSeller})
		_, err := RequireTenantID(ctx)
		assert.ErrorIs(t, err, ErrNoTenant)
	})

	t.Run("returns the bound tenant", func(t *testing.T) {
		ctx := WithIdentity(context.Background(), Identity{TenantID: "acme"})
		id, err := RequireTenantID(ctx)
		require.NoError(t, err)
		assert.Equal(t, "acme", id)
	})
}

func TestIsAdmin(t *testing.T) {
	assert.False(t, IsAdmin(context.Background()))
	assert.False(t, IsAdmin(WithIdentity(context.Background(), Identity{TenantID: "a", Role: RoleSeller})))
	assert.True(t, IsAdmin(WithIdentity(context.Background(), Identity{TenantID: "a", Role: RoleAdmin})))
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole("admin"))
	assert.Equal(t, RoleSeller, ParseRole("seller"))
	assert.Equal(t, RoleSeller, ParseRole(""))
	assert.Equal(t, RoleSeller, ParseRole("root"))
}

func TestIsolationUnderConcurrency(t *testing.T) {
	const workers = 64

	var wg sync.WaitGroup
	leaks := make(chan string, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			want := fmt.Sprintf("tenant-%d", n)
			_ = Run(context.Background(), Identity{TenantID: want}, func(ctx context.Context) error {
				for step := 0; step < 20; step++ {
					// hop onto another goroutine and block, like a DB round trip would
					done := make(chan string, 1)
					go func() {
						time.Sleep(time.Microsecond)
						done <- TenantID(ctx)
					}()
					if got := <-done; got != want {
						leaks <- fmt.Sprintf("%s observed %s", want, got)
						return nil
					}
				}
				return nil
			})
		}(i)
	}

	wg.Wait()
	close(leaks)

	for leak := range leaks {
		t.Error(leak)
	}
}
