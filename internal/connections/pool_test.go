package connections

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hippos-ai/hippos/pkg/types"
)

func TestCheckoutAndReturnRoundTrip(t *testing.T) {
	pool := NewPool([]int{1, 2, 3})

	r, err := pool.Checkout(context.Background(), 0)
	if err != nil {
		t.Fatalf("Checkout() failed: %v", err)
	}
	if pool.Len() != 2 {
		t.Errorf("Len() after checkout: got %d, want 2", pool.Len())
	}

	pool.Return(r)
	if pool.Len() != 3 {
		t.Errorf("Len() after return: got %d, want 3", pool.Len())
	}
}

func TestCheckoutBlocksUntilReturned(t *testing.T) {
	pool := NewPool([]int{1})

	r, err := pool.Checkout(context.Background(), 0)
	if err != nil {
		t.Fatalf("first Checkout() failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		if _, err := pool.Checkout(context.Background(), time.Second); err != nil {
			t.Errorf("second Checkout() failed: %v", err)
		}
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	pool.Return(r)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second Checkout() did not unblock after Return()")
	}
}

func TestCheckoutTimesOutWhenPoolIsExhausted(t *testing.T) {
	pool := NewPool([]int{1})
	if _, err := pool.Checkout(context.Background(), 0); err != nil {
		t.Fatalf("Checkout() failed: %v", err)
	}

	_, err := pool.Checkout(context.Background(), 20*time.Millisecond)
	if !errors.Is(err, types.ErrTimeout) {
		t.Errorf("Checkout() on an exhausted pool: got err %v, want ErrTimeout", err)
	}
}

func TestCheckoutFailsOnClosedPool(t *testing.T) {
	pool := NewPool([]int{1})
	pool.Close()

	_, err := pool.Checkout(context.Background(), 0)
	if !errors.Is(err, types.ErrBackend) {
		t.Errorf("Checkout() on a closed pool: got err %v, want ErrBackend", err)
	}
}

func TestCheckoutRespectsContextCancellation(t *testing.T) {
	pool := NewPool([]int{1})
	if _, err := pool.Checkout(context.Background(), 0); err != nil {
		t.Fatalf("Checkout() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pool.Checkout(ctx, 0)
	if !errors.Is(err, types.ErrCancelled) {
		t.Errorf("Checkout() with cancelled context: got err %v, want ErrCancelled", err)
	}
}
