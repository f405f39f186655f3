package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReceipts struct {
	RequestFunc func(ctx context.Context, ref string, snapshot Fields) error
	RetryFunc   func(ctx context.Context, ref string) error
	StatusFunc  func(ctx context.Context, ref string) (ReceiptStatus, error)

	mu       sync.Mutex
	requests int
	retries  int
}

func (m *mockReceipts) Request(ctx context.Context, ref string, snapshot Fields) error {
	m.mu.Lock()
	m.requests++
	m.mu.Unlock()
	if m.RequestFunc != nil {
		return m.RequestFunc(ctx, ref, snapshot)
	}
	return nil
}

func (m *mockReceipts) Retry(ctx context.Context, ref string) error {
	m.mu.Lock()
	m.retries++
	m.mu.Unlock()
	if m.RetryFunc != nil {
		return m.RetryFunc(ctx, ref)
	}
	return nil
}

func (m *mockReceipts) Status(ctx context.Context, ref string) (ReceiptStatus, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, ref)
	}
	return ReceiptPending, nil
}

func submittedWizard(t *testing.T, receipts ReceiptGenerator) *Completion {
	t.Helper()
	w := newScenarioWizard(t, WithReceipts(receipts))
	reachLastStep(t, w)
	require.NoError(t, w.Skip())
	_, err := w.SubmitFinal(context.Background(), &mockSubmitter{})
	require.NoError(t, err)
	c, err := w.Completion()
	require.NoError(t, err)
	return c
}

func TestCompletion_TriggerReceiptFiresOnce(t *testing.T) {
	var gotRef string
	var gotSnapshot Fields
	receipts := &mockReceipts{
		RequestFunc: func(ctx context.Context, ref string, snapshot Fields) error {
			gotRef = ref
			gotSnapshot = snapshot
			return nil
		},
	}
	c := submittedWizard(t, receipts)

	var wg sync.WaitGroup
	fired := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fired <- c.TriggerReceipt(context.Background())
		}()
	}
	wg.Wait()
	close(fired)

	count := 0
	for f := range fired {
		if f {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, receipts.requests)
	assert.Equal(t, c.Result().ReferenceID, gotRef)
	assert.Equal(t, "Asha", gotSnapshot["name"])
	assert.Equal(t, ReceiptPending, c.ReceiptStatus(context.Background()))
}

func TestCompletion_ReceiptFailureLeavesResultIntact(t *testing.T) {
	receipts := &mockReceipts{
		RequestFunc: func(ctx context.Context, ref string, snapshot Fields) error {
			return errors.New("generator offline")
		},
	}
	c := submittedWizard(t, receipts)
	before := c.Result()

	c.TriggerReceipt(context.Background())

	assert.Equal(t, ReceiptFailed, c.ReceiptStatus(context.Background()))
	assert.EqualError(t, c.LastError(), "generator offline")
	assert.Equal(t, before, c.Result())
	assert.Equal(t, StatusPending, c.Result().Status)
}

func TestCompletion_RetryReceipt(t *testing.T) {
	t.Run("refused while pending", func(t *testing.T) {
		c := submittedWizard(t, &mockReceipts{})
		c.TriggerReceipt(context.Background())

		assert.ErrorIs(t, c.RetryReceipt(context.Background()), ErrReceiptNotFailed)
	})

	t.Run("request never reached the generator", func(t *testing.T) {
		fail := true
		receipts := &mockReceipts{
			RequestFunc: func(ctx context.Context, ref string, snapshot Fields) error {
				if fail {
					return errors.New("offline")
				}
				return nil
			},
		}
		c := submittedWizard(t, receipts)
		c.TriggerReceipt(context.Background())
		require.Equal(t, ReceiptFailed, c.ReceiptStatus(context.Background()))

		fail = false
		require.NoError(t, c.RetryReceipt(context.Background()))

		assert.Equal(t, 2, receipts.requests)
		assert.Zero(t, receipts.retries)
		assert.Equal(t, ReceiptPending, c.ReceiptStatus(context.Background()))
	})

	t.Run("generation failed in the worker", func(t *testing.T) {
		status := ReceiptFailed
		receipts := &mockReceipts{
			StatusFunc: func(ctx context.Context, ref string) (ReceiptStatus, error) {
				return status, nil
			},
			RetryFunc: func(ctx context.Context, ref string) error {
				status = ReceiptPending
				return nil
			},
		}
		c := submittedWizard(t, receipts)
		c.TriggerReceipt(context.Background())

		require.NoError(t, c.RetryReceipt(context.Background()))

		assert.Equal(t, 1, receipts.requests)
		assert.Equal(t, 1, receipts.retries)
		assert.Equal(t, ReceiptPending, c.ReceiptStatus(context.Background()))
	})

	t.Run("no generator configured", func(t *testing.T) {
		c := submittedWizard(t, nil)
		c.TriggerReceipt(context.Background())
		assert.Equal(t, ReceiptNotRequested, c.ReceiptStatus(context.Background()))
		assert.ErrorIs(t, c.RetryReceipt(context.Background()), ErrReceiptNotFailed)
	})
}
