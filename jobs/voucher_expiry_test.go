package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salon-manager/models"
)

type expiringStore struct {
	models.ClientStore
	calls []time.Time
	n     int
	err   error
	ran   chan struct{}
}

func (s *expiringStore) ExpireClientVouchers(_ context.Context, now time.Time) (int, error) {
	s.calls = append(s.calls, now)
	if s.ran != nil {
		select {
		case s.ran <- struct{}{}:
		default:
		}
	}
	return s.n, s.err
}

func TestVoucherExpiryRun(t *testing.T) {
	store := &expiringStore{n: 2}
	log, hook := test.NewNullLogger()
	job := NewVoucherExpiry(store, log)
	fixed := time.Date(2024, 6, 1, 3, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	job.now = func() time.Time { return fixed }

	n, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, store.calls, 1)
	assert.Equal(t, time.UTC, store.calls[0].Location())
	assert.Equal(t, 2, hook.LastEntry().Data["expired"])

	store.err = errors.New("db down")
	_, err = job.Run(context.Background())
	assert.EqualError(t, err, "db down")
}

func TestNewSchedulerRejectsBadSchedule(t *testing.T) {
	log, _ := test.NewNullLogger()
	job := NewVoucherExpiry(&expiringStore{}, log)

	_, err := NewScheduler("every tuesday", job, log)
	assert.ErrorContains(t, err, "invalid voucher expiry schedule")

	s, err := NewScheduler("@daily", job, log)
	require.NoError(t, err)
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestSchedulerRunsJob(t *testing.T) {
	store := &expiringStore{ran: make(chan struct{}, 1)}
	log, _ := test.NewNullLogger()
	s, err := NewScheduler("@every 1s", NewVoucherExpiry(store, log), log)
	require.NoError(t, err)
	s.Start()
	defer s.Stop(context.Background())

	select {
	case <-store.ran:
	case <-time.After(3 * time.Second):
		t.Fatal("voucher expiry did not run")
	}
}
