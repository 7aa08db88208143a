package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"salon-manager/models"
	"salon-manager/monitoring"
)

// VoucherExpiry deactivates client vouchers past their expiration date.
type VoucherExpiry struct {
	repo models.ClientStore
	log  logrus.FieldLogger
	now  func() time.Time
}

func NewVoucherExpiry(repo models.ClientStore, log logrus.FieldLogger) *VoucherExpiry {
	return &VoucherExpiry{repo: repo, log: log.WithField("job", "voucher_expiry"), now: time.Now}
}

// Run performs one pass and reports how many vouchers it deactivated.
func (j *VoucherExpiry) Run(ctx context.Context) (int, error) {
	n, err := j.repo.ExpireClientVouchers(ctx, j.now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		monitoring.VouchersExpired.Add(float64(n))
	}
	j.log.WithField("expired", n).Info("voucher expiry finished")
	return n, nil
}

// Scheduler runs the maintenance jobs on their cron schedules.
type Scheduler struct {
	cron *cron.Cron
	log  logrus.FieldLogger
}

// NewScheduler registers the voucher expiry job under spec, a standard cron
// expression or descriptor such as "@daily".
func NewScheduler(spec string, job *VoucherExpiry, log logrus.FieldLogger) (*Scheduler, error) {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := job.Run(ctx); err != nil {
			log.WithError(err).Error("voucher expiry failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid voucher expiry schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c, log: log}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
