package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"salonflow-backend/config"
)

// Scheduler owns the recurring automation jobs: appointment reminders,
// aftercare check-ins, lapsed-client flagging and follow-up surfacing.
type Scheduler struct {
	cron       *cron.Cron
	settings   *config.Settings
	reminders  *ReminderService
	aftercare  *AftercareService
	clients    *ClientService
	leads      *LeadService
}

func NewScheduler(settings *config.Settings, reminders *ReminderService, aftercare *AftercareService, clients *ClientService, leads *LeadService) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(settings.Timezone)),
		settings:  settings,
		reminders: reminders,
		aftercare: aftercare,
		clients:   clients,
		leads:     leads,
	}
}

// Start registers the jobs and launches the cron loop. Jobs run in the
// salon's timezone so "8 AM" means 8 AM at the front desk.
func (s *Scheduler) Start() error {
	jobs := []struct {
		spec string
		name string
		run  func(context.Context)
	}{
		{fmt.Sprintf("0 %d * * *", s.settings.ReminderHour), "reminders", func(ctx context.Context) {
			s.reminders.RunSweep(ctx)
		}},
		{fmt.Sprintf("0 %d * * *", s.settings.AftercareHour), "aftercare", func(ctx context.Context) {
			s.aftercare.RunSweep(ctx)
		}},
		{fmt.Sprintf("30 %d * * MON", s.settings.AftercareHour), "lapsed-flagging", func(ctx context.Context) {
			if n, err := s.clients.FlagLapsed(ctx); err != nil {
				log.Error().Err(err).Msg("Lapsed flagging failed")
			} else if n > 0 {
				log.Info().Int64("flagged", n).Msg("Clients flagged as lapsed")
			}
		}},
		{fmt.Sprintf("0 %d * * *", s.settings.FollowUpHour), "follow-up-surfacing", func(ctx context.Context) {
			s.leads.SurfaceOverdue(ctx)
		}},
	}

	for _, j := range jobs {
		job := j
		_, err := s.cron.AddFunc(job.spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			job.run(ctx)
		})
		if err != nil {
			return fmt.Errorf("schedule %s (%q): %w", job.name, job.spec, err)
		}
		log.Info().Str("job", job.name).Str("spec", job.spec).Msg("Scheduled job")
	}

	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits for any running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
