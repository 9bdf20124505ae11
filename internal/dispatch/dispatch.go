// Package dispatch implements the daily alert dispatch engine.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"weather_alerts/internal/config"
	"weather_alerts/internal/message"
	"weather_alerts/internal/model"
	"weather_alerts/internal/observability"
	"weather_alerts/internal/sms"
	"weather_alerts/internal/storage"
	"weather_alerts/internal/weather"
	"weather_alerts/internal/window"
)

// Forecaster is the interface to the weather data provider.
type Forecaster interface {
	Forecast(ctx context.Context, lat, lon float64) (*weather.ForecastResponse, error)
}

// Stats are the aggregate counters of one dispatch run.
// Checked always equals Alerted + Skipped + Errors.
type Stats struct {
	Checked int `json:"checked"`
	Alerted int `json:"alerted"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// Result records the terminal state of one subscriber within a run.
type Result struct {
	SubscriberID int64
	Phone        string
	Outcome      model.Outcome
	Reason       model.SkipReason // set for skips
	Err          error            // set for errors
	MessageSID   string           // set for alerts
}

// Report is the full outcome of one dispatch run.
type Report struct {
	Stats   Stats
	Results []Result
}

// Engine runs the per-subscriber alert state machine over the active
// subscriber set.
type Engine struct {
	store      storage.Storage
	forecaster Forecaster
	sender     sms.Sender
	metrics    *observability.Metrics
	log        *slog.Logger
	clock      clockwork.Clock
}

// New creates an Engine using the real clock.
func New(store storage.Storage, forecaster Forecaster, sender sms.Sender, metrics *observability.Metrics, log *slog.Logger) *Engine {
	return NewWithClock(store, forecaster, sender, metrics, log, clockwork.NewRealClock())
}

// NewWithClock creates an Engine with an injected time source (useful for testing).
func NewWithClock(store storage.Storage, forecaster Forecaster, sender sms.Sender, metrics *observability.Metrics, log *slog.Logger, clock clockwork.Clock) *Engine {
	return &Engine{
		store:      store,
		forecaster: forecaster,
		sender:     sender,
		metrics:    metrics,
		log:        log,
		clock:      clock,
	}
}

// Run executes one dispatch pass over the active subscribers, capped at limit
// when limit > 0. Configuration is taken per invocation so long-lived
// processes never act on stale settings. Failures of individual subscribers
// are recorded in the report and never abort the pass.
func (e *Engine) Run(ctx context.Context, cfg *config.Config, limit int) (*Report, error) {
	e.metrics.DispatchRuns.Inc()
	start := e.clock.Now()
	defer func() {
		e.metrics.RunDuration.Observe(e.clock.Since(start).Seconds())
	}()

	subs, err := e.store.ListActiveSubscribers(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list active subscribers: %w", err)
	}

	nowUTC := e.clock.Now().UTC()

	workers := cfg.DispatchWorkers
	if workers < 1 {
		workers = 1
	}
	if workers > len(subs) && len(subs) > 0 {
		workers = len(subs)
	}

	jobs := make(chan model.Subscriber)
	results := make(chan Result, len(subs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range jobs {
				results <- e.process(ctx, cfg, sub, nowUTC)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, sub := range subs {
			// A cancelled run simply checks fewer subscribers; the
			// idempotency gate makes the next run resume safely.
			if ctx.Err() != nil {
				return
			}
			select {
			case jobs <- sub:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	close(results)

	report := &Report{}
	for r := range results {
		report.Results = append(report.Results, r)
		report.Stats.Checked++
		e.metrics.SubscribersChecked.Inc()

		switch r.Outcome {
		case model.OutcomeAlerted:
			report.Stats.Alerted++
			e.metrics.AlertsSent.Inc()
		case model.OutcomeSkipped:
			report.Stats.Skipped++
			e.metrics.SubscribersSkipped.WithLabelValues(string(r.Reason)).Inc()
			e.log.Info("subscriber skipped", "subscriber_id", r.SubscriberID, "phone", r.Phone, "reason", r.Reason)
		case model.OutcomeErrored:
			report.Stats.Errors++
			e.metrics.DispatchErrors.Inc()
			e.log.Error("subscriber errored", "subscriber_id", r.SubscriberID, "phone", r.Phone, "error", r.Err)
		}
	}

	e.log.Info("dispatch run finished",
		"checked", report.Stats.Checked,
		"alerted", report.Stats.Alerted,
		"skipped", report.Stats.Skipped,
		"errors", report.Stats.Errors,
	)
	return report, nil
}

// process walks one subscriber through the state machine. Any panic inside a
// single subscriber's processing is converted into an errored result so the
// rest of the batch is unaffected.
func (e *Engine) process(ctx context.Context, cfg *config.Config, sub model.Subscriber, nowUTC time.Time) (res Result) {
	res = Result{SubscriberID: sub.ID, Phone: sub.Phone}
	defer func() {
		if r := recover(); r != nil {
			res.Outcome = model.OutcomeErrored
			res.Err = fmt.Errorf("panic processing subscriber %d: %v", sub.ID, r)
		}
	}()

	decision := window.Decide(sub.Timezone, nowUTC, sub.LastSentDate,
		cfg.DailySendHourLocal, cfg.SendWindowMinutes, cfg.ForceSendAlert)
	if !decision.Eligible {
		res.Outcome = model.OutcomeSkipped
		res.Reason = decision.Reason
		return res
	}

	var body string
	if cfg.ForceSendAlert {
		body = message.BuildTestAlert(sub.Country, sub.PostalCode)
	} else {
		forecast, err := e.forecaster.Forecast(ctx, sub.Lat, sub.Lon)
		if err != nil {
			res.Outcome = model.OutcomeErrored
			res.Err = fmt.Errorf("fetch forecast: %w", err)
			return res
		}

		severity := weather.Classify(forecast, nowUTC, cfg.ForecastHorizonHours)
		if severity.Empty() {
			res.Outcome = model.OutcomeSkipped
			res.Reason = model.SkipNoSevereWeather
			return res
		}

		body = message.BuildAlert(sub.Country, sub.PostalCode, severity)
		if body == "" {
			res.Outcome = model.OutcomeSkipped
			res.Reason = model.SkipEmptyMessage
			return res
		}
	}

	full := message.AppendUnsubscribe(body, cfg.BaseURL, sub.UnsubscribeToken)
	full = message.Truncate(full, cfg.MaxSMSLen)

	sid, err := e.sender.Send(ctx, sub.Phone, full)
	if err != nil {
		res.Outcome = model.OutcomeErrored
		res.Err = fmt.Errorf("send sms: %w", err)
		return res
	}

	recorded, err := e.store.MarkNotified(ctx, sub.ID, decision.LocalDate, nowUTC)
	if err != nil {
		// The message is out but the send state is not durable. Surface this
		// as an error so operators can reconcile.
		res.Outcome = model.OutcomeErrored
		res.Err = fmt.Errorf("record send state after delivery (sid=%s): %w", sid, err)
		return res
	}
	if !recorded {
		e.log.Warn("send state already recorded for today", "subscriber_id", sub.ID, "local_date", decision.LocalDate)
	}

	e.log.Info("alert sent",
		"subscriber_id", sub.ID,
		"phone", sub.Phone,
		"timezone", sub.Timezone,
		"local_date", decision.LocalDate,
		"sid", sid,
	)
	res.Outcome = model.OutcomeAlerted
	res.MessageSID = sid
	return res
}
