package notify

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-co-op/gocron/v2"
	"github.com/stake-plus/bountyboard/src/bounty"
	"github.com/stake-plus/bountyboard/src/logging"
)

// Sink renders or forwards directives. A non-empty ref returned by Deliver is
// the handle of a rendering of the directive's bounty.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, d bounty.Directive) (ref string, err error)
}

// Projector is a Sink that mirrors the current state of a bounty, such as a
// board message. A projector is handed the bounty's latest ref and never sees
// a snapshot the bounty has already moved past.
type Projector interface {
	Sink
	Projects()
}

// Records reads the committed bounty and stores the handle of its latest
// rendering.
type Records interface {
	Bounty(ctx context.Context, id bounty.BountyID) (*bounty.Bounty, error)
	SetExternalRef(ctx context.Context, id bounty.BountyID, ref string) error
}

// Options tunes delivery. Zero values select defaults.
type Options struct {
	MaxElapsed    time.Duration
	FlushInterval time.Duration
	OutboxLimit   int
	MaxAttempts   int
	QueueSize     int
	// NewBackOff overrides the retry policy of a single delivery.
	NewBackOff func() backoff.BackOff
}

type pending struct {
	sink      Sink
	directive bounty.Directive
	attempts  int
}

// Dispatcher fans directives out to every sink after the engine has
// committed. Delivery failures never reach the engine: a delivery is retried
// with exponential backoff, then parked in an outbox that a scheduled job
// flushes. Deliveries run one at a time; queued batches are delivered by a
// single worker in the order they were enqueued.
type Dispatcher struct {
	records Records
	opts    Options
	sinks   []Sink

	mu     sync.Mutex
	outbox []pending

	// delivering serializes every delivery, queued or direct.
	delivering sync.Mutex

	queue chan []bounty.Directive
	quit  chan struct{}
	done  chan struct{}
	sched gocron.Scheduler
}

func NewDispatcher(records Records, opts Options, sinks ...Sink) *Dispatcher {
	if opts.MaxElapsed <= 0 {
		opts.MaxElapsed = 30 * time.Second
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = time.Minute
	}
	if opts.OutboxLimit <= 0 {
		opts.OutboxLimit = 1000
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 10
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	return &Dispatcher{
		records: records,
		opts:    opts,
		sinks:   sinks,
		queue:   make(chan []bounty.Directive, opts.QueueSize),
		quit:    make(chan struct{}),
	}
}

// AddSink registers a sink. Call before Start.
func (d *Dispatcher) AddSink(s Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks = append(d.sinks, s)
}

func (d *Dispatcher) Name() string { return "dispatcher" }

// Start runs the queue worker and schedules the outbox flush job.
func (d *Dispatcher) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("notify: create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(d.opts.FlushInterval),
		gocron.NewTask(func() { d.Flush(ctx) }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("notify: schedule outbox flush: %w", err)
	}
	sched.Start()
	d.sched = sched

	d.done = make(chan struct{})
	go d.run(ctx)
	log.Printf("notify: dispatcher started (sinks=%d, flush=%v)", len(d.snapshotSinks()), d.opts.FlushInterval)
	return nil
}

// Stop delivers what is still queued, then stops the worker and the flush
// job. Batches enqueued afterwards are dropped.
func (d *Dispatcher) Stop(ctx context.Context) {
	if d.sched == nil {
		return
	}
	close(d.quit)
	select {
	case <-d.done:
	case <-ctx.Done():
		log.Printf("notify: stop: %v, %d batches left in queue", ctx.Err(), len(d.queue))
	}
	if err := d.sched.Shutdown(); err != nil {
		log.Printf("notify: scheduler shutdown: %v", err)
	}
	d.sched = nil
	if n := d.Pending(); n > 0 {
		log.Printf("notify: dropping %d undelivered directives on shutdown", n)
	}
}

func (d *Dispatcher) snapshotSinks() []Sink {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Sink(nil), d.sinks...)
}

// Enqueue hands directives to the queue worker without waiting for delivery.
// Batches are delivered in the order they were enqueued.
func (d *Dispatcher) Enqueue(directives ...bounty.Directive) {
	if len(directives) == 0 {
		return
	}
	select {
	case <-d.quit:
		log.Printf("notify: dispatcher stopped, dropping %d directives", len(directives))
		return
	default:
	}
	select {
	case d.queue <- directives:
	case <-d.quit:
		log.Printf("notify: dispatcher stopped, dropping %d directives", len(directives))
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case batch := <-d.queue:
			d.Dispatch(ctx, batch...)
		case <-d.quit:
			for {
				select {
				case batch := <-d.queue:
					d.Dispatch(ctx, batch...)
				default:
					return
				}
			}
		}
	}
}

// Dispatch delivers directives in order to every sink and returns when all
// of them were delivered or parked.
func (d *Dispatcher) Dispatch(ctx context.Context, directives ...bounty.Directive) {
	d.delivering.Lock()
	defer d.delivering.Unlock()

	sinks := d.snapshotSinks()
	for _, dir := range directives {
		for _, s := range sinks {
			if err := d.deliver(ctx, s, dir, d.newBackOff()); err != nil {
				d.park(s, dir, 1, err)
			}
		}
	}
}

// current refreshes dir for a projector: it reports false when the bounty has
// already left the snapshot's status, and otherwise carries the latest ref.
func (d *Dispatcher) current(ctx context.Context, dir bounty.Directive) (bounty.Directive, bool) {
	subject := dir.Subject()
	if subject == nil || d.records == nil {
		return dir, true
	}
	switch dir.(type) {
	case bounty.RenderOnBoard, bounty.RenderVerificationRequest, bounty.RenderCompletionRequest:
	default:
		return dir, true
	}

	latest, err := d.records.Bounty(ctx, subject.ID)
	if err != nil {
		log.Printf("notify: load %s: %v", subject.ID, err)
		return dir, true
	}
	if latest.Status != subject.Status {
		return dir, false
	}

	switch v := dir.(type) {
	case bounty.RenderOnBoard:
		v.Bounty.ExternalRef = latest.ExternalRef
		return v, true
	case bounty.RenderVerificationRequest:
		v.Bounty.ExternalRef = latest.ExternalRef
		return v, true
	case bounty.RenderCompletionRequest:
		v.Bounty.ExternalRef = latest.ExternalRef
		return v, true
	}
	return dir, true
}

func (d *Dispatcher) newBackOff() backoff.BackOff {
	if d.opts.NewBackOff != nil {
		return d.opts.NewBackOff()
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = d.opts.MaxElapsed
	return bo
}

func (d *Dispatcher) deliver(ctx context.Context, s Sink, dir bounty.Directive, bo backoff.BackOff) error {
	if _, ok := s.(Projector); ok {
		fresh, ok := d.current(ctx, dir)
		if !ok {
			log.Printf("notify: %s skipped stale %s", s.Name(), bounty.DirectiveName(dir))
			return nil
		}
		dir = fresh
	}

	var ref string
	op := func() error {
		r, err := s.Deliver(ctx, dir)
		if err != nil {
			if logging.IsPermanent(err) {
				return backoff.Permanent(err)
			}
			if logging.IsRateLimit(err) {
				log.Printf("notify: %s rate limited on %s", s.Name(), bounty.DirectiveName(dir))
			}
			return err
		}
		ref = r
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return err
	}

	subject := dir.Subject()
	if ref == "" || subject == nil || ref == subject.ExternalRef || d.records == nil {
		return nil
	}
	if err := d.records.SetExternalRef(ctx, subject.ID, ref); err != nil {
		log.Printf("notify: record ref %s for %s: %v", ref, subject.ID, err)
	}
	return nil
}

func (d *Dispatcher) park(s Sink, dir bounty.Directive, attempts int, err error) {
	if logging.IsPermanent(err) {
		log.Printf("notify: %s dropped %s: %v", s.Name(), bounty.DirectiveName(dir), err)
		return
	}
	if attempts >= d.opts.MaxAttempts {
		log.Printf("notify: %s gave up on %s after %d attempts: %v", s.Name(), bounty.DirectiveName(dir), attempts, err)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.outbox) >= d.opts.OutboxLimit {
		log.Printf("notify: outbox full, dropping %s for %s", bounty.DirectiveName(dir), s.Name())
		return
	}
	d.outbox = append(d.outbox, pending{sink: s, directive: dir, attempts: attempts})
	log.Printf("notify: %s failed %s, queued for retry: %v", s.Name(), bounty.DirectiveName(dir), err)
}

// Flush makes one more attempt at every parked delivery.
func (d *Dispatcher) Flush(ctx context.Context) {
	d.delivering.Lock()
	defer d.delivering.Unlock()

	d.mu.Lock()
	queued := d.outbox
	d.outbox = nil
	d.mu.Unlock()

	for _, p := range queued {
		if ctx.Err() != nil {
			d.mu.Lock()
			d.outbox = append(d.outbox, p)
			d.mu.Unlock()
			continue
		}
		if err := d.deliver(ctx, p.sink, p.directive, &backoff.StopBackOff{}); err != nil {
			d.park(p.sink, p.directive, p.attempts+1, err)
		}
	}
}

// Pending returns the number of parked deliveries.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.outbox)
}
