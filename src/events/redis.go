package events

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stake-plus/bountyboard/src/bounty"
	"github.com/stake-plus/bountyboard/src/notify"
)

// DefaultStream is used when no stream name is configured.
const DefaultStream = "bountyboard.events"

// NewRedis parses url and returns a client after a successful ping.
func NewRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return rdb, nil
}

// Publisher appends every directive to a Redis stream so other services can
// follow the board.
type Publisher struct {
	rdb    *redis.Client
	stream string
	maxLen int64
	now    func() time.Time
	newID  func() string
}

var _ notify.Sink = (*Publisher)(nil)

func NewPublisher(rdb *redis.Client, stream string, maxLen int64) *Publisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &Publisher{rdb: rdb, stream: stream, maxLen: maxLen, now: time.Now, newID: uuid.NewString}
}

func (p *Publisher) Name() string { return "events" }

// Deliver never produces an external ref.
func (p *Publisher) Deliver(ctx context.Context, d bounty.Directive) (string, error) {
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: p.payload(d),
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	if err := p.rdb.XAdd(ctx, args).Err(); err != nil {
		return "", fmt.Errorf("events: xadd %s: %w", p.stream, err)
	}
	return "", nil
}

func (p *Publisher) payload(d bounty.Directive) map[string]interface{} {
	payload := map[string]interface{}{
		"event_id": p.newID(),
		"kind":     bounty.DirectiveName(d),
		"time":     p.now().Unix(),
	}

	if b := d.Subject(); b != nil {
		payload["bounty_id"] = strconv.FormatUint(uint64(b.ID), 10)
		payload["bounty_status"] = b.Status.String()
		payload["bounty_type"] = b.Type.String()
		payload["title"] = b.Title
		payload["creator_id"] = string(b.CreatorID)
		if b.AssignedTo != "" {
			payload["assigned_to"] = string(b.AssignedTo)
		}
		if b.VerifierID != "" {
			payload["verifier_id"] = string(b.VerifierID)
		}
	}

	switch v := d.(type) {
	case bounty.RenderApproval:
		payload["by"] = string(v.By)
	case bounty.RenderRejection:
		payload["by"] = string(v.By)
	case bounty.NotifyDirectMessage:
		payload["member_id"] = string(v.Member)
		payload["text"] = v.Text
		if v.About != nil {
			payload["bounty_id"] = strconv.FormatUint(uint64(*v.About), 10)
		}
	case bounty.RenderOnBoard, bounty.RenderVerificationRequest, bounty.RenderCompletionRequest:
	}
	return payload
}
