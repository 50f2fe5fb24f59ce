package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// OfferingsPubSub fans out offering changes to every node sharing the Redis
// instance.
type OfferingsPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewOfferingsPubSub(rdb *redis.Client) *OfferingsPubSub {
	return &OfferingsPubSub{
		rdb:     rdb,
		channel: ChannelOfferingsChanged(),
	}
}

type offeringChangedMsg struct {
	Type       string `json:"type"`
	OfferingID int64  `json:"offering_id"`
	TsUnix     int64  `json:"ts_unix"`
}

func (p *OfferingsPubSub) PublishOfferingChanged(ctx context.Context, offeringID int64) error {
	msg := offeringChangedMsg{
		Type:       "offering.changed",
		OfferingID: offeringID,
		TsUnix:     time.Now().Unix(),
	}

	b, _ := json.Marshal(msg)

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// Subscribe calls handler for every change notification until ctx is done.
func (p *OfferingsPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, offeringID int64)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev offeringChangedMsg
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil &&
				ev.OfferingID != 0 {
				handler(ctx, ev.OfferingID)
			}
		}
	}
}
