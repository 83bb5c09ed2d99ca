package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects and pings the broker.
func NewRedisClient(ctx context.Context, cfg RedisConfig, logger zerolog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	logger.Info().Str("component", "redis").Str("addr", cfg.Addr).Msg("connected to redis")
	return client, nil
}

const (
	relayHello = "hello"
	relayBye   = "bye"
	relayMsg   = "msg"
)

// relayFrame wraps an envelope with its sender so one channel can carry many peers.
type relayFrame struct {
	From string          `json:"from"`
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

func encodeRelayFrame(from, kind string, data []byte) ([]byte, error) {
	return json.Marshal(relayFrame{From: from, Kind: kind, Data: data})
}

func decodeRelayFrame(payload string) (relayFrame, error) {
	var f relayFrame
	if err := json.Unmarshal([]byte(payload), &f); err != nil {
		return f, fmt.Errorf("decode relay frame: %w", err)
	}
	if f.From == "" {
		return f, fmt.Errorf("decode relay frame: missing sender")
	}
	return f, nil
}

func hostChannel(room string) string {
	return fmt.Sprintf("poker:%s:host", room)
}

func peerChannel(room, peerID string) string {
	return fmt.Sprintf("poker:%s:peer:%s", room, peerID)
}

// RedisRelay carries the protocol over redis pub/sub, for peers that cannot
// reach the host directly. The host listens on the room channel; every peer
// has its own inbox channel.
type RedisRelay struct {
	*Hub
	client *redis.Client
	room   string
	pubsub *redis.PubSub
}

// ListenRedis opens the host side of room.
func ListenRedis(ctx context.Context, client *redis.Client, room, id string, logger zerolog.Logger) (*RedisRelay, error) {
	r, err := newRedisRelay(ctx, client, room, id, hostChannel(room), logger)
	if err != nil {
		return nil, err
	}
	go r.readLoop(func(f relayFrame) {
		switch f.Kind {
		case relayHello:
			peerID := f.From
			err := r.attach(peerID,
				func(data []byte) error { return r.publish(peerChannel(room, peerID), relayMsg, data) },
				func() error { return r.publish(peerChannel(room, peerID), relayBye, nil) },
			)
			if err != nil {
				r.logger.Warn().Err(err).Str("peer", peerID).Msg("refusing relay peer")
			}
		case relayBye:
			r.detach(f.From)
		case relayMsg:
			r.receive(f.From, f.Data)
		}
	})
	return r, nil
}

// DialRedis joins room as peer id.
func DialRedis(ctx context.Context, client *redis.Client, room, id string, logger zerolog.Logger) (*RedisRelay, error) {
	r, err := newRedisRelay(ctx, client, room, id, peerChannel(room, id), logger)
	if err != nil {
		return nil, err
	}
	if err := r.publish(hostChannel(room), relayHello, nil); err != nil {
		r.Close()
		return nil, err
	}
	err = r.attach(HostPeerID,
		func(data []byte) error { return r.publish(hostChannel(room), relayMsg, data) },
		func() error { return r.publish(hostChannel(room), relayBye, nil) },
	)
	if err != nil {
		r.Close()
		return nil, err
	}
	go r.readLoop(func(f relayFrame) {
		switch f.Kind {
		case relayBye:
			r.detach(HostPeerID)
		case relayMsg:
			r.receive(HostPeerID, f.Data)
		}
	})
	return r, nil
}

func newRedisRelay(ctx context.Context, client *redis.Client, room, id, inbox string, logger zerolog.Logger) (*RedisRelay, error) {
	pubsub := client.Subscribe(ctx, inbox)
	// wait for the subscription to be confirmed so no reply is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", inbox, err)
	}

	r := &RedisRelay{
		Hub:    newHub(id, logger.With().Str("component", "redis-relay").Str("room", room).Logger()),
		client: client,
		room:   room,
		pubsub: pubsub,
	}
	r.onStop = append(r.onStop, pubsub.Close)
	return r, nil
}

func (r *RedisRelay) publish(channel, kind string, data []byte) error {
	payload, err := encodeRelayFrame(r.id, kind, data)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	return r.client.Publish(ctx, channel, payload).Err()
}

func (r *RedisRelay) readLoop(handle func(relayFrame)) {
	for m := range r.pubsub.Channel() {
		f, err := decodeRelayFrame(m.Payload)
		if err != nil {
			r.logger.Warn().Err(err).Msg("dropping relay frame")
			continue
		}
		handle(f)
	}
}
