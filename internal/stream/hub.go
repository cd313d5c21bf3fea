package stream

import (
	"context"
	"strings"
	"sync"

	"journeybot/internal/logging"

	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix  = "journey:"
	channelSuffix  = ":broadcast"
	channelPattern = channelPrefix + "*" + channelSuffix
	sendBuffer     = 64
)

// Hub fans journey frames out to websocket clients. With Redis every frame
// goes through the pattern subscription, so all instances deliver the same
// frames exactly once.
type Hub struct {
	redis   *redis.Client
	pubsub  *redis.PubSub
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
	wg      sync.WaitGroup
}

type Client struct {
	JourneyID string
	Send      chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		clients: map[string]map[*Client]struct{}{},
	}
	if redisClient == nil {
		return h
	}

	ctx := context.Background()
	pubsub := redisClient.PSubscribe(ctx, channelPattern)
	if _, err := pubsub.Receive(ctx); err != nil {
		logging.Warn().Err(err).Msg("redis subscribe failed, stream fan-out is local only")
		_ = pubsub.Close()
		return h
	}

	h.redis, h.pubsub = redisClient, pubsub
	h.wg.Add(1)
	go h.subscribeRedis()
	return h
}

func (h *Hub) Register(journeyID string) *Client {
	client := &Client{
		JourneyID: journeyID,
		Send:      make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[journeyID] == nil {
		h.clients[journeyID] = map[*Client]struct{}{}
	}
	h.clients[journeyID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	journeyClients, ok := h.clients[client.JourneyID]
	if !ok {
		return
	}
	if _, ok := journeyClients[client]; !ok {
		return
	}
	delete(journeyClients, client)
	if len(journeyClients) == 0 {
		delete(h.clients, client.JourneyID)
	}
	close(client.Send)
}

func (h *Hub) Broadcast(journeyID string, payload []byte) {
	if h.redis != nil {
		err := h.redis.Publish(context.Background(), redisChannel(journeyID), payload).Err()
		if err == nil {
			return
		}
		logging.Error().Err(err).Str("journey_id", journeyID).Msg("redis publish failed, delivering locally")
	}
	h.deliver(journeyID, payload)
}

// Close stops the Redis subscription.
func (h *Hub) Close() error {
	if h.pubsub == nil {
		return nil
	}
	err := h.pubsub.Close()
	h.wg.Wait()
	return err
}

// deliver never blocks; a client whose buffer is full misses the frame.
func (h *Hub) deliver(journeyID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[journeyID] {
		select {
		case client.Send <- payload:
		default:
			logging.Debug().Str("journey_id", journeyID).Msg("stream client too slow, frame dropped")
		}
	}
}

func (h *Hub) subscribeRedis() {
	defer h.wg.Done()
	for msg := range h.pubsub.Channel() {
		journeyID := journeyIDFromChannel(msg.Channel)
		if journeyID == "" {
			continue
		}
		h.deliver(journeyID, []byte(msg.Payload))
	}
}

func redisChannel(journeyID string) string {
	return channelPrefix + journeyID + channelSuffix
}

func journeyIDFromChannel(ch string) string {
	// journey:{id}:broadcast
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	if len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
