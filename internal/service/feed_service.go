package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/presensi-api/internal/dto"
	"github.com/noah-isme/presensi-api/internal/observability"
)

const (
	feedRedisTTL       = 30 * time.Minute
	feedSendBufferSize = 32
)

// FeedConnectionOptions wraps metadata extracted during the HTTP upgrade.
type FeedConnectionOptions struct {
	UserID        string
	Role          string
	SessionID     uint
	CorrelationID string
	Context       context.Context
}

// FeedService streams marking events to teachers watching a session. Clients
// are read-only; events originate from the marking path via PublishMark and
// fan out across nodes over redis pub/sub and NATS.
type FeedService interface {
	EventPublisher
	ServeConnection(conn *websocket.Conn, opts FeedConnectionOptions)
	Start(ctx context.Context)
}

type feedService struct {
	redis       *redis.Client
	redisStream string
	redisCache  string
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	tracer      trace.Tracer
	hub         *feedHub
	nodeID      string
}

// feedHub keeps track of active websocket clients per session.
type feedHub struct {
	mu       sync.RWMutex
	sessions map[uint]map[*feedClient]struct{}
	log      zerolog.Logger
}

type feedClient struct {
	conn    *websocket.Conn
	send    chan dto.FeedEvent
	options FeedConnectionOptions
	service *feedService
	closed  chan struct{}
	once    sync.Once
}

type feedEnvelope struct {
	Source string        `json:"source"`
	Event  dto.FeedEvent `json:"event"`
	SentAt time.Time     `json:"sent_at"`
}

// NewFeedService creates a live attendance feed instance. Redis and NATS are
// both optional; with neither, events only reach clients on this node.
func NewFeedService(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) FeedService {
	hub := &feedHub{
		sessions: make(map[uint]map[*feedClient]struct{}),
		log:      logger.With().Str("component", "feed_hub").Logger(),
	}

	streamChannel := ""
	cachePrefix := ""
	natsSubject := ""
	if channelBase != "" {
		streamChannel = channelBase + ":feed"
		cachePrefix = channelBase + ":feed:last"
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".feed"
	}

	return &feedService{
		redis:       redisClient,
		redisStream: streamChannel,
		redisCache:  cachePrefix,
		nats:        natsConn,
		natsSubject: natsSubject,
		logger:      logger.With().Str("component", "feed_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/presensi-api/internal/service/feed"),
		hub:         hub,
		nodeID:      uuid.NewString(),
	}
}

func (s *feedService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *feedService) ServeConnection(conn *websocket.Conn, opts FeedConnectionOptions) {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	client := &feedClient{
		conn:    conn,
		send:    make(chan dto.FeedEvent, feedSendBufferSize),
		options: opts,
		service: s,
		closed:  make(chan struct{}),
	}

	s.hub.register(client)
	observability.FeedConnections().Inc()

	if last := s.fetchLastEvent(ctx, opts.SessionID); last != nil {
		select {
		case client.send <- *last:
		default:
		}
	}

	go client.writer()
	client.reader()
}

// PublishMark implements EventPublisher. It never blocks the marking path:
// broker failures are logged and local clients still get the event.
func (s *feedService) PublishMark(ctx context.Context, event dto.FeedEvent) {
	spanCtx, span := s.tracer.Start(ctx, "feed.publish", trace.WithAttributes(
		attribute.Int64("session_id", int64(event.SessionID)),
		attribute.String("method", event.Method),
	))
	defer span.End()

	s.cacheLastEvent(spanCtx, event)
	s.hub.broadcast(event.SessionID, event)
	observability.FeedEvents().Inc()

	envelope := feedEnvelope{
		Source: s.nodeID,
		Event:  event,
		SentAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		span.RecordError(err)
		s.logger.Warn().Err(err).Msg("failed to marshal feed event")
		return
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(spanCtx, s.redisStream, payload).Err(); err != nil {
			span.RecordError(err)
			s.logger.Warn().Err(err).Msg("failed to publish feed event to redis")
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			span.RecordError(err)
			s.logger.Warn().Err(err).Msg("failed to publish feed event to nats")
		}
	}
}

func (s *feedService) cacheLastEvent(ctx context.Context, event dto.FeedEvent) {
	if s.redis == nil || s.redisCache == "" {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	key := s.redisCache + ":" + strconv.FormatUint(uint64(event.SessionID), 10)
	if err := s.redis.Set(ctx, key, payload, feedRedisTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache feed event")
	}
}

func (s *feedService) fetchLastEvent(ctx context.Context, sessionID uint) *dto.FeedEvent {
	if s.redis == nil || s.redisCache == "" {
		return nil
	}

	key := s.redisCache + ":" + strconv.FormatUint(uint64(sessionID), 10)
	result, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		return nil
	}

	var event dto.FeedEvent
	if err := json.Unmarshal([]byte(result), &event); err != nil {
		return nil
	}

	return &event
}

func (s *feedService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("feed redis subscription closed")
			return
		}
		s.handleEnvelope([]byte(msg.Payload))
	}
}

func (s *feedService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "presensi-feed", func(msg *nats.Msg) {
		s.handleEnvelope(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats feed subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain feed nats subscription")
		}
	}()
}

func (s *feedService) handleEnvelope(data []byte) {
	var envelope feedEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("invalid feed event")
		return
	}

	if envelope.Source == s.nodeID {
		return
	}

	s.hub.broadcast(envelope.Event.SessionID, envelope.Event)
}

func (h *feedHub) register(client *feedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	session := client.options.SessionID
	if _, exists := h.sessions[session]; !exists {
		h.sessions[session] = make(map[*feedClient]struct{})
	}
	h.sessions[session][client] = struct{}{}
	h.log.Debug().Uint("session_id", session).Str("user_id", client.options.UserID).Msg("feed client connected")
}

func (h *feedHub) unregister(client *feedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	session := client.options.SessionID
	if clients, ok := h.sessions[session]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.sessions, session)
		}
	}
	h.log.Debug().Uint("session_id", session).Str("user_id", client.options.UserID).Msg("feed client disconnected")
}

func (h *feedHub) broadcast(sessionID uint, event dto.FeedEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.sessions[sessionID] {
		select {
		case client.send <- event:
		default:
			h.log.Warn().Uint("session_id", sessionID).Str("user_id", client.options.UserID).Msg("dropping feed event for slow client")
		}
	}
}

// reader discards client frames; the feed is one-way. It exists to notice the
// peer closing the connection.
func (c *feedClient) reader() {
	defer c.close()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.service.logger.Debug().Err(err).Msg("feed read loop ended")
			return
		}
	}
}

func (c *feedClient) writer() {
	defer c.close()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				c.service.logger.Debug().Err(err).Msg("feed write loop terminated")
				return
			}
		case <-time.After(30 * time.Second):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("feed ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *feedClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.service.hub.unregister(c)
		_ = c.conn.Close()
	})
}
