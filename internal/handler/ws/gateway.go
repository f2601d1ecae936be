package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"teleconsult-backend/internal/realtime"
	"teleconsult-backend/internal/repository"
	consultsvc "teleconsult-backend/internal/service/consultation"
	"teleconsult-backend/pkg/jwt"
	"teleconsult-backend/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Gateway bridges websocket connections to the realtime event fabric.
// Each connected user gets a subscription to their own event channel
// plus the channels of the queues they watch; connecting flips their
// presence flags online, disconnecting flips them back once the last
// connection drops.
type Gateway struct {
	redisClient   *redis.Client
	presence      repository.PresenceRepository
	consultations *consultsvc.Service
	users         repository.UserRepository
	queues        repository.QueueRepository
	tokens        *jwt.Manager

	mu          sync.Mutex
	connections map[uuid.UUID]int
}

func NewGateway(
	redisClient *redis.Client,
	presence repository.PresenceRepository,
	consultations *consultsvc.Service,
	users repository.UserRepository,
	queues repository.QueueRepository,
	tokens *jwt.Manager,
) *Gateway {
	return &Gateway{
		redisClient:   redisClient,
		presence:      presence,
		consultations: consultations,
		users:         users,
		queues:        queues,
		tokens:        tokens,
		connections:   make(map[uuid.UUID]int),
	}
}

// Handle upgrades the connection. The access token comes in as a query
// parameter because browsers cannot set headers on websocket dials.
func (g *Gateway) Handle(c *gin.Context) {
	claims, err := g.tokens.Verify(c.Query("token"))
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.FromContext(c.Request.Context()).Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	go g.serve(conn, userID)
}

func (g *Gateway) serve(conn *websocket.Conn, userID uuid.UUID) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer conn.Close()

	g.connect(ctx, userID)
	defer g.disconnect(userID)

	sub := g.redisClient.Subscribe(ctx, g.subscriptionChannels(ctx, userID)...)
	defer sub.Close()

	go g.writePump(ctx, conn, userID, sub.Channel())
	g.readPump(ctx, conn, userID)
}

// subscriptionChannels lists the event channels a connection listens
// on: the user's own channel plus one per watched queue, so events
// addressed to a queue reach the responders subscribed to it.
func (g *Gateway) subscriptionChannels(ctx context.Context, userID uuid.UUID) []string {
	channels := []string{realtime.Channel(userID)}

	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		logger.Log.Warn("loading user for queue subscriptions failed",
			zap.String("user_id", userID.String()), zap.Error(err))
		return channels
	}

	if user.ViewAllQueues {
		queues, err := g.queues.List(ctx)
		if err != nil {
			logger.Log.Warn("listing queues for subscriptions failed",
				zap.String("user_id", userID.String()), zap.Error(err))
			return channels
		}
		for _, q := range queues {
			channels = append(channels, realtime.Channel(q.ID))
		}
		return channels
	}

	for _, q := range user.AllowedQueues {
		channels = append(channels, realtime.Channel(q))
	}
	return channels
}

// connect marks the user online on the first concurrent connection.
func (g *Gateway) connect(ctx context.Context, userID uuid.UUID) {
	g.mu.Lock()
	g.connections[userID]++
	first := g.connections[userID] == 1
	g.mu.Unlock()

	if err := g.presence.SetOnline(ctx, userID); err != nil {
		logger.Log.Warn("presence set online failed",
			zap.String("user_id", userID.String()), zap.Error(err))
	}
	if first {
		if err := g.consultations.ChangePresence(ctx, userID, true); err != nil {
			logger.Log.Warn("presence broadcast failed",
				zap.String("user_id", userID.String()), zap.Error(err))
		}
	}
}

// disconnect marks the user offline once their last connection drops.
func (g *Gateway) disconnect(userID uuid.UUID) {
	g.mu.Lock()
	g.connections[userID]--
	last := g.connections[userID] <= 0
	if last {
		delete(g.connections, userID)
	}
	g.mu.Unlock()

	if !last {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.presence.SetOffline(ctx, userID); err != nil {
		logger.Log.Warn("presence set offline failed",
			zap.String("user_id", userID.String()), zap.Error(err))
	}
	if err := g.consultations.ChangePresence(ctx, userID, false); err != nil {
		logger.Log.Warn("presence broadcast failed",
			zap.String("user_id", userID.String()), zap.Error(err))
	}
}

// writePump forwards published events to the socket and keeps the
// connection alive with pings.
func (g *Gateway) writePump(ctx context.Context, conn *websocket.Conn, userID uuid.UUID, events <-chan *redis.Message) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				logger.Log.Debug("websocket write failed",
					zap.String("user_id", userID.String()), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump consumes client frames. Pongs refresh the presence TTL;
// any payload frame is treated as a heartbeat too.
func (g *Gateway) readPump(ctx context.Context, conn *websocket.Conn, userID uuid.UUID) {
	conn.SetReadLimit(1024)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		if err := g.presence.Heartbeat(ctx, userID); err != nil {
			logger.Log.Debug("presence heartbeat failed",
				zap.String("user_id", userID.String()), zap.Error(err))
		}
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		if err := g.presence.Heartbeat(ctx, userID); err != nil {
			logger.Log.Debug("presence heartbeat failed",
				zap.String("user_id", userID.String()), zap.Error(err))
		}
	}
}
