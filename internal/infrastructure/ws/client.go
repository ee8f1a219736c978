package ws

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hilthontt/duet/internal/infrastructure/logging"
	"github.com/hilthontt/duet/internal/infrastructure/metrics"
	"github.com/hilthontt/duet/internal/infrastructure/pubsub"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type Client struct {
	conn    *connWrapper
	Message chan *WSMessage
	ID      string

	sub     *pubsub.Subscription
	limiter *rate.Limiter
	// joined maps room id to the uid the client announced. Owned by the
	// core goroutine.
	joined map[string]string
}

func newClient(conn *websocket.Conn, sub *pubsub.Subscription, opts Options) *Client {
	var limiter *rate.Limiter
	if opts.MaxMessagesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.MaxMessagesPerSecond), opts.MaxMessagesPerSecond)
	}

	return &Client{
		conn:    newConnWrapper(conn),
		Message: make(chan *WSMessage, opts.SendBuffer),
		ID:      uuid.NewString(),
		sub:     sub,
		limiter: limiter,
		joined:  make(map[string]string),
	}
}

// send queues msg without blocking. Only the core goroutine calls it.
func (c *Client) send(msg *WSMessage) bool {
	select {
	case c.Message <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) ReadMessage(core *Core) {
	defer func() {
		c.sub.Close()
		core.unregisterClient(c)
		_ = c.conn.Close()
	}()

	c.conn.conn.SetReadLimit(core.opts.MaxMessageBytes)
	_ = c.conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.conn.SetPongHandler(func(string) error {
		return c.conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				core.logger.Warn(logging.Relay, logging.Disconnect, "websocket read error", map[logging.ExtraKey]any{
					logging.ClientID:     c.ID,
					logging.ErrorMessage: err.Error(),
				})
			}
			return
		}

		if c.limiter != nil && !c.limiter.Allow() {
			core.metrics.RelayFrame("any", metrics.OutcomeRateLimited)
			continue
		}

		msg, err := decodeInbound(raw)
		if err != nil {
			core.metrics.RelayFrame("any", metrics.OutcomeMalformed)
			core.logger.Debug(logging.Relay, logging.Drop, "malformed frame", map[logging.ExtraKey]any{
				logging.ClientID:     c.ID,
				logging.ErrorMessage: err.Error(),
			})
			bad := &InboundMessage{RoomID: gjson.GetBytes(raw, "room_id").String()}
			if !core.dispatch(inbound{client: c, msg: bad, malformed: err}) {
				return
			}
			continue
		}
		if msg == nil {
			continue
		}

		in := inbound{client: c, msg: msg}
		if msg.Type == JoinRoom && core.opts.RequireAdmission {
			in.admissionErr = core.verifyAdmission(msg)
		}
		if !core.dispatch(in) {
			return
		}
	}
}

func (c *Client) WriteMessage() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	deletions := c.sub.C
	for {
		select {
		case msg, ok := <-c.Message:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage, writeWait)
				return
			}
			if err := c.conn.WriteFrame(msg, writeWait); err != nil {
				return
			}

		case ev, ok := <-deletions:
			if !ok {
				deletions = nil
				continue
			}
			if err := c.conn.WriteFrame(NewDeleteRoom(ev.RoomID), writeWait); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, writeWait); err != nil {
				return
			}
		}
	}
}
