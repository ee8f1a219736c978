package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/duet/internal/domain"
	"github.com/hilthontt/duet/internal/infrastructure/logging"
	"github.com/hilthontt/duet/internal/infrastructure/metrics"
	"github.com/hilthontt/duet/internal/infrastructure/pubsub"
)

const (
	DefaultMaxMessageBytes      = 64 << 10
	DefaultMaxMessagesPerSecond = 50
	DefaultSendBuffer           = 64

	memberLeftTimeout = 5 * time.Second
)

// AdmissionVerifier checks the entry token a client presents with join-room.
type AdmissionVerifier interface {
	Verify(token, roomID string) error
}

// MemberLeaveHandler is told when a joined socket goes away.
type MemberLeaveHandler interface {
	MemberLeft(ctx context.Context, roomID, uid string)
}

type Options struct {
	RequireAdmission     bool
	MaxMessageBytes      int64
	MaxMessagesPerSecond int
	SendBuffer           int
}

type inbound struct {
	client       *Client
	msg          *InboundMessage
	admissionErr error
	// malformed is set for frames that failed to decode; msg then only
	// carries the room id, if any.
	malformed error
}

// Core is the relay hub. One goroutine, Run, owns group membership, so
// frames within a group are handled in arrival order.
type Core struct {
	roomMgr    *RoomManager
	bus        *pubsub.Bus
	gate       AdmissionVerifier
	leave      MemberLeaveHandler
	metrics    *metrics.Metrics
	logger     logging.Logger
	opts       Options
	register   chan *Client
	unregister chan *Client
	inbound    chan inbound
	updates    chan domain.Room
	done       chan struct{}
	clients    map[*Client]struct{}
}

func NewCore(
	roomMgr *RoomManager,
	bus *pubsub.Bus,
	gate AdmissionVerifier,
	leave MemberLeaveHandler,
	metrics *metrics.Metrics,
	logger logging.Logger,
	opts Options,
) *Core {
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = DefaultMaxMessageBytes
	}
	if opts.MaxMessagesPerSecond < 0 {
		opts.MaxMessagesPerSecond = 0
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultSendBuffer
	}

	return &Core{
		roomMgr:    roomMgr,
		bus:        bus,
		gate:       gate,
		leave:      leave,
		metrics:    metrics,
		logger:     logger,
		opts:       opts,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inbound, 256),
		updates:    make(chan domain.Room, 64),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
	}
}

// Run processes hub traffic until ctx is done, then closes every socket.
func (c *Core) Run(ctx context.Context) {
	deletions := c.bus.Subscribe(pubsub.RoomDeleted)
	defer deletions.Close()

	for {
		select {
		case cl := <-c.register:
			c.clients[cl] = struct{}{}
			c.metrics.SocketOpened()
			c.logger.Debug(logging.Relay, logging.Connect, "client connected", map[logging.ExtraKey]any{
				logging.ClientID: cl.ID,
			})

		case cl := <-c.unregister:
			c.removeClient(cl)

		case in := <-c.inbound:
			c.handle(in)

		case room := <-c.updates:
			for _, cl := range c.roomMgr.Members(room.ID) {
				c.deliver(cl, RoomUpdated, NewRoomUpdated(room))
			}

		case ev := <-deletions.C:
			for _, cl := range c.roomMgr.Drop(ev.RoomID) {
				delete(cl.joined, ev.RoomID)
			}

		case <-ctx.Done():
			close(c.done)
			for cl := range c.clients {
				delete(c.clients, cl)
				close(cl.Message)
				c.metrics.SocketClosed()
			}
			c.logger.Info(logging.Relay, logging.Shutdown, "relay stopped", nil)
			return
		}
	}
}

// ServeWS upgrades the request and attaches the socket to the hub.
func (c *Core) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.roomMgr.Upgrade(w, r)
	if err != nil {
		c.logger.Warn(logging.Relay, logging.Connect, "websocket upgrade failed", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
			logging.ClientIp:     r.RemoteAddr,
		})
		return
	}
	c.Attach(conn)
}

// Attach subscribes the socket to room deletions, registers it and starts
// its pumps. It returns nil once the hub has stopped.
func (c *Core) Attach(conn *websocket.Conn) *Client {
	cl := newClient(conn, c.bus.Subscribe(pubsub.RoomDeleted), c.opts)

	select {
	case c.register <- cl:
	case <-c.done:
		cl.sub.Close()
		_ = conn.Close()
		return nil
	}

	go cl.WriteMessage()
	go cl.ReadMessage(c)
	return cl
}

// RoomUpdated fans a committed room change out to the room's group.
func (c *Core) RoomUpdated(room domain.Room) {
	select {
	case c.updates <- room:
	case <-c.done:
	}
}

func (c *Core) verifyAdmission(msg *InboundMessage) error {
	if c.gate == nil {
		return nil
	}
	return c.gate.Verify(msg.Token, msg.RoomID)
}

func (c *Core) dispatch(in inbound) bool {
	select {
	case c.inbound <- in:
		return true
	case <-c.done:
		return false
	}
}

func (c *Core) unregisterClient(cl *Client) {
	select {
	case c.unregister <- cl:
	case <-c.done:
	}
}

func (c *Core) handle(in inbound) {
	if _, ok := c.clients[in.client]; !ok {
		return
	}

	if in.malformed != nil {
		c.deliver(in.client, ErrorEvent, NewError(in.msg.RoomID, CodeBadRequest, in.malformed.Error()))
		return
	}

	switch in.msg.Type {
	case JoinRoom:
		c.join(in.client, in.msg, in.admissionErr)
	case Offer, Answer, ICE:
		c.forward(in.client, in.msg)
	}
}

func (c *Core) join(cl *Client, msg *InboundMessage, admissionErr error) {
	roomID := msg.RoomID

	if admissionErr != nil {
		c.metrics.RelayFrame(JoinRoom, metrics.OutcomeRejected)
		c.logger.Info(logging.Relay, logging.Join, "join rejected", map[logging.ExtraKey]any{
			logging.ClientID:     cl.ID,
			logging.RoomID:       roomID,
			logging.ErrorMessage: admissionErr.Error(),
		})
		c.deliver(cl, ErrorEvent, NewError(roomID, CodeUnauthorized, admissionErr.Error()))
		return
	}

	if c.roomMgr.Contains(roomID, cl) {
		return
	}
	c.evictStale(roomID, msg.UID)
	if c.roomMgr.GroupSize(roomID) >= MaxGroupSize {
		c.metrics.RelayFrame(JoinRoom, metrics.OutcomeRejected)
		c.deliver(cl, ErrorEvent, NewError(roomID, CodeRoomFull, domain.ErrRoomFull.Error()))
		return
	}

	others := c.roomMgr.Members(roomID)
	c.roomMgr.Add(roomID, cl)
	cl.joined[roomID] = msg.UID
	c.metrics.RelayFrame(JoinRoom, metrics.OutcomeForwarded)

	c.logger.Info(logging.Relay, logging.Join, "client joined room", map[logging.ExtraKey]any{
		logging.ClientID: cl.ID,
		logging.RoomID:   roomID,
		logging.UID:      msg.UID,
	})

	for _, other := range others {
		c.deliver(other, UserConnected, NewUserConnected(roomID))
	}
}

func (c *Core) forward(cl *Client, msg *InboundMessage) {
	if !c.roomMgr.Contains(msg.RoomID, cl) {
		c.metrics.RelayFrame(msg.Type, metrics.OutcomeNotMember)
		return
	}

	others := c.roomMgr.Others(msg.RoomID, cl)
	if len(others) == 0 {
		c.metrics.RelayFrame(msg.Type, metrics.OutcomeNoPeer)
		return
	}

	if msg.Type != ICE {
		c.logger.Debug(logging.Relay, logging.Forward, "relaying session description", map[logging.ExtraKey]any{
			logging.ClientID: cl.ID,
			logging.RoomID:   msg.RoomID,
			"sdp_type":       sdpType(msg.SDP),
		})
	}

	frame := forwardOf(msg)
	for _, other := range others {
		c.deliver(other, msg.Type, frame)
	}
}

// evictStale drops sockets in the group that announced uid earlier. A peer
// whose connection died without a close frame keeps its old socket until the
// read deadline; the reconnect replaces it.
func (c *Core) evictStale(roomID, uid string) {
	if uid == "" {
		return
	}

	for _, other := range c.roomMgr.Members(roomID) {
		if other.joined[roomID] != uid {
			continue
		}
		c.roomMgr.Remove(roomID, other)
		delete(other.joined, roomID)
		_ = other.conn.Close()

		c.logger.Info(logging.Relay, logging.Join, "replaced stale socket", map[logging.ExtraKey]any{
			logging.ClientID: other.ID,
			logging.RoomID:   roomID,
			logging.UID:      uid,
		})
	}
}

func (c *Core) deliver(cl *Client, frameType string, msg *WSMessage) {
	if cl.send(msg) {
		c.metrics.RelayFrame(frameType, metrics.OutcomeForwarded)
		return
	}

	c.metrics.RelayFrame(frameType, metrics.OutcomeDropped)
	c.logger.Warn(logging.Relay, logging.Drop, "client buffer full, dropping frame", map[logging.ExtraKey]any{
		logging.ClientID:  cl.ID,
		logging.EventType: frameType,
	})
}

func (c *Core) removeClient(cl *Client) {
	if _, ok := c.clients[cl]; !ok {
		return
	}
	delete(c.clients, cl)

	for roomID, uid := range cl.joined {
		c.roomMgr.Remove(roomID, cl)
		if uid != "" && c.leave != nil && !c.uidStillJoined(roomID, uid) {
			go c.memberLeft(roomID, uid)
		}
	}
	cl.joined = nil

	close(cl.Message)
	c.metrics.SocketClosed()
	c.logger.Debug(logging.Relay, logging.Disconnect, "client disconnected", map[logging.ExtraKey]any{
		logging.ClientID: cl.ID,
	})
}

func (c *Core) uidStillJoined(roomID, uid string) bool {
	for _, other := range c.roomMgr.Members(roomID) {
		if other.joined[roomID] == uid {
			return true
		}
	}
	return false
}

func (c *Core) memberLeft(roomID, uid string) {
	ctx, cancel := context.WithTimeout(context.Background(), memberLeftTimeout)
	defer cancel()

	c.leave.MemberLeft(ctx, roomID, uid)
}
