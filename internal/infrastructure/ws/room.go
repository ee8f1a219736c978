package ws

import (
	"net/http"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorilla/websocket"
)

// MaxGroupSize is the number of sockets a room group admits.
const MaxGroupSize = 2

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// RoomManager maps a room id to the sockets that joined it. Empty groups are
// removed.
type RoomManager struct {
	groups map[string]mapset.Set[*Client]
	mu     sync.RWMutex
}

func NewRoomManager() *RoomManager {
	return &RoomManager{
		groups: make(map[string]mapset.Set[*Client]),
	}
}

func (rm *RoomManager) Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return upgrader.Upgrade(w, r, nil)
}

// Add reports false when cl was already in the group.
func (rm *RoomManager) Add(roomID string, cl *Client) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	group, ok := rm.groups[roomID]
	if !ok {
		group = mapset.NewThreadUnsafeSet[*Client]()
		rm.groups[roomID] = group
	}
	return group.Add(cl)
}

func (rm *RoomManager) Remove(roomID string, cl *Client) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	group, ok := rm.groups[roomID]
	if !ok {
		return
	}
	group.Remove(cl)
	if group.Cardinality() == 0 {
		delete(rm.groups, roomID)
	}
}

func (rm *RoomManager) Contains(roomID string, cl *Client) bool {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	group, ok := rm.groups[roomID]
	return ok && group.Contains(cl)
}

func (rm *RoomManager) Members(roomID string) []*Client {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	group, ok := rm.groups[roomID]
	if !ok {
		return nil
	}
	return group.ToSlice()
}

// Others lists the group without cl.
func (rm *RoomManager) Others(roomID string, cl *Client) []*Client {
	members := rm.Members(roomID)
	out := members[:0]
	for _, m := range members {
		if m != cl {
			out = append(out, m)
		}
	}
	return out
}

// Drop forgets a whole group and returns its former members.
func (rm *RoomManager) Drop(roomID string) []*Client {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	group, ok := rm.groups[roomID]
	if !ok {
		return nil
	}
	delete(rm.groups, roomID)
	return group.ToSlice()
}

func (rm *RoomManager) GroupSize(roomID string) int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	group, ok := rm.groups[roomID]
	if !ok {
		return 0
	}
	return group.Cardinality()
}

func (rm *RoomManager) GroupCount() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	return len(rm.groups)
}
