package ws

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/hilthontt/duet/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/tidwall/gjson"
)

// InboundMessage is a client frame. Only the fields its type needs are set.
// SDP and Candidate keep the bytes the client sent.
type InboundMessage struct {
	Type      string          `json:"type"`
	RoomID    string          `json:"room_id"`
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
	Token     string          `json:"token,omitempty"`
	UID       string          `json:"uid,omitempty"`
}

type WSMessage struct {
	Type      string          `json:"type"`
	RoomID    string          `json:"room_id,omitempty"`
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
	Data      any             `json:"data,omitempty"`

	// raw, when set, is written to the socket as is.
	raw []byte
}

// Encode returns the text frame for m.
func (m *WSMessage) Encode() ([]byte, error) {
	if m.raw != nil {
		return m.raw, nil
	}
	return json.Marshal(m)
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var jsonNull = []byte("null")

func missing(v json.RawMessage) bool {
	return len(v) == 0 || bytes.Equal(v, jsonNull)
}

// decodeInbound returns nil, nil for frame types the relay does not handle.
func decodeInbound(raw []byte) (*InboundMessage, error) {
	frameType := gjson.GetBytes(raw, "type")
	if !frameType.Exists() {
		return nil, fmt.Errorf("frame has no type")
	}

	switch frameType.String() {
	case JoinRoom, Offer, Answer, ICE:
	default:
		return nil, nil
	}

	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("decode %s frame: %w", frameType.String(), err)
	}
	if msg.RoomID == "" {
		return nil, fmt.Errorf("%s frame without room_id", msg.Type)
	}

	switch msg.Type {
	case Offer, Answer:
		if missing(msg.SDP) {
			return nil, fmt.Errorf("%s frame without sdp", msg.Type)
		}
	case ICE:
		if missing(msg.Candidate) {
			return nil, fmt.Errorf("ice frame without candidate")
		}
	}
	return &msg, nil
}

// sdpType names the description type for logs. Payloads pion cannot read
// are still relayed.
func sdpType(raw json.RawMessage) string {
	var desc webrtc.SessionDescription
	if err := json.Unmarshal(raw, &desc); err != nil {
		return "unparsed"
	}
	return desc.Type.String()
}

// forwardOf builds the frame the other peer receives. The sdp or candidate
// value is copied byte for byte.
func forwardOf(msg *InboundMessage) *WSMessage {
	key, payload := "sdp", msg.SDP
	if msg.Type == ICE {
		key, payload = "candidate", msg.Candidate
	}

	typ, _ := json.Marshal(msg.Type)
	roomID, _ := json.Marshal(msg.RoomID)

	var b bytes.Buffer
	b.Grow(len(typ) + len(roomID) + len(payload) + 32)
	b.WriteString(`{"type":`)
	b.Write(typ)
	b.WriteString(`,"room_id":`)
	b.Write(roomID)
	b.WriteString(`,"` + key + `":`)
	b.Write(payload)
	b.WriteByte('}')

	frame := &WSMessage{Type: msg.Type, RoomID: msg.RoomID, raw: b.Bytes()}
	if msg.Type == ICE {
		frame.Candidate = payload
	} else {
		frame.SDP = payload
	}
	return frame
}

func NewUserConnected(roomID string) *WSMessage {
	return &WSMessage{Type: UserConnected, RoomID: roomID}
}

func NewDeleteRoom(roomID string) *WSMessage {
	return &WSMessage{Type: DeleteRoom, RoomID: roomID}
}

func NewRoomUpdated(room domain.Room) *WSMessage {
	return &WSMessage{Type: RoomUpdated, RoomID: room.ID, Data: room}
}

func NewError(roomID, code, message string) *WSMessage {
	return &WSMessage{
		Type:   ErrorEvent,
		RoomID: roomID,
		Data: ErrorPayload{
			Code:    code,
			Message: message,
		},
	}
}
