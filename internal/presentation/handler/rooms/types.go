package rooms

import (
	"time"

	"github.com/hilthontt/duet/internal/domain"
)

// createRoomRequest carries the room password and the host's identity
type createRoomRequest struct {
	Password    string `json:"password" example:"abcd1234" minLength:"1"`       // Room password
	UID         string `json:"uid" example:"Jx1GZkz3nWfQ" minLength:"1"`        // Host uid from the identity provider
	Email       string `json:"email" example:"host@example.com"`                // Host email
	DisplayName string `json:"display_name" example:"Ada"`                      // Host display name
	PhotoURL    string `json:"photo_url" example:"https://example.com/ada.png"` // Host avatar
}

type createRoomResponse struct {
	Okay   bool   `json:"okay" example:"true"`
	RoomID string `json:"room_id" example:"550e8400-e29b-41d4-a716-446655440000"` // Unique room identifier
}

type checkPasswordRequest struct {
	Password string `json:"password" example:"abcd1234"`
	RoomID   string `json:"room_id" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// issueTokenRequest binds the token to a room when room_id is set, in which
// case the password must be given as well
type issueTokenRequest struct {
	RoomID   string `json:"room_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440000"`
	Password string `json:"password,omitempty" example:"abcd1234"`
}

type issueTokenResponse struct {
	Okay      bool      `json:"okay" example:"true"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at" example:"2024-01-01T12:00:30Z"`
}

type verifyTokenRequest struct {
	Token  string `json:"token"`
	RoomID string `json:"room_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440000"`
}

type okayResponse struct {
	Okay bool `json:"okay" example:"true"`
}

// transitionRequest moves the caller's member slot to a new status
type transitionRequest struct {
	UID         string `json:"uid" minLength:"1"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
	Status      string `json:"status" enum:"disconnected,ready,connecting"`
}

type roomResponse struct {
	Okay bool        `json:"okay" example:"true"`
	Room domain.Room `json:"room"`
}

type roomsResponse struct {
	Okay  bool          `json:"okay" example:"true"`
	Rooms []domain.Room `json:"rooms"`
}

type auditResponse struct {
	Okay    bool                  `json:"okay" example:"true"`
	Entries []domain.RoomAuditLog `json:"entries"`
}
