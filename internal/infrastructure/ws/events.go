package ws

// Frame types exchanged over the signaling socket.
const (
	JoinRoom      = "join-room"
	Offer         = "offer"
	Answer        = "answer"
	ICE           = "ice"
	UserConnected = "user-connected"
	DeleteRoom    = "delete-room"
	RoomUpdated   = "room-updated"
	ErrorEvent    = "error"
)

// Error codes carried by error frames.
const (
	CodeRoomFull     = "ROOM_FULL"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeBadRequest   = "BAD_REQUEST"
)
