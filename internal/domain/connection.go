package domain

import (
	"fmt"
	"time"

	"github.com/hilthontt/duet/internal/infrastructure/validate"
)

type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusReady        ConnectionStatus = "ready"
	StatusConnecting   ConnectionStatus = "connecting"
)

var validateStatus = validate.Field("status", validate.OneOf(
	string(StatusDisconnected), string(StatusReady), string(StatusConnecting),
))

func ParseConnectionStatus(s string) (ConnectionStatus, error) {
	if err := validateStatus(s); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return ConnectionStatus(s), nil
}

type Connection struct {
	Status         ConnectionStatus `bson:"status" json:"status"`
	ConnectedAt    *time.Time       `bson:"connected_at,omitempty" json:"connected_at,omitempty"`
	DisconnectedAt *time.Time       `bson:"disconnected_at,omitempty" json:"disconnected_at,omitempty"`
}

// CanTransition reports whether the status may move to next. Any status may
// return to disconnected; otherwise the path is disconnected, ready, connecting.
func (c Connection) CanTransition(next ConnectionStatus) bool {
	switch next {
	case StatusDisconnected:
		return true
	case StatusReady:
		return c.Status == StatusDisconnected
	case StatusConnecting:
		return c.Status == StatusReady
	}
	return false
}

func (c *Connection) Transition(next ConnectionStatus, now time.Time) error {
	if !c.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, next)
	}

	c.Status = next
	switch next {
	case StatusConnecting:
		c.ConnectedAt = &now
	case StatusDisconnected:
		c.DisconnectedAt = &now
	}
	return nil
}
