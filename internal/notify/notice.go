package notify

import (
	"time"

	"github.com/smartegg/smartegg-core/internal/alert"
)

// Kind distinguishes notice payloads.
type Kind string

const (
	KindAlert   Kind = "alert"
	KindEggTurn Kind = "egg-turn"
)

// Notice is one message for one user.
type Notice struct {
	Kind           Kind         `json:"kind"`
	IncubationID   string       `json:"incubationId"`
	IncubationName string       `json:"incubationName,omitempty"`
	Alert          *alert.Alert `json:"alert,omitempty"`
	TurnCount      int          `json:"turnCount,omitempty"`
	Timestamp      time.Time    `json:"timestamp"`
}
