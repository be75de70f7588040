package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

const (
	ActorUser   = "user"
	ActorSystem = "system"
	ActorAI     = "ai"
)

// Non-human actors have fixed display labels; human actors resolve to
// their directory name at read time.
const (
	LabelAI     = "Constraint Engine"
	LabelSystem = "System Scheduler"
)

type Entry struct {
	ID             string          `json:"id"`
	TenantID       string          `json:"targetOrg"`
	ActorID        string          `json:"actorId"`
	ActorType      string          `json:"actorType"`
	ActorName      string          `json:"actorName"`
	Action         string          `json:"action"`
	EntityType     string          `json:"entityType"`
	EntityID       string          `json:"entityId"`
	PreviousState  json.RawMessage `json:"previousState,omitempty"`
	NewState       json.RawMessage `json:"newState,omitempty"`
	DecisionReason string          `json:"decisionReason,omitempty"`
	IntegrityHash  string          `json:"integrityHash"`
	RequestID      string          `json:"requestId"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type Filter struct {
	ActorType  string
	Action     string
	EntityType string
	From       time.Time
	To         time.Time
}

// Hash digests the identifying fields of an entry. It is tamper evidence
// for a single record, not a chain link: no previous entry's hash is
// folded in.
func Hash(createdAt time.Time, actorType, actorID, action, entityType, entityID string) string {
	payload := createdAt.UTC().Format(time.RFC3339Nano) +
		"|" + actorType +
		"|" + actorID +
		"|" + action +
		"|" + entityType +
		"|" + entityID
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// ActorLabel resolves the display name for non-human actors. Human actors
// return the provided directory name.
func ActorLabel(actorType, directoryName string) string {
	switch actorType {
	case ActorAI:
		return LabelAI
	case ActorSystem:
		return LabelSystem
	default:
		return directoryName
	}
}
