package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RelationshipType defines how a predecessor constrains its successor.
type RelationshipType int

const (
	FinishToStart RelationshipType = iota
	StartToStart
	FinishToFinish
	StartToFinish
)

// String returns the two letter code of the relationship type.
func (t RelationshipType) String() string {
	switch t {
	case FinishToStart:
		return "FS"
	case StartToStart:
		return "SS"
	case FinishToFinish:
		return "FF"
	case StartToFinish:
		return "SF"
	default:
		return "unknown"
	}
}

// ParseRelationshipType converts a code such as "FS" into a RelationshipType.
// An empty string yields FinishToStart.
func ParseRelationshipType(s string) (RelationshipType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "FS":
		return FinishToStart, nil
	case "SS":
		return StartToStart, nil
	case "FF":
		return FinishToFinish, nil
	case "SF":
		return StartToFinish, nil
	default:
		return FinishToStart, fmt.Errorf("unknown relationship type %q", s)
	}
}

// MarshalJSON encodes the type as its code.
func (t RelationshipType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a relationship code.
func (t *RelationshipType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseRelationshipType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Relationship is a directed precedence edge between two activities.
// Lag is expressed in hours and may be negative to express overlap.
type Relationship struct {
	ID            string           `json:"id"`
	PredecessorID string           `json:"predecessor_id"`
	SuccessorID   string           `json:"successor_id"`
	Type          RelationshipType `json:"type"`
	Lag           int              `json:"lag"`
}
