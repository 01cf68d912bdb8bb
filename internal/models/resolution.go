package models

import "encoding/json"

// ResolutionKind discriminates Resolution variants on the wire.
type ResolutionKind string

const (
	ResolutionRoom ResolutionKind = "room"
	ResolutionTime ResolutionKind = "time"
)

// Resolution is a reassignment applied to a mobile entry. It is implemented
// only by RoomChange and TimeChange; consumers switch over both.
type Resolution interface {
	Kind() ResolutionKind
	isResolution()
}

// RoomChange keeps the slot and moves the entry to another room.
type RoomChange struct {
	RoomID   string `json:"roomId"`
	RoomName string `json:"roomName"`
}

func (RoomChange) Kind() ResolutionKind { return ResolutionRoom }
func (RoomChange) isResolution()        {}

// TimeChange keeps the room and moves the entry to another slot. For labs
// StartTime is the first slot of the new block.
type TimeChange struct {
	Day       Day    `json:"day"`
	StartTime string `json:"startTime"`
}

func (TimeChange) Kind() ResolutionKind { return ResolutionTime }
func (TimeChange) isResolution()        {}

// AppliedResolution records how one conflict was fixed. EntryIndices point
// into the timetable the resolver was given.
type AppliedResolution struct {
	Conflict     Conflict
	EntryIndices []int
	Change       Resolution
}

// MarshalJSON flattens the variant with a kind discriminator.
func (r AppliedResolution) MarshalJSON() ([]byte, error) {
	payload := struct {
		Kind         ResolutionKind `json:"kind"`
		Conflict     Conflict       `json:"conflict"`
		EntryIndices []int          `json:"entryIndices"`
		Change       Resolution     `json:"change"`
	}{
		Conflict:     r.Conflict,
		EntryIndices: r.EntryIndices,
		Change:       r.Change,
	}
	if r.Change != nil {
		payload.Kind = r.Change.Kind()
	}
	return json.Marshal(payload)
}
