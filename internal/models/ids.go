package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"sync"
	"time"
)

var (
	idMu   sync.Mutex
	lastID int64
)

// NextID returns a millisecond timestamp id that is strictly increasing within the process.
// Two calls in the same millisecond get consecutive values instead of colliding.
func NextID() int64 {
	idMu.Lock()
	defer idMu.Unlock()

	id := time.Now().UnixMilli()
	if id <= lastID {
		id = lastID + 1
	}
	lastID = id
	return id
}

// NewRecordID is NextID as a RecordID.
func NewRecordID() RecordID {
	return RecordID(strconv.FormatInt(NextID(), 10))
}

// RecordID is an entity id that fixtures write as a number and some clients send as a string.
// It decodes either form and encodes numeric ids back as JSON numbers.
type RecordID string

// IDFromUint formats a numeric id.
func IDFromUint(id uint) RecordID {
	return RecordID(strconv.FormatUint(uint64(id), 10))
}

func (id RecordID) String() string { return string(id) }

// Uint parses the id as an unsigned number, reporting false for non-numeric ids.
func (id RecordID) Uint() (uint, bool) {
	n, err := strconv.ParseUint(string(id), 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(n), true
}

// maxExactID is the largest integer a JavaScript client reads back without rounding.
const maxExactID = 1<<53 - 1

// numeric reports whether the id is a canonical decimal integer that survives a round trip
// through a JSON number. "007" or "+7" stay strings.
func (id RecordID) numeric() bool {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil || n < 0 || n > maxExactID {
		return false
	}
	return strconv.FormatInt(n, 10) == string(id)
}

// MarshalJSON writes canonical numeric ids as numbers and everything else as strings.
func (id RecordID) MarshalJSON() ([]byte, error) {
	if id.numeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts a JSON string, a JSON number or null.
func (id *RecordID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = RecordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*id = RecordID(strconv.FormatInt(i, 10))
		return nil
	}
	*id = RecordID(n.String())
	return nil
}
