package models

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextID_StrictlyIncreasing(t *testing.T) {
	prev := NextID()
	for i := 0; i < 1000; i++ {
		id := NextID()
		require.Greater(t, id, prev)
		prev = id
	}
}

func TestNextID_ConcurrentCallersNeverCollide(t *testing.T) {
	const workers, perWorker = 8, 200
	var mu sync.Mutex
	seen := make(map[int64]bool, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := NextID()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*perWorker)
}

func TestRecordID_JSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want RecordID
	}{
		{"number", `17`, "17"},
		{"string", `"17"`, "17"},
		{"text id", `"u-abc"`, "u-abc"},
		{"null", `null`, ""},
		{"large number", `1718000000123`, "1718000000123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id RecordID
			require.NoError(t, json.Unmarshal([]byte(tt.in), &id))
			assert.Equal(t, tt.want, id)
		})
	}

	out, err := json.Marshal(struct {
		A RecordID `json:"a"`
		B RecordID `json:"b"`
	}{A: "42", B: "u-abc"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":42,"b":"u-abc"}`, string(out))
}

func TestRecordID_MarshalKeepsNonCanonicalDigitsQuoted(t *testing.T) {
	tests := []struct {
		id   RecordID
		want string
	}{
		{"0", `0`},
		{"42", `42`},
		{"1718000000123", `1718000000123`},
		{"007", `"007"`},
		{"01", `"01"`},
		{"+7", `"+7"`},
		{"-7", `"-7"`},
		{"9007199254740993", `"9007199254740993"`},
		{"99999999999999999999", `"99999999999999999999"`},
		{"1.5", `"1.5"`},
	}
	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			out, err := json.Marshal(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
			assert.True(t, json.Valid(out))

			var back RecordID
			require.NoError(t, json.Unmarshal(out, &back))
			assert.Equal(t, tt.id, back)
		})
	}
}

func TestRecordID_Uint(t *testing.T) {
	n, ok := RecordID("42").Uint()
	assert.True(t, ok)
	assert.Equal(t, uint(42), n)

	_, ok = RecordID("u-1").Uint()
	assert.False(t, ok)

	assert.Equal(t, RecordID("7"), IDFromUint(7))
}
