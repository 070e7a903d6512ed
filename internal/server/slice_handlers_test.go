package server

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"sherise/internal/notifications"
	"sherise/internal/store"
	"sherise/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIfMatch(t *testing.T) {
	tests := []struct {
		header      string
		version     int64
		conditional bool
		wantErr     bool
	}{
		{header: "", conditional: false},
		{header: "*", conditional: false},
		{header: `"3"`, version: 3, conditional: true},
		{header: `W/"7"`, version: 7, conditional: true},
		{header: "0", version: 0, conditional: true},
		{header: `"abc"`, wantErr: true},
		{header: `"-1"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			v, ok, err := parseIfMatch(tt.header)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.conditional, ok)
			assert.Equal(t, tt.version, v)
		})
	}
}

func TestSlices_RoundTripWithETag(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.signup(t, "Asha", "asha@example.com")

	resp, _ := ts.do(t, http.MethodGet, "/api/slices/sherise_cart", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := ts.do(t, http.MethodPut, "/api/slices/sherise_cart", token, `[{"name":"Soap","business":"B","price":"₹50","count":1}]`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, `"1"`, resp.Header.Get("ETag"))

	resp, body = ts.do(t, http.MethodGet, "/api/slices/sherise_cart", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `"1"`, resp.Header.Get("ETag"))
	assert.JSONEq(t, `[{"name":"Soap","business":"B","price":"₹50","count":1}]`, string(body))

	resp, _ = ts.do(t, http.MethodGet, "/api/cart", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "services read what the slice API wrote")
}

func TestSlices_IfMatchDetectsLostUpdate(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.signup(t, "Asha", "asha@example.com")

	resp, _ := ts.do(t, http.MethodPut, "/api/slices/sherise_follows", token, `{"2":true}`, "If-Match", `"0"`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `"1"`, resp.Header.Get("ETag"))

	// Two writers both read version 1; the second must be refused.
	resp, _ = ts.do(t, http.MethodPut, "/api/slices/sherise_follows", token, `{"2":true,"3":true}`, "If-Match", `"1"`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := ts.do(t, http.MethodPut, "/api/slices/sherise_follows", token, `{}`, "If-Match", `"1"`)
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
	assert.Contains(t, string(body), "PRECONDITION_FAILED")

	_, body = ts.do(t, http.MethodGet, "/api/slices/sherise_follows", token, nil)
	assert.JSONEq(t, `{"2":true,"3":true}`, string(body))
}

func TestSlices_RejectsInvalidJSON(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.signup(t, "Asha", "asha@example.com")

	resp, _ := ts.do(t, http.MethodPut, "/api/slices/sherise_cart", token, `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPut, "/api/slices/sherise_cart", token, `[]`, "If-Match", "soon")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodGet, "/api/slices/bad%20key", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSlices_ScopesAndDelete(t *testing.T) {
	ts := newTestServer(t)
	asha, _ := ts.signup(t, "Asha", "asha@example.com")
	meera, _ := ts.signup(t, "Meera", "meera@example.com")

	resp, _ := ts.do(t, http.MethodPut, "/api/slices/sherise_cart", asha, `[]`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = ts.do(t, http.MethodGet, "/api/slices/sherise_cart", meera, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "user slices are private")

	resp, _ = ts.do(t, http.MethodPut, "/api/slices/notes?shared=1", asha, `{"pinned":"welcome"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body := ts.do(t, http.MethodGet, "/api/slices/notes?shared=1", meera, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"pinned":"welcome"}`, string(body))

	resp, _ = ts.do(t, http.MethodDelete, "/api/slices/notes?shared=1", meera, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = ts.do(t, http.MethodGet, "/api/slices/notes?shared=1", asha, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSlices_WritesPublishSliceUpdated(t *testing.T) {
	ts := newTestServer(t)
	token, uid := ts.signup(t, "Asha", "asha@example.com")

	var mu sync.Mutex
	var got []notifications.Event
	unsubscribe := ts.bus.Subscribe(notifications.EventSliceUpdated, func(_ context.Context, e notifications.Event) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	})
	defer unsubscribe()

	resp, _ := ts.do(t, http.MethodPut, "/api/slices/sherise_orders", token, `[]`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	id, ok := got[0].UserID()
	require.True(t, ok)
	assert.Equal(t, uid, id)
	assert.JSONEq(t, `{"key":"sherise_orders","version":1}`, string(got[0].Detail))
}

func TestPublishEvent(t *testing.T) {
	ts := newTestServer(t)
	token, uid := ts.signup(t, "Asha", "asha@example.com")

	received := make(chan notifications.Event, 1)
	unsubscribe := ts.bus.Subscribe(notifications.EventOpenHiringForm, func(_ context.Context, e notifications.Event) {
		received <- e
	})
	defer unsubscribe()

	resp, _ := ts.do(t, http.MethodPost, "/api/events/openHiringForm", token, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	e := <-received
	id, _ := e.UserID()
	assert.Equal(t, uid, id)

	resp, _ = ts.do(t, http.MethodPost, "/api/events/somethingElse", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSlices_TracedWithRouteAndSlice(t *testing.T) {
	rec := testutil.RecordSpans(t)
	ts := newTestServer(t)
	token, uid := ts.signup(t, "Asha", "asha@example.com")

	resp, body := ts.do(t, http.MethodPut, "/api/slices/sherise_orders", token, `[]`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	server := testutil.EndedSpan(t, rec, "PUT /api/slices/:key")
	attrs := testutil.SpanAttrs(server)
	assert.Equal(t, "/api/slices/:key", attrs["http.route"])
	assert.Equal(t, "sherise_orders", attrs["sherise.slice.key"])
	assert.Equal(t, store.UserScope(uid), attrs["sherise.slice.scope"])
	assert.Equal(t, int64(1), attrs["sherise.slice.version"])
	assert.Equal(t, int64(uid), attrs["sherise.user.id"])
	assert.Equal(t, resp.Header.Get("X-Trace-ID"), server.SpanContext().TraceID().String())

	notify := testutil.EndedSpan(t, rec, "notify sliceUpdated")
	assert.Equal(t, server.SpanContext().SpanID(), notify.Parent().SpanID())
	notifyAttrs := testutil.SpanAttrs(notify)
	assert.Equal(t, notifications.EventSliceUpdated, notifyAttrs["sherise.event.name"])
	assert.Contains(t, notifyAttrs, "sherise.event.subscribers")
}
