package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"sherise/internal/coach"
	"sherise/internal/models"
	"sherise/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth_SignupLoginLogout(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.signup(t, "Asha Rao", "Asha@Example.com")

	resp, body := ts.do(t, http.MethodGet, "/api/profiles/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	me := decode[models.Profile](t, body)
	assert.Equal(t, "Asha Rao", me.Name)
	assert.Equal(t, "asha@example.com", me.Email)

	resp, _ = ts.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "Asha again", "email": "asha@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "asha@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = ts.do(t, http.MethodGet, "/api/profiles/me", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "asha@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	res := decode[service.AuthResult](t, body)
	assert.NotEmpty(t, res.Token)

	resp, _ = ts.do(t, http.MethodGet, "/api/profiles/me", res.Token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuth_SignupValidation(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodPost, "/api/auth/signup", "", `{"name":"","email":"x@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/api/auth/signup", "", `{broken`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWSTicket_IsSingleUse(t *testing.T) {
	ts := newTestServer(t)
	token, uid := ts.signup(t, "Asha", "asha@example.com")

	resp, body := ts.do(t, http.MethodPost, "/api/ws/ticket", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ticket := decode[struct {
		Ticket    string `json:"ticket"`
		ExpiresIn int    `json:"expires_in"`
	}](t, body)
	require.NotEmpty(t, ticket.Ticket)
	assert.Equal(t, 60, ticket.ExpiresIn)

	stored, err := ts.mr.Get(wsTicketKey(ticket.Ticket))
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatUint(uint64(uid), 10), stored)

	// A plain GET is not an upgrade, but the ticket is spent on the way in.
	resp, _ = ts.do(t, http.MethodGet, "/api/ws?ticket="+ticket.Ticket, "", nil)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
	assert.False(t, ts.mr.Exists(wsTicketKey(ticket.Ticket)))

	resp, _ = ts.do(t, http.MethodGet, "/api/ws?ticket="+ticket.Ticket, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWS_HiddenWhenLiveEventsOff(t *testing.T) {
	ts := newTestServer(t, withFlags("live_events=off"))
	token, _ := ts.signup(t, "Asha", "asha@example.com")

	resp, _ := ts.do(t, http.MethodGet, "/api/ws?token="+token, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := ts.do(t, http.MethodGet, "/api/feature-flags", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	flags := decode[map[string]bool](t, body)
	assert.False(t, flags["live_events"])
	assert.True(t, flags["coach_partner_suggestions"])
}

func TestCart_Flow(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.signup(t, "Asha", "asha@example.com")
	soap := map[string]any{"name": "Neem soap", "business": "Glow", "price": "₹120"}

	ts.do(t, http.MethodPost, "/api/cart/items", token, soap)
	resp, body := ts.do(t, http.MethodPost, "/api/cart/items", token, soap)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	cart := decode[cartResponse](t, body)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Count)
	assert.Equal(t, int64(240), cart.Subtotal)

	_, body = ts.do(t, http.MethodPatch, "/api/cart/items/0", token, map[string]int{"delta": -5})
	cart = decode[cartResponse](t, body)
	assert.Equal(t, 1, cart.Items[0].Count, "count never drops below one")

	_, body = ts.do(t, http.MethodPost, "/api/checkout/open-cart", token, nil)
	assert.Equal(t, models.PhaseCartOpen, decode[service.CheckoutView](t, body).Phase)

	resp, body = ts.do(t, http.MethodPost, "/api/orders", token, map[string]any{
		"details": map[string]string{"name": "Asha", "address": "Pune"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	order := decode[models.Order](t, body)
	assert.Equal(t, int64(120), order.Total)

	_, body = ts.do(t, http.MethodGet, "/api/cart", token, nil)
	assert.Empty(t, decode[cartResponse](t, body).Items)

	_, body = ts.do(t, http.MethodGet, "/api/checkout", token, nil)
	assert.Equal(t, models.PhaseOrderPlaced, decode[service.CheckoutView](t, body).Phase)

	_, body = ts.do(t, http.MethodGet, "/api/orders", token, nil)
	assert.Len(t, decode[[]models.Order](t, body), 1)

	resp, _ = ts.do(t, http.MethodPost, "/api/orders", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "empty cart")

	resp, _ = ts.do(t, http.MethodPost, "/api/checkout/teleport", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, body = ts.do(t, http.MethodPost, "/api/checkout/acknowledge", token, nil)
	assert.Equal(t, models.PhaseBrowsing, decode[service.CheckoutView](t, body).Phase)
}

func TestCoach_UsesGeneratorAndPartners(t *testing.T) {
	var prompts []string
	ts := newTestServer(t, withGenerator(coach.GeneratorFunc(func(_ context.Context, prompt string) string {
		prompts = append(prompts, prompt)
		return "Sell at the Sunday market."
	})))
	token, _ := ts.signup(t, "Asha", "asha@example.com")

	resp, body := ts.do(t, http.MethodGet, "/api/coach", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.CoachMessage](t, body), 1, "greeting only")

	resp, body = ts.do(t, http.MethodPost, "/api/coach/messages", token, map[string]string{"text": "How do I grow?"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	out := decode[struct {
		Reply      models.CoachMessage   `json:"reply"`
		Transcript []models.CoachMessage `json:"transcript"`
	}](t, body)
	assert.Equal(t, "Sell at the Sunday market.", out.Reply.Content)
	assert.Len(t, out.Transcript, 3)
	require.Len(t, prompts, 1)

	_, body = ts.do(t, http.MethodPost, "/api/coach/messages", token, map[string]string{"text": "I want to partner with someone"})
	out = decode[struct {
		Reply      models.CoachMessage   `json:"reply"`
		Transcript []models.CoachMessage `json:"transcript"`
	}](t, body)
	assert.Contains(t, out.Reply.Content, "Kavya")
	assert.Len(t, prompts, 1, "partner suggestions skip the model")

	resp, _ = ts.do(t, http.MethodDelete, "/api/coach", token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_, body = ts.do(t, http.MethodGet, "/api/coach", token, nil)
	assert.Len(t, decode[[]models.CoachMessage](t, body), 1)
}

func TestCoach_PartnerSuggestionsFlagOff(t *testing.T) {
	ts := newTestServer(t, withFlags("coach_partner_suggestions=off"))
	token, _ := ts.signup(t, "Asha", "asha@example.com")

	_, body := ts.do(t, http.MethodPost, "/api/coach/messages", token, map[string]string{"text": "Can I hire help?"})
	assert.True(t, strings.Contains(string(body), "Try a weekend stall."))
}

func TestMessages_SendAppendsToThread(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.signup(t, "Asha", "asha@example.com")

	resp, body := ts.do(t, http.MethodPost, "/api/messages/7", token, map[string]string{"text": "Hello Kavya"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	thread := decode[[]models.DirectMessage](t, body)
	require.NotEmpty(t, thread)
	assert.Equal(t, "Hello Kavya", thread[len(thread)-1].Text)

	resp, _ = ts.do(t, http.MethodPost, "/api/messages/7", token, map[string]string{"text": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
