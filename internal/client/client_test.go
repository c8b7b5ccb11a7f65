package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/echocloset/internal/engine"
	"github.com/lazypower/echocloset/internal/gate"
	"github.com/lazypower/echocloset/internal/notify"
	"github.com/lazypower/echocloset/internal/server"
	"github.com/lazypower/echocloset/internal/store"
	"github.com/lazypower/echocloset/internal/tagger"
)

func testServer(t *testing.T) *Client {
	t.Helper()
	st, err := store.Open(store.NewMemoryPersister())
	require.NoError(t, err)

	lex := tagger.DefaultLexicon()
	tg := tagger.New(lex, tagger.NewMaxMatchTokenizer(lex.Keywords()))
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	eng := engine.New(st, tg, notify.NewRecorder(), clock, engine.Options{DefaultCooldownDays: 7})
	g, err := gate.New(clock, false, "02:30", "05:00", time.UTC)
	require.NoError(t, err)

	ts := httptest.NewServer(server.New(eng, g, clock, server.Options{Version: "test"}))
	t.Cleanup(ts.Close)
	return New(ts.URL + "/")
}

func TestClientRoundTrip(t *testing.T) {
	c := testServer(t)
	ctx := context.Background()

	require.True(t, c.Healthy(ctx))

	echo, err := c.Echo(ctx, "好累，今天好煩")
	require.NoError(t, err)
	assert.Equal(t, store.KindEcho, echo.Entry.Kind)
	assert.Equal(t, []string{"生氣", "疲憊"}, echo.Entry.Tags)

	three := 3
	h, err := c.CreateHoard(ctx, "耳機", &three, "U1")
	require.NoError(t, err)
	assert.Equal(t, 3, h.Hoard.Entry.CooldownDays)
	assert.Equal(t, h.Hoard.Entry.Timestamp.AddDate(0, 0, 3), h.Hoard.Deadline)

	hoards, err := c.Hoards(ctx, "U1")
	require.NoError(t, err)
	require.Len(t, hoards, 1)
	assert.Equal(t, "耳機", hoards[0].Entry.Description)

	recent, err := c.Recent(ctx, 5, 0)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	a, err := c.Analyze(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Entries)
	assert.Len(t, a.Tags, 2)

	res, err := c.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.ScanResult{}, *res)
}

func TestClientWipeFlow(t *testing.T) {
	c := testServer(t)
	ctx := context.Background()

	_, err := c.Echo(ctx, "開心")
	require.NoError(t, err)

	ticket, err := c.RequestWipe(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, ticket.Entries)

	done, err := c.ConfirmWipe(ctx, ticket.Token)
	require.NoError(t, err)
	assert.Equal(t, 1, done.Wiped)

	_, err = c.ConfirmWipe(ctx, ticket.Token)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
}

func TestClientGhostDecline(t *testing.T) {
	c := testServer(t)
	ctx := context.Background()

	state, err := c.ToggleGhost(ctx)
	require.NoError(t, err)
	assert.True(t, state.Ghost)

	_, err = c.Echo(ctx, "開心")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, gate.DeclineMessage, apiErr.Message)
}

func TestClientUnreachable(t *testing.T) {
	c := New("http://127.0.0.1:1")
	assert.False(t, c.Healthy(context.Background()))
	_, err := c.Echo(context.Background(), "x")
	assert.Error(t, err)
}
