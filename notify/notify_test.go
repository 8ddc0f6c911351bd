package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/signalbot/market"
	"github.com/rustyeddy/signalbot/signals"
)

func entrySignal() signals.Signal {
	return signals.Signal{
		Kind:       signals.Entry,
		Symbol:     "BTC/USD",
		Timeframe:  "15min",
		Direction:  market.Buy,
		Entry:      91,
		StopLoss:   89.18,
		TakeProfit: 94.64,
		Time:       time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC),
		Reason:     "close back above lower band",
		Strategy:   "bollinger_reentry",
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingSender struct {
	name string
	err  error
	got  []Message
}

func (r *recordingSender) Send(ctx context.Context, m Message) error {
	r.got = append(r.got, m)
	return r.err
}

func (r *recordingSender) Name() string { return r.name }

func TestFormatSignal(t *testing.T) {
	got := FormatSignal(entrySignal())
	want := "🚨 **ENTRY SIGNAL** 🚨\n\n" +
		"**PAIR:** BTC/USD\n" +
		"**Timeframe:** 15min\n" +
		"**Direction:** BUY\n" +
		"**Entry:** 91.00\n" +
		"**SL:** 89.18\n" +
		"**TP:** 94.64\n" +
		"**Time:** 2025-03-01 06:00:00\n" +
		"Reason: close back above lower band\n"
	assert.Equal(t, want, got)
	assert.Equal(t, "ENTRY SIGNAL BTC/USD BUY", Title(entrySignal()))
}

func TestFormatExitSignal(t *testing.T) {
	sig := entrySignal()
	sig.Kind = signals.Exit
	sig.ExitPrice = 89.1
	sig.Result = signals.StopLoss
	conf := 0.7
	sig.Confidence = &conf

	got := FormatSignal(sig)
	assert.Contains(t, got, "🚨 **EXIT SIGNAL** 🚨")
	assert.Contains(t, got, "**Exit:** 89.10\n")
	assert.Contains(t, got, "**Result:** SL\n")
	assert.Contains(t, got, "**Confidence:** 0.70\n")
}

func TestDispatcherDeliversToAll(t *testing.T) {
	a := &recordingSender{name: "a"}
	b := &recordingSender{name: "b", err: errors.New("down")}
	c := &recordingSender{name: "c"}
	d := NewDispatcher([]Sender{a, b, c}, nil, quietLogger())

	err := d.Notify(context.Background(), entrySignal())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 sender(s) failed")
	assert.Contains(t, err.Error(), "b: down")

	require.Len(t, a.got, 1)
	require.Len(t, c.got, 1, "a failing sender does not stop the rest")
	assert.Equal(t, FormatSignal(entrySignal()), a.got[0].Body)
	assert.Equal(t, entrySignal(), a.got[0].Signal)
	assert.Equal(t, []string{"a", "b", "c"}, d.Senders())
}

func TestDispatcherKindFilter(t *testing.T) {
	a := &recordingSender{name: "a"}
	d := NewDispatcher([]Sender{a}, []string{" Exit "}, quietLogger())

	require.NoError(t, d.Notify(context.Background(), entrySignal()))
	assert.Empty(t, a.got)

	exit := entrySignal()
	exit.Kind = signals.Exit
	require.NoError(t, d.Notify(context.Background(), exit))
	assert.Len(t, a.got, 1)
}

func TestDispatcherNoSenders(t *testing.T) {
	assert.NoError(t, NewDispatcher(nil, nil, nil).Notify(context.Background(), entrySignal()))
}

func TestDiscordSender(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL)
	assert.Equal(t, "discord", s.Name())
	m := Message{Title: "t", Body: FormatSignal(entrySignal())}
	require.NoError(t, s.Send(context.Background(), m))
	assert.Equal(t, m.Body, got["content"])
}

func TestDiscordSenderStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), Message{Body: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "slow down")
}

func TestTelegramSender(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	s := NewTelegramSender("TOKEN", "42")
	s.apiBase = srv.URL
	require.NoError(t, s.Send(context.Background(), Message{Body: "**PAIR:** BTC/USD"}))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "*PAIR:* BTC/USD", got["text"])
	assert.Equal(t, "Markdown", got["parse_mode"])
}

func TestTelegramSenderHidesToken(t *testing.T) {
	s := NewTelegramSender("SECRET", "42")
	s.apiBase = "http://127.0.0.1:1"
	err := s.Send(context.Background(), Message{Body: "x"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET")
}

func TestWebhookSender(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL)
	s.now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }
	sig := entrySignal()
	require.NoError(t, s.Send(context.Background(), Message{Title: Title(sig), Body: FormatSignal(sig), Signal: sig}))

	assert.Equal(t, "ENTRY SIGNAL BTC/USD BUY", got.Title)
	assert.Equal(t, "2025-03-01T00:00:00Z", got.Sent)
	assert.True(t, sig.Equal(got.Signal))
}

func TestWebhookSenderStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	assert.Error(t, NewWebhookSender(srv.URL).Send(context.Background(), Message{}))
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(slog.New(slog.NewJSONHandler(&buf, nil)))
	sig := entrySignal()
	require.NoError(t, s.Send(context.Background(), Message{Title: Title(sig), Signal: sig}))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "ENTRY SIGNAL BTC/USD BUY", line["msg"])
	assert.Equal(t, "buy", line["direction"])
	assert.Equal(t, 94.64, line["tp"])
}
