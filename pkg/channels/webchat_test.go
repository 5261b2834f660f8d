package channels

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gptchat/gptchat/pkg/config"
	"github.com/gptchat/gptchat/pkg/widget"
)

func testWebConfig() config.WebConfig {
	cfg := config.DefaultConfig().Web
	cfg.AcceptRate = 0
	return cfg
}

func startTestChannel(t *testing.T, cfg config.WebConfig, asker widget.Asker) (*WebChatChannel, *httptest.Server) {
	t.Helper()
	ch := NewWebChatChannel(cfg, asker, widget.DefaultFallbackText)
	srv := httptest.NewServer(ch.Handler())
	t.Cleanup(func() {
		_ = ch.Stop(context.Background())
		srv.Close()
	})
	return ch, srv
}

func dial(t *testing.T, srv *httptest.Server) (*websocket.Conn, string) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	first := readFrame(t, conn)
	require.Equal(t, "session", first.Type)
	require.NotEmpty(t, first.SessionID)
	return conn, first.SessionID
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

// readUntilIdle collects frames up to and including the idle affordance.
func readUntilIdle(t *testing.T, conn *websocket.Conn) []frame {
	t.Helper()
	var frames []frame
	for {
		f := readFrame(t, conn)
		frames = append(frames, f)
		if f.Type == "affordance" && f.State == "idle" {
			return frames
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, in inbound) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(in))
}

func describe(frames []frame) []string {
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		switch f.Type {
		case "message":
			out = append(out, f.Origin+":"+f.Text)
		case "affordance":
			out = append(out, "affordance:"+f.State)
		default:
			out = append(out, f.Type)
		}
	}
	return out
}

func TestSubmitRoundTrip(t *testing.T) {
	var question, session string
	asker := widget.AskerFunc(func(_ context.Context, q, s string) (string, error) {
		question, session = q, s
		return "Hi there", nil
	})
	_, srv := startTestChannel(t, testWebConfig(), asker)
	conn, id := dial(t, srv)

	send(t, conn, inbound{Type: "input", Text: "Hello"})
	send(t, conn, inbound{Type: "submit"})

	frames := readUntilIdle(t, conn)
	assert.Equal(t, []string{
		"affordance:in_flight",
		"clear_input",
		"user:Hello",
		"bot:Hi there",
		"affordance:idle",
	}, describe(frames))
	assert.Equal(t, "Hello", question)
	assert.Equal(t, id, session)
	assert.Empty(t, frames[3].HTML, "markdown is off by default")
}

func TestFailureSendsFallback(t *testing.T) {
	asker := widget.AskerFunc(func(context.Context, string, string) (string, error) {
		return "", errors.New("503 Service Unavailable")
	})
	_, srv := startTestChannel(t, testWebConfig(), asker)
	conn, _ := dial(t, srv)

	send(t, conn, inbound{Type: "input", Text: "Test"})
	send(t, conn, inbound{Type: "click"})

	assert.Equal(t, []string{
		"affordance:in_flight",
		"clear_input",
		"user:Test",
		"bot:" + widget.DefaultFallbackText,
		"affordance:idle",
	}, describe(readUntilIdle(t, conn)))
}

func TestShiftSubmitAndBlankInputDoNothing(t *testing.T) {
	var calls atomic.Int32
	asker := widget.AskerFunc(func(context.Context, string, string) (string, error) {
		calls.Add(1)
		return "ok", nil
	})
	_, srv := startTestChannel(t, testWebConfig(), asker)
	conn, _ := dial(t, srv)

	send(t, conn, inbound{Type: "input", Text: "   "})
	send(t, conn, inbound{Type: "submit"})
	send(t, conn, inbound{Type: "input", Text: "line one"})
	send(t, conn, inbound{Type: "submit", Shift: true})
	send(t, conn, inbound{Type: "input", Text: "line one\nline two"})
	send(t, conn, inbound{Type: "submit"})

	assert.Equal(t, []string{
		"affordance:in_flight",
		"clear_input",
		"user:line one\nline two",
		"bot:ok",
		"affordance:idle",
	}, describe(readUntilIdle(t, conn)))
	assert.Equal(t, int32(1), calls.Load())
}

func TestRepeatedSubmitWhileInFlight(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	var calls atomic.Int32
	asker := widget.AskerFunc(func(context.Context, string, string) (string, error) {
		calls.Add(1)
		started <- struct{}{}
		<-release
		return "done", nil
	})
	_, srv := startTestChannel(t, testWebConfig(), asker)
	conn, _ := dial(t, srv)

	send(t, conn, inbound{Type: "input", Text: "first"})
	send(t, conn, inbound{Type: "submit"})
	<-started
	send(t, conn, inbound{Type: "input", Text: "second"})
	send(t, conn, inbound{Type: "submit"})
	send(t, conn, inbound{Type: "click"})
	close(release)

	assert.Equal(t, []string{
		"affordance:in_flight",
		"clear_input",
		"user:first",
		"bot:done",
		"affordance:idle",
	}, describe(readUntilIdle(t, conn)))
	assert.Equal(t, int32(1), calls.Load())
}

func TestPollReturnsLiveTranscript(t *testing.T) {
	asker := widget.AskerFunc(func(context.Context, string, string) (string, error) { return "pong", nil })
	ch, srv := startTestChannel(t, testWebConfig(), asker)
	conn, id := dial(t, srv)

	send(t, conn, inbound{Type: "input", Text: "ping"})
	send(t, conn, inbound{Type: "submit"})
	readUntilIdle(t, conn)

	resp, err := http.Get(srv.URL + "/chat/poll?session=" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var msgs []chatMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msgs))
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "ping", msgs[0].Content)
	assert.Equal(t, "bot", msgs[1].Role)
	assert.Equal(t, "pong", msgs[1].Content)

	conn.Close()
	require.Eventually(t, func() bool { return ch.Sessions() == 0 }, 5*time.Second, 10*time.Millisecond)

	resp2, err := http.Get(srv.URL + "/chat/poll?session=" + id)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestPollRequiresSession(t *testing.T) {
	_, srv := startTestChannel(t, testWebConfig(), widget.AskerFunc(nil))

	resp, err := http.Get(srv.URL + "/chat/poll")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEachConnectionHasItsOwnSession(t *testing.T) {
	asker := widget.AskerFunc(func(context.Context, string, string) (string, error) { return "", nil })
	ch, srv := startTestChannel(t, testWebConfig(), asker)

	_, a := dial(t, srv)
	_, b := dial(t, srv)

	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, ch.Sessions())
}

func TestMarkdownReplies(t *testing.T) {
	cfg := testWebConfig()
	cfg.MarkdownReplies = true
	asker := widget.AskerFunc(func(context.Context, string, string) (string, error) {
		return "**bold** <script>alert(1)</script>", nil
	})
	_, srv := startTestChannel(t, cfg, asker)
	conn, _ := dial(t, srv)

	send(t, conn, inbound{Type: "input", Text: "*not rendered*"})
	send(t, conn, inbound{Type: "submit"})
	frames := readUntilIdle(t, conn)

	user, bot := frames[2], frames[3]
	assert.Empty(t, user.HTML, "user text is never rendered as markdown")
	assert.Contains(t, bot.HTML, "<strong>bold</strong>")
	assert.NotContains(t, bot.HTML, "<script>")
	assert.Equal(t, "**bold** <script>alert(1)</script>", bot.Text)
}

func TestAcceptRateLimit(t *testing.T) {
	cfg := testWebConfig()
	cfg.AcceptRate = 0.001
	cfg.AcceptBurst = 1
	_, srv := startTestChannel(t, cfg, widget.AskerFunc(nil))

	dial(t, srv)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestPageAndHealth(t *testing.T) {
	_, srv := startTestChannel(t, testWebConfig(), widget.AskerFunc(nil))

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	missing, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	health, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer health.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(health.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestStartAndStop(t *testing.T) {
	cfg := testWebConfig()
	cfg.Port = 0
	ch := NewWebChatChannel(cfg, widget.AskerFunc(nil), widget.DefaultFallbackText)

	require.NoError(t, ch.Start(context.Background()))
	assert.True(t, ch.IsRunning())

	resp, err := http.Get("http://" + ch.Addr() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, ch.Stop(context.Background()))
	assert.False(t, ch.IsRunning())
}

func TestRenderMarkdown(t *testing.T) {
	out := renderMarkdown("Use `go test`\n\n<img src=x onerror=alert(1)>")
	assert.Contains(t, out, "<code>go test</code>")
	assert.NotContains(t, out, "<img")
}

func TestRenderMarkdownLinks(t *testing.T) {
	unsafe := renderMarkdown("[click](javascript:alert(document.cookie))")
	assert.NotContains(t, unsafe, "javascript:")
	assert.NotContains(t, unsafe, "<a ")
	assert.Contains(t, unsafe, "click")

	safe := renderMarkdown("[docs](https://example.com/docs)")
	assert.Contains(t, safe, `href="https://example.com/docs"`)
	assert.Contains(t, safe, `target="_blank"`)
	assert.Contains(t, safe, "noopener")
	assert.Contains(t, safe, "noreferrer")
}
