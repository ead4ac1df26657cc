package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/actionrunner/internal/config"
)

func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Home</title></head><body>
<h1> Example Domain </h1>
<a id="more" href="/about">More</a>
<form id="login" action="/login" method="post">
  <input id="email" name="email" value="old">
  <input id="password" name="password" type="password">
  <input type="checkbox" name="remember">
  <button id="submit" name="op" value="signin">Sign in</button>
</form>
<form id="search" action="/search">
  <input id="q" name="q">
</form>
</body></html>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p class="about">About us</p></body></html>`)
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		fmt.Fprintf(w, `<html><body><p id="who">%s|%s|%s|%s</p></body></html>`,
			r.Method, r.PostForm.Get("email"), r.PostForm.Get("op"), r.PostForm.Get("remember"))
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><p id="query">%s</p></body></html>`, r.URL.Query().Get("q"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func launchStatic(t *testing.T) Session {
	t.Helper()
	session, err := NewStaticLauncher("test-agent", nil).Launch(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestStaticSessionNavigation(t *testing.T) {
	srv := newTestSite(t)
	session := launchStatic(t)
	ctx := context.Background()

	require.NoError(t, session.Goto(ctx, srv.URL))
	text, err := session.InnerText(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "Example Domain", text)

	html, err := session.Content(ctx)
	require.NoError(t, err)
	assert.Contains(t, html, "<title>Home</title>")

	require.NoError(t, session.Click(ctx, "#more"))
	text, err = session.InnerText(ctx, ".about")
	require.NoError(t, err)
	assert.Equal(t, "About us", text)
}

func TestStaticSessionForms(t *testing.T) {
	srv := newTestSite(t)
	session := launchStatic(t)
	ctx := context.Background()

	require.NoError(t, session.Goto(ctx, srv.URL))
	require.NoError(t, session.Fill(ctx, "#email", "me@example.com"))
	require.NoError(t, session.Click(ctx, "#submit"))
	text, err := session.InnerText(ctx, "#who")
	require.NoError(t, err)
	assert.Equal(t, "POST|me@example.com|signin|", text)

	require.NoError(t, session.Goto(ctx, srv.URL))
	require.NoError(t, session.Fill(ctx, "#q", "go modules"))
	require.NoError(t, session.Press(ctx, "enter"))
	text, err = session.InnerText(ctx, "#query")
	require.NoError(t, err)
	assert.Equal(t, "go modules", text)
}

func TestStaticSessionErrors(t *testing.T) {
	srv := newTestSite(t)
	session := launchStatic(t)
	ctx := context.Background()

	err := session.Click(ctx, "#more")
	require.Error(t, err)

	require.NoError(t, session.Goto(ctx, srv.URL))

	err = session.Click(ctx, "#does-not-exist")
	assert.True(t, errors.Is(err, ErrSelectorNotFound))

	err = session.WaitFor(ctx, "#does-not-exist")
	assert.True(t, errors.Is(err, ErrSelectorNotFound))

	err = session.Fill(ctx, "h1", "x")
	assert.Error(t, err)

	err = session.Press(ctx, "NotAKey")
	assert.True(t, errors.Is(err, ErrUnknownKey))

	_, err = session.Screenshot(ctx)
	assert.True(t, errors.Is(err, ErrUnsupported))

	expired, cancel := context.WithTimeout(ctx, time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)
	assert.Error(t, session.Goto(expired, srv.URL))
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"enter", "Enter", true},
		{"Enter", "Enter", true},
		{"ESC", "Escape", true},
		{"a", "a", true},
		{"NotAKey", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeKey(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNewLauncher(t *testing.T) {
	cfg := config.Default()

	l, err := NewLauncher(cfg)
	require.NoError(t, err)
	assert.IsType(t, &ChromeLauncher{}, l)

	cfg.BrowserEngine = config.BrowserStatic
	l, err = NewLauncher(cfg)
	require.NoError(t, err)
	assert.IsType(t, &StaticLauncher{}, l)

	cfg.BrowserEngine = "netscape"
	_, err = NewLauncher(cfg)
	assert.Error(t, err)
}
