package helpers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/xiaot623/gogo/actionrunner/internal/browser"
)

// PNGHeader is what FakeSession.Screenshot returns.
var PNGHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// FakeLauncher hands out in-memory sessions. Selectors listed in Missing fail
// with browser.ErrSelectorNotFound; Texts maps selectors to their innerText.
type FakeLauncher struct {
	mu        sync.Mutex
	LaunchErr error
	Missing   map[string]bool
	Texts     map[string]string
	// HangURLs makes Goto block until its context ends.
	HangURLs map[string]bool
	// Panics lists calls, as reported by FakeSession.Calls, that panic.
	Panics map[string]bool
	// ContentErr is returned by Content when set.
	ContentErr error
	Sessions   []*FakeSession
}

func NewFakeLauncher() *FakeLauncher {
	return &FakeLauncher{
		Missing:  map[string]bool{},
		Texts:    map[string]string{},
		HangURLs: map[string]bool{},
		Panics:   map[string]bool{},
	}
}

func (l *FakeLauncher) Launch(ctx context.Context) (browser.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.LaunchErr != nil {
		return nil, l.LaunchErr
	}
	s := &FakeSession{launcher: l}
	l.Sessions = append(l.Sessions, s)
	return s, nil
}

// Launched returns how many sessions were started.
func (l *FakeLauncher) Launched() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Sessions)
}

type FakeSession struct {
	launcher *FakeLauncher

	mu     sync.Mutex
	calls  []string
	closed bool
	url    string
}

// Calls returns the primitives invoked so far.
func (s *FakeSession) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Closed reports whether Close was called.
func (s *FakeSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *FakeSession) record(call string) {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()

	s.launcher.mu.Lock()
	boom := s.launcher.Panics[call]
	s.launcher.mu.Unlock()
	if boom {
		panic("boom")
	}
}

func (s *FakeSession) lookup(selector string) error {
	s.launcher.mu.Lock()
	missing := s.launcher.Missing[selector]
	s.launcher.mu.Unlock()
	if missing {
		return browser.ErrSelectorNotFound
	}
	return nil
}

func (s *FakeSession) Goto(ctx context.Context, url string) error {
	s.record("goto " + url)
	s.launcher.mu.Lock()
	hang := s.launcher.HangURLs[url]
	s.launcher.mu.Unlock()
	if hang {
		<-ctx.Done()
		return fmt.Errorf("goto %s: %w", url, ctx.Err())
	}
	s.mu.Lock()
	s.url = url
	s.mu.Unlock()
	return ctx.Err()
}

func (s *FakeSession) Click(ctx context.Context, selector string) error {
	s.record("click " + selector)
	if err := s.lookup(selector); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	return ctx.Err()
}

func (s *FakeSession) Fill(ctx context.Context, selector, text string) error {
	s.record("fill " + selector)
	if err := s.lookup(selector); err != nil {
		return fmt.Errorf("type into %q: %w", selector, err)
	}
	return ctx.Err()
}

func (s *FakeSession) Press(ctx context.Context, key string) error {
	s.record("press " + key)
	if _, ok := browser.NormalizeKey(key); !ok {
		return fmt.Errorf("press %q: %w", key, browser.ErrUnknownKey)
	}
	return ctx.Err()
}

func (s *FakeSession) WaitFor(ctx context.Context, selector string) error {
	s.record("waitFor " + selector)
	if err := s.lookup(selector); err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return ctx.Err()
}

func (s *FakeSession) InnerText(ctx context.Context, selector string) (string, error) {
	s.record("innerText " + selector)
	if err := s.lookup(selector); err != nil {
		return "", fmt.Errorf("extract text %q: %w", selector, err)
	}
	s.launcher.mu.Lock()
	text := s.launcher.Texts[selector]
	s.launcher.mu.Unlock()
	return text, ctx.Err()
}

func (s *FakeSession) Screenshot(ctx context.Context) ([]byte, error) {
	s.record("screenshot")
	return append([]byte(nil), PNGHeader...), ctx.Err()
}

func (s *FakeSession) Content(ctx context.Context) (string, error) {
	s.record("content")
	s.launcher.mu.Lock()
	contentErr := s.launcher.ContentErr
	s.launcher.mu.Unlock()
	if contentErr != nil {
		return "", contentErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return "<html><body data-url=\"" + s.url + "\"></body></html>", ctx.Err()
}

func (s *FakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("session already closed")
	}
	s.closed = true
	return nil
}
