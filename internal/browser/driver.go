// Package browser drives the page a run executes against. Every run gets its
// own Session from a Launcher; sessions are never shared between runs.
package browser

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrUnsupported is returned by engines that lack a primitive.
	ErrUnsupported = errors.New("not supported by this browser engine")
	// ErrSelectorNotFound is returned when no element matches a selector.
	ErrSelectorNotFound = errors.New("selector not found")
	// ErrUnknownKey is returned by Press for key names it cannot map.
	ErrUnknownKey = errors.New("unknown key")
)

// Launcher starts a dedicated browser for one run.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// Session is a single page. Each call honours the deadline of ctx.
type Session interface {
	Goto(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	// Fill replaces the value of a form field.
	Fill(ctx context.Context, selector, text string) error
	Press(ctx context.Context, key string) error
	WaitFor(ctx context.Context, selector string) error
	InnerText(ctx context.Context, selector string) (string, error)
	// Screenshot captures the full page as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	// Content returns the serialized HTML of the page.
	Content(ctx context.Context) (string, error)
	Close() error
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context) (Session, error)

// Launch calls f.
func (f LauncherFunc) Launch(ctx context.Context) (Session, error) {
	return f(ctx)
}

var keyNames = map[string]string{
	"enter":      "Enter",
	"return":     "Enter",
	"tab":        "Tab",
	"escape":     "Escape",
	"esc":        "Escape",
	"backspace":  "Backspace",
	"delete":     "Delete",
	"arrowup":    "ArrowUp",
	"arrowdown":  "ArrowDown",
	"arrowleft":  "ArrowLeft",
	"arrowright": "ArrowRight",
	"home":       "Home",
	"end":        "End",
	"pageup":     "PageUp",
	"pagedown":   "PageDown",
	"space":      " ",
}

// NormalizeKey maps a key name such as "enter" or "ArrowDown" to its
// canonical form. Single characters pass through unchanged.
func NormalizeKey(key string) (string, bool) {
	if name, ok := keyNames[strings.ToLower(strings.TrimSpace(key))]; ok {
		return name, true
	}
	if len([]rune(key)) == 1 {
		return key, true
	}
	return "", false
}
