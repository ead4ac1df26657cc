package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveActionsPrependsGoto(t *testing.T) {
	p := &Plan{
		StartURL: "https://example.com/login",
		Actions:  []Action{{Type: ActionClick, Selector: "#signin"}},
	}

	got := p.EffectiveActions()
	require.Len(t, got, 2)
	assert.Equal(t, ActionGoto, got[0].Type)
	assert.Equal(t, "https://example.com/login", got[0].URL)
	assert.Equal(t, AutoGotoTimeoutMs, got[0].TimeoutMs)
	assert.True(t, got[0].Auto)
	assert.Equal(t, ActionClick, got[1].Type)
	assert.Len(t, p.Actions, 1, "plan actions must not be modified")
}

func TestEffectiveActionsKeepsLeadingGoto(t *testing.T) {
	p := &Plan{
		StartURL: "https://example.com",
		Actions: []Action{
			{Type: ActionGoto, URL: "https://other.example.org"},
			{Type: ActionScreenshot},
		},
	}

	got := p.EffectiveActions()
	require.Len(t, got, 2)
	assert.False(t, got[0].Auto)
	assert.Equal(t, "https://other.example.org", got[0].URL)
}

func TestEffectiveActionsWithoutStartURL(t *testing.T) {
	p := &Plan{Actions: []Action{{Type: ActionScreenshot}}}
	assert.Len(t, p.EffectiveActions(), 1)

	empty := &Plan{StartURL: "https://example.com"}
	got := empty.EffectiveActions()
	require.Len(t, got, 1)
	assert.True(t, got[0].Auto)
}

func TestDomains(t *testing.T) {
	p := &Plan{
		StartURL: "https://Example.com/login",
		Actions: []Action{
			{Type: ActionGoto, URL: "https://example.com/account"},
			{Type: ActionGoto, URL: "http://shop.example.org:8080/cart"},
			{Type: ActionGoto, URL: "::not a url"},
			{Type: ActionGoto, URL: "/relative/path"},
			{Type: ActionClick, Selector: "https://ignored.example.net"},
		},
	}

	assert.Equal(t, []string{"example.com", "shop.example.org"}, p.Domains())
}

func TestHostname(t *testing.T) {
	cases := map[string]string{
		"https://www.Example.com/a?b=c": "www.example.com",
		"http://127.0.0.1:9000/":        "127.0.0.1",
		"":                              "",
		"   ":                           "",
		"%zz":                           "",
		"mailto:someone@example.com":    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Hostname(in), "input %q", in)
	}
}

func TestRunStatusIsTerminal(t *testing.T) {
	assert.False(t, RunStatusPending.IsTerminal())
	assert.False(t, RunStatusRunning.IsTerminal())
	assert.True(t, RunStatusCompleted.IsTerminal())
	assert.True(t, RunStatusError.IsTerminal())
}
