package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxPageBytes = 10 << 20

// StaticLauncher fetches pages over plain HTTP and works on the parsed DOM.
// There is no script execution or rendering: clicks follow links and submit
// forms, and screenshots are unsupported.
type StaticLauncher struct {
	userAgent string
	transport http.RoundTripper
}

// NewStaticLauncher creates a static launcher. A nil transport uses the default one.
func NewStaticLauncher(userAgent string, transport http.RoundTripper) *StaticLauncher {
	return &StaticLauncher{userAgent: userAgent, transport: transport}
}

// Launch returns a session with its own cookie jar.
func (l *StaticLauncher) Launch(ctx context.Context) (Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	transport := l.transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &staticSession{
		client:    &http.Client{Jar: jar, Transport: transport},
		userAgent: l.userAgent,
	}, nil
}

type staticSession struct {
	client    *http.Client
	userAgent string

	current *url.URL
	doc     *goquery.Document
	focused *goquery.Selection
}

func (s *staticSession) Goto(ctx context.Context, rawURL string) error {
	target, err := s.resolve(rawURL)
	if err != nil {
		return fmt.Errorf("goto %s: %w", rawURL, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fmt.Errorf("goto %s: %w", rawURL, err)
	}
	if err := s.load(req); err != nil {
		return fmt.Errorf("goto %s: %w", rawURL, err)
	}
	return nil
}

func (s *staticSession) Click(ctx context.Context, selector string) error {
	el, err := s.find(selector)
	if err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}

	if goquery.NodeName(el) == "a" {
		if href, ok := el.Attr("href"); ok && !strings.HasPrefix(strings.TrimSpace(href), "javascript:") {
			if err := s.Goto(ctx, href); err != nil {
				return fmt.Errorf("click %q: %w", selector, err)
			}
		}
		return nil
	}

	if isSubmitter(el) {
		form := el.Closest("form")
		if form.Length() == 0 {
			return nil
		}
		if err := s.submit(ctx, form, el); err != nil {
			return fmt.Errorf("click %q: %w", selector, err)
		}
		return nil
	}

	s.focused = el
	return nil
}

func (s *staticSession) Fill(ctx context.Context, selector, text string) error {
	el, err := s.find(selector)
	if err != nil {
		return fmt.Errorf("type into %q: %w", selector, err)
	}
	switch goquery.NodeName(el) {
	case "input":
		el.SetAttr("value", text)
	case "textarea":
		el.SetText(text)
	default:
		return fmt.Errorf("type into %q: element <%s> is not editable", selector, goquery.NodeName(el))
	}
	s.focused = el
	return nil
}

func (s *staticSession) Press(ctx context.Context, key string) error {
	name, ok := NormalizeKey(key)
	if !ok {
		return fmt.Errorf("press %q: %w", key, ErrUnknownKey)
	}
	if name != "Enter" || s.focused == nil {
		return nil
	}
	form := s.focused.Closest("form")
	if form.Length() == 0 {
		return nil
	}
	if err := s.submit(ctx, form, nil); err != nil {
		return fmt.Errorf("press %q: %w", key, err)
	}
	return nil
}

func (s *staticSession) WaitFor(ctx context.Context, selector string) error {
	if _, err := s.find(selector); err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

func (s *staticSession) InnerText(ctx context.Context, selector string) (string, error) {
	el, err := s.find(selector)
	if err != nil {
		return "", fmt.Errorf("extract text %q: %w", selector, err)
	}
	return strings.TrimSpace(el.Text()), nil
}

func (s *staticSession) Screenshot(ctx context.Context) ([]byte, error) {
	return nil, fmt.Errorf("screenshot: %w", ErrUnsupported)
}

func (s *staticSession) Content(ctx context.Context) (string, error) {
	if s.doc == nil {
		return "", nil
	}
	html, err := s.doc.Html()
	if err != nil {
		return "", fmt.Errorf("page content: %w", err)
	}
	return html, nil
}

func (s *staticSession) Close() error {
	s.client.CloseIdleConnections()
	s.doc = nil
	s.focused = nil
	return nil
}

func (s *staticSession) find(selector string) (*goquery.Selection, error) {
	if s.doc == nil {
		return nil, fmt.Errorf("no page loaded")
	}
	el := s.doc.Find(selector).First()
	if el.Length() == 0 {
		return nil, ErrSelectorNotFound
	}
	return el, nil
}

func (s *staticSession) resolve(ref string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, err
	}
	if s.current != nil {
		u = s.current.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url %q", ref)
	}
	return u, nil
}

func (s *staticSession) load(req *http.Request) error {
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}
	s.current = resp.Request.URL
	s.doc = doc
	s.focused = nil
	return nil
}

// submit sends form the way a browser would, including the submitter's own
// name/value pair when it has one.
func (s *staticSession) submit(ctx context.Context, form, submitter *goquery.Selection) error {
	action, _ := form.Attr("action")
	target, err := s.resolve(action)
	if err != nil {
		return err
	}

	values := url.Values{}
	form.Find("input[name], textarea[name], select[name]").Each(func(_ int, field *goquery.Selection) {
		if _, disabled := field.Attr("disabled"); disabled {
			return
		}
		name, _ := field.Attr("name")
		switch goquery.NodeName(field) {
		case "textarea":
			values.Add(name, field.Text())
		case "select":
			opt := field.Find("option[selected]").First()
			if opt.Length() == 0 {
				opt = field.Find("option").First()
			}
			if opt.Length() > 0 {
				values.Add(name, optionValue(opt))
			}
		default:
			typ := strings.ToLower(field.AttrOr("type", "text"))
			switch typ {
			case "submit", "button", "image", "reset", "file":
				return
			case "checkbox", "radio":
				if _, checked := field.Attr("checked"); !checked {
					return
				}
				values.Add(name, field.AttrOr("value", "on"))
			default:
				values.Add(name, field.AttrOr("value", ""))
			}
		}
	})
	if submitter != nil {
		if name, ok := submitter.Attr("name"); ok && name != "" {
			values.Add(name, submitter.AttrOr("value", ""))
		}
	}

	var req *http.Request
	if strings.EqualFold(form.AttrOr("method", "get"), http.MethodPost) {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, target.String(), strings.NewReader(values.Encode()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		target.RawQuery = values.Encode()
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
		if err != nil {
			return err
		}
	}
	return s.load(req)
}

func isSubmitter(el *goquery.Selection) bool {
	switch goquery.NodeName(el) {
	case "button":
		typ := strings.ToLower(el.AttrOr("type", "submit"))
		return typ == "submit"
	case "input":
		typ := strings.ToLower(el.AttrOr("type", "text"))
		return typ == "submit" || typ == "image"
	}
	return false
}

func optionValue(opt *goquery.Selection) string {
	if v, ok := opt.Attr("value"); ok {
		return v
	}
	return strings.TrimSpace(opt.Text())
}
