package registration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"class_monitor/internal/app"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

var (
	ErrLoginFormNotFound = errors.New("login form not found on portal page")
	ErrLoginFailed       = errors.New("login rejected by portal")
	ErrFormNotFound      = errors.New("form not found on page")
	ErrOptionNotFound    = errors.New("option not found")
	ErrNoPage            = errors.New("no page loaded")
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Options locate the registration site.
type Options struct {
	PortalURL       string
	CourseSearchURL string
	Timeout         time.Duration
}

// Session drives the registration site over plain HTTP with a cookie jar,
// filling the same forms a browser would.
type Session struct {
	http    *resty.Client
	opts    Options
	logger  *logrus.Entry
	page    *goquery.Document
	pageURL *url.URL
}

var _ app.Session = (*Session)(nil)

func Open(opts Options, logger *logrus.Entry) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	client := resty.New()
	client.SetCookieJar(jar)
	client.SetHeader("user-agent", userAgent)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	client.SetTimeout(timeout)

	return &Session{http: client, opts: opts, logger: logger}, nil
}

// NewFactory opens a fresh session, with its own cookies, per call.
func NewFactory(opts Options, logger *logrus.Entry) app.SessionFactory {
	return func(context.Context) (app.Session, error) {
		return Open(opts, logger)
	}
}

func (s *Session) Login(ctx context.Context, username, password string) error {
	if err := s.load(ctx, s.http.R(), "GET", s.opts.PortalURL); err != nil {
		return err
	}
	form := s.formWith("input[name=username]")
	if form == nil {
		return ErrLoginFormNotFound
	}
	err := s.submit(ctx, form, url.Values{
		"username": {username},
		"password": {password},
	}, nil)
	if err != nil {
		return err
	}
	if s.page.Find("input[name=password]").Length() > 0 {
		return ErrLoginFailed
	}
	s.logger.WithField("username", username).Debug("Logged in to portal")
	return nil
}

func (s *Session) OpenCourseSearch(ctx context.Context) error {
	return s.load(ctx, s.http.R(), "GET", s.opts.CourseSearchURL)
}

func (s *Session) SelectTerm(ctx context.Context, term string) error {
	return s.choose(ctx, "p_term", term)
}

func (s *Session) SelectSubject(ctx context.Context, subject string) error {
	return s.choose(ctx, "sel_subj", subject)
}

// SelectCourse follows the course list row whose text reads "<number> <title>".
func (s *Session) SelectCourse(ctx context.Context, title, number string) error {
	if s.page == nil {
		return ErrNoPage
	}
	want := number + " " + title

	var row *goquery.Selection
	s.page.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		if rowText(tr) == want {
			row = tr
			return false
		}
		return true
	})
	if row == nil {
		return fmt.Errorf("%s: %w", want, app.ErrCourseNotFound)
	}

	if form := row.Find("form").First(); form.Length() > 0 {
		return s.submit(ctx, form, nil, nil)
	}
	if href, ok := row.Find("a[href]").First().Attr("href"); ok {
		return s.load(ctx, s.http.R(), "GET", s.resolve(href))
	}
	return fmt.Errorf("course row %q has no link or form", want)
}

func (s *Session) Rows(context.Context) ([]string, error) {
	if s.page == nil {
		return nil, ErrNoPage
	}
	return RowTexts(s.page.Selection), nil
}

func (s *Session) Close() error {
	s.page = nil
	s.pageURL = nil
	s.http.GetClient().CloseIdleConnections()
	return nil
}

// choose submits the form holding the named select with the option whose
// value or label matches want.
func (s *Session) choose(ctx context.Context, name, want string) error {
	if s.page == nil {
		return ErrNoPage
	}
	selector := fmt.Sprintf("select[name=%s]", name)
	form := s.formWith(selector)
	if form == nil {
		return fmt.Errorf("%s: %w", selector, ErrFormNotFound)
	}

	var value string
	found := false
	form.Find(selector + " option").EachWithBreak(func(_ int, opt *goquery.Selection) bool {
		v, hasValue := opt.Attr("value")
		label := strings.TrimSpace(opt.Text())
		if !hasValue {
			v = label
		}
		if v == want || label == want {
			value, found = v, true
			return false
		}
		return true
	})
	if !found {
		return fmt.Errorf("%s %q: %w", name, want, ErrOptionNotFound)
	}
	return s.submit(ctx, form, nil, map[string]string{name: value})
}

func (s *Session) formWith(selector string) *goquery.Selection {
	form := s.page.Find("form").FilterFunction(func(_ int, f *goquery.Selection) bool {
		return f.Find(selector).Length() > 0
	}).First()
	if form.Length() == 0 {
		return nil
	}
	return form
}

func (s *Session) submit(ctx context.Context, form *goquery.Selection, set url.Values, selects map[string]string) error {
	values := formValues(form, selects)
	for k, v := range set {
		values[k] = v
	}

	action := s.resolve(form.AttrOr("action", ""))
	req := s.http.R()
	method := strings.ToUpper(form.AttrOr("method", "GET"))
	if method == "POST" {
		req.SetFormDataFromValues(values)
	} else {
		req.SetQueryParamsFromValues(values)
	}
	return s.load(ctx, req, method, action)
}

func (s *Session) load(ctx context.Context, req *resty.Request, method, target string) error {
	log := s.logger.WithFields(logrus.Fields{"method": method, "url": target})
	log.Debug("Requesting page")

	res, err := req.SetContext(ctx).Execute(method, target)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	if res.IsError() {
		return fmt.Errorf("%s %s: unexpected status %s", method, target, res.Status())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return fmt.Errorf("parse %s: %w", target, err)
	}
	s.page = doc
	s.pageURL = res.RawResponse.Request.URL
	return nil
}

func (s *Session) resolve(ref string) string {
	if s.pageURL == nil {
		return ref
	}
	u, err := s.pageURL.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}

// formValues serializes a form the way a browser submits it. Selects named
// in selects use that value instead of their current selection.
func formValues(form *goquery.Selection, selects map[string]string) url.Values {
	values := url.Values{}
	submitted := false

	form.Find("input, select, textarea").Each(func(_ int, field *goquery.Selection) {
		name, ok := field.Attr("name")
		if !ok || name == "" {
			return
		}
		if _, disabled := field.Attr("disabled"); disabled {
			return
		}

		switch goquery.NodeName(field) {
		case "select":
			if v, ok := selects[name]; ok {
				values.Add(name, v)
				return
			}
			selected := field.Find("option[selected]")
			if selected.Length() == 0 {
				if _, multiple := field.Attr("multiple"); multiple {
					return
				}
				selected = field.Find("option").First()
			}
			selected.Each(func(_ int, opt *goquery.Selection) {
				values.Add(name, opt.AttrOr("value", strings.TrimSpace(opt.Text())))
			})
		case "textarea":
			values.Add(name, field.Text())
		default:
			switch strings.ToLower(field.AttrOr("type", "text")) {
			case "checkbox", "radio":
				if _, checked := field.Attr("checked"); checked {
					values.Add(name, field.AttrOr("value", "on"))
				}
			case "submit", "image":
				// only the button that was pressed is sent
				if !submitted {
					values.Add(name, field.AttrOr("value", ""))
					submitted = true
				}
			case "button", "reset", "file":
			default:
				values.Add(name, field.AttrOr("value", ""))
			}
		}
	})
	return values
}
