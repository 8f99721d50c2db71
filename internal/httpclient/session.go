package httpclient

import (
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/url"
)

// ErrSessionClosed is returned when a request is issued on a released session.
var ErrSessionClosed = errors.New("session closed")

// SessionFactory hands out single-use sessions. Sessions either share the
// factory transport (pooled connections, private cookies) or, when isolated,
// own a clone of it that is torn down on Close.
type SessionFactory struct {
	transport *http.Transport
	isolate   bool
}

// NewSessionFactory creates a factory around transport. A nil transport gets a
// default one.
func NewSessionFactory(transport *http.Transport, isolate bool) *SessionFactory {
	if transport == nil {
		transport = NewTransport(0)
	}
	return &SessionFactory{transport: transport, isolate: isolate}
}

// NewSession returns a fresh session with an empty cookie jar.
func (f *SessionFactory) NewSession() (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	transport := f.transport
	var owned *http.Transport
	if f.isolate {
		owned = f.transport.Clone()
		transport = owned
	}

	return &Session{
		client: &http.Client{Transport: transport, Jar: jar},
		jar:    jar,
		owned:  owned,
	}, nil
}

// Session carries the affinity cookies of one workflow instance across its
// requests. It is not safe for concurrent use and must not outlive the
// instance that created it.
type Session struct {
	client *http.Client
	jar    http.CookieJar
	owned  *http.Transport
	closed bool
}

// Do sends req, presenting and storing cookies through the session jar.
func (s *Session) Do(req *http.Request) (*http.Response, error) {
	if s == nil || s.closed {
		return nil, ErrSessionClosed
	}
	return s.client.Do(req)
}

// AffinityToken returns the cookies the session would present to target.
func (s *Session) AffinityToken(target *url.URL) []*http.Cookie {
	if s == nil || s.closed || target == nil {
		return nil
	}
	return s.jar.Cookies(target)
}

// Close releases the session. It is safe to call more than once.
func (s *Session) Close() error {
	if s == nil || s.closed {
		return nil
	}
	s.closed = true
	if s.owned != nil {
		s.owned.CloseIdleConnections()
	}
	s.client = nil
	s.jar = nil
	return nil
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	return s == nil || s.closed
}
