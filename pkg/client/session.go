package client

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"sync/atomic"
	"time"
)

const (
	xsrfCookie = "XSRF-TOKEN"
	xsrfHeader = "X-XSRF-TOKEN"
)

// session is the mutable state shared by every request of a Client. Headers
// are an immutable snapshot replaced as a whole, so readers never lock.
type session struct {
	base    http.Header
	headers atomic.Pointer[http.Header]
	jar     *sessionJar

	mu       sync.Mutex
	duration time.Duration
	user     string
}

func newSession(base http.Header) *session {
	s := &session{
		base: base.Clone(),
		jar:  newSessionJar(),
	}
	h := base.Clone()
	s.headers.Store(&h)
	return s
}

// header returns a copy of the current header snapshot.
func (s *session) header() http.Header {
	return (*s.headers.Load()).Clone()
}

// setHeader publishes a new snapshot with key set to value.
func (s *session) setHeader(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := *s.headers.Load()
	if cur.Get(key) == value {
		return
	}
	next := cur.Clone()
	next.Set(key, value)
	s.headers.Store(&next)
}

// promoteXSRF copies an XSRF-TOKEN cookie into the request header set.
func (s *session) promoteXSRF(cookies []*http.Cookie) {
	for _, c := range cookies {
		if c.Name == xsrfCookie && c.Value != "" {
			s.setHeader(xsrfHeader, c.Value)
			return
		}
	}
}

// reset drops every cookie and header learnt from the server. It runs before a
// new login so the old session cannot leak into the new one.
func (s *session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.base.Clone()
	s.headers.Store(&h)
	s.jar.reset()
}

func (s *session) setLogin(res *LoginResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.duration = time.Duration(res.SessionDuration) * time.Second
	s.user = res.Username
}

func (s *session) sessionDuration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

// sessionJar is a cookie jar whose whole content can be swapped atomically.
type sessionJar struct {
	inner atomic.Pointer[cookiejar.Jar]
}

func newSessionJar() *sessionJar {
	j := &sessionJar{}
	j.reset()
	return j
}

func (j *sessionJar) reset() {
	// cookiejar.New only fails on a bad PublicSuffixList, and none is passed.
	jar, _ := cookiejar.New(nil)
	j.inner.Store(jar)
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.inner.Load().SetCookies(u, cookies)
}

func (j *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	return j.inner.Load().Cookies(u)
}
