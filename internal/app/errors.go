package app

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/fxawebapp/fxa-front/internal/log"
	"github.com/fxawebapp/fxa-front/internal/oauthclient"
)

// Error page targets for fatal bootstrap failures.
const (
	BadRequestPage    = "/400.html"
	InternalErrorPage = "/500.html"
)

// errorSink collects fatal bootstrap errors. It is constructed lazily: a
// failure before the sampling decision still gets reported.
type errorSink struct {
	mu       sync.Mutex
	reported []error
}

func newErrorSink() *errorSink {
	return &errorSink{}
}

func (s *errorSink) Report(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.reported = append(s.reported, err)
	s.mu.Unlock()

	log.LogErrorWithFields("bootstrap", "Fatal bootstrap error", map[string]any{
		"error": err.Error(),
	})
}

// Reported returns everything the sink has seen; tests use it.
func (s *errorSink) Reported() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.reported...)
}

// errorPageURL maps a fatal error to the page the browser is sent to.
// Structured OAuth request errors carry their errno and parameter into the
// bad-request page query; everything else is an opaque internal error.
func errorPageURL(err error) string {
	if errno, param, ok := oauthclient.IsBadRequest(err); ok {
		q := url.Values{}
		q.Set("errno", fmt.Sprintf("%d", errno))
		if param != "" {
			q.Set("param", param)
		}
		return BadRequestPage + "?" + q.Encode()
	}
	return InternalErrorPage
}
