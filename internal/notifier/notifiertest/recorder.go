// Package notifiertest provides an in-memory Notifier for tests.
package notifiertest

import (
	"context"
	"errors"
	"sync"
)

type Email struct {
	To      string
	Subject string
	Body    string
}

type Recorder struct {
	mu     sync.Mutex
	emails []Email
	Fail   bool
}

func (r *Recorder) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	if r.Fail {
		return errors.New("smtp unavailable")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emails = append(r.emails, Email{To: to, Subject: subject, Body: htmlBody})
	return nil
}

func (r *Recorder) Emails() []Email {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Email, len(r.emails))
	copy(out, r.emails)
	return out
}
