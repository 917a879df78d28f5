// Package inbox ingests emailed progress reports. Each unseen message from
// a known sender is run through the bulk progress matcher for the user the
// sender maps to.
package inbox

import (
	"context"
	"strings"
	"time"
)

// Message is one unseen mail reduced to what progress matching needs.
type Message struct {
	UID     uint32
	From    string // bare address, lower-cased
	Subject string
	Body    string // text/plain part
	Date    time.Time
}

// Report returns the text handed to the progress matcher: the subject and
// the body separated by a blank line.
func (m Message) Report() string {
	subject := strings.TrimSpace(m.Subject)
	body := strings.TrimSpace(m.Body)
	switch {
	case subject == "":
		return body
	case body == "":
		return subject
	}
	return subject + "\n\n" + body
}

// Mailbox lists unseen messages and flags them once handled.
type Mailbox interface {
	Unseen(ctx context.Context) ([]Message, error)
	MarkSeen(ctx context.Context, uid uint32) error
}
