package mailbox

import (
	"time"
)

// Attachment is one PDF attachment pulled from a message. Attachments
// with any other extension are dropped during fetch.
type Attachment struct {
	Filename string
	Content  []byte
	Size     int
}

// Message is a fully fetched mail message, body and PDF attachments
// included. Fetching one does not mark it read; that is an explicit
// separate step after downstream processing succeeds.
type Message struct {
	ID          uint32
	Subject     string
	FromName    string
	FromAddress string
	To          string
	Date        time.Time
	BodyText    string
	BodyHTML    string
	Attachments []Attachment
}

// SearchText is the text the PO matcher scans: subject plus plain body.
func (m *Message) SearchText() string {
	return m.Subject + " " + m.BodyText
}
