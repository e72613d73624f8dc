package mailbox

import (
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"

	"po-tracking/logger"
)

// Config identifies one mail account to poll.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Mailbox  string
	UseSSL   bool
}

// Client wraps an IMAP connection with transparent reconnection. One
// client serves one account; both poller roles use the same type with
// different configs and processors.
type Client struct {
	cfg           Config
	conn          *imapclient.Client
	currentFolder string
}

func NewClient(cfg Config) *Client {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	return &Client{cfg: cfg}
}

// Connect dials and authenticates, then selects the configured folder.
func (c *Client) Connect() error {
	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
	logger.Infof("Connecting to %s", addr)

	var conn *imapclient.Client
	var err error
	if c.cfg.UseSSL {
		conn, err = imapclient.DialTLS(addr, nil)
	} else {
		conn, err = imapclient.Dial(addr)
	}
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	if err := conn.Login(c.cfg.Username, c.cfg.Password); err != nil {
		conn.Logout()
		return fmt.Errorf("login failed for %s: %w", c.cfg.Username, err)
	}

	c.conn = conn

	if err := c.SelectFolder(c.cfg.Mailbox); err != nil {
		return err
	}

	logger.Success("IMAP connection established: " + c.cfg.Username)
	return nil
}

// Disconnect closes the connection. Safe to call when not connected.
func (c *Client) Disconnect() {
	if c.conn != nil {
		if err := c.conn.Logout(); err != nil {
			logger.Error("Error during IMAP logout", err)
		}
		c.conn = nil
	}
}

// SelectFolder selects a mailbox folder and remembers it so a
// reconnect lands in the same place.
func (c *Client) SelectFolder(folder string) error {
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	if _, err := c.conn.Select(folder, false); err != nil {
		return fmt.Errorf("failed to select folder %s: %w", folder, err)
	}
	c.currentFolder = folder
	return nil
}

// ensureConnected probes the connection with a NOOP and transparently
// re-authenticates and re-selects the last active folder when the
// probe fails. Reconnecting never re-delivers messages already marked
// read, so the path is idempotent.
func (c *Client) ensureConnected() error {
	if c.conn != nil {
		if err := c.conn.Noop(); err == nil {
			return nil
		}
		logger.Warning("IMAP connection lost, reconnecting...")
		c.conn = nil
	}

	if err := c.Connect(); err != nil {
		return err
	}
	if c.currentFolder != "" && c.currentFolder != c.cfg.Mailbox {
		return c.SelectFolder(c.currentFolder)
	}
	return nil
}

// SearchUnseen lists the sequence numbers of unread messages in the
// current folder.
func (c *Client) SearchUnseen() ([]uint32, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	ids, err := c.conn.Search(criteria)
	if err != nil {
		// One retry after a forced reconnect; aborted connections are
		// common on long-lived IMAP sessions.
		c.conn = nil
		if rerr := c.ensureConnected(); rerr != nil {
			return nil, fmt.Errorf("search failed and reconnect failed: %w", err)
		}
		ids, err = c.conn.Search(criteria)
		if err != nil {
			return nil, fmt.Errorf("search failed after reconnect: %w", err)
		}
	}

	return ids, nil
}

// FetchMessage downloads one full message without marking it read
// (BODY.PEEK). Only PDF attachments are retained.
func (c *Client) FetchMessage(id uint32) (*Message, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(id)

	// Peek keeps the \Seen flag untouched; marking read is an explicit
	// step after downstream processing succeeds.
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.conn.Fetch(seqset, items, messages)
	}()

	raw := <-messages
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch failed for message %d: %w", id, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("fetch returned no data for message %d", id)
	}

	body := raw.GetBody(section)
	if body == nil {
		return nil, fmt.Errorf("fetch returned no body for message %d", id)
	}

	return parseMessage(id, body)
}

// MarkRead sets the \Seen flag on a message.
func (c *Client) MarkRead(id uint32) error {
	if err := c.ensureConnected(); err != nil {
		return err
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(id)

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.SeenFlag}
	if err := c.conn.Store(seqset, item, flags, nil); err != nil {
		return fmt.Errorf("failed to mark message %d read: %w", id, err)
	}
	return nil
}

// parseMessage walks the MIME structure collecting bodies and PDF
// attachments. Unreadable parts are skipped, never fatal.
func parseMessage(id uint32, body io.Reader) (*Message, error) {
	mr, err := mail.CreateReader(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message %d: %w", id, err)
	}

	msg := &Message{ID: id}

	if subject, err := mr.Header.Subject(); err == nil {
		msg.Subject = subject
	}
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		msg.FromName = from[0].Name
		msg.FromAddress = from[0].Address
	}
	if to, err := mr.Header.AddressList("To"); err == nil && len(to) > 0 {
		msg.To = to[0].Address
	}
	if date, err := mr.Header.Date(); err == nil {
		msg.Date = date
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warningf("Skipping unreadable part of message %d: %v", id, err)
			continue
		}

		switch header := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := header.ContentType()
			content, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			switch contentType {
			case "text/plain":
				msg.BodyText = string(content)
			case "text/html":
				msg.BodyHTML = string(content)
			}

		case *mail.AttachmentHeader:
			filename, _ := header.Filename()
			if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
				continue
			}
			content, err := io.ReadAll(part.Body)
			if err != nil {
				logger.Warningf("Could not read attachment %s of message %d: %v", filename, id, err)
				continue
			}
			msg.Attachments = append(msg.Attachments, Attachment{
				Filename: filename,
				Content:  content,
				Size:     len(content),
			})
			logger.Infof("📎 PDF attachment: %s (%d bytes)", filename, len(content))
		}
	}

	return msg, nil
}
