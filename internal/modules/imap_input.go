package modules

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/streamlet-go/streamlet/internal/errkind"
	"github.com/streamlet-go/streamlet/internal/registry"
	"github.com/streamlet-go/streamlet/internal/schema"
)

func init() {
	imap.CharsetReader = charset.Reader

	registry.Register(registry.Registration{
		Variant: registry.Input,
		Type:    "imap",
		ConnectionSchema: schema.Object(
			schema.Required("host", schema.String()),
			schema.Optional("port", schema.Int(), 993),
			schema.Required("username", schema.String()),
			schema.Required("password", schema.String()),
		),
		ParamsSchema: schema.Object(
			schema.Optional("folder", schema.String(), "INBOX"),
			schema.Optional("unseen", schema.Bool(), true),
			schema.Optional("mark_as_read", schema.Bool(), false),
			schema.Optional("limit", schema.Int(), 50),
			schema.Optional("with_body", schema.Bool(), false),
		),
		New: newIMAPInput,
	})
}

// imapInput fetches mailbox messages as records, grounded on
// EmailClient.GetEmails in pkg/utils/email_client.go (search criteria
// construction, IMAP fetch item selection).
type imapInput struct {
	Base
	host, username, password string
	port                     int
	client                   *client.Client
}

func newIMAPInput(name string, config map[string]interface{}) (registry.Instance, error) {
	return &imapInput{
		Base:     NewBase(name),
		host:     stringParam(config, "host", ""),
		port:     intParam(config, "port", 993),
		username: stringParam(config, "username", ""),
		password: stringParam(config, "password", ""),
	}, nil
}

func (m *imapInput) OnConnect() error {
	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	c, err := client.DialTLS(addr, nil)
	if err != nil {
		return errkind.New(errkind.StartupHookFailed, fmt.Errorf("imap dial failed: %w", err)).WithModule(m.Name())
	}
	if err := c.Login(m.username, m.password); err != nil {
		c.Logout()
		return errkind.New(errkind.StartupHookFailed, fmt.Errorf("imap login failed: %w", err)).WithModule(m.Name())
	}
	m.client = c
	return nil
}

func (m *imapInput) OnShutdown() error {
	if m.client != nil {
		return m.client.Logout()
	}
	return nil
}

func (m *imapInput) Fetch(ctx context.Context, params map[string]interface{}) ([]map[string]interface{}, error) {
	if m.client == nil {
		return nil, fmt.Errorf("imap input: not connected")
	}

	folder := stringParam(params, "folder", "INBOX")
	unseen := boolParam(params, "unseen", true)
	markAsRead := boolParam(params, "mark_as_read", false)
	limit := intParam(params, "limit", 50)
	withBody := boolParam(params, "with_body", false)

	if _, err := m.client.Select(folder, !markAsRead); err != nil {
		return nil, fmt.Errorf("imap select failed: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	if unseen {
		criteria.WithoutFlags = []string{imap.SeenFlag}
	}

	uids, err := m.client.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("imap search failed: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}
	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchFlags, imap.FetchInternalDate}
	if withBody {
		items = append(items, imap.FetchRFC822)
	}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- m.client.Fetch(seqSet, items, messages)
	}()

	var records []map[string]interface{}
	for msg := range messages {
		record := map[string]interface{}{
			"uid":     msg.Uid,
			"subject": "",
			"date":    time.Time{},
		}
		if msg.Envelope != nil {
			record["subject"] = msg.Envelope.Subject
			record["date"] = msg.Envelope.Date
			if len(msg.Envelope.From) > 0 {
				record["from"] = msg.Envelope.From[0].Address()
			}
		}
		if withBody {
			record["body"] = extractBody(msg)
		}
		records = append(records, record)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap fetch failed: %w", err)
	}
	return records, nil
}

func extractBody(msg *imap.Message) string {
	for _, literal := range msg.Body {
		mr, err := mail.CreateReader(literal)
		if err != nil {
			continue
		}
		for {
			part, err := mr.NextPart()
			if err != nil {
				break
			}
			if _, ok := part.Header.(*mail.InlineHeader); ok {
				b, _ := io.ReadAll(part.Body)
				return string(b)
			}
		}
	}
	return ""
}
