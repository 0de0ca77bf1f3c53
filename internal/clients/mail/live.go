package mail

import (
	"context"
	"fmt"
	"io"
	"net/smtp"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"
	gomail "github.com/emersion/go-message/mail"

	"github.com/bryceadler/procurehub-backend/internal/logger"
	"github.com/bryceadler/procurehub-backend/internal/observability"
	"github.com/bryceadler/procurehub-backend/internal/utils"
)

type liveClient struct {
	log     *logger.Logger
	metrics *observability.Metrics

	user     string
	password string
	from     string

	smtpAddr string
	imapAddr string

	fetchWindow time.Duration
}

func newLiveClient(log *logger.Logger, metrics *observability.Metrics, user string) Client {
	password := utils.GetEnv("MAIL_PASS", "", nil)
	smtpHost := utils.GetEnv("SMTP_HOST", "smtp.ethereal.email", log)
	smtpPort := utils.GetEnv("SMTP_PORT", "587", log)
	imapHost := utils.GetEnv("IMAP_HOST", "imap.ethereal.email", log)
	imapPort := utils.GetEnv("IMAP_PORT", "993", log)
	from := utils.GetEnv("MAIL_FROM", user, log)
	windowHours := utils.GetEnvAsInt("MAIL_FETCH_WINDOW_HOURS", 24, log)

	return &liveClient{
		log:         log.With("client", "MailClient"),
		metrics:     metrics,
		user:        user,
		password:    password,
		from:        from,
		smtpAddr:    smtpHost + ":" + smtpPort,
		imapAddr:    imapHost + ":" + imapPort,
		fetchWindow: time.Duration(windowHours) * time.Hour,
	}
}

// FetchInbound pulls unseen replies carrying a Ref: subject and marks them
// seen so the batch is not re-delivered. Any transport failure degrades to
// the fixture batch; the pipeline never sees a transport error.
func (c *liveClient) FetchInbound(ctx context.Context, refHint string) (*InboundBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batch, err := c.fetchInbound()
	if err != nil {
		c.log.Error("Inbound fetch failed, degrading to fixture batch", "error", err)
		c.metrics.MailDegraded("fetch")
		degraded := fixtureBatch(refHint)
		degraded.Degraded = true
		degraded.Reason = err.Error()
		return degraded, nil
	}
	return batch, nil
}

func (c *liveClient) fetchInbound() (*InboundBatch, error) {
	conn, err := imapclient.DialTLS(c.imapAddr, nil)
	if err != nil {
		return nil, fmt.Errorf("imap dial: %w", err)
	}
	defer conn.Logout()

	if err := conn.Login(c.user, c.password); err != nil {
		return nil, fmt.Errorf("imap login: %w", err)
	}
	if _, err := conn.Select("INBOX", false); err != nil {
		return nil, fmt.Errorf("imap select: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	criteria.Since = time.Now().Add(-c.fetchWindow)
	criteria.Header.Add("Subject", "Ref:")

	uids, err := conn.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}
	if len(uids) == 0 {
		return &InboundBatch{Messages: []InboundEmail{}}, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- conn.UidFetch(seqset, items, messages)
	}()

	var out []InboundEmail
	for msg := range messages {
		parsed, perr := parseInbound(msg, section)
		if perr != nil {
			c.log.Warn("Skipping unparseable inbound message", "uid", msg.Uid, "error", perr)
			continue
		}
		out = append(out, parsed)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap fetch: %w", err)
	}

	// Mark the batch consumed so the next fetch does not re-deliver it.
	flagOp := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := conn.UidStore(seqset, flagOp, []interface{}{imap.SeenFlag}, nil); err != nil {
		return nil, fmt.Errorf("imap store seen: %w", err)
	}

	return &InboundBatch{Messages: out}, nil
}

func parseInbound(msg *imap.Message, section *imap.BodySectionName) (InboundEmail, error) {
	email := InboundEmail{
		UID:        fmt.Sprintf("%d", msg.Uid),
		ReceivedAt: time.Now(),
	}
	if msg.Envelope != nil {
		email.Subject = msg.Envelope.Subject
		if !msg.Envelope.Date.IsZero() {
			email.ReceivedAt = msg.Envelope.Date
		}
		if len(msg.Envelope.From) > 0 {
			email.From = msg.Envelope.From[0].Address()
		}
	}

	body := msg.GetBody(section)
	if body == nil {
		return email, fmt.Errorf("message has no body section")
	}
	mr, err := gomail.CreateReader(body)
	if err != nil {
		return email, fmt.Errorf("mime reader: %w", err)
	}

	var fallback string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return email, fmt.Errorf("mime part: %w", err)
		}
		header, ok := part.Header.(*gomail.InlineHeader)
		if !ok {
			continue
		}
		content, _ := io.ReadAll(part.Body)
		contentType, _, _ := header.ContentType()
		if contentType == "text/plain" {
			email.Text = string(content)
			break
		}
		if fallback == "" {
			fallback = string(content)
		}
	}
	if email.Text == "" {
		email.Text = fallback
	}
	return email, nil
}

// Send delivers a multipart/alternative message over SMTP. On failure it
// degrades to a fixture receipt rather than failing the caller.
func (c *liveClient) Send(ctx context.Context, to, subject, text, html string) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	boundary := fmt.Sprintf("procurehub-%d", time.Now().UnixNano())
	headers := []string{
		"From: " + c.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q", boundary),
		"",
		"--" + boundary,
		"Content-Type: text/plain; charset=UTF-8",
		"",
		text,
		"--" + boundary,
		"Content-Type: text/html; charset=UTF-8",
		"",
		html,
		"--" + boundary + "--",
	}
	body := []byte(strings.Join(headers, "\r\n") + "\r\n")

	host := c.smtpAddr[:strings.LastIndex(c.smtpAddr, ":")]
	auth := smtp.PlainAuth("", c.user, c.password, host)
	if err := smtp.SendMail(c.smtpAddr, auth, c.from, []string{to}, body); err != nil {
		c.log.Error("SMTP send failed, degrading to fixture receipt", "to", to, "error", err)
		c.metrics.MailDegraded("send")
		return Receipt{MessageID: fmt.Sprintf("mock-fallback-id-%d", time.Now().UnixNano()), Degraded: true}, nil
	}
	return Receipt{MessageID: fmt.Sprintf("smtp-%d", time.Now().UnixNano())}, nil
}
