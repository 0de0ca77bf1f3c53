// Package mail is the transport boundary for vendor email. The live client
// speaks IMAP for inbound fetch and SMTP for outbound send; when credentials
// are absent, or the live transport fails, callers receive the deterministic
// fixture batch instead of an error so ingestion never stalls on transport.
package mail

import (
	"context"
	"time"

	"github.com/bryceadler/procurehub-backend/internal/logger"
	"github.com/bryceadler/procurehub-backend/internal/observability"
	"github.com/bryceadler/procurehub-backend/internal/utils"
)

type InboundEmail struct {
	UID        string    `json:"uid"`
	Subject    string    `json:"subject"`
	From       string    `json:"from"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
}

// InboundBatch is one finite fetch. Degraded marks a batch that was answered
// by the fixture because the live transport failed or is unconfigured.
type InboundBatch struct {
	Messages []InboundEmail `json:"messages"`
	Degraded bool           `json:"degraded"`
	Reason   string         `json:"reason,omitempty"`
}

type Receipt struct {
	MessageID string `json:"message_id"`
	Degraded  bool   `json:"degraded"`
}

type Client interface {
	// FetchInbound returns one batch of unseen vendor replies and marks them
	// consumed. refHint seeds the fixture subject so mock-mode flows stay
	// correlated to a real RFP.
	FetchInbound(ctx context.Context, refHint string) (*InboundBatch, error)
	Send(ctx context.Context, to, subject, text, html string) (Receipt, error)
}

// New picks the transport once at construction: live IMAP/SMTP when MAIL_USER
// is configured, the fixture client otherwise.
func New(log *logger.Logger, metrics *observability.Metrics) Client {
	user := utils.GetEnv("MAIL_USER", "", log)
	if user == "" {
		log.Warn("Mail credentials missing, using fixture mail client")
		return NewMockClient(log)
	}
	return newLiveClient(log, metrics, user)
}
