package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/bryceadler/procurehub-backend/internal/logger"
)

const defaultFixtureRef = "1234567890abcdef12345678"

type mockClient struct {
	log *logger.Logger
}

func NewMockClient(log *logger.Logger) Client {
	return &mockClient{log: log.With("client", "MockMailClient")}
}

// fixtureBatch is the deterministic inbound result used in mock mode and as
// the degraded fallback of the live client.
func fixtureBatch(refHint string) *InboundBatch {
	ref := refHint
	if ref == "" {
		ref = defaultFixtureRef
	}
	return &InboundBatch{
		Messages: []InboundEmail{
			{
				UID:     "mock-uid-1",
				Subject: fmt.Sprintf("Re: RFP Invitation: Mock RFP [Ref:%s]", ref),
				From:    "sales@techworld.com",
				Text: "Hi Team,\n" +
					"Here is our proposal.\n" +
					"Price: $95,000\n" +
					"Warranty: 3 years\n" +
					"Delivery: 2 weeks\n" +
					"Thanks, Alice",
				ReceivedAt: time.Now(),
			},
		},
	}
}

func (m *mockClient) FetchInbound(ctx context.Context, refHint string) (*InboundBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.log.Debug("Fetching fixture inbound batch", "ref_hint", refHint)
	return fixtureBatch(refHint), nil
}

func (m *mockClient) Send(ctx context.Context, to, subject, text, html string) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	m.log.Info("Fixture mail send", "to", to, "subject", subject)
	return Receipt{MessageID: fmt.Sprintf("mock-email-id-%d", time.Now().UnixNano())}, nil
}
