package payment

import "context"

type Gateway interface {
	CreatePaymentLink(ctx context.Context, req CreateLinkRequest) (*PaymentLink, error)
	GetPaymentLink(ctx context.Context, orderCode int64) (*LinkStatus, error)
	CancelPaymentLink(ctx context.Context, orderCode int64, reason string) error
	VerifyWebhook(payload []byte) (*WebhookData, error)
}
