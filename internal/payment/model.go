package payment

// LineItem is one cart entry as sent to the provider.
type LineItem struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type CreateLinkRequest struct {
	OrderCode   int64
	Amount      int64
	Description string
	BuyerName   string
	BuyerEmail  string
	Items       []LineItem
	ReturnURL   string
	CancelURL   string
}

// PaymentLink is the provider's created hosted-checkout session.
type PaymentLink struct {
	CheckoutURL   string
	OrderCode     int64
	PaymentLinkID string
	Status        string
	QRCode        string
}

type LinkStatus struct {
	OrderCode  int64
	Status     string
	AmountPaid int64
}

// WebhookData is the payment confirmation the provider posts back.
type WebhookData struct {
	OrderCode     int64  `json:"orderCode"`
	Amount        int64  `json:"amount"`
	Reference     string `json:"reference"`
	Description   string `json:"description"`
	Code          string `json:"code"`
	Desc          string `json:"desc"`
	PaymentLinkID string `json:"paymentLinkId"`
}

// Succeeded reports whether the provider marks this payment as completed.
func (d *WebhookData) Succeeded() bool {
	return d.Code == "00"
}
