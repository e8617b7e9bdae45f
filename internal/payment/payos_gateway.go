package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"comet-be/internal/apperr"
	"comet-be/internal/logger"
	"comet-be/internal/utils"

	"go.uber.org/zap"
)

const payosBaseURL = "https://api-merchant.payos.vn"

type payosGateway struct {
	clientID    string
	apiKey      string
	checksumKey string
	httpClient  *http.Client
	baseURL     string
}

type Credentials struct {
	ClientID    string
	APIKey      string
	ChecksumKey string
}

func NewPayOSGateway(creds Credentials) Gateway {
	if creds.ClientID == "" || creds.APIKey == "" {
		logger.L().Warn("PayOS credentials are incomplete")
	}

	return &payosGateway{
		clientID:    creds.ClientID,
		apiKey:      creds.APIKey,
		checksumKey: creds.ChecksumKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL: payosBaseURL,
	}
}

// ----------------- CreatePaymentLink -----------------

type payosEnvelope struct {
	Code      string          `json:"code"`
	Desc      string          `json:"desc"`
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}

type payosLinkData struct {
	OrderCode     int64  `json:"orderCode"`
	Amount        int64  `json:"amount"`
	Status        string `json:"status"`
	CheckoutURL   string `json:"checkoutUrl"`
	QRCode        string `json:"qrCode"`
	PaymentLinkID string `json:"paymentLinkId"`
	AmountPaid    int64  `json:"amountPaid"`
}

func (g *payosGateway) CreatePaymentLink(ctx context.Context, req CreateLinkRequest) (*PaymentLink, error) {
	log := logger.FromCtx(ctx).With(
		zap.Int64("order_code", req.OrderCode),
		zap.Int64("amount", req.Amount),
		zap.Int("item_count", len(req.Items)),
	)

	body := map[string]interface{}{
		"orderCode":   req.OrderCode,
		"amount":      req.Amount,
		"description": req.Description,
		"items":       req.Items,
		"returnUrl":   req.ReturnURL,
		"cancelUrl":   req.CancelURL,
		"signature":   g.signCreateRequest(req),
	}
	if req.BuyerName != "" {
		body["buyerName"] = req.BuyerName
	}
	if req.BuyerEmail != "" {
		body["buyerEmail"] = req.BuyerEmail
	}

	log.Info("requesting payment link from PayOS")

	var env payosEnvelope
	if err := g.do(ctx, http.MethodPost, "/v2/payment-requests", body, &env); err != nil {
		log.Error("PayOS request failed", zap.Error(err))
		return nil, err
	}

	if env.Code != "00" {
		log.Error("PayOS rejected payment request",
			zap.String("code", env.Code),
			zap.String("desc", env.Desc),
		)
		return nil, apperr.Wrap(apperr.KindUpstream, "create payment link",
			fmt.Errorf("payos error %s: %s", env.Code, env.Desc))
	}

	var data payosLinkData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		log.Error("failed decoding PayOS response", zap.Error(err))
		return nil, apperr.Wrap(apperr.KindUpstream, "decode payment link response", err)
	}

	log.Info("payment link created",
		zap.String("payment_link_id", data.PaymentLinkID),
		zap.String("status", data.Status),
	)

	return &PaymentLink{
		CheckoutURL:   data.CheckoutURL,
		OrderCode:     data.OrderCode,
		PaymentLinkID: data.PaymentLinkID,
		Status:        data.Status,
		QRCode:        data.QRCode,
	}, nil
}

// ----------------- GetPaymentLink -----------------

func (g *payosGateway) GetPaymentLink(ctx context.Context, orderCode int64) (*LinkStatus, error) {
	log := logger.FromCtx(ctx).With(zap.Int64("order_code", orderCode))

	var env payosEnvelope
	path := fmt.Sprintf("/v2/payment-requests/%d", orderCode)
	if err := g.do(ctx, http.MethodGet, path, nil, &env); err != nil {
		log.Error("PayOS status request failed", zap.Error(err))
		return nil, err
	}

	if env.Code != "00" {
		return nil, apperr.Wrap(apperr.KindUpstream, "get payment link",
			fmt.Errorf("payos error %s: %s", env.Code, env.Desc))
	}

	var data payosLinkData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "decode payment link status", err)
	}

	return &LinkStatus{
		OrderCode:  data.OrderCode,
		Status:     data.Status,
		AmountPaid: data.AmountPaid,
	}, nil
}

// ----------------- CancelPaymentLink -----------------

func (g *payosGateway) CancelPaymentLink(ctx context.Context, orderCode int64, reason string) error {
	log := logger.FromCtx(ctx).With(zap.Int64("order_code", orderCode))

	// reason is optional on the provider side; omit it when empty
	body := struct {
		CancellationReason *string `json:"cancellationReason,omitempty"`
	}{}
	if reason != "" {
		body.CancellationReason = utils.StrPtr(reason)
	}
	path := fmt.Sprintf("/v2/payment-requests/%d/cancel", orderCode)

	var env payosEnvelope
	if err := g.do(ctx, http.MethodPost, path, body, &env); err != nil {
		log.Error("PayOS cancel request failed", zap.Error(err))
		return err
	}

	if env.Code != "00" {
		return apperr.Wrap(apperr.KindUpstream, "cancel payment link",
			fmt.Errorf("payos error %s: %s", env.Code, env.Desc))
	}

	log.Info("payment link cancelled")
	return nil
}

// ----------------- VerifyWebhook -----------------

type webhookEnvelope struct {
	Code      string          `json:"code"`
	Desc      string          `json:"desc"`
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}

var ErrInvalidSignature = errors.New("invalid webhook signature")

func (g *payosGateway) VerifyWebhook(payload []byte) (*WebhookData, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}

	if g.checksumKey != "" {
		expected, err := g.signData(env.Data)
		if err != nil {
			return nil, err
		}
		if !hmac.Equal([]byte(expected), []byte(env.Signature)) {
			return nil, ErrInvalidSignature
		}
	}

	var data WebhookData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("decode webhook data: %w", err)
	}

	return &data, nil
}

// ----------------- internals -----------------

// do issues one request and classifies transport failures: deadline and
// net timeouts surface as retryable upstream-timeout, everything else as
// upstream-unavailable.
func (g *payosGateway) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return err
	}

	req.Header.Set("x-client-id", g.clientID)
	req.Header.Set("x-api-key", g.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return apperr.Wrap(apperr.KindUpstreamTimeout, "payos request timed out", err)
		}
		return apperr.Wrap(apperr.KindUpstream, "payos unreachable", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, "read payos response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return apperr.Wrap(apperr.KindUpstream, "payos non-success status",
			fmt.Errorf("status %d: %s", resp.StatusCode, string(bodyBytes)))
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return apperr.Wrap(apperr.KindUpstream, "decode payos response", err)
	}

	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// signCreateRequest builds the checksum PayOS requires on link creation:
// HMAC-SHA256 over the five core fields in alphabetical key order.
func (g *payosGateway) signCreateRequest(req CreateLinkRequest) string {
	msg := fmt.Sprintf("amount=%d&cancelUrl=%s&description=%s&orderCode=%d&returnUrl=%s",
		req.Amount, req.CancelURL, req.Description, req.OrderCode, req.ReturnURL)

	mac := hmac.New(sha256.New, []byte(g.checksumKey))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

// signData reproduces the webhook checksum: the data object rendered as
// key=value pairs joined by &, keys sorted, nulls as empty strings and
// composite values as compact JSON.
func (g *payosGateway) signData(data json.RawMessage) (string, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", fmt.Errorf("decode webhook data for signing: %w", err)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+stringifyField(fields[k]))
	}

	mac := hmac.New(sha256.New, []byte(g.checksumKey))
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func stringifyField(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		// JSON numbers: render integers without the trailing .0
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		b, _ := json.Marshal(val)
		return string(b)
	}
}
