package checkout

import (
	"context"
	"fmt"
	"math"
	"time"

	"comet-be/internal/apperr"
	"comet-be/internal/customer"
	"comet-be/internal/logger"
	"comet-be/internal/order"
	"comet-be/internal/payment"
	"comet-be/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Service interface {
	Checkout(ctx context.Context, input Input) (*Result, error)
}

type service struct {
	orders    order.Repository
	customers customer.Repository
	gateway   payment.Gateway
	idem      IdempotencyStore
	recon     ReconRepository

	returnURL       string
	cancelURL       string
	providerTimeout time.Duration
}

type Options struct {
	ReturnURL       string
	CancelURL       string
	ProviderTimeout time.Duration
}

func NewService(
	orders order.Repository,
	customers customer.Repository,
	gateway payment.Gateway,
	idem IdempotencyStore,
	recon ReconRepository,
	opts Options,
) Service {
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = 10 * time.Second
	}
	return &service{
		orders:          orders,
		customers:       customers,
		gateway:         gateway,
		idem:            idem,
		recon:           recon,
		returnURL:       opts.ReturnURL,
		cancelURL:       opts.CancelURL,
		providerTimeout: opts.ProviderTimeout,
	}
}

// Checkout turns a cart + identity + address into a payment link plus
// durable order/customer records. The ordering matters: nothing is written
// before the provider call succeeds, and once a link exists every later
// failure leaves a reconciliation trail instead of losing it.
func (s *service) Checkout(ctx context.Context, input Input) (*Result, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Checkout"),
		zap.String("clerk_id", input.Customer.ClerkID),
		zap.Int("item_count", len(input.CartItems)),
	)

	if err := validate(input); err != nil {
		log.Warn("checkout rejected", zap.Error(err))
		return nil, err
	}

	key := input.IdempotencyKey
	if key == "" {
		key = fingerprint(input)
	}
	log = log.With(zap.String("idempotency_key", key))

	// A completed checkout under the same key replays without touching the
	// provider or the database again.
	if prev, err := s.idem.GetResult(ctx, key); err != nil {
		log.Warn("idempotency lookup failed, continuing without replay", zap.Error(err))
	} else if prev != nil {
		log.Info("replaying completed checkout", zap.Int64("order_code", prev.OrderCode))
		return prev, nil
	}

	if claimed, err := s.idem.Claim(ctx, key); err != nil {
		log.Warn("idempotency claim failed, continuing unguarded", zap.Error(err))
	} else if !claimed {
		return nil, apperr.New(apperr.KindConflict, "checkout already in progress")
	}

	total := 0.0
	items := make([]payment.LineItem, 0, len(input.CartItems))
	for _, ci := range input.CartItems {
		total += ci.Item.Price * float64(ci.Quantity)
		items = append(items, payment.LineItem{
			Name:     ci.Item.Title,
			Price:    int64(math.Round(ci.Item.Price)),
			Quantity: ci.Quantity,
		})
	}

	orderCode := utils.GenerateOrderCode()
	log = log.With(zap.Int64("order_code", orderCode), zap.Float64("total", total))

	callCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()

	link, err := s.gateway.CreatePaymentLink(callCtx, payment.CreateLinkRequest{
		OrderCode:   orderCode,
		Amount:      int64(math.Round(total)),
		Description: "Order payment",
		BuyerName:   input.Customer.Name,
		BuyerEmail:  input.Customer.Email,
		Items:       items,
		ReturnURL:   s.returnURL,
		CancelURL:   s.cancelURL,
	})
	if err != nil {
		// nothing written yet; release the claim so a retry can proceed
		s.releaseClaim(ctx, key, log)
		log.Error("payment link request failed", zap.Error(err))
		return nil, err
	}

	// The provider's echo of the order code is authoritative from here on.
	if link.OrderCode != 0 {
		orderCode = link.OrderCode
	}

	o := &order.Order{
		CustomerClerkID: input.Customer.ClerkID,
		Products:        toOrderProducts(input.CartItems),
		ShippingAddress: input.ShippingAddress,
		TotalAmount:     total,
		OrderCode:       orderCode,
		PaymentLink:     link.CheckoutURL,
		Status:          order.StatusPending,
	}

	orderID, err := s.orders.Insert(ctx, o)
	if err != nil {
		// Partial failure: the payment session exists but the order does
		// not. Keep the link recoverable and report it as a distinct
		// persistence failure, not a provider one.
		s.saveRecon(ctx, key, orderCode, link.CheckoutURL, "order insert failed: "+err.Error(), log)
		s.releaseClaim(ctx, key, log)
		log.Error("orphaned payment session: order insert failed after link was issued",
			zap.String("payment_link", link.CheckoutURL),
			zap.Error(err),
		)
		return nil, apperr.Wrap(apperr.KindPersistence, "persist order after payment link issued", err)
	}

	if _, err := s.customers.AppendOrder(ctx, input.Customer, orderID); err != nil {
		// The order is durable and the webhook can still settle it, so the
		// checkout succeeds; the gap is recorded for reconciliation.
		s.saveRecon(ctx, key, orderCode, link.CheckoutURL, "customer append failed: "+err.Error(), log)
		log.Error("customer find-or-create failed after order insert", zap.Error(err))
	}

	result := &Result{
		PaymentLink:     link.CheckoutURL,
		OrderCode:       orderCode,
		CartItems:       input.CartItems,
		Customer:        input.Customer,
		ShippingAddress: input.ShippingAddress,
	}

	if err := s.idem.SaveResult(ctx, key, result); err != nil {
		log.Warn("failed storing idempotent result", zap.Error(err))
	}

	log.Info("checkout completed", zap.String("payment_link", link.CheckoutURL))
	return result, nil
}

func validate(input Input) error {
	if input.Customer.ClerkID == "" {
		return apperr.Validation("missing customer identity")
	}
	if len(input.CartItems) == 0 {
		return apperr.Validation("cart is empty")
	}
	if input.ShippingAddress == nil {
		return apperr.Validation("missing shipping address")
	}
	for i, ci := range input.CartItems {
		if ci.Item.ID == "" {
			return apperr.Validation(fmt.Sprintf("line item %d has no product id", i))
		}
		if ci.Item.Price <= 0 {
			return apperr.Validation(fmt.Sprintf("line item %d price must be positive", i))
		}
		if ci.Quantity <= 0 {
			return apperr.Validation(fmt.Sprintf("line item %d quantity must be positive", i))
		}
	}
	return nil
}

func fingerprint(input Input) string {
	items := make([]utils.FingerprintItem, 0, len(input.CartItems))
	for _, ci := range input.CartItems {
		items = append(items, utils.FingerprintItem{
			ProductID: ci.Item.ID,
			Size:      ci.Item.Size,
			Price:     ci.Item.Price,
			Quantity:  ci.Quantity,
		})
	}
	return utils.CartFingerprint(input.Customer.ClerkID, items, input.ShippingAddress)
}

func toOrderProducts(items []CartItem) []order.Product {
	out := make([]order.Product, 0, len(items))
	for _, ci := range items {
		size := ci.Item.Size
		if size == "" {
			size = "N/A"
		}
		productID, err := primitive.ObjectIDFromHex(ci.Item.ID)
		if err != nil {
			// keep the zero id rather than dropping the line
			logger.L().Warn("cart item has non-object product id", zap.String("product_id", ci.Item.ID))
		}
		out = append(out, order.Product{
			Product:  productID,
			Title:    ci.Item.Title,
			Size:     size,
			Quantity: ci.Quantity,
			Price:    ci.Item.Price,
		})
	}
	return out
}

func (s *service) saveRecon(ctx context.Context, key string, orderCode int64, link, reason string, log *zap.Logger) {
	err := s.recon.Save(ctx, &ReconciliationRecord{
		Fingerprint: key,
		OrderCode:   orderCode,
		PaymentLink: link,
		Reason:      reason,
	})
	if err != nil {
		log.Error("failed writing reconciliation record", zap.Error(err))
	}
}

func (s *service) releaseClaim(ctx context.Context, key string, log *zap.Logger) {
	if err := s.idem.Release(ctx, key); err != nil {
		log.Warn("failed releasing idempotency claim", zap.Error(err))
	}
}
