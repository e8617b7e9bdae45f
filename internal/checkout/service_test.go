package checkout

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"comet-be/internal/apperr"
	"comet-be/internal/customer"
	"comet-be/internal/order"
	"comet-be/internal/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Mocks ---

type MockOrderRepo struct {
	mock.Mock
}

func (m *MockOrderRepo) Insert(ctx context.Context, o *order.Order) (primitive.ObjectID, error) {
	args := m.Called(ctx, o)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *MockOrderRepo) GetByOrderCode(ctx context.Context, orderCode int64) (*order.Order, error) {
	args := m.Called(ctx, orderCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepo) MarkPaid(ctx context.Context, orderCode int64) error {
	return m.Called(ctx, orderCode).Error(0)
}

func (m *MockOrderRepo) MarkFailed(ctx context.Context, orderCode int64) error {
	return m.Called(ctx, orderCode).Error(0)
}

type MockCustomerRepo struct {
	mock.Mock
}

func (m *MockCustomerRepo) AppendOrder(ctx context.Context, id customer.Identity, orderID primitive.ObjectID) (*customer.Customer, error) {
	args := m.Called(ctx, id, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *MockCustomerRepo) GetByClerkID(ctx context.Context, clerkID string) (*customer.Customer, error) {
	args := m.Called(ctx, clerkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreatePaymentLink(ctx context.Context, req payment.CreateLinkRequest) (*payment.PaymentLink, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.PaymentLink), args.Error(1)
}

func (m *MockGateway) GetPaymentLink(ctx context.Context, orderCode int64) (*payment.LinkStatus, error) {
	args := m.Called(ctx, orderCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.LinkStatus), args.Error(1)
}

func (m *MockGateway) CancelPaymentLink(ctx context.Context, orderCode int64, reason string) error {
	return m.Called(ctx, orderCode, reason).Error(0)
}

func (m *MockGateway) VerifyWebhook(payload []byte) (*payment.WebhookData, error) {
	args := m.Called(payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.WebhookData), args.Error(1)
}

type MockIdemStore struct {
	mock.Mock
}

func (m *MockIdemStore) Claim(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdemStore) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockIdemStore) GetResult(ctx context.Context, key string) (*Result, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Result), args.Error(1)
}

func (m *MockIdemStore) SaveResult(ctx context.Context, key string, res *Result) error {
	return m.Called(ctx, key, res).Error(0)
}

type MockRecon struct {
	mock.Mock
}

func (m *MockRecon) Save(ctx context.Context, rec *ReconciliationRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockRecon) Resolve(ctx context.Context, orderCode int64) error {
	return m.Called(ctx, orderCode).Error(0)
}

// --- Helpers ---

type fixture struct {
	orders    *MockOrderRepo
	customers *MockCustomerRepo
	gateway   *MockGateway
	idem      *MockIdemStore
	recon     *MockRecon
	svc       Service
}

func newFixture() *fixture {
	f := &fixture{
		orders:    new(MockOrderRepo),
		customers: new(MockCustomerRepo),
		gateway:   new(MockGateway),
		idem:      new(MockIdemStore),
		recon:     new(MockRecon),
	}
	f.svc = NewService(f.orders, f.customers, f.gateway, f.idem, f.recon, Options{
		ReturnURL: "https://store.example.com/payment_success",
		CancelURL: "https://store.example.com/cart",
	})
	return f
}

// noPriorResult wires the happy idempotency path: no stored result, claim
// succeeds, result gets saved.
func (f *fixture) noPriorResult() {
	f.idem.On("GetResult", mock.Anything, mock.Anything).Return(nil, nil)
	f.idem.On("Claim", mock.Anything, mock.Anything).Return(true, nil)
}

func validCheckout() Input {
	productID := primitive.NewObjectID().Hex()
	return Input{
		Customer: customer.Identity{ClerkID: "user_2abc", Name: "Ada", Email: "ada@example.com"},
		CartItems: []CartItem{
			{Item: CartProduct{ID: productID, Title: "Comet Tee", Price: 20, Size: "M"}, Quantity: 2},
			{Item: CartProduct{ID: primitive.NewObjectID().Hex(), Title: "Sticker Pack", Price: 5}, Quantity: 1},
		},
		ShippingAddress: map[string]interface{}{"street": "1 Main St", "city": "Hanoi"},
	}
}

func issuedLink(orderCode int64) *payment.PaymentLink {
	return &payment.PaymentLink{
		CheckoutURL:   "https://pay.example.com/web/abc123",
		OrderCode:     orderCode,
		PaymentLinkID: "abc123",
		Status:        "PENDING",
	}
}

// --- Tests ---

func TestCheckout_Validation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Input)
	}{
		{"MissingIdentity", func(in *Input) { in.Customer.ClerkID = "" }},
		{"EmptyCart", func(in *Input) { in.CartItems = nil }},
		{"MissingAddress", func(in *Input) { in.ShippingAddress = nil }},
		{"ZeroQuantity", func(in *Input) { in.CartItems[0].Quantity = 0 }},
		{"NegativePrice", func(in *Input) { in.CartItems[0].Item.Price = -1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			in := validCheckout()
			tc.mutate(&in)

			_, err := f.svc.Checkout(context.Background(), in)

			assert.Equal(t, http.StatusBadRequest, apperr.Status(err))
			f.gateway.AssertNotCalled(t, "CreatePaymentLink")
			f.orders.AssertNotCalled(t, "Insert")
			f.customers.AssertNotCalled(t, "AppendOrder")
		})
	}
}

func TestCheckout_Success(t *testing.T) {
	f := newFixture()
	f.noPriorResult()
	in := validCheckout()
	orderID := primitive.NewObjectID()

	f.gateway.On("CreatePaymentLink", mock.Anything, mock.MatchedBy(func(req payment.CreateLinkRequest) bool {
		// 20*2 + 5*1
		return req.Amount == 45 && len(req.Items) == 2 && req.OrderCode > 0
	})).Return(issuedLink(777), nil)

	f.orders.On("Insert", mock.Anything, mock.MatchedBy(func(o *order.Order) bool {
		return o.OrderCode == 777 &&
			o.TotalAmount == 45 &&
			o.CustomerClerkID == "user_2abc" &&
			o.Status == order.StatusPending &&
			len(o.Products) == 2
	})).Return(orderID, nil)

	f.customers.On("AppendOrder", mock.Anything, in.Customer, orderID).
		Return(&customer.Customer{ClerkID: "user_2abc"}, nil)

	f.idem.On("SaveResult", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	res, err := f.svc.Checkout(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/web/abc123", res.PaymentLink)
	assert.Equal(t, int64(777), res.OrderCode)
	assert.Equal(t, in.Customer, res.Customer)
	assert.Len(t, res.CartItems, 2)

	f.orders.AssertExpectations(t)
	f.customers.AssertExpectations(t)
	f.recon.AssertNotCalled(t, "Save")
}

func TestCheckout_SizeDefaultsWhenAbsent(t *testing.T) {
	f := newFixture()
	f.noPriorResult()
	in := validCheckout()

	f.gateway.On("CreatePaymentLink", mock.Anything, mock.Anything).Return(issuedLink(778), nil)
	f.orders.On("Insert", mock.Anything, mock.MatchedBy(func(o *order.Order) bool {
		// second item has no size
		return o.Products[0].Size == "M" && o.Products[1].Size == "N/A"
	})).Return(primitive.NewObjectID(), nil)
	f.customers.On("AppendOrder", mock.Anything, mock.Anything, mock.Anything).
		Return(&customer.Customer{}, nil)
	f.idem.On("SaveResult", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Checkout(context.Background(), in)
	require.NoError(t, err)
	f.orders.AssertExpectations(t)
}

func TestCheckout_GatewayFailureWritesNothing(t *testing.T) {
	f := newFixture()
	f.noPriorResult()
	in := validCheckout()

	upstream := apperr.New(apperr.KindUpstream, "payment provider unavailable")
	f.gateway.On("CreatePaymentLink", mock.Anything, mock.Anything).Return(nil, upstream)
	f.idem.On("Release", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Checkout(context.Background(), in)

	assert.Equal(t, http.StatusBadGateway, apperr.Status(err))
	f.orders.AssertNotCalled(t, "Insert")
	f.customers.AssertNotCalled(t, "AppendOrder")
	f.recon.AssertNotCalled(t, "Save")
	f.idem.AssertCalled(t, "Release", mock.Anything, mock.Anything)
}

func TestCheckout_OrderInsertFailureLeavesReconRecord(t *testing.T) {
	f := newFixture()
	f.noPriorResult()
	in := validCheckout()

	f.gateway.On("CreatePaymentLink", mock.Anything, mock.Anything).Return(issuedLink(900), nil)
	f.orders.On("Insert", mock.Anything, mock.Anything).
		Return(primitive.NilObjectID, errors.New("connection reset"))
	f.recon.On("Save", mock.Anything, mock.MatchedBy(func(rec *ReconciliationRecord) bool {
		return rec.OrderCode == 900 && rec.PaymentLink == "https://pay.example.com/web/abc123"
	})).Return(nil)
	f.idem.On("Release", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Checkout(context.Background(), in)

	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))
	f.customers.AssertNotCalled(t, "AppendOrder")
	f.recon.AssertExpectations(t)
}

func TestCheckout_CustomerAppendFailureStillSucceeds(t *testing.T) {
	f := newFixture()
	f.noPriorResult()
	in := validCheckout()
	orderID := primitive.NewObjectID()

	f.gateway.On("CreatePaymentLink", mock.Anything, mock.Anything).Return(issuedLink(901), nil)
	f.orders.On("Insert", mock.Anything, mock.Anything).Return(orderID, nil)
	f.customers.On("AppendOrder", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("write concern timeout"))
	f.recon.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.idem.On("SaveResult", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	res, err := f.svc.Checkout(context.Background(), in)

	require.NoError(t, err)
	assert.Equal(t, int64(901), res.OrderCode)
	f.recon.AssertExpectations(t)
}

func TestCheckout_ReplaysStoredResult(t *testing.T) {
	f := newFixture()
	in := validCheckout()
	in.IdempotencyKey = "idem-key-1"

	stored := &Result{PaymentLink: "https://pay.example.com/web/old", OrderCode: 555}
	f.idem.On("GetResult", mock.Anything, "idem-key-1").Return(stored, nil)

	res, err := f.svc.Checkout(context.Background(), in)

	require.NoError(t, err)
	assert.Equal(t, stored, res)
	f.gateway.AssertNotCalled(t, "CreatePaymentLink")
	f.orders.AssertNotCalled(t, "Insert")
	f.idem.AssertNotCalled(t, "Claim")
}

func TestCheckout_ConcurrentDuplicateRejected(t *testing.T) {
	f := newFixture()
	in := validCheckout()
	in.IdempotencyKey = "idem-key-2"

	f.idem.On("GetResult", mock.Anything, "idem-key-2").Return(nil, nil)
	f.idem.On("Claim", mock.Anything, "idem-key-2").Return(false, nil)

	_, err := f.svc.Checkout(context.Background(), in)

	assert.Equal(t, http.StatusConflict, apperr.Status(err))
	f.gateway.AssertNotCalled(t, "CreatePaymentLink")
}

func TestCheckout_RedisOutageFailsOpen(t *testing.T) {
	f := newFixture()
	in := validCheckout()

	down := errors.New("redis: connection refused")
	f.idem.On("GetResult", mock.Anything, mock.Anything).Return(nil, down)
	f.idem.On("Claim", mock.Anything, mock.Anything).Return(false, down)
	f.gateway.On("CreatePaymentLink", mock.Anything, mock.Anything).Return(issuedLink(902), nil)
	f.orders.On("Insert", mock.Anything, mock.Anything).Return(primitive.NewObjectID(), nil)
	f.customers.On("AppendOrder", mock.Anything, mock.Anything, mock.Anything).
		Return(&customer.Customer{}, nil)
	f.idem.On("SaveResult", mock.Anything, mock.Anything, mock.Anything).Return(down)

	res, err := f.svc.Checkout(context.Background(), in)

	require.NoError(t, err)
	assert.Equal(t, int64(902), res.OrderCode)
}

func TestCheckout_DerivedKeyIsStableAcrossItemOrder(t *testing.T) {
	in := validCheckout()

	swapped := in
	swapped.CartItems = []CartItem{in.CartItems[1], in.CartItems[0]}

	assert.Equal(t, fingerprint(in), fingerprint(swapped))

	changed := in
	changed.CartItems = []CartItem{in.CartItems[0]}
	assert.NotEqual(t, fingerprint(in), fingerprint(changed))
}
