package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// MemoryStore is an in-memory Querier for tests and local runs without a
// database. It enforces the same unique constraints as the schema and returns
// the same error values (ErrNotFound, *pgconn.PgError 23505).
type MemoryStore struct {
	mu sync.Mutex

	// Fail, when set, is consulted before every write. Returning an error
	// aborts the write with that error. op is the Querier method name.
	Fail func(op string, arg any) error

	// Now stamps created_at and updated_at. Defaults to time.Now.
	Now func() time.Time

	products      map[uuid.UUID]catalogProduct
	variants      map[uuid.UUID]catalogVariant
	subscriptions map[uuid.UUID]PendingSubscription
	deliveries    map[uuid.UUID]SubscriptionDelivery
	pendingOrders map[uuid.UUID]PendingOrder
	orders        map[uuid.UUID]Order
	orderItems    map[uuid.UUID]OrderItem
	webhookLogs   map[uuid.UUID]WebhookLog
	queue         map[uuid.UUID]WebhookQueueEntry
}

type catalogProduct struct {
	Name     string
	Category string
}

type catalogVariant struct {
	ProductID     uuid.UUID
	Name          string
	WeightGrams   int32
	BillingPlanID string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:      make(map[uuid.UUID]catalogProduct),
		variants:      make(map[uuid.UUID]catalogVariant),
		subscriptions: make(map[uuid.UUID]PendingSubscription),
		deliveries:    make(map[uuid.UUID]SubscriptionDelivery),
		pendingOrders: make(map[uuid.UUID]PendingOrder),
		orders:        make(map[uuid.UUID]Order),
		orderItems:    make(map[uuid.UUID]OrderItem),
		webhookLogs:   make(map[uuid.UUID]WebhookLog),
		queue:         make(map[uuid.UUID]WebhookQueueEntry),
	}
}

var _ Querier = (*MemoryStore)(nil)

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}

func (m *MemoryStore) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *MemoryStore) fail(op string, arg any) error {
	if m.Fail != nil {
		return m.Fail(op, arg)
	}
	return nil
}

// =============================================================================
// Seeding and inspection helpers
// =============================================================================

// AddProduct seeds a catalog product.
func (m *MemoryStore) AddProduct(id uuid.UUID, name, category string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[id] = catalogProduct{Name: name, Category: category}
}

// AddVariant seeds a catalog variant. An empty billingPlanID means the variant
// has no linked plan.
func (m *MemoryStore) AddVariant(id, productID uuid.UUID, name string, weightGrams int32, billingPlanID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.variants[id] = catalogVariant{ProductID: productID, Name: name, WeightGrams: weightGrams, BillingPlanID: billingPlanID}
}

// AddPendingOrder seeds a pending order and returns it with ID and timestamp set.
func (m *MemoryStore) AddPendingOrder(po PendingOrder) PendingOrder {
	m.mu.Lock()
	defer m.mu.Unlock()
	if po.ID == uuid.Nil {
		po.ID = uuid.New()
	}
	po.CreatedAt = m.now()
	m.pendingOrders[po.ID] = po
	return po
}

// AddDelivery inserts a delivery directly, bypassing the write hook.
func (m *MemoryStore) AddDelivery(d SubscriptionDelivery) SubscriptionDelivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = m.now()
	d.UpdatedAt = d.CreatedAt
	m.deliveries[d.ID] = d
	return d
}

// Orders returns every stored order.
func (m *MemoryStore) Orders() []Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	return out
}

// OrderItems returns every stored order item.
func (m *MemoryStore) OrderItems() []OrderItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OrderItem, 0, len(m.orderItems))
	for _, i := range m.orderItems {
		out = append(out, i)
	}
	return out
}

// PendingOrders returns every stored pending order.
func (m *MemoryStore) PendingOrders() []PendingOrder {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PendingOrder, 0, len(m.pendingOrders))
	for _, po := range m.pendingOrders {
		out = append(out, po)
	}
	return out
}

// Subscriptions returns every stored subscription.
func (m *MemoryStore) Subscriptions() []PendingSubscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PendingSubscription, 0, len(m.subscriptions))
	for _, s := range m.subscriptions {
		out = append(out, s)
	}
	return out
}

// Deliveries returns the deliveries of one subscription ordered by cycle.
func (m *MemoryStore) Deliveries(subscriptionID uuid.UUID) []SubscriptionDelivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []SubscriptionDelivery
	for _, d := range m.deliveries {
		if d.SubscriptionID == subscriptionID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CycleNumber < out[j].CycleNumber })
	return out
}

// WebhookLogs returns every audit log row in insertion order.
func (m *MemoryStore) WebhookLogs() []WebhookLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]WebhookLog, 0, len(m.webhookLogs))
	for _, l := range m.webhookLogs {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// QueueEntries returns every retry queue entry.
func (m *MemoryStore) QueueEntries() []WebhookQueueEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]WebhookQueueEntry, 0, len(m.queue))
	for _, e := range m.queue {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// =============================================================================
// Catalog
// =============================================================================

func (m *MemoryStore) GetProductVariant(ctx context.Context, id uuid.UUID) (ProductVariant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.variants[id]
	if !ok {
		return ProductVariant{}, ErrNotFound
	}
	p := m.products[v.ProductID]
	pv := ProductVariant{
		ID:          id,
		ProductID:   v.ProductID,
		ProductName: p.Name,
		Category:    p.Category,
		VariantName: v.Name,
		WeightGrams: v.WeightGrams,
	}
	if v.BillingPlanID != "" {
		pv.BillingPlanID = pgtype.Text{String: v.BillingPlanID, Valid: true}
	}
	return pv, nil
}

// =============================================================================
// Subscriptions
// =============================================================================

func (m *MemoryStore) CreatePendingSubscription(ctx context.Context, arg CreatePendingSubscriptionParams) (PendingSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreatePendingSubscription", arg); err != nil {
		return PendingSubscription{}, err
	}
	for _, s := range m.subscriptions {
		if s.ProviderSubscriptionID == arg.ProviderSubscriptionID {
			return PendingSubscription{}, uniqueViolation("pending_subscriptions_provider_subscription_id_key")
		}
	}
	now := m.now()
	s := PendingSubscription{
		ID:                     uuid.New(),
		UserID:                 arg.UserID,
		ProductID:              arg.ProductID,
		VariantID:              arg.VariantID,
		Quantity:               arg.Quantity,
		PreferredDeliveryDay:   arg.PreferredDeliveryDay,
		TotalDeliveries:        arg.TotalDeliveries,
		ShippingAddress:        arg.ShippingAddress,
		BillingPlanID:          arg.BillingPlanID,
		ProviderSubscriptionID: arg.ProviderSubscriptionID,
		Status:                 arg.Status,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	m.subscriptions[s.ID] = s
	return s, nil
}

func (m *MemoryStore) GetPendingSubscription(ctx context.Context, id uuid.UUID) (PendingSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subscriptions[id]
	if !ok {
		return PendingSubscription{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) GetPendingSubscriptionByProviderID(ctx context.Context, providerSubscriptionID string) (PendingSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subscriptions {
		if s.ProviderSubscriptionID == providerSubscriptionID {
			return s, nil
		}
	}
	return PendingSubscription{}, ErrNotFound
}

func (m *MemoryStore) ListPendingSubscriptionsForUser(ctx context.Context, userID uuid.UUID) ([]PendingSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []PendingSubscription
	for _, s := range m.subscriptions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) UpdatePendingSubscriptionStatus(ctx context.Context, arg UpdatePendingSubscriptionStatusParams) (PendingSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdatePendingSubscriptionStatus", arg); err != nil {
		return PendingSubscription{}, err
	}
	s, ok := m.subscriptions[arg.ID]
	if !ok {
		return PendingSubscription{}, ErrNotFound
	}
	s.Status = arg.Status
	s.UpdatedAt = m.now()
	m.subscriptions[s.ID] = s
	return s, nil
}

// =============================================================================
// Deliveries
// =============================================================================

func (m *MemoryStore) CreateDelivery(ctx context.Context, arg CreateDeliveryParams) (SubscriptionDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateDelivery", arg); err != nil {
		return SubscriptionDelivery{}, err
	}
	for _, d := range m.deliveries {
		if d.SubscriptionID == arg.SubscriptionID && d.CycleNumber == arg.CycleNumber {
			return SubscriptionDelivery{}, uniqueViolation("uq_subscription_deliveries_cycle")
		}
	}
	now := m.now()
	d := SubscriptionDelivery{
		ID:             uuid.New(),
		SubscriptionID: arg.SubscriptionID,
		CycleNumber:    arg.CycleNumber,
		DeliveryDate:   arg.DeliveryDate,
		Status:         arg.Status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.deliveries[d.ID] = d
	return d, nil
}

func (m *MemoryStore) GetDelivery(ctx context.Context, id uuid.UUID) (SubscriptionDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return SubscriptionDelivery{}, ErrNotFound
	}
	return d, nil
}

func (m *MemoryStore) GetDeliveryByCycle(ctx context.Context, arg GetDeliveryByCycleParams) (SubscriptionDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.deliveries {
		if d.SubscriptionID == arg.SubscriptionID && d.CycleNumber == arg.CycleNumber {
			return d, nil
		}
	}
	return SubscriptionDelivery{}, ErrNotFound
}

func (m *MemoryStore) CountDeliveriesForSubscription(ctx context.Context, subscriptionID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, d := range m.deliveries {
		if d.SubscriptionID == subscriptionID {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) ListDeliveriesForUser(ctx context.Context, userID uuid.UUID) ([]DeliveryWithProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []DeliveryWithProduct
	for _, d := range m.deliveries {
		s, ok := m.subscriptions[d.SubscriptionID]
		if !ok || s.UserID != userID {
			continue
		}
		v := m.variants[s.VariantID]
		out = append(out, DeliveryWithProduct{
			ID:                 d.ID,
			SubscriptionID:     d.SubscriptionID,
			CycleNumber:        d.CycleNumber,
			DeliveryDate:       d.DeliveryDate,
			Status:             d.Status,
			CreatedAt:          d.CreatedAt,
			SubscriptionStatus: s.Status,
			Quantity:           s.Quantity,
			ProductName:        m.products[s.ProductID].Name,
			VariantName:        v.Name,
			WeightGrams:        v.WeightGrams,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DeliveryDate.Equal(out[j].DeliveryDate) {
			return out[i].CycleNumber < out[j].CycleNumber
		}
		return out[i].DeliveryDate.Before(out[j].DeliveryDate)
	})
	return out, nil
}

func (m *MemoryStore) UpdateDeliveryDate(ctx context.Context, arg UpdateDeliveryDateParams) (SubscriptionDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateDeliveryDate", arg); err != nil {
		return SubscriptionDelivery{}, err
	}
	d, ok := m.deliveries[arg.ID]
	if !ok {
		return SubscriptionDelivery{}, ErrNotFound
	}
	d.DeliveryDate = arg.DeliveryDate
	d.UpdatedAt = m.now()
	m.deliveries[d.ID] = d
	return d, nil
}

func (m *MemoryStore) UpdateDeliveryStatus(ctx context.Context, arg UpdateDeliveryStatusParams) (SubscriptionDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateDeliveryStatus", arg); err != nil {
		return SubscriptionDelivery{}, err
	}
	d, ok := m.deliveries[arg.ID]
	if !ok {
		return SubscriptionDelivery{}, ErrNotFound
	}
	d.Status = arg.Status
	d.UpdatedAt = m.now()
	m.deliveries[d.ID] = d
	return d, nil
}

// =============================================================================
// Orders
// =============================================================================

func (m *MemoryStore) GetPendingOrderByProviderOrderID(ctx context.Context, providerOrderID string) (PendingOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, po := range m.pendingOrders {
		if po.ProviderOrderID == providerOrderID {
			return po, nil
		}
	}
	return PendingOrder{}, ErrNotFound
}

func (m *MemoryStore) DeletePendingOrder(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("DeletePendingOrder", id); err != nil {
		return err
	}
	delete(m.pendingOrders, id)
	return nil
}

func (m *MemoryStore) DeletePendingOrderByProviderOrderID(ctx context.Context, providerOrderID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("DeletePendingOrderByProviderOrderID", providerOrderID); err != nil {
		return 0, err
	}
	var n int64
	for id, po := range m.pendingOrders {
		if po.ProviderOrderID == providerOrderID {
			delete(m.pendingOrders, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateOrder", arg); err != nil {
		return Order{}, err
	}
	for _, o := range m.orders {
		if o.ProviderPaymentID == arg.ProviderPaymentID {
			return Order{}, uniqueViolation("orders_provider_payment_id_key")
		}
	}
	o := Order{
		ID:                uuid.New(),
		UserID:            arg.UserID,
		ProviderOrderID:   arg.ProviderOrderID,
		ProviderPaymentID: arg.ProviderPaymentID,
		AmountPaise:       arg.AmountPaise,
		Currency:          arg.Currency,
		ShippingAddress:   arg.ShippingAddress,
		Status:            arg.Status,
		CreatedAt:         m.now(),
	}
	m.orders[o.ID] = o
	return o, nil
}

func (m *MemoryStore) GetOrderByProviderPaymentID(ctx context.Context, providerPaymentID string) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetOrderByProviderPaymentID", providerPaymentID); err != nil {
		return Order{}, err
	}
	for _, o := range m.orders {
		if o.ProviderPaymentID == providerPaymentID {
			return o, nil
		}
	}
	return Order{}, ErrNotFound
}

func (m *MemoryStore) CountOrderItems(ctx context.Context, orderID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CountOrderItems", orderID); err != nil {
		return 0, err
	}
	var n int64
	for _, i := range m.orderItems {
		if i.OrderID == orderID {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateOrderItem", arg); err != nil {
		return OrderItem{}, err
	}
	i := OrderItem{
		ID:             uuid.New(),
		OrderID:        arg.OrderID,
		ProductID:      arg.ProductID,
		VariantID:      arg.VariantID,
		ProductName:    arg.ProductName,
		VariantName:    arg.VariantName,
		Quantity:       arg.Quantity,
		UnitPricePaise: arg.UnitPricePaise,
		CreatedAt:      m.now(),
	}
	m.orderItems[i.ID] = i
	return i, nil
}

func (m *MemoryStore) DeleteOrderItems(ctx context.Context, orderID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("DeleteOrderItems", orderID); err != nil {
		return err
	}
	for id, i := range m.orderItems {
		if i.OrderID == orderID {
			delete(m.orderItems, id)
		}
	}
	return nil
}

func (m *MemoryStore) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("DeleteOrder", id); err != nil {
		return err
	}
	delete(m.orders, id)
	// order_items cascade on delete
	for itemID, i := range m.orderItems {
		if i.OrderID == id {
			delete(m.orderItems, itemID)
		}
	}
	return nil
}

// =============================================================================
// Webhooks
// =============================================================================

func (m *MemoryStore) CreateWebhookLog(ctx context.Context, arg CreateWebhookLogParams) (WebhookLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateWebhookLog", arg); err != nil {
		return WebhookLog{}, err
	}
	l := WebhookLog{
		ID:        uuid.New(),
		EventType: arg.EventType,
		Payload:   arg.Payload,
		Replay:    arg.Replay,
		CreatedAt: m.now(),
	}
	m.webhookLogs[l.ID] = l
	return l, nil
}

func (m *MemoryStore) MarkWebhookLogProcessed(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("MarkWebhookLogProcessed", id); err != nil {
		return err
	}
	l, ok := m.webhookLogs[id]
	if !ok {
		return nil
	}
	l.Processed = true
	l.Error = pgtype.Text{}
	l.ProcessedAt = pgtype.Timestamptz{Time: m.now(), Valid: true}
	m.webhookLogs[id] = l
	return nil
}

func (m *MemoryStore) MarkWebhookLogFailed(ctx context.Context, arg MarkWebhookLogFailedParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("MarkWebhookLogFailed", arg); err != nil {
		return err
	}
	l, ok := m.webhookLogs[arg.ID]
	if !ok {
		return nil
	}
	l.Error = pgtype.Text{String: arg.Error, Valid: true}
	m.webhookLogs[arg.ID] = l
	return nil
}

func (m *MemoryStore) EnqueueWebhookRetry(ctx context.Context, arg EnqueueWebhookRetryParams) (WebhookQueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("EnqueueWebhookRetry", arg); err != nil {
		return WebhookQueueEntry{}, err
	}
	now := m.now()
	e := WebhookQueueEntry{
		ID:           uuid.New(),
		WebhookLogID: arg.WebhookLogID,
		EventType:    arg.EventType,
		Payload:      arg.Payload,
		Status:       "pending",
		MaxRetries:   arg.MaxRetries,
		NextRetryAt:  arg.NextRetryAt,
		LastError:    arg.LastError,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.queue[e.ID] = e
	return e, nil
}

func (m *MemoryStore) ClaimDueWebhookRetries(ctx context.Context, arg ClaimDueWebhookRetriesParams) ([]WebhookQueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []WebhookQueueEntry
	for _, e := range m.queue {
		if e.Status == "pending" && !e.NextRetryAt.After(arg.Now) {
			due = append(due, e)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextRetryAt.Before(due[j].NextRetryAt) })
	if arg.Limit > 0 && len(due) > int(arg.Limit) {
		due = due[:arg.Limit]
	}
	for i := range due {
		due[i].NextRetryAt = arg.LeaseUntil
		due[i].UpdatedAt = m.now()
		m.queue[due[i].ID] = due[i]
	}
	return due, nil
}

func (m *MemoryStore) MarkWebhookRetrySucceeded(ctx context.Context, arg MarkWebhookRetrySucceededParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("MarkWebhookRetrySucceeded", arg); err != nil {
		return err
	}
	e, ok := m.queue[arg.ID]
	if !ok {
		return ErrNotFound
	}
	e.Status = "succeeded"
	e.RetryCount = arg.RetryCount
	e.LastError = pgtype.Text{}
	e.UpdatedAt = m.now()
	m.queue[e.ID] = e
	return nil
}

func (m *MemoryStore) RecordWebhookRetryFailure(ctx context.Context, arg RecordWebhookRetryFailureParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("RecordWebhookRetryFailure", arg); err != nil {
		return err
	}
	e, ok := m.queue[arg.ID]
	if !ok {
		return ErrNotFound
	}
	e.Status = arg.Status
	e.RetryCount = arg.RetryCount
	e.NextRetryAt = arg.NextRetryAt
	e.LastError = pgtype.Text{String: arg.LastError, Valid: true}
	e.UpdatedAt = m.now()
	m.queue[e.ID] = e
	return nil
}
