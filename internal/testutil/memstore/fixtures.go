package memstore

import (
	"slices"

	"storeops/internal/core/id"
	"storeops/internal/domain/catalog"
	"storeops/internal/domain/events"
	"storeops/internal/domain/order"
	"storeops/internal/domain/promotion"
	"storeops/internal/domain/registers/stock"
	"storeops/internal/domain/returns"
	"storeops/internal/domain/shipping"
	"storeops/internal/domain/webhook"
)

// Seeding and inspection helpers. They bypass transactions and are meant
// to be called before or after the code under test runs.

func (s *Store) with(fn func(st *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.st)
}

// PutProduct inserts or replaces a product.
func (s *Store) PutProduct(p catalog.Product) {
	s.with(func(st *state) { st.products[p.ID] = p })
}

// PutCustomer inserts or replaces a customer.
func (s *Store) PutCustomer(c catalog.Customer) {
	s.with(func(st *state) { st.customers[c.ID] = c })
}

// PutAddress inserts or replaces an address.
func (s *Store) PutAddress(a catalog.Address) {
	s.with(func(st *state) { st.addresses[a.ID] = a })
}

// SetCart replaces a customer's cart.
func (s *Store) SetCart(customerID id.ID, items ...catalog.CartItem) {
	s.with(func(st *state) { st.carts[customerID] = slices.Clone(items) })
}

// PutPromotion inserts or replaces a promotion.
func (s *Store) PutPromotion(p promotion.Promotion) {
	s.with(func(st *state) { st.promotions[p.ID] = p })
}

// PutRule inserts or replaces a rule.
func (s *Store) PutRule(r promotion.Rule) {
	s.with(func(st *state) { st.rules[r.ID] = r })
}

// PutOrder inserts or replaces an order with its lines.
func (s *Store) PutOrder(o order.Order) {
	s.with(func(st *state) { st.orders[o.ID] = copyOrder(o) })
}

// PutShipment inserts or replaces a shipment.
func (s *Store) PutShipment(sh shipping.Shipment) {
	s.with(func(st *state) { st.shipments[sh.ID] = sh })
}

// PutSetting stores a raw setting value.
func (s *Store) PutSetting(key, value string) {
	s.with(func(st *state) { st.settings[key] = value })
}

// Product returns the stored product.
func (s *Store) Product(productID id.ID) (p catalog.Product) {
	s.with(func(st *state) { p = st.products[productID] })
	return p
}

// Promotion returns the stored promotion.
func (s *Store) Promotion(promotionID id.ID) (p promotion.Promotion) {
	s.with(func(st *state) { p = st.promotions[promotionID] })
	return p
}

// Order returns the stored order.
func (s *Store) Order(orderID id.ID) (o order.Order) {
	s.with(func(st *state) { o = copyOrder(st.orders[orderID]) })
	return o
}

// OrderCount returns the number of stored orders.
func (s *Store) OrderCount() (n int) {
	s.with(func(st *state) { n = len(st.orders) })
	return n
}

// Return returns the stored return request.
func (s *Store) Return(returnID id.ID) (r returns.OrderReturn) {
	s.with(func(st *state) { r = copyReturn(st.returns[returnID]) })
	return r
}

// Shipment returns the stored shipment.
func (s *Store) Shipment(shipmentID id.ID) (sh shipping.Shipment) {
	s.with(func(st *state) { sh = st.shipments[shipmentID] })
	return sh
}

// Ledger returns all ledger entries in insertion order.
func (s *Store) Ledger() (out []stock.Entry) {
	s.with(func(st *state) { out = slices.Clone(st.ledger) })
	return out
}

// LedgerFor returns the entries of one reference.
func (s *Store) LedgerFor(referenceID id.ID) (out []stock.Entry) {
	s.with(func(st *state) {
		for _, e := range st.ledger {
			if e.ReferenceID == referenceID {
				out = append(out, e)
			}
		}
	})
	return out
}

// Cart returns a customer's cart.
func (s *Store) Cart(customerID id.ID) (out []catalog.CartItem) {
	s.with(func(st *state) { out = slices.Clone(st.carts[customerID]) })
	return out
}

// Published returns the events published so far.
func (s *Store) Published() (out []events.Event) {
	s.with(func(st *state) { out = slices.Clone(st.events) })
	return out
}

// JournalOutcome returns the recorded outcome of a delivery and whether it
// was journaled at all.
func (s *Store) JournalOutcome(p webhook.Provider, key string) (outcome webhook.Outcome, ok bool) {
	s.with(func(st *state) {
		var e journalEntry
		e, ok = st.journal[journalKey(p, key)]
		outcome = e.outcome
	})
	return outcome, ok
}

// JournalSize returns the number of journaled deliveries.
func (s *Store) JournalSize() (n int) {
	s.with(func(st *state) { n = len(st.journal) })
	return n
}
