// Package memstore is an in-memory implementation of every repository plus
// a tx.Manager, for service tests.
//
// Transactions are fully serialized and roll back by restoring a snapshot,
// which gives the same outcome as row locks for the operations under test.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sync"

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

type journalEntry struct {
	receipt webhook.Receipt
	outcome webhook.Outcome
	note    string
}

type state struct {
	products   map[id.ID]catalog.Product
	customers  map[id.ID]catalog.Customer
	addresses  map[id.ID]catalog.Address
	carts      map[id.ID][]catalog.CartItem
	ledger     []stock.Entry
	promotions map[id.ID]promotion.Promotion
	rules      map[id.ID]promotion.Rule
	orders     map[id.ID]order.Order
	returns    map[id.ID]returns.OrderReturn
	shipments  map[id.ID]shipping.Shipment
	journal    map[string]journalEntry
	events     []events.Event
	settings   map[string]string
}

func newState() *state {
	return &state{
		products:   make(map[id.ID]catalog.Product),
		customers:  make(map[id.ID]catalog.Customer),
		addresses:  make(map[id.ID]catalog.Address),
		carts:      make(map[id.ID][]catalog.CartItem),
		promotions: make(map[id.ID]promotion.Promotion),
		rules:      make(map[id.ID]promotion.Rule),
		orders:     make(map[id.ID]order.Order),
		returns:    make(map[id.ID]returns.OrderReturn),
		shipments:  make(map[id.ID]shipping.Shipment),
		journal:    make(map[string]journalEntry),
		settings:   make(map[string]string),
	}
}

func (s *state) clone() *state {
	c := &state{
		products:   maps.Clone(s.products),
		customers:  maps.Clone(s.customers),
		addresses:  maps.Clone(s.addresses),
		carts:      make(map[id.ID][]catalog.CartItem, len(s.carts)),
		ledger:     slices.Clone(s.ledger),
		promotions: maps.Clone(s.promotions),
		rules:      maps.Clone(s.rules),
		orders:     make(map[id.ID]order.Order, len(s.orders)),
		returns:    make(map[id.ID]returns.OrderReturn, len(s.returns)),
		shipments:  maps.Clone(s.shipments),
		journal:    maps.Clone(s.journal),
		events:     slices.Clone(s.events),
		settings:   maps.Clone(s.settings),
	}
	for k, v := range s.carts {
		c.carts[k] = slices.Clone(v)
	}
	for k, v := range s.orders {
		c.orders[k] = copyOrder(v)
	}
	for k, v := range s.returns {
		c.returns[k] = copyReturn(v)
	}
	return c
}

func copyOrder(o order.Order) order.Order {
	o.Lines = slices.Clone(o.Lines)
	return o
}

func copyReturn(r returns.OrderReturn) returns.OrderReturn {
	r.Items = slices.Clone(r.Items)
	return r
}

// Store holds all state.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	st   *state
}

// New creates an empty store.
func New() *Store {
	return &Store{st: newState()}
}

type txKey struct{}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(bool)
	return ok
}

// RunInTransaction implements tx.Manager.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// do runs fn against the state. Outside a transaction it behaves like a
// single-statement transaction.
func (s *Store) do(ctx context.Context, fn func(st *state) error) error {
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// Repository accessors.

func (s *Store) Products() catalog.ProductRepository   { return productRepo{s} }
func (s *Store) Customers() catalog.CustomerRepository { return customerRepo{s} }
func (s *Store) Carts() catalog.CartRepository         { return cartRepo{s} }
func (s *Store) Stock() stock.Repository               { return stockRepo{s} }
func (s *Store) Promotions() promotion.Repository      { return promotionRepo{s} }
func (s *Store) Orders() order.Repository              { return orderRepo{s} }
func (s *Store) Returns() returns.Repository           { return returnRepo{s} }
func (s *Store) Shipments() shipping.Repository        { return shipmentRepo{s} }
func (s *Store) Journal() webhook.Journal              { return journalRepo{s} }
func (s *Store) Publisher() events.Publisher           { return publisher{s} }
func (s *Store) SettingsStore() *SettingsStore         { return &SettingsStore{s} }
