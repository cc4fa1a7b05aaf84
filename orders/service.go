package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lucaslcw/order-pipeline/common/api"
	"github.com/lucaslcw/order-pipeline/common/broker"
	"github.com/lucaslcw/order-pipeline/common/mask"
	"github.com/lucaslcw/order-pipeline/common/money"
)

const stockReservationReason = "Order sale"

// service turns an initialize event into a PENDING order: enrich items from
// the catalog, reserve stock on the ledger, associate the lead, create the
// order and dispatch the payment request. Phases run in order; published
// stock decrements are never rolled back here (the stock worker's reaper
// releases orphaned reservations).
type service struct {
	catalog   Catalog
	stock     StockReader
	leads     LeadFinder
	orders    OrderCreator
	publisher broker.Publisher
	logger    *zap.Logger
}

func NewService(catalog Catalog, stock StockReader, leads LeadFinder, orders OrderCreator, publisher broker.Publisher, logger *zap.Logger) *service {
	return &service{
		catalog:   catalog,
		stock:     stock,
		leads:     leads,
		orders:    orders,
		publisher: publisher,
		logger:    logger,
	}
}

// ProcessRecord executes phases A through E for one initialize event. The
// returned flag reports whether a new order row was created (false on a
// duplicate delivery, which counts as success).
func (s *service) ProcessRecord(ctx context.Context, msg *api.InitializeOrder) (bool, error) {
	if msg.OrderID == "" {
		return false, api.Validationf("initialize message missing orderId")
	}

	// Phase A: enrichment.
	items, totalValue, err := s.enrichItems(ctx, msg.Items)
	if err != nil {
		return false, fmt.Errorf("order %s enrichment failed: %w", msg.OrderID, err)
	}

	// Phase B: stock reservation fan-out.
	if err := s.reserveStock(ctx, msg.OrderID, items); err != nil {
		return false, fmt.Errorf("order %s stock reservation failed: %w", msg.OrderID, err)
	}

	// Phase C: lead association.
	lead, err := s.associateLead(ctx, msg)
	if err != nil {
		return false, fmt.Errorf("order %s lead association failed: %w", msg.OrderID, err)
	}

	// Phase D: order creation.
	totalItems := 0
	for _, item := range items {
		totalItems += item.Quantity
	}
	now := time.Now().UTC()
	order := &api.Order{
		ID:     msg.OrderID,
		LeadID: lead.ID,
		CustomerData: api.CustomerData{
			CPF:   lead.CPF,
			Email: lead.Email,
			Name:  lead.Name,
		},
		Items:       items,
		TotalItems:  totalItems,
		TotalValue:  totalValue,
		Status:      api.OrderPending,
		AddressData: msg.AddressData,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.orders.Insert(ctx, order); err != nil {
		if errors.Is(err, api.ErrConflict) {
			// Duplicate delivery; the first run owns the order and its payment
			// dispatch.
			s.logger.Info("order already exists, treating as success",
				zap.String("order_id", msg.OrderID),
			)
			return false, nil
		}
		return false, fmt.Errorf("order %s creation failed: %w", msg.OrderID, err)
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("lead_id", lead.ID),
		zap.Int("total_items", order.TotalItems),
		zap.String("total_value", order.TotalValue.String()),
	)

	// Phase E: payment dispatch. A failure leaves the order PENDING for
	// out-of-band redispatch and does not fail the record.
	s.dispatchPayment(ctx, msg, order)

	return true, nil
}

func (s *service) enrichItems(ctx context.Context, requested []api.RequestedItem) ([]api.OrderItem, money.Amount, error) {
	items := make([]api.OrderItem, 0, len(requested))
	totalValue := money.Zero()

	for _, req := range requested {
		product, err := s.catalog.Get(ctx, req.ID)
		if errors.Is(err, api.ErrNotFound) {
			// Unknown products do not block the order; they are carried as
			// zero-priced placeholders without stock control.
			items = append(items, api.OrderItem{
				ID:          req.ID,
				Quantity:    req.Quantity,
				ProductName: "Unknown Product",
				UnitPrice:   money.Zero(),
				TotalPrice:  money.Zero(),
			})
			continue
		}
		if err != nil {
			return nil, money.Amount{}, err
		}
		if !product.IsActive {
			return nil, money.Amount{}, api.Validationf("product %s is inactive", product.ID)
		}

		if product.HasStockControl {
			current, err := s.stock.CurrentStock(ctx, product.ID)
			if err != nil {
				return nil, money.Amount{}, err
			}
			if current < req.Quantity {
				return nil, money.Amount{}, fmt.Errorf("product %s has %d in stock, requested %d: %w",
					product.ID, current, req.Quantity, api.ErrInsufficientStock)
			}
		}

		totalPrice := product.Price.MulInt(int64(req.Quantity))
		items = append(items, api.OrderItem{
			ID:              product.ID,
			Quantity:        req.Quantity,
			ProductName:     product.Name,
			UnitPrice:       product.Price,
			TotalPrice:      totalPrice,
			HasStockControl: product.HasStockControl,
		})
		totalValue = totalValue.Add(totalPrice)
	}

	return items, totalValue, nil
}

// reserveStock publishes one DECREASE per stock-controlled item with a
// positive quantity, concurrently. The first publish error wins; messages
// already published stay published.
func (s *service) reserveStock(ctx context.Context, orderID string, items []api.OrderItem) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, item := range items {
		if !item.HasStockControl || item.Quantity <= 0 {
			continue
		}
		update := api.StockUpdate{
			ProductID: item.ID,
			Quantity:  item.Quantity,
			Operation: api.StockDecrease,
			OrderID:   orderID,
			Reason:    stockReservationReason,
		}
		g.Go(func() error {
			return s.publisher.Publish(ctx, broker.StockExchange, broker.StockQueue, update, map[string]any{
				"operation": string(update.Operation),
				"productId": update.ProductID,
				"orderId":   update.OrderID,
			})
		})
	}

	return g.Wait()
}

func (s *service) associateLead(ctx context.Context, msg *api.InitializeOrder) (*api.Lead, error) {
	cpf, ok := api.NormalizeCPF(msg.CustomerData.CPF)
	if !ok {
		return nil, api.Validationf("invalid cpf %s", mask.CPF(msg.CustomerData.CPF))
	}
	email, ok := api.NormalizeEmail(msg.CustomerData.Email)
	if !ok {
		return nil, api.Validationf("invalid email")
	}

	lead, _, err := s.leads.FindOrCreate(ctx, api.CustomerData{
		CPF:   cpf,
		Email: email,
		Name:  msg.CustomerData.Name,
	})
	return lead, err
}

func (s *service) dispatchPayment(ctx context.Context, msg *api.InitializeOrder, order *api.Order) {
	if msg.PaymentData.CardNumber == "" || msg.AddressData.Street == "" {
		s.logger.Warn("order has no payment or address data, skipping payment dispatch",
			zap.String("order_id", order.ID),
		)
		return
	}

	request := api.ProcessTransaction{
		OrderID:         order.ID,
		OrderTotalValue: order.TotalValue,
		PaymentData:     msg.PaymentData,
		AddressData:     order.AddressData,
		CustomerData:    order.CustomerData,
	}
	err := s.publisher.Publish(ctx, broker.PaymentExchange, broker.PaymentQueue, request, map[string]any{
		"orderId": order.ID,
		"amount":  order.TotalValue.String(),
		"email":   order.CustomerData.Email,
	})
	if err != nil {
		s.logger.Error("failed to dispatch payment request",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}
}
