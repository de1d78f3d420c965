package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorledger-backend/internal/commission"
	dbpkg "github.com/angelmondragon/vendorledger-backend/pkg/db"
	"github.com/angelmondragon/vendorledger-backend/pkg/db/models"
	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorledger-backend/pkg/errors"
	"github.com/angelmondragon/vendorledger-backend/pkg/logger"
	"github.com/angelmondragon/vendorledger-backend/pkg/money"
	"github.com/angelmondragon/vendorledger-backend/pkg/outbox"
	"github.com/angelmondragon/vendorledger-backend/pkg/outbox/payloads"
)

const maxOrderItems = 200

// Service records paid orders and drives per-item fulfillment.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error)
	UpdateItemStatus(ctx context.Context, input UpdateItemStatusInput) (*models.OrderItem, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ledgerWriter interface {
	CreditVendorBalance(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, amount decimal.Decimal, reasonRef string) (*models.VendorBalances, error)
	RecordShortfall(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, amount decimal.Decimal, reference string, metadata any) error
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	ledger   ledgerWriter
	defaults commission.VendorConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, ledger ledgerWriter, defaults commission.VendorConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		outbox:   outbox,
		ledger:   ledger,
		defaults: defaults,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	input.BuyerRef = strings.TrimSpace(input.BuyerRef)
	input.PaymentRef = strings.TrimSpace(input.PaymentRef)
	if input.BuyerRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer ref required")
	}
	if input.PaymentRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment ref required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	if len(input.Items) > maxOrderItems {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("order exceeds %d items", maxOrderItems))
	}
	if input.ShippingFee.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping fee must not be negative")
	}

	existing, err := s.repo.FindOrderByPaymentRef(ctx, input.PaymentRef)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check payment ref")
	}

	configs, err := s.repo.VendorCommissions(ctx, vendorIDs(input.Items))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor commissions")
	}

	now := s.now().UTC()
	order := &models.Order{
		ID:          uuid.New(),
		BuyerRef:    input.BuyerRef,
		PaymentRef:  input.PaymentRef,
		ShippingFee: money.Round(input.ShippingFee),
		PlacedAt:    now,
	}

	subtotal := decimal.Zero
	lines := make([]Line, 0, len(input.Items))
	for i, in := range input.Items {
		if strings.TrimSpace(in.ProductRef) == "" || strings.TrimSpace(in.Title) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d requires product ref and title", i))
		}
		var vendorCfg *commission.VendorConfig
		if in.VendorID != nil {
			if cfg, ok := configs[*in.VendorID]; ok {
				vendorCfg = &cfg
			}
		}
		result, err := commission.Calculate(
			commission.Item{Price: in.Price, Quantity: in.Quantity, VendorID: in.VendorID},
			vendorCfg,
			commission.Options{Default: s.defaults},
		)
		if err != nil {
			return nil, err
		}
		rounded := result.Rounded()

		order.Items = append(order.Items, models.OrderItem{
			ID:                  uuid.New(),
			OrderID:             order.ID,
			VendorID:            in.VendorID,
			ProductRef:          strings.TrimSpace(in.ProductRef),
			Title:               strings.TrimSpace(in.Title),
			Price:               money.Round(in.Price),
			Quantity:            in.Quantity,
			ItemRevenue:         rounded.ItemRevenue,
			VendorEarning:       rounded.VendorEarning,
			PlatformCommission:  rounded.PlatformCommission,
			CommissionType:      rounded.CommissionType,
			CommissionRate:      rounded.CommissionRate,
			CommissionShortfall: rounded.Shortfall,
			VendorStatus:        enums.ItemVendorStatusReceived,
			CreatedAt:           now.Add(time.Duration(i) * time.Microsecond),
			UpdatedAt:           now,
		})
		lines = append(lines, Line{VendorID: in.VendorID, Quantity: in.Quantity, Result: rounded})
		subtotal = subtotal.Add(rounded.ItemRevenue)
	}
	order.Subtotal = subtotal
	order.Total = subtotal.Add(order.ShippingFee)

	for pos, summary := range SplitByVendor(lines) {
		order.VendorSummaries = append(order.VendorSummaries, models.OrderVendorSummary{
			OrderID:            order.ID,
			VendorID:           summary.VendorID,
			Position:           pos,
			ItemCount:          summary.ItemCount,
			TotalRevenue:       summary.TotalRevenue,
			TotalCommission:    summary.TotalCommission,
			TotalVendorEarning: summary.TotalVendorEarning,
		})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateOrder(ctx, order); err != nil {
			return err
		}
		for _, item := range order.Items {
			if !item.CommissionShortfall.IsPositive() || item.VendorID == nil {
				continue
			}
			if err := s.recordShortfall(ctx, tx, order.ID, item); err != nil {
				return err
			}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			OccurredAt:    now,
			Data:          orderPlacedPayload(order),
		})
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_orders_payment_ref") {
			if existing, findErr := s.repo.FindOrderByPaymentRef(ctx, input.PaymentRef); findErr == nil {
				return existing, nil
			}
		}
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
	}
	return order, nil
}

func (s *service) recordShortfall(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, item models.OrderItem) error {
	commissionAmount := item.PlatformCommission
	meta := payloads.CommissionShortfallEvent{
		OrderID:        orderID,
		ItemID:         item.ID,
		VendorID:       *item.VendorID,
		ItemRevenue:    item.ItemRevenue,
		Commission:     commissionAmount,
		Shortfall:      item.CommissionShortfall,
		CommissionRate: item.CommissionRate,
		Quantity:       item.Quantity,
	}
	if err := s.ledger.RecordShortfall(ctx, tx, *item.VendorID, item.CommissionShortfall, itemReference(item.ID), meta); err != nil {
		return err
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventCommissionShortfall,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Data:          meta,
	})
}

func (s *service) UpdateItemStatus(ctx context.Context, input UpdateItemStatusInput) (*models.OrderItem, error) {
	if input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid item status")
	}

	var updated *models.OrderItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindItem(ctx, input.ItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order item")
		}
		if input.VendorID != nil && (item.VendorID == nil || *item.VendorID != *input.VendorID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order item does not belong to vendor")
		}
		if item.VendorStatus == input.Status {
			updated = item
			return nil
		}
		if !item.VendorStatus.CanTransitionTo(input.Status) {
			return itemTransitionError(item.VendorStatus, input.Status)
		}

		at := s.now().UTC()
		rows, err := repo.TransitionItemStatus(ctx, item.ID, item.VendorStatus, input.Status, at)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item status")
		}
		if rows == 0 {
			current, err := repo.FindItem(ctx, item.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order item")
			}
			return itemTransitionError(current.VendorStatus, input.Status)
		}

		item.VendorStatus = input.Status
		item.UpdatedAt = at
		if input.Status == enums.ItemVendorStatusDelivered {
			item.DeliveredAt = &at
			if err := s.recognizeEarning(ctx, tx, item, input); err != nil {
				return err
			}
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// recognizeEarning credits the vendor's available balance for a delivered
// item. The caller's status CAS guarantees this runs once per item.
func (s *service) recognizeEarning(ctx context.Context, tx *gorm.DB, item *models.OrderItem, input UpdateItemStatusInput) error {
	if item.VendorID == nil || !item.VendorEarning.IsPositive() {
		return nil
	}
	if _, err := s.ledger.CreditVendorBalance(ctx, tx, *item.VendorID, item.VendorEarning, itemReference(item.ID)); err != nil {
		return err
	}
	var actor *outbox.ActorRef
	if input.ActorUserID != uuid.Nil {
		actor = &outbox.ActorRef{UserID: input.ActorUserID, VendorID: input.VendorID, Role: input.ActorRole.String()}
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderItemDelivered,
		AggregateType: enums.AggregateOrder,
		AggregateID:   item.OrderID,
		Actor:         actor,
		Data: payloads.OrderItemDeliveredEvent{
			OrderID:       item.OrderID,
			ItemID:        item.ID,
			VendorID:      *item.VendorID,
			VendorEarning: item.VendorEarning,
			DeliveredAt:   *item.DeliveredAt,
		},
	})
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrder(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func itemTransitionError(current, target enums.ItemVendorStatus) error {
	msg := fmt.Sprintf("order item cannot move from %s to %s", current, target)
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, msg).WithDetails(pkgerrors.TransitionDetails{
		CurrentStatus:  string(current),
		RequiredStatus: string(target),
	})
}

func itemReference(itemID uuid.UUID) string {
	return "order_item:" + itemID.String()
}

func vendorIDs(items []PlaceOrderItem) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0)
	for _, item := range items {
		if item.VendorID == nil || *item.VendorID == uuid.Nil {
			continue
		}
		if _, ok := seen[*item.VendorID]; ok {
			continue
		}
		seen[*item.VendorID] = struct{}{}
		ids = append(ids, *item.VendorID)
	}
	return ids
}

func orderPlacedPayload(order *models.Order) payloads.OrderPlacedEvent {
	out := payloads.OrderPlacedEvent{OrderID: order.ID, Total: order.Total}
	for _, summary := range order.VendorSummaries {
		out.Vendors = append(out.Vendors, payloads.OrderVendorPayload{
			VendorID:           summary.VendorID,
			ItemCount:          summary.ItemCount,
			TotalRevenue:       summary.TotalRevenue,
			TotalCommission:    summary.TotalCommission,
			TotalVendorEarning: summary.TotalVendorEarning,
		})
	}
	return out
}
