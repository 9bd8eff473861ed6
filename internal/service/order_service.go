package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/aurelia-shop/internal/config"
	"github.com/aurelia-shop/internal/constants"
	"github.com/aurelia-shop/internal/logger"
	"github.com/aurelia-shop/internal/models"
	"github.com/aurelia-shop/internal/queue"
	"github.com/aurelia-shop/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// orderCreateTxTimeout 下单事务超时时间
const orderCreateTxTimeout = 10 * time.Second

// OrderService 订单服务
type OrderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	cartRepo    repository.CartRepository
	addressRepo repository.AddressRepository
	paymentRepo repository.PaymentRepository
	queueClient *queue.Client
	cfg         *config.Config
}

// NewOrderService 创建订单服务
func NewOrderService(orderRepo repository.OrderRepository, productRepo repository.ProductRepository, cartRepo repository.CartRepository, addressRepo repository.AddressRepository, paymentRepo repository.PaymentRepository, queueClient *queue.Client, cfg *config.Config) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		cartRepo:    cartRepo,
		addressRepo: addressRepo,
		paymentRepo: paymentRepo,
		queueClient: queueClient,
		cfg:         cfg,
	}
}

// CreateOrderInput 创建订单输入
type CreateOrderInput struct {
	UserID        uint
	AddressID     uint
	PaymentMethod string
	ClientIP      string
}

// CreateOrder 从购物车快照创建订单。
// 商品价格与地址在下单时冻结，订单、明细、待支付单与库存扣减在同一事务内完成。
func (s *OrderService) CreateOrder(input CreateOrderInput) (*models.Order, error) {
	if input.UserID == 0 || input.AddressID == 0 {
		return nil, ErrInvalidInput
	}
	method := strings.ToLower(strings.TrimSpace(input.PaymentMethod))
	if method == "" {
		method = constants.PaymentMethodStripe
	}
	if method != constants.PaymentMethodStripe && method != constants.PaymentMethodCOD {
		return nil, ErrPaymentMethodNotSupported
	}

	address, err := s.addressRepo.GetByIDAndUser(input.AddressID, input.UserID)
	if err != nil {
		return nil, err
	}
	if address == nil {
		return nil, ErrAddressNotFound
	}

	now := time.Now()
	expireMinutes := s.resolveExpireMinutes()
	expiresAt := now.Add(time.Duration(expireMinutes) * time.Minute)
	orderNo := generateOrderNo()

	var order *models.Order
	var orderItems []models.OrderItem
	ctx, cancel := context.WithTimeout(context.Background(), orderCreateTxTimeout)
	defer cancel()
	err = models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		productRepo := s.productRepo.WithTx(tx)
		cartRepo := s.cartRepo.WithTx(tx)

		// 购物车在事务内重读，结算与清空看到同一份行集，
		// 提交前并发加入的行不会被悄悄清掉。
		cartItems, err := cartRepo.ListByUser(input.UserID)
		if err != nil {
			return err
		}
		if len(cartItems) == 0 {
			return ErrCartEmpty
		}

		subtotal := decimal.Zero
		orderItems = make([]models.OrderItem, 0, len(cartItems))
		for _, item := range cartItems {
			if item.Quantity <= 0 {
				return ErrInvalidCartItem
			}
			product := item.Product
			if product == nil || product.ID == 0 {
				p, err := productRepo.GetByID(item.ProductID)
				if err != nil {
					return err
				}
				product = p
			}
			if product == nil || !product.IsActive {
				return ErrProductNotAvailable
			}
			if product.Stock < item.Quantity {
				return &StockInsufficientError{ProductName: product.Name}
			}
			unitPrice := product.EffectiveUnitPrice()
			lineTotal := normalizeOrderAmount(unitPrice.Decimal.Mul(decimal.NewFromInt(int64(item.Quantity))))
			subtotal = subtotal.Add(lineTotal)
			orderItems = append(orderItems, models.OrderItem{
				ProductID:   product.ID,
				ProductName: product.Name,
				ProductSlug: product.Slug,
				UnitPrice:   unitPrice,
				Quantity:    item.Quantity,
				TotalPrice:  models.NewMoneyFromDecimal(lineTotal),
				CreatedAt:   now,
				UpdatedAt:   now,
			})
		}

		totalAmount := normalizeOrderAmount(subtotal)
		order = &models.Order{
			OrderNo:     orderNo,
			UserID:      input.UserID,
			Status:      constants.OrderStatusPending,
			Currency:    s.resolveSiteCurrency(),
			Subtotal:    models.NewMoneyFromDecimal(subtotal.Round(2)),
			TotalAmount: models.NewMoneyFromDecimal(totalAmount),
			AddressID:   address.ID,
			Recipient:   address.Recipient,
			Phone:       address.Phone,
			Line1:       address.Line1,
			Line2:       address.Line2,
			City:        address.City,
			State:       address.State,
			PostalCode:  address.PostalCode,
			Country:     address.Country,
			ClientIP:    strings.TrimSpace(input.ClientIP),
			ExpiresAt:   &expiresAt,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := orderRepo.Create(order, orderItems); err != nil {
			return err
		}
		if s.paymentRepo != nil {
			payment := &models.Payment{
				OrderID:   order.ID,
				Method:    method,
				Amount:    order.TotalAmount,
				Currency:  order.Currency,
				Status:    constants.PaymentStatusPending,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.paymentRepo.WithTx(tx).Create(payment); err != nil {
				return err
			}
		}
		for _, item := range orderItems {
			affected, err := productRepo.DecrementStock(item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			if affected == 0 {
				return &StockInsufficientError{ProductName: item.ProductName}
			}
		}
		if err := cartRepo.ClearByUser(input.UserID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrStockInsufficient),
			errors.Is(err, ErrCartEmpty),
			errors.Is(err, ErrInvalidCartItem),
			errors.Is(err, ErrProductNotAvailable):
			return nil, err
		}
		logger.Errorw("order_create_tx_failed",
			"user_id", input.UserID,
			"order_no", orderNo,
			"error", err,
		)
		return nil, ErrOrderCreateFailed
	}

	logger.Infow("order_created",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"user_id", order.UserID,
		"total_amount", order.TotalAmount.String(),
		"currency", order.Currency,
		"expires_at", expiresAt,
	)

	// 超时取消任务入队失败不回滚订单，读取路径会懒同步过期状态。
	if s.queueClient != nil && s.queueClient.Enabled() {
		if err := s.queueClient.EnqueueOrderTimeoutCancel(queue.OrderTimeoutCancelPayload{
			OrderID: order.ID,
		}, time.Duration(expireMinutes)*time.Minute); err != nil {
			logger.Warnw("order_enqueue_timeout_cancel_failed",
				"order_id", order.ID,
				"order_no", order.OrderNo,
				"error", err,
			)
		}
	}
	s.enqueueStatusEmail(order.ID, constants.OrderStatusPending)

	full, err := s.orderRepo.GetByID(order.ID)
	if err == nil && full != nil {
		return full, nil
	}
	order.Items = orderItems
	return order, nil
}

// cancelOrder 在事务内取消订单并回补库存、作废未完成支付单
func (s *OrderService) cancelOrder(order *models.Order) error {
	if order == nil {
		return ErrOrderNotFound
	}
	now := time.Now()
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		productRepo := s.productRepo.WithTx(tx)

		updates := map[string]interface{}{
			"canceled_at": now,
			"updated_at":  now,
		}
		if err := orderRepo.UpdateStatus(order.ID, constants.OrderStatusCancelled, updates); err != nil {
			return ErrOrderUpdateFailed
		}
		for _, item := range order.Items {
			if _, err := productRepo.RestoreStock(item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		if s.paymentRepo != nil {
			paymentRepo := s.paymentRepo.WithTx(tx)
			pending, err := paymentRepo.GetPendingByOrderID(order.ID)
			if err != nil {
				return err
			}
			if pending != nil {
				if err := paymentRepo.UpdateFields(pending.ID, map[string]interface{}{
					"status":     constants.PaymentStatusCancelled,
					"updated_at": now,
				}); err != nil {
					return ErrPaymentUpdateFailed
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	order.Status = constants.OrderStatusCancelled
	order.CanceledAt = &now
	order.UpdatedAt = now
	return nil
}

// CancelOrder 用户取消订单，仅允许待支付状态
func (s *OrderService) CancelOrder(orderID uint, userID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status != constants.OrderStatusPending {
		return nil, ErrOrderStatusInvalid
	}
	if err := s.cancelOrder(order); err != nil {
		return nil, ErrOrderUpdateFailed
	}
	s.enqueueStatusEmail(order.ID, constants.OrderStatusCancelled)
	return order, nil
}

// UpdateOrderStatus 管理端更新订单状态，状态流转受流转表约束
func (s *OrderService) UpdateOrderStatus(orderID uint, targetStatus string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	target := strings.ToLower(strings.TrimSpace(targetStatus))
	if !isOrderStatusValid(target) {
		return nil, ErrOrderStatusInvalid
	}
	if !isTransitionAllowed(order.Status, target) {
		return nil, &StatusTransitionError{From: order.Status, To: target}
	}

	if target == constants.OrderStatusCancelled {
		if err := s.cancelOrder(order); err != nil {
			return nil, ErrOrderUpdateFailed
		}
		s.enqueueStatusEmail(order.ID, constants.OrderStatusCancelled)
		return order, nil
	}

	now := time.Now()
	updates := map[string]interface{}{
		"updated_at": now,
	}
	if target == constants.OrderStatusConfirmed && order.PaidAt == nil {
		updates["paid_at"] = now
	}
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.WithTx(tx).UpdateStatus(order.ID, target, updates); err != nil {
			return err
		}
		// 订单与支付单状态同事务联动：人工确认视为已收款，
		// 货到付款的支付单在签收（delivered）时确认。
		if target == constants.OrderStatusConfirmed || target == constants.OrderStatusDelivered {
			return s.confirmPendingPayment(tx, order.ID, now)
		}
		return nil
	})
	if err != nil {
		return nil, ErrOrderUpdateFailed
	}
	order.Status = target
	if paidAt, ok := updates["paid_at"].(time.Time); ok {
		order.PaidAt = &paidAt
	}
	order.UpdatedAt = now
	s.enqueueStatusEmail(order.ID, target)
	return order, nil
}

// confirmPendingPayment 在事务内确认订单尚未完成的支付单
func (s *OrderService) confirmPendingPayment(tx *gorm.DB, orderID uint, now time.Time) error {
	if s.paymentRepo == nil {
		return nil
	}
	paymentRepo := s.paymentRepo.WithTx(tx)
	pending, err := paymentRepo.GetPendingByOrderID(orderID)
	if err != nil {
		return err
	}
	if pending == nil {
		return nil
	}
	if err := paymentRepo.UpdateFields(pending.ID, map[string]interface{}{
		"status":     constants.PaymentStatusConfirmed,
		"paid_at":    now,
		"updated_at": now,
	}); err != nil {
		return ErrPaymentUpdateFailed
	}
	return nil
}

// CancelExpiredOrder 取消超时未支付订单（队列消费侧调用）
func (s *OrderService) CancelExpiredOrder(orderID uint) (*models.Order, error) {
	if orderID == 0 {
		return nil, ErrOrderNotFound
	}
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status != constants.OrderStatusPending {
		return order, nil
	}
	if order.ExpiresAt == nil || order.ExpiresAt.After(time.Now()) {
		return order, nil
	}
	if err := s.cancelOrder(order); err != nil {
		return nil, err
	}
	s.enqueueStatusEmail(order.ID, constants.OrderStatusCancelled)
	return order, nil
}

// ensureOrderCancelledIfExpired 读取时懒同步过期订单状态
func (s *OrderService) ensureOrderCancelledIfExpired(order *models.Order) error {
	if order == nil {
		return nil
	}
	if order.Status != constants.OrderStatusPending {
		return nil
	}
	if order.ExpiresAt == nil || order.ExpiresAt.After(time.Now()) {
		return nil
	}
	if err := s.cancelOrder(order); err != nil {
		return err
	}
	s.enqueueStatusEmail(order.ID, constants.OrderStatusCancelled)
	return nil
}

func (s *OrderService) ensureOrdersCancelledIfExpired(orders []models.Order) error {
	for i := range orders {
		if err := s.ensureOrderCancelledIfExpired(&orders[i]); err != nil {
			return err
		}
	}
	return nil
}

// GetOrderByUser 获取用户订单详情
func (s *OrderService) GetOrderByUser(orderID uint, userID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if err := s.ensureOrderCancelledIfExpired(order); err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrderByUserOrderNo 按订单号获取用户订单详情
func (s *OrderService) GetOrderByUserOrderNo(orderNo string, userID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByOrderNo(strings.TrimSpace(orderNo))
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil || order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	if err := s.ensureOrderCancelledIfExpired(order); err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrdersByUser 获取用户订单列表
func (s *OrderService) ListOrdersByUser(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	orders, total, err := s.orderRepo.ListByUser(filter)
	if err != nil {
		return nil, 0, err
	}
	if err := s.ensureOrdersCancelledIfExpired(orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListOrdersForAdmin 管理端订单列表
func (s *OrderService) ListOrdersForAdmin(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListAdmin(filter)
}

// GetOrderForAdmin 管理端订单详情
func (s *OrderService) GetOrderForAdmin(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) enqueueStatusEmail(orderID uint, status string) {
	if s.queueClient == nil || !s.queueClient.Enabled() || orderID == 0 {
		return
	}
	if err := s.queueClient.EnqueueOrderStatusEmail(queue.OrderStatusEmailPayload{
		OrderID: orderID,
		Status:  strings.TrimSpace(status),
	}); err != nil {
		logger.Warnw("order_enqueue_status_email_failed",
			"order_id", orderID,
			"status", status,
			"error", err,
		)
	}
}

func (s *OrderService) resolveExpireMinutes() int {
	if s.cfg != nil && s.cfg.Order.PaymentExpireMinutes > 0 {
		return s.cfg.Order.PaymentExpireMinutes
	}
	return 15
}

func (s *OrderService) resolveSiteCurrency() string {
	if s.cfg != nil {
		currency := strings.ToLower(strings.TrimSpace(s.cfg.Shop.Currency))
		if currency != "" {
			return currency
		}
	}
	return constants.SiteCurrencyDefault
}

func normalizeOrderAmount(amount decimal.Decimal) decimal.Decimal {
	normalized := amount.Round(2)
	if normalized.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	return normalized
}

func generateOrderNo() string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("AU%s%s", now, randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(n.String())
	}
	return b.String()
}
