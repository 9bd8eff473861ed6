package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/aurelia-shop/internal/config"
	"github.com/aurelia-shop/internal/constants"
	"github.com/aurelia-shop/internal/models"
	"github.com/aurelia-shop/internal/provider"
	"github.com/aurelia-shop/internal/queue"
	"github.com/aurelia-shop/internal/repository"
	"github.com/aurelia-shop/internal/service"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

func setupConsumerTest(t *testing.T, migrate bool) *Consumer {
	t.Helper()
	dsn := fmt.Sprintf("file:consumer_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if migrate {
		if err := db.AutoMigrate(
			&models.Product{},
			&models.Order{},
			&models.OrderItem{},
			&models.Payment{},
		); err != nil {
			t.Fatalf("auto migrate failed: %v", err)
		}
	}
	models.DB = db
	svc := service.NewOrderService(
		repository.NewOrderRepository(db),
		repository.NewProductRepository(db),
		repository.NewCartRepository(db),
		repository.NewAddressRepository(db),
		repository.NewPaymentRepository(db),
		nil,
		&config.Config{},
	)
	return NewConsumer(&provider.Container{OrderService: svc})
}

func newTimeoutCancelTask(t *testing.T, orderID uint) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(queue.OrderTimeoutCancelPayload{OrderID: orderID})
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	return asynq.NewTask(constants.TaskOrderTimeoutCancel, payload)
}

func TestHandleOrderTimeoutCancelSkipsMissingOrder(t *testing.T) {
	consumer := setupConsumerTest(t, true)

	if err := consumer.handleOrderTimeoutCancel(context.Background(), newTimeoutCancelTask(t, 999)); err != nil {
		t.Fatalf("expected missing order to be skipped without retry, got: %v", err)
	}
}

func TestHandleOrderTimeoutCancelRetriesOnFetchFailure(t *testing.T) {
	// 不建表让订单读取报错，瞬时读库失败必须冒泡触发任务重试
	consumer := setupConsumerTest(t, false)

	if err := consumer.handleOrderTimeoutCancel(context.Background(), newTimeoutCancelTask(t, 42)); err == nil {
		t.Fatalf("expected fetch failure to surface so the task retries")
	}
}
