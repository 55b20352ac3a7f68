// Package notify delivers low-stock advisories out of band. Checkout enqueues
// a task per alert after a successful commit; a worker process consumes the
// queue so a slow or failing notification can never delay a sale.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/cedarpos/backend/internal/sale"
)

// TaskLowStock is the asynq task type for low-stock advisories.
const TaskLowStock = "notify:low_stock"

// Enqueuer publishes low-stock tasks.
type Enqueuer struct {
	Client *asynq.Client
	Logger *zerolog.Logger
}

// EnqueueLowStock publishes one alert. A nil client makes it a no-op so the
// engine can run without a queue in tests and single-process setups.
func (e *Enqueuer) EnqueueLowStock(ctx context.Context, alert sale.LowStockAlert) error {
	if e == nil || e.Client == nil {
		return nil
	}
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal low stock alert: %w", err)
	}
	task := asynq.NewTask(TaskLowStock, payload, asynq.MaxRetry(5))
	if _, err := e.Client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue low stock alert: %w", err)
	}
	if e.Logger != nil {
		e.Logger.Debug().
			Str("product_id", alert.ProductID.String()).
			Int("remaining", alert.Remaining).
			Msg("low stock alert enqueued")
	}
	return nil
}

// Notifier receives decoded alerts on the worker side. Implementations push
// to whatever channel the merchant configured.
type Notifier interface {
	NotifyLowStock(ctx context.Context, alert sale.LowStockAlert) error
}

// Worker consumes low-stock tasks.
type Worker struct {
	Notifier Notifier
	Logger   *zerolog.Logger
}

// Register attaches the worker's handlers to an asynq mux.
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskLowStock, w.handleLowStock)
}

func (w *Worker) handleLowStock(ctx context.Context, task *asynq.Task) error {
	var alert sale.LowStockAlert
	if err := json.Unmarshal(task.Payload(), &alert); err != nil {
		// Malformed payloads will never succeed; drop instead of retrying.
		if w.Logger != nil {
			w.Logger.Error().Err(err).Msg("dropping malformed low stock task")
		}
		return nil
	}
	if w.Notifier == nil {
		if w.Logger != nil {
			w.Logger.Info().
				Str("merchant_id", alert.MerchantID.String()).
				Str("product", alert.Name).
				Int("remaining", alert.Remaining).
				Int("min_stock", alert.MinStock).
				Msg("low stock")
		}
		return nil
	}
	if err := w.Notifier.NotifyLowStock(ctx, alert); err != nil {
		return fmt.Errorf("notify low stock: %w", err)
	}
	return nil
}
