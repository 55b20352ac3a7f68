package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/cedarpos/backend/internal/sale"
)

type recordingNotifier struct {
	alerts []sale.LowStockAlert
	err    error
}

func (r *recordingNotifier) NotifyLowStock(_ context.Context, alert sale.LowStockAlert) error {
	if r.err != nil {
		return r.err
	}
	r.alerts = append(r.alerts, alert)
	return nil
}

func TestWorkerHandlesLowStockTask(t *testing.T) {
	alert := sale.LowStockAlert{
		MerchantID: uuid.New(),
		ProductID:  uuid.New(),
		Name:       "Sumac",
		Remaining:  2,
		MinStock:   5,
	}
	payload, err := json.Marshal(alert)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	notifier := &recordingNotifier{}
	w := &Worker{Notifier: notifier}
	if err := w.handleLowStock(context.Background(), asynq.NewTask(TaskLowStock, payload)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(notifier.alerts) != 1 || notifier.alerts[0].Name != "Sumac" {
		t.Fatalf("unexpected alerts: %+v", notifier.alerts)
	}
}

func TestWorkerDropsMalformedPayload(t *testing.T) {
	w := &Worker{Notifier: &recordingNotifier{}}
	if err := w.handleLowStock(context.Background(), asynq.NewTask(TaskLowStock, []byte("{not json"))); err != nil {
		t.Fatalf("malformed payload should be dropped, got %v", err)
	}
}

func TestWorkerPropagatesNotifierError(t *testing.T) {
	alert := sale.LowStockAlert{ProductID: uuid.New()}
	payload, _ := json.Marshal(alert)
	w := &Worker{Notifier: &recordingNotifier{err: errors.New("smtp down")}}
	if err := w.handleLowStock(context.Background(), asynq.NewTask(TaskLowStock, payload)); err == nil {
		t.Fatal("expected error so asynq retries the task")
	}
}

func TestEnqueuerWithoutClientIsNoop(t *testing.T) {
	var e *Enqueuer
	if err := e.EnqueueLowStock(context.Background(), sale.LowStockAlert{}); err != nil {
		t.Fatalf("nil enqueuer: %v", err)
	}
	e = &Enqueuer{}
	if err := e.EnqueueLowStock(context.Background(), sale.LowStockAlert{}); err != nil {
		t.Fatalf("clientless enqueuer: %v", err)
	}
}
