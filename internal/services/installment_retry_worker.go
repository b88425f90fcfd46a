package services

import (
	"context"
	"log"
	"sync"
	"time"

	"fleetrent-backend/internal/models"
)

type dueCharger interface {
	RunDueCharges(ctx context.Context) (*models.RetrySweepResult, error)
}

// InstallmentRetryWorker periodically charges due installments
type InstallmentRetryWorker struct {
	charger  dueCharger
	interval time.Duration
	timeout  time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewInstallmentRetryWorker(charger dueCharger, interval time.Duration) *InstallmentRetryWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &InstallmentRetryWorker{
		charger:  charger,
		interval: interval,
		timeout:  5 * time.Minute,
		stopChan: make(chan struct{}),
	}
}

// Start begins the sweep loop. The first sweep runs one interval after start.
func (w *InstallmentRetryWorker) Start() {
	log.Printf("[InstallmentRetry] Starting, sweeping every %s", w.interval)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.sweep()
			case <-w.stopChan:
				log.Println("[InstallmentRetry] Stopping...")
				return
			}
		}
	}()
}

// Stop ends the loop and waits for an in-flight sweep to finish
func (w *InstallmentRetryWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
}

func (w *InstallmentRetryWorker) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	res, err := w.charger.RunDueCharges(ctx)
	if err != nil {
		log.Printf("[InstallmentRetry] Sweep error: %v", err)
	}
	if res != nil && (res.Attempted > 0 || res.MarkedOverdue > 0) {
		log.Printf("[InstallmentRetry] Attempted %d, paid %d, failed %d, marked overdue %d",
			res.Attempted, res.Paid, res.Failed, res.MarkedOverdue)
	}
}
