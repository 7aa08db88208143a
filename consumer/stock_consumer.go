package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"salon-manager/monitoring"
	"salon-manager/utils"
)

type stockLevel struct {
	ProductID     uint   `json:"product_id"`
	Name          string `json:"name"`
	PreviousStock *int   `json:"previous_stock"`
	Stock         int    `json:"stock"`
}

// fellTo reports whether the stock went from above threshold to at or below it.
func (l stockLevel) fellTo(threshold int) bool {
	return l.PreviousStock != nil && *l.PreviousStock > threshold && l.Stock <= threshold
}

// StockConsumer raises a low stock alert when a product's stock falls to the
// threshold.
type StockConsumer struct {
	reader    MessageReader
	threshold int
	log       logrus.FieldLogger
}

func NewStockConsumer(reader MessageReader, threshold int, log logrus.FieldLogger) *StockConsumer {
	return &StockConsumer{
		reader:    reader,
		threshold: threshold,
		log:       log.WithField("consumer", utils.TopicStockEvents),
	}
}

func (s *StockConsumer) Run(ctx context.Context) {
	s.log.Info("starting stock consumer")
	run(ctx, s.reader, s.log, s.Handle)
	s.log.Info("stock consumer stopped")
}

func (s *StockConsumer) Close() error {
	return s.reader.Close()
}

func (s *StockConsumer) Handle(ctx context.Context, event utils.Event) error {
	if event.Event != "stock_changed" {
		return nil
	}
	var level stockLevel
	if err := json.Unmarshal(event.Data, &level); err != nil {
		return fmt.Errorf("failed to decode stock level: %w", err)
	}
	if !level.fellTo(s.threshold) {
		return nil
	}

	monitoring.LowStockAlerts.Inc()
	s.log.WithFields(logrus.Fields{
		"product_id": level.ProductID,
		"product":    level.Name,
		"previous":   *level.PreviousStock,
		"stock":      level.Stock,
		"threshold":  s.threshold,
	}).Warn("low stock")
	return nil
}
