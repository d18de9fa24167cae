package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/checkout"
	"github.com/Dor212/FinalProject-Client-TattooWeb--sub000/internal/middleware"
)

// LogNotifier records accepted orders in the log when no broker is configured.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) OrderSubmitted(ctx context.Context, sub checkout.Submission) error {
	n.Logger.Info("order accepted",
		zap.String("cart_key", sub.CartKey),
		zap.String("kind", string(sub.Kind)),
		zap.String("order_id", sub.Receipt.OrderID),
		zap.Int("lines", len(sub.Lines)),
		zap.String("amount", sub.Amount.String()),
		zap.String("correlation_id", middleware.GetCorrelationID(ctx)),
	)
	return nil
}
