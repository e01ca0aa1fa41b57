package sink

import (
	"go.uber.org/zap"

	"swapScope/internal/model"
)

// Console renders quotes to the log in both price directions.
type Console struct {
	logger *zap.Logger
}

func NewConsole(logger *zap.Logger) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{logger: logger}
}

// Publish logs the quote as "1 SYM1 = <p> SYM0, 1 SYM0 = <p> SYM1".
func (c *Console) Publish(quote model.PriceQuote) error {
	c.logger.Info("price quote",
		zap.String("pool", quote.Pool),
		zap.String("pair", quote.Symbol0+"/"+quote.Symbol1),
		zap.String("1_"+quote.Symbol1, quote.Price0PerToken1+" "+quote.Symbol0),
		zap.String("1_"+quote.Symbol0, quote.Price1PerToken0+" "+quote.Symbol1),
		zap.Uint64("block", quote.BlockNumber),
		zap.String("tx", quote.TxHash),
	)
	return nil
}
