package port

import (
	"context"

	"triarb/internal/domain/model"
)

// Exchange 交易所能力接口：行情快照、余额、下单
// 实现方负责把失败映射到 model 的错误分类
// (ErrMarketDataUnavailable / ErrBalanceUnavailable / OrderRejectedError)。
type Exchange interface {
	GetSnapshot(ctx context.Context, instruments []model.Instrument) (*model.MarketSnapshot, error)
	GetBalance(ctx context.Context, currency string) (float64, error)
	PlaceOrder(ctx context.Context, req model.OrderRequest) (string, error)
}

// Tick 带外价格更新（ws 推送）
type Tick struct {
	Instrument string  // "BTC/USD"
	Price      float64 // last traded price
	Ts         int64   // unix ms
}

// PriceFeed streams out-of-band ticker updates between snapshot polls.
type PriceFeed interface {
	Name() string
	Subscribe(ctx context.Context, instruments []model.Instrument) (<-chan Tick, error)
}
