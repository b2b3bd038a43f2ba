package model

import (
	"errors"
	"fmt"
)

var (
	// ErrMarketDataUnavailable 行情不可用：本周期不交易，下周期重试
	ErrMarketDataUnavailable = errors.New("market data unavailable")
	// ErrBalanceUnavailable 余额查询失败：本周期不交易
	ErrBalanceUnavailable = errors.New("balance unavailable")
	// ErrIdleTimeout 空闲超时：循环终止，需要外部重启
	ErrIdleTimeout = errors.New("idle timeout")
	// ErrConfigInvalid 配置非法：启动即失败
	ErrConfigInvalid = errors.New("invalid configuration")
)

// OrderRejectedError 交易所拒单
type OrderRejectedError struct {
	Reason string
}

func (e *OrderRejectedError) Error() string {
	return fmt.Sprintf("order rejected: %s", e.Reason)
}

// IsOrderRejected reports whether err is an exchange order rejection.
func IsOrderRejected(err error) bool {
	var oe *OrderRejectedError
	return errors.As(err, &oe)
}
