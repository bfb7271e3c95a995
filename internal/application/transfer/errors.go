package transfer

import "errors"

var (
	// ErrSelfTransfer 自分自身への送金
	ErrSelfTransfer = errors.New("cannot transfer to yourself")
	// ErrInvalidAmount 送金額が最低額未満または範囲外
	ErrInvalidAmount = errors.New("invalid transfer amount")
)

// InvalidAmountError 送金額エラーの詳細
type InvalidAmountError struct {
	Message string
}

func (e *InvalidAmountError) Error() string {
	return e.Message
}

func (e *InvalidAmountError) Unwrap() error {
	return ErrInvalidAmount
}
