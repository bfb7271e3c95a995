package apierror

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"economy-server/internal/domain/shop"
	"economy-server/internal/domain/ticket"
	"economy-server/internal/domain/wallet"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedOK     bool
		expectedStatus int
		expectedCode   string
		expectedDetail map[string]interface{}
	}{
		{
			name:           "正常系: ラップされたセンチネル",
			err:            fmt.Errorf("failed to debit: %w", wallet.ErrInvalidCurrencyType),
			expectedOK:     true,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_CURRENCY_TYPE",
		},
		{
			name:           "正常系: 詳細付きの残高不足",
			err:            &wallet.InsufficientBalanceError{Required: 1012, Available: 1011},
			expectedOK:     true,
			expectedStatus: http.StatusConflict,
			expectedCode:   "INSUFFICIENT_BALANCE",
			expectedDetail: map[string]interface{}{"required": uint64(1012), "available": uint64(1011)},
		},
		{
			name:           "正常系: 在庫切れ",
			err:            &shop.OutOfStockError{Available: 0, Requested: 1},
			expectedOK:     true,
			expectedStatus: http.StatusConflict,
			expectedCode:   "OUT_OF_STOCK",
			expectedDetail: map[string]interface{}{"available": uint32(0), "requested": uint32(1)},
		},
		{
			name:           "正常系: セッション期限切れ",
			err:            ticket.ErrSessionExpired,
			expectedOK:     true,
			expectedStatus: http.StatusGone,
			expectedCode:   "SESSION_EXPIRED",
		},
		{
			name:           "正常系: 説明文が長すぎる",
			err:            fmt.Errorf("failed to transfer: %w", wallet.ErrInvalidDescription),
			expectedOK:     true,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_DESCRIPTION",
		},
		{
			name: "異常系: 未知のエラー",
			err:  fmt.Errorf("connection refused"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := Classify(tt.err)
			assert.Equal(t, tt.expectedOK, ok)
			assert.Equal(t, tt.expectedStatus, c.Status)
			assert.Equal(t, tt.expectedCode, c.Code)
			assert.Equal(t, tt.expectedDetail, c.Details)
		})
	}
}
