package ticket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_HappyPath(t *testing.T) {
	s := NewSession("s1", "1", "2", time.Minute, now)
	assert.Equal(t, StateSelectingTicket, s.State())

	require.NoError(t, s.SelectTicket(7, now.Add(30*time.Second)))
	assert.Equal(t, StateSelectingRole, s.State())

	// 操作ごとに期限が延長される
	require.NoError(t, s.SelectRole(2, now.Add(80*time.Second)))
	assert.Equal(t, StateConfirming, s.State())

	require.NoError(t, s.ReadyToCommit(now.Add(100*time.Second)))
	require.NoError(t, s.MarkApplied())
	assert.Equal(t, StateApplied, s.State())
	assert.Equal(t, int64(7), s.TicketID())
	assert.Equal(t, int64(2), s.RoleOptionID())
}

func TestSession_Transitions(t *testing.T) {
	tests := []struct {
		name      string
		run       func(s *Session) error
		wantErr   error
		wantState State
	}{
		{
			name: "異常系: チケット未選択でロール選択",
			run: func(s *Session) error {
				return s.SelectRole(1, now)
			},
			wantErr:   ErrInvalidTransition,
			wantState: StateSelectingTicket,
		},
		{
			name: "異常系: 確認前の確定",
			run: func(s *Session) error {
				_ = s.SelectTicket(7, now)
				return s.ReadyToCommit(now)
			},
			wantErr:   ErrInvalidTransition,
			wantState: StateSelectingRole,
		},
		{
			name: "正常系: 確認から戻るとロール選択",
			run: func(s *Session) error {
				_ = s.SelectTicket(7, now)
				_ = s.SelectRole(1, now)
				return s.Back(now)
			},
			wantState: StateSelectingRole,
		},
		{
			name: "正常系: チケット選択から戻ると中断",
			run: func(s *Session) error {
				return s.Back(now)
			},
			wantState: StateAborted,
		},
		{
			name: "正常系: キャンセル",
			run: func(s *Session) error {
				_ = s.SelectTicket(7, now)
				return s.Cancel(now)
			},
			wantState: StateAborted,
		},
		{
			name: "異常系: 選択時間切れ",
			run: func(s *Session) error {
				_ = s.SelectTicket(7, now)
				return s.SelectRole(1, now.Add(2*time.Minute))
			},
			wantErr:   ErrSessionExpired,
			wantState: StateExpired,
		},
		{
			name: "異常系: 終端状態からの操作",
			run: func(s *Session) error {
				_ = s.Cancel(now)
				return s.Cancel(now)
			},
			wantErr:   ErrInvalidTransition,
			wantState: StateAborted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession("s1", "1", "2", time.Minute, now)
			err := tt.run(s)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantState, s.State())
		})
	}
}
