package ticket

import "time"

// State ロール交換セッションの状態
type State string

const (
	StateSelectingTicket State = "SELECTING_TICKET"
	StateSelectingRole   State = "SELECTING_ROLE"
	StateConfirming      State = "CONFIRMING"
	StateApplied         State = "APPLIED"
	StateAborted         State = "ABORTED"
	StateExpired         State = "EXPIRED"
)

// Terminal 終端状態かどうかを返す
func (s State) Terminal() bool {
	return s == StateApplied || s == StateAborted || s == StateExpired
}

// Session ロール交換の選択フロー
//
// 選択の各段階にのみタイムアウトがあり、操作のたびに期限が延長される。
type Session struct {
	id           string
	guildID      string
	userID       string
	state        State
	ticketID     int64
	roleOptionID int64
	timeout      time.Duration
	deadline     time.Time
}

// NewSession チケット選択から始まるセッションを作成
func NewSession(id, guildID, userID string, timeout time.Duration, now time.Time) *Session {
	return &Session{
		id:       id,
		guildID:  guildID,
		userID:   userID,
		state:    StateSelectingTicket,
		timeout:  timeout,
		deadline: now.Add(timeout),
	}
}

// ID セッションIDを返す
func (s *Session) ID() string { return s.id }

// GuildID ギルドIDを返す
func (s *Session) GuildID() string { return s.guildID }

// UserID ユーザーIDを返す
func (s *Session) UserID() string { return s.userID }

// State 現在の状態を返す
func (s *Session) State() State { return s.state }

// TicketID 選択されたチケットIDを返す
func (s *Session) TicketID() int64 { return s.ticketID }

// RoleOptionID 選択されたロール選択肢IDを返す
func (s *Session) RoleOptionID() int64 { return s.roleOptionID }

// Deadline 現在の段階の期限を返す
func (s *Session) Deadline() time.Time { return s.deadline }

// Expire 期限を過ぎていればEXPIREDへ遷移し、trueを返す
func (s *Session) Expire(now time.Time) bool {
	if s.state.Terminal() || now.Before(s.deadline) {
		return false
	}
	s.state = StateExpired
	return true
}

// SelectTicket チケットを選択しロール選択へ進む
func (s *Session) SelectTicket(ticketID int64, now time.Time) error {
	if err := s.expect(StateSelectingTicket, now); err != nil {
		return err
	}
	s.ticketID = ticketID
	s.advance(StateSelectingRole, now)
	return nil
}

// SelectRole ロールを選択し確認へ進む
func (s *Session) SelectRole(roleOptionID int64, now time.Time) error {
	if err := s.expect(StateSelectingRole, now); err != nil {
		return err
	}
	s.roleOptionID = roleOptionID
	s.advance(StateConfirming, now)
	return nil
}

// Back 一つ前の段階へ戻る。チケット選択からの戻りは中断になる
func (s *Session) Back(now time.Time) error {
	if s.Expire(now) {
		return ErrSessionExpired
	}
	switch s.state {
	case StateConfirming:
		s.roleOptionID = 0
		s.advance(StateSelectingRole, now)
	case StateSelectingRole:
		s.ticketID = 0
		s.advance(StateSelectingTicket, now)
	case StateSelectingTicket:
		s.state = StateAborted
	default:
		return ErrInvalidTransition
	}
	return nil
}

// Cancel セッションを中断する
func (s *Session) Cancel(now time.Time) error {
	if s.Expire(now) {
		return ErrSessionExpired
	}
	if s.state.Terminal() {
		return ErrInvalidTransition
	}
	s.state = StateAborted
	return nil
}

// ReadyToCommit 確定操作が可能かを検証する
func (s *Session) ReadyToCommit(now time.Time) error {
	return s.expect(StateConfirming, now)
}

// MarkApplied 交換の確定後にAPPLIEDへ遷移
func (s *Session) MarkApplied() error {
	if s.state != StateConfirming {
		return ErrInvalidTransition
	}
	s.state = StateApplied
	return nil
}

// Abort 確定に失敗した場合にABORTEDへ遷移
func (s *Session) Abort() {
	if !s.state.Terminal() {
		s.state = StateAborted
	}
}

func (s *Session) expect(state State, now time.Time) error {
	if s.Expire(now) {
		return ErrSessionExpired
	}
	if s.state != state {
		return ErrInvalidTransition
	}
	return nil
}

func (s *Session) advance(state State, now time.Time) {
	s.state = state
	s.deadline = now.Add(s.timeout)
}
