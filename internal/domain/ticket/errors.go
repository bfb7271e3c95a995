package ticket

import "errors"

var (
	// ErrTicketNotFound チケットが見つからない
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrRoleOptionNotFound ロール選択肢がチケットに属していない
	ErrRoleOptionNotFound = errors.New("role option not found")
	// ErrItemNotOwned チケットの元となるアイテムを所持していない
	ErrItemNotOwned = errors.New("item not owned")
	// ErrItemExpired アイテムの有効期限切れ
	ErrItemExpired = errors.New("item expired")
	// ErrInvalidTicket チケット定義が無効
	ErrInvalidTicket = errors.New("invalid ticket")
	// ErrInvalidTransition 現在の状態では実行できない操作
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrSessionExpired 選択時間切れ
	ErrSessionExpired = errors.New("session expired")
	// ErrSessionNotFound セッションが見つからない
	ErrSessionNotFound = errors.New("session not found")
)
