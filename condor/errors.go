package condor

import (
	"errors"
	"fmt"
)

// Kind は呼び出し側がレスポンスに変換するためのエラー種別
type Kind string

const (
	KindInvalidPhaseTransition Kind = "INVALID_PHASE_TRANSITION"
	KindInsufficientPlayers    Kind = "INSUFFICIENT_PLAYERS"
	KindPlayersNotReady        Kind = "PLAYERS_NOT_READY"
	KindConflictingSelection   Kind = "CONFLICTING_SELECTION"
	KindNotReady               Kind = "NOT_READY"
	KindDuplicateVote          Kind = "DUPLICATE_VOTE"
	KindRoundMismatch          Kind = "ROUND_MISMATCH"
	KindRoleMismatch           Kind = "ROLE_MISMATCH"
	KindPhaseNotAllowed        Kind = "PHASE_NOT_ALLOWED"
	KindQuotaExceeded          Kind = "QUOTA_EXCEEDED"
	KindInvalidTarget          Kind = "INVALID_TARGET"
	KindWriteConflict          Kind = "WRITE_CONFLICT"
	KindNotFound               Kind = "NOT_FOUND"
	KindRoomFull               Kind = "ROOM_FULL"
	KindInvalidSelection       Kind = "INVALID_SELECTION"

	// KindInternal はError以外のエラー(DB障害など)に対してKindOfが返す
	KindInternal Kind = "INTERNAL"
)

// SelectionKind はConflictingSelectionでどちらが重複したか
type SelectionKind string

const (
	SelectionRole  SelectionKind = "role"
	SelectionColor SelectionKind = "color"
)

// Error はゲームエンジンの全操作が返す型付きエラー
type Error struct {
	Kind    Kind
	Message string

	// PlayersNotReadyのときの未準備人数
	Count int
	// ConflictingSelectionのときの重複種別
	Selection SelectionKind

	Err error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is は種別が同じErrorを等しいとみなす。errors.Is(err, &Error{Kind: KindDuplicateVote}) のように使う
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf はエラーの種別を取り出す。型付きエラーでなければKindInternal
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind はerrが指定した種別かどうか
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// storageError はリポジトリのエラーをエンジンの種別に変換する。
// それ以外のエラーはインフラ障害としてそのまま包む
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return &Error{Kind: KindNotFound, Message: op, Err: err}
	case errors.Is(err, ErrConflict):
		return &Error{Kind: KindWriteConflict, Message: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
