package booking

import "github.com/Leganyst/autoservice-booking/internal/model"

// Прямой путь жизненного цикла. Порядок важен.
var forwardPath = []model.BookingStatus{
	model.BookingStatusPending,
	model.BookingStatusConfirmed,
	model.BookingStatusInProgress,
	model.BookingStatusCompleted,
}

// Альтернативные терминальные выходы и статусы, из которых они доступны.
var exitSources = map[model.BookingStatus][]model.BookingStatus{
	model.BookingStatusCancelled: {model.BookingStatusPending, model.BookingStatusConfirmed},
	model.BookingStatusNoShow:    {model.BookingStatusPending, model.BookingStatusConfirmed},
}

// IsValidStatus сообщает, известен ли статус.
func IsValidStatus(s model.BookingStatus) bool {
	if forwardIndex(s) >= 0 {
		return true
	}
	_, ok := exitSources[s]
	return ok
}

// IsTerminal: completed, cancelled и no_show не допускают переходов.
func IsTerminal(s model.BookingStatus) bool {
	switch s {
	case model.BookingStatusCompleted, model.BookingStatusCancelled, model.BookingStatusNoShow:
		return true
	default:
		return false
	}
}

func forwardIndex(s model.BookingStatus) int {
	for i, st := range forwardPath {
		if st == s {
			return i
		}
	}
	return -1
}

func isExitSource(exit, from model.BookingStatus) bool {
	for _, src := range exitSources[exit] {
		if src == from {
			return true
		}
	}
	return false
}

// checkTransition проверяет переход from -> to с учётом роли.
// Пропуск шагов прямого пути разрешён только при явном override
// и только привилегированным ролям.
func checkTransition(from, to model.BookingStatus, actor Actor, override bool) error {
	if !IsValidStatus(to) {
		return Validationf("status", "unknown status %q", to)
	}
	if IsTerminal(from) {
		return &InvalidTransitionError{From: from, To: to, Reason: "booking is in a terminal state"}
	}
	if from == to {
		return &InvalidTransitionError{From: from, To: to, Reason: "booking is already in this status"}
	}

	if _, ok := exitSources[to]; ok {
		if !isExitSource(to, from) {
			return &InvalidTransitionError{From: from, To: to, Reason: "not allowed from the current status"}
		}
		return nil
	}

	fi, ti := forwardIndex(from), forwardIndex(to)
	switch {
	case ti <= fi:
		return &InvalidTransitionError{From: from, To: to, Reason: "backward transitions are not allowed"}
	case ti == fi+1:
		return nil
	case !override:
		return &InvalidTransitionError{From: from, To: to, Reason: "transition skips required steps; override required"}
	case !actor.Privileged():
		return &AuthorizationError{Reason: "only admins and service center staff may override the status order"}
	default:
		return nil
	}
}
