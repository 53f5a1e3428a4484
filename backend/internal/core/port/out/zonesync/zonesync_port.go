package zonesync

import "x-gates/backend/internal/core/domain/entity"

// ZoneSync получает финальное состояние ворот ровно один раз на завершенный переход
type ZoneSync interface {
	OnGateStateFinalized(gate *entity.Gate, state entity.AnimationState)
}

// LifecycleNotifier получает события разрушения и респавна
type LifecycleNotifier interface {
	OnGateDestroyed(gate *entity.Gate)
	OnGateRespawned(gate *entity.Gate)
}
