package progress

import (
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/course"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GATING EVALUATOR
// Строгий линейный гейт: материал i доступен только после выполнения
// материала i-1. Чистая функция от (авторский порядок, множество выполненных) -
// без скрытого состояния, пересчитывается на каждый запрос и никогда не
// кешируется между запросами, так как выполнение меняется конкурентно.
// ══════════════════════════════════════════════════════════════════════════════

// MaterialAccess описывает доступность одного материала для студента.
type MaterialAccess struct {
	// Material - материал из снимка курса.
	Material course.Material

	// Index - позиция в авторском порядке.
	Index int

	// Unlocked - доступен ли материал.
	Unlocked bool

	// Completed - выполнен ли материал.
	Completed bool
}

// GateResult - результат вычисления гейта для всего курса.
type GateResult struct {
	// Access - доступность каждого материала в авторском порядке.
	Access []MaterialAccess

	// NextUnlockedIndex - наименьший индекс невыполненного материала,
	// или len(materials), если выполнены все. Это граница фронтира:
	// всё до неё (и она сама) доступно, всё после - заблокировано.
	NextUnlockedIndex int
}

// EvaluateGate вычисляет доступность материалов.
//
// Правило: индекс 0 всегда доступен; индекс i > 0 доступен тогда и только
// тогда, когда материал i-1 выполнен. Получается единственный фронтир:
// первый невыполненный материал доступен, всё за ним заблокировано.
func EvaluateGate(materials []course.Material, completed map[shared.MaterialID]struct{}) GateResult {
	result := GateResult{
		Access:            make([]MaterialAccess, len(materials)),
		NextUnlockedIndex: len(materials),
	}

	frontierFound := false
	for i, m := range materials {
		_, done := completed[m.ID]

		unlocked := i == 0
		if i > 0 {
			_, prevDone := completed[materials[i-1].ID]
			unlocked = prevDone
		}

		result.Access[i] = MaterialAccess{
			Material:  m,
			Index:     i,
			Unlocked:  unlocked,
			Completed: done,
		}

		if !done && !frontierFound {
			result.NextUnlockedIndex = i
			frontierFound = true
		}
	}

	return result
}

// IsUnlocked проверяет доступность материала с индексом index.
// Удобная обёртка для точки принуждения: любая мутация, отмечающая
// материал выполненным, обязана отклонить запрос, если гейт сообщает,
// что материал заблокирован.
func (r GateResult) IsUnlocked(index int) bool {
	if index < 0 || index >= len(r.Access) {
		return false
	}
	return r.Access[index].Unlocked
}

// IsCompleted проверяет, выполнен ли материал с индексом index.
func (r GateResult) IsCompleted(index int) bool {
	if index < 0 || index >= len(r.Access) {
		return false
	}
	return r.Access[index].Completed
}

// AllCompleted проверяет, выполнены ли все материалы.
func (r GateResult) AllCompleted() bool {
	return r.NextUnlockedIndex >= len(r.Access)
}
