package progress

import (
	"sort"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// INTERVAL TRACKER
// Хранит множество непересекающихся просмотренных интервалов видео.
// Вместо записи каждого сэмпла плеера наблюдения сворачиваются в интервалы,
// из которых выводится покрытие без потери точности.
// ══════════════════════════════════════════════════════════════════════════════

// SegmentWidth - ширина одного наблюдения плеера в секундах.
// Плеер присылает позицию раз в секунду воспроизведения, поэтому одно
// наблюдение t покрывает диапазон [t, t+SegmentWidth].
const SegmentWidth = 1.0

// Interval представляет один непрерывный просмотренный отрезок видео.
type Interval struct {
	// Start - начало отрезка в секундах.
	Start shared.Seconds `json:"start"`

	// End - конец отрезка в секундах.
	End shared.Seconds `json:"end"`
}

// Length возвращает длину отрезка.
func (i Interval) Length() shared.Seconds {
	if i.End <= i.Start {
		return 0
	}
	return i.End - i.Start
}

// Contains проверяет, попадает ли позиция t внутрь отрезка.
func (i Interval) Contains(t shared.Seconds) bool {
	return t >= i.Start && t <= i.End
}

// IntervalSet - множество просмотренных отрезков одного видео.
//
// Инвариант: после каждой вставки отрезки попарно не пересекаются и не
// соприкасаются в пределах SegmentWidth. Порядок - по возрастанию Start.
type IntervalSet []Interval

// Observe сворачивает новое наблюдение позиции t в множество.
//
// Кандидат [t, t+SegmentWidth] либо расширяет соседний отрезок (если
// пересекается с ним или лежит в пределах SegmentWidth от его границы),
// либо добавляется новым отрезком. После вставки множество коалесцируется,
// чтобы инвариант держался перед следующей вставкой.
//
// Наблюдения могут приходить в любом порядке: перемотка назад и повторный
// просмотр - валидные сценарии, инвариант они не нарушают.
// Ошибок нет - это чистая операция над структурой данных; персистентность
// обновлённого множества - забота вызывающего кода.
func (s IntervalSet) Observe(t shared.Seconds) IntervalSet {
	if !t.IsValid() {
		return s
	}

	candidate := Interval{Start: t, End: t + SegmentWidth}

	out := make(IntervalSet, len(s), len(s)+1)
	copy(out, s)

	extended := false
	for i := range out {
		if intervalsTouch(out[i], candidate) {
			if candidate.Start < out[i].Start {
				out[i].Start = candidate.Start
			}
			if candidate.End > out[i].End {
				out[i].End = candidate.End
			}
			extended = true
			break
		}
	}

	if !extended {
		out = append(out, candidate)
	}

	return out.coalesce()
}

// coalesce сливает отрезки, которые пересекаются или соприкасаются
// в пределах SegmentWidth: сортировка по Start, один проход, слияние пар.
func (s IntervalSet) coalesce() IntervalSet {
	if len(s) <= 1 {
		return s
	}

	sort.Slice(s, func(i, j int) bool {
		return s[i].Start < s[j].Start
	})

	merged := make(IntervalSet, 0, len(s))
	current := s[0]
	for _, next := range s[1:] {
		if next.Start <= current.End+SegmentWidth {
			if next.End > current.End {
				current.End = next.End
			}
			continue
		}
		merged = append(merged, current)
		current = next
	}
	merged = append(merged, current)

	return merged
}

// Coverage возвращает суммарное отличное время просмотра,
// ограниченное диапазоном [0, duration].
func (s IntervalSet) Coverage(duration shared.Seconds) shared.Seconds {
	var total shared.Seconds
	for _, iv := range s {
		total += iv.Length()
	}
	if duration > 0 && total > duration {
		total = duration
	}
	if total < 0 {
		total = 0
	}
	return total
}

// WatchPercent возвращает процент просмотра: min(100, coverage/duration*100).
// При duration == 0 возвращает 0 (деления на ноль нет).
func (s IntervalSet) WatchPercent(duration shared.Seconds) float64 {
	if duration <= 0 {
		return 0
	}
	pct := float64(s.Coverage(duration)) / float64(duration) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// MaxWatched возвращает максимальную достигнутую позицию -
// max(End) по всем отрезкам. Используется правилом запрета перемотки:
// плеер не даёт перемотать дальше этой отметки.
func (s IntervalSet) MaxWatched() shared.Seconds {
	var max shared.Seconds
	for _, iv := range s {
		if iv.End > max {
			max = iv.End
		}
	}
	return max
}

// IsWatched проверяет, покрыта ли позиция t каким-либо отрезком.
func (s IntervalSet) IsWatched(t shared.Seconds) bool {
	for _, iv := range s {
		if iv.Contains(t) {
			return true
		}
	}
	return false
}

// Clone возвращает независимую копию множества.
func (s IntervalSet) Clone() IntervalSet {
	if s == nil {
		return nil
	}
	out := make(IntervalSet, len(s))
	copy(out, s)
	return out
}

// intervalsTouch проверяет, пересекаются ли отрезки или соприкасаются
// в пределах SegmentWidth.
func intervalsTouch(a, b Interval) bool {
	return a.Start <= b.End+SegmentWidth && b.Start <= a.End+SegmentWidth
}
