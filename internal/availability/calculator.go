// Package availability は公開スケジュールと予約から空き枠を算出する。
package availability

import (
	"slices"
	"strings"

	"github.com/hitoshi/salonbook/internal/model"
)

type slotKey struct {
	date string
	time string
}

// Calculate はスケジュールと予約から日付ごとの枠状況を返す。
// 各時刻は同じ (date, time) の予約がなければ空き。比較はトリム後の完全一致で、
// "9:00" と "09:00" は別の枠として扱う。
// 日付は昇順、日付内の時刻は公開時の順序を保つ。有効な時刻を持たない日付は含めない。
func Calculate(entries []model.ScheduleEntry, bookings []*model.Booking) []model.DaySlots {
	booked := make(map[slotKey]struct{}, len(bookings))
	for _, b := range bookings {
		booked[slotKey{date: strings.TrimSpace(b.Date), time: strings.TrimSpace(b.Time)}] = struct{}{}
	}

	byDate := make(map[string]int, len(entries))
	days := []model.DaySlots{}
	for _, entry := range entries {
		date := strings.TrimSpace(entry.Date)
		for _, t := range model.NormalizeTimes(entry.Times) {
			idx, ok := byDate[date]
			if !ok {
				days = append(days, model.DaySlots{Date: date})
				idx = len(days) - 1
				byDate[date] = idx
			}
			_, taken := booked[slotKey{date: date, time: t}]
			days[idx].Slots = append(days[idx].Slots, model.SlotStatus{Time: t, Available: !taken})
		}
	}

	slices.SortStableFunc(days, func(a, b model.DaySlots) int {
		return strings.Compare(a.Date, b.Date)
	})
	return days
}

// FreeCount は空き枠の総数を返す。
func FreeCount(days []model.DaySlots) int {
	n := 0
	for _, day := range days {
		for _, slot := range day.Slots {
			if slot.Available {
				n++
			}
		}
	}
	return n
}
