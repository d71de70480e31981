package model

import "time"

// Booking は確定した予約を表す。更新・キャンセルは行わない。
// (MasterID, Date, Time) の組で一意。
type Booking struct {
	ID          string
	MasterID    string
	ClientName  string
	ClientPhone string
	Date        string
	Time        string
	Service     string // 任意
	CreatedAt   time.Time
}

// SlotStatus は1枠分の空き状況。
type SlotStatus struct {
	Time      string
	Available bool
}

// DaySlots は1日分の枠一覧。Slotsは公開時の時刻順を保持する。
type DaySlots struct {
	Date  string
	Slots []SlotStatus
}
