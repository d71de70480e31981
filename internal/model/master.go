// Package model はドメインモデルを定義する。
package model

import "time"

// Master は予約枠を提供する施術者を表す。
// 登録後は変更しない。
type Master struct {
	ID string
	// OwnerID はフロントエンド（チャットボット）側のアカウントIDとの紐付け。
	// 紐付けがない場合はnil。存在する場合はmasters全体で一意。
	OwnerID   *string
	Name      string
	PhotoURL  string
	Services  []string
	CreatedAt time.Time
}

// HasService は指定した施術メニューをマスターが提供しているかを返す。
func (m *Master) HasService(service string) bool {
	for _, s := range m.Services {
		if s == service {
			return true
		}
	}
	return false
}

// ScheduleEntry はマスターが1日分に公開した予約可能時刻の一覧。
// (MasterID, Date) ごとに最大1件。
type ScheduleEntry struct {
	MasterID string
	Date     string
	Times    []string
}
