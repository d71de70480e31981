package security

import "strings"

// AllowList はマスター登録を許可するowner_idの集合。
// 生成後は読み取り専用で、複数のgoroutineから共有できる。
type AllowList struct {
	ids map[string]struct{}
}

// NewAllowList は許可するowner_idの一覧からAllowListを生成する。
// 空白は除去し、空文字列は無視する。
func NewAllowList(ownerIDs []string) *AllowList {
	ids := make(map[string]struct{}, len(ownerIDs))
	for _, id := range ownerIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		ids[id] = struct{}{}
	}
	return &AllowList{ids: ids}
}

// Allows はowner_idが登録を許可されているかを返す。
func (a *AllowList) Allows(ownerID string) bool {
	if a == nil {
		return false
	}
	_, ok := a.ids[strings.TrimSpace(ownerID)]
	return ok
}

// Len は許可されているowner_idの数を返す。
func (a *AllowList) Len() int {
	if a == nil {
		return 0
	}
	return len(a.ids)
}
