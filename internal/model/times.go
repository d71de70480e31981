package model

import "strings"

// NormalizeTimes は時刻ラベルの前後空白を除去し、空要素を取り除く。
// 時刻表記の正規化（"9:00" と "09:00" の同一視など）は行わない。
func NormalizeTimes(times []string) []string {
	out := make([]string, 0, len(times))
	for _, t := range times {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

// MergeTimes は既存の時刻一覧の末尾に、未登録の時刻だけを追加した一覧を返す。
// 既存の順序は変えない。additionalは正規化してから比較する。
func MergeTimes(existing, additional []string) []string {
	seen := make(map[string]struct{}, len(existing))
	merged := make([]string, 0, len(existing)+len(additional))
	for _, t := range existing {
		seen[t] = struct{}{}
		merged = append(merged, t)
	}
	for _, t := range NormalizeTimes(additional) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		merged = append(merged, t)
	}
	return merged
}
