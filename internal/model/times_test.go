package model

import (
	"reflect"
	"testing"
)

func TestNormalizeTimes_TrimsAndDropsEmpty(t *testing.T) {
	got := NormalizeTimes([]string{" 10:00 ", "", "14:00", "   "})
	want := []string{"10:00", "14:00"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeTimes = %v, want %v", got, want)
	}
}

func TestNormalizeTimes_KeepsFormatDifferences(t *testing.T) {
	// 表記揺れは別の枠として扱う
	got := NormalizeTimes([]string{"9:00", "09:00"})
	if len(got) != 2 {
		t.Errorf("len = %d, want 2 (got %v)", len(got), got)
	}
}

func TestNormalizeTimes_EmptyInput_ReturnsEmptySlice(t *testing.T) {
	got := NormalizeTimes(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("NormalizeTimes(nil) = %#v, want empty non-nil slice", got)
	}
}

func TestMergeTimes_AppendsOnlyNewTimes(t *testing.T) {
	got := MergeTimes([]string{"10:00", "14:00"}, []string{"14:00", " 16:00 ", "", "10:00", "16:00"})
	want := []string{"10:00", "14:00", "16:00"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MergeTimes = %v, want %v", got, want)
	}
}

func TestMergeTimes_NoExisting(t *testing.T) {
	got := MergeTimes(nil, []string{"11:00", "15:00"})
	want := []string{"11:00", "15:00"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MergeTimes = %v, want %v", got, want)
	}
}

func TestMaster_HasService(t *testing.T) {
	m := &Master{Services: []string{"Маникюр", "Педикюр"}}
	if !m.HasService("Педикюр") {
		t.Error("expected HasService to find Педикюр")
	}
	if m.HasService("Стрижка") {
		t.Error("expected HasService to reject unknown service")
	}
}
