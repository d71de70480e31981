package availability

import (
	"context"
	"fmt"

	"github.com/hitoshi/salonbook/internal/model"
	"github.com/hitoshi/salonbook/internal/repository"
)

// Service は空き枠照会のサービス層。
// スケジュールと予約は常に同一スナップショットから読み取る。
type Service struct {
	snapshots  repository.SnapshotReader
	masterRepo repository.MasterRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(snapshots repository.SnapshotReader, masterRepo repository.MasterRepository) *Service {
	return &Service{
		snapshots:  snapshots,
		masterRepo: masterRepo,
	}
}

// SlotsForMaster はマスターの日付ごとの枠状況を返す。
// マスターが存在しない場合はMASTER_NOT_FOUNDエラーを返す。
func (s *Service) SlotsForMaster(ctx context.Context, masterID string) ([]model.DaySlots, error) {
	snap, err := s.snapshots.AvailabilitySnapshot(ctx, masterID)
	if err != nil {
		return nil, fmt.Errorf("空き枠の取得に失敗しました: %w", err)
	}
	if snap == nil {
		return nil, model.NewMasterNotFoundError(masterID)
	}

	return Calculate(snap.Schedule, snap.Bookings), nil
}

// FreeSlotCounts は全マスターの空き枠数をマスターIDごとに返す。
func (s *Service) FreeSlotCounts(ctx context.Context) (map[string]int, error) {
	masters, err := s.masterRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("マスター一覧の取得に失敗しました: %w", err)
	}

	counts := make(map[string]int, len(masters))
	for _, m := range masters {
		snap, err := s.snapshots.AvailabilitySnapshot(ctx, m.ID)
		if err != nil {
			return nil, fmt.Errorf("空き枠の取得に失敗しました (master=%s): %w", m.ID, err)
		}
		if snap == nil {
			continue
		}
		counts[m.ID] = FreeCount(Calculate(snap.Schedule, snap.Bookings))
	}
	return counts, nil
}
