// Package seed はYAMLファイルからマスターとスケジュールを投入する。
//
// 投入は冪等で、何度実行しても同じ状態になる。
// owner_idを持つマスターはowner_idで、持たないマスターは名前で既存データと照合し、
// 既存マスターにはスケジュールをマージする。
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/hitoshi/salonbook/internal/model"
	"github.com/hitoshi/salonbook/internal/repository"
)

//go:embed default.yaml
var defaultSeed []byte

// File はシードファイル全体。
type File struct {
	Masters []Master `yaml:"masters"`
}

// Master はシードファイル内の1マスター。
type Master struct {
	OwnerID  string     `yaml:"owner_id"`
	Name     string     `yaml:"name"`
	PhotoURL string     `yaml:"photo_url"`
	Services []string   `yaml:"services"`
	Schedule []Schedule `yaml:"schedule"`
}

// Schedule は1日分の公開スケジュール。
type Schedule struct {
	Date  string   `yaml:"date"`
	Times []string `yaml:"times"`
}

// Result は投入結果の件数。
type Result struct {
	Created  int
	Existing int
}

// Default は組み込みのデモ用シードを返す。
func Default() (*File, error) {
	return Parse(defaultSeed)
}

// Load はpathのシードファイルを読み込む。
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("シードファイルの読み込みに失敗: %w", err)
	}
	return Parse(data)
}

// Parse はYAMLをパースし、内容を検証する。
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("シードファイルのパースに失敗: %w", err)
	}

	for i := range f.Masters {
		m := &f.Masters[i]
		m.OwnerID = strings.TrimSpace(m.OwnerID)
		m.Name = strings.TrimSpace(m.Name)
		if m.Name == "" {
			return nil, fmt.Errorf("masters[%d]: name は必須です", i)
		}
		for j, s := range m.Schedule {
			if strings.TrimSpace(s.Date) == "" {
				return nil, fmt.Errorf("masters[%d].schedule[%d]: date は必須です", i, j)
			}
		}
	}
	return &f, nil
}

// Seeder はシードデータをRecord Storeに投入する。
type Seeder struct {
	masterRepo   repository.MasterRepository
	scheduleRepo repository.ScheduleRepository
	logger       *slog.Logger
	now          func() time.Time
}

// NewSeeder はSeederを生成する。
func NewSeeder(masterRepo repository.MasterRepository, scheduleRepo repository.ScheduleRepository, logger *slog.Logger) *Seeder {
	return &Seeder{
		masterRepo:   masterRepo,
		scheduleRepo: scheduleRepo,
		logger:       logger,
		now:          time.Now,
	}
}

// Apply はシードの全マスターを投入する。途中で失敗した場合はそれまでの結果とエラーを返す。
func (s *Seeder) Apply(ctx context.Context, f *File) (Result, error) {
	var result Result

	for _, sm := range f.Masters {
		master, created, err := s.findOrCreate(ctx, sm)
		if err != nil {
			return result, err
		}

		for _, entry := range sm.Schedule {
			date := strings.TrimSpace(entry.Date)
			if err := s.scheduleRepo.Merge(ctx, master.ID, date, entry.Times); err != nil {
				return result, fmt.Errorf("スケジュールの投入に失敗 (master=%s, date=%s): %w", master.Name, date, err)
			}
		}

		if created {
			result.Created++
		} else {
			result.Existing++
		}
		s.logger.Info("seeded master",
			slog.String("master_id", master.ID),
			slog.String("name", master.Name),
			slog.Bool("created", created),
			slog.Int("dates", len(sm.Schedule)),
		)
	}

	return result, nil
}

// findOrCreate は既存マスターを照合し、なければ作成する。
func (s *Seeder) findOrCreate(ctx context.Context, sm Master) (*model.Master, bool, error) {
	existing, err := s.findExisting(ctx, sm)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	master := &model.Master{
		ID:        uuid.New().String(),
		Name:      sm.Name,
		PhotoURL:  strings.TrimSpace(sm.PhotoURL),
		Services:  cleanServices(sm.Services),
		CreatedAt: s.now().UTC(),
	}
	if sm.OwnerID != "" {
		ownerID := sm.OwnerID
		master.OwnerID = &ownerID
	}

	if err := s.masterRepo.Create(ctx, master); err != nil {
		if errors.Is(err, repository.ErrOwnerConflict) {
			// 同時に別経路で登録された場合は既存として扱う。
			existing, findErr := s.findExisting(ctx, sm)
			if findErr == nil && existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("マスターの作成に失敗 (name=%s): %w", sm.Name, err)
	}
	return master, true, nil
}

func (s *Seeder) findExisting(ctx context.Context, sm Master) (*model.Master, error) {
	if sm.OwnerID != "" {
		m, err := s.masterRepo.FindByOwner(ctx, sm.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("マスターの照合に失敗 (owner_id=%s): %w", sm.OwnerID, err)
		}
		return m, nil
	}

	masters, err := s.masterRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("マスター一覧の取得に失敗: %w", err)
	}
	for _, m := range masters {
		if m.OwnerID == nil && m.Name == sm.Name {
			return m, nil
		}
	}
	return nil, nil
}

// cleanServices は前後の空白を除き、空と重複を取り除く。
func cleanServices(services []string) []string {
	seen := make(map[string]struct{}, len(services))
	out := make([]string, 0, len(services))
	for _, svc := range services {
		svc = strings.TrimSpace(svc)
		if svc == "" {
			continue
		}
		if _, ok := seen[svc]; ok {
			continue
		}
		seen[svc] = struct{}{}
		out = append(out, svc)
	}
	return out
}
