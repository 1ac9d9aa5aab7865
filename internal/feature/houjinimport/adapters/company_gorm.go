package adapters

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"company_backend/internal/feature/houjinimport/domain/entity"
	"company_backend/internal/feature/houjinimport/usecase"
)

// companyGorm はCompanyRepositoryインターフェースのGORM実装です。
type companyGorm struct {
	db *gorm.DB
}

// companyGormがCompanyRepositoryを実装していることをコンパイル時に検証します。
var _ usecase.CompanyRepository = (*companyGorm)(nil)

// NewCompanyRepository は指定されたDB接続でcompanyGormリポジトリの新しいインスタンスを生成します。
func NewCompanyRepository(db *gorm.DB) *companyGorm {
	return &companyGorm{db: db}
}

// FindByHoujinBangou は法人番号が一致する企業を業種分類付きでID順に返します。
func (r *companyGorm) FindByHoujinBangou(ctx context.Context, houjinBangou string) ([]entity.Company, error) {
	var rows []CompanyModel
	if err := r.db.WithContext(ctx).
		Preload("ZenkokuHoujin").
		Where("houjin_bangou = ?", houjinBangou).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Company, 0, len(rows))
	for _, m := range rows {
		out = append(out, toEntity(m))
	}
	return out, nil
}

// Create は企業を作成します。業種分類が設定されていれば同時に作成します。
// 作成後、c.ID に採番されたIDを設定します。
func (r *companyGorm) Create(ctx context.Context, c *entity.Company) error {
	m := toModel(*c)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	c.ID = m.ID
	return nil
}

// Update は差分更新を1トランザクションで適用します。
// 業種分類は存在しなければ作成し、存在すれば上書きします。
func (r *companyGorm) Update(ctx context.Context, id uint, patch entity.CompanyPatch) error {
	if patch.IsEmpty() {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if updates := toUpdates(patch); len(updates) > 0 {
			res := tx.Model(&CompanyModel{}).Where("id = ?", id).Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return usecase.ErrCompanyNotFound
			}
		}

		if patch.Industry == nil {
			return nil
		}
		z := ZenkokuHoujinModel{CompanyID: id, Industry: *patch.Industry}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "company_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"industry", "updated_at"}),
		}).Create(&z).Error
	})
}

// toUpdates は差分更新をカラム名と値のマップに変換します。
func toUpdates(p entity.CompanyPatch) map[string]any {
	updates := map[string]any{}
	if p.HoujinBangou != nil {
		updates["houjin_bangou"] = *p.HoujinBangou
	}
	if p.URL != nil {
		updates["url"] = *p.URL
	}
	if p.Tel != nil {
		updates["tel"] = *p.Tel
	}
	if p.IncorporatedAt != nil {
		updates["incorporated_at"] = datatypes.Date(*p.IncorporatedAt)
	}
	if p.Memo != nil {
		updates["memo"] = *p.Memo
	}
	return updates
}
