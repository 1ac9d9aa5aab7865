package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"company_backend/internal/feature/houjinimport/domain/entity"
)

const (
	// ImportMemo は全国法人リストから取り込んだレコードに付けるメモです。
	ImportMemo = "全国法人リスト"

	// industryPlaceholder は業種不明を表すプレースホルダーで、既存の業種を上書きしません。
	industryPlaceholder = "-"
)

// CompanyRepository は企業ディレクトリの永続化レイヤーを抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type CompanyRepository interface {
	// FindByHoujinBangou は法人番号が完全一致する企業をすべて返します（0件・複数件あり）。
	FindByHoujinBangou(ctx context.Context, houjinBangou string) ([]entity.Company, error)
	// Create は企業と業種分類を作成します。
	Create(ctx context.Context, c *entity.Company) error
	// Update は既存企業に差分更新を適用します。
	Update(ctx context.Context, id uint, patch entity.CompanyPatch) error
}

// Reconciler は法人情報APIの結果を既存の企業レコードに突き合わせます。
type Reconciler struct {
	repo CompanyRepository
}

// NewReconciler は新しい Reconciler を作成します。
func NewReconciler(repo CompanyRepository) *Reconciler {
	return &Reconciler{repo: repo}
}

// Reconcile は取得結果を企業ディレクトリに反映します。
//
//   - URLが空の結果は何もしません（OutcomeSkipped）
//   - 法人番号が一致する企業がなければ originalName で新規作成します
//   - 一致する企業があれば、それぞれに未設定フィールドのみの差分更新を適用します
//
// 複数件のうち一部の更新に失敗しても残りの更新は続行し、失敗をまとめて返します。
func (r *Reconciler) Reconcile(ctx context.Context, res entity.EnrichmentResult, originalName string) (entity.Outcome, error) {
	if !res.HasData() {
		slog.Info("url is empty, skipping", "houjin_bangou", res.HoujinBangou)
		return entity.OutcomeSkipped, nil
	}

	// 法人番号は重複している可能性があるため、一致したレコードはすべて更新対象とする
	companies, err := r.repo.FindByHoujinBangou(ctx, res.HoujinBangou)
	if err != nil {
		return entity.OutcomeReconcileFailed, fmt.Errorf("%w: find companies by houjin_bangou %q: %w", ErrReconcile, res.HoujinBangou, err)
	}

	if len(companies) == 0 {
		c := newCompany(res, originalName)
		if err := r.repo.Create(ctx, &c); err != nil {
			return entity.OutcomeReconcileFailed, fmt.Errorf("%w: create company %q: %w", ErrReconcile, res.HoujinBangou, err)
		}
		slog.Info("company created", "company_id", c.ID, "houjin_bangou", res.HoujinBangou, "url", res.URL)
		return entity.OutcomeCreated, nil
	}

	var errs []error
	for _, c := range companies {
		if err := r.repo.Update(ctx, c.ID, buildPatch(c, res)); err != nil {
			slog.Error("failed to update company", "company_id", c.ID, "houjin_bangou", res.HoujinBangou, "error", err)
			errs = append(errs, fmt.Errorf("update company %d: %w", c.ID, err))
			continue
		}
		slog.Info("company updated", "company_id", c.ID, "houjin_bangou", res.HoujinBangou, "url", res.URL)
	}
	if len(errs) > 0 {
		return entity.OutcomeReconcileFailed, fmt.Errorf("%w: %w", ErrReconcile, errors.Join(errs...))
	}
	return entity.OutcomeUpdated, nil
}

// newCompany は新規作成用の企業レコードを組み立てます。
// 名前はAPIの結果ではなくCSVの法人名を使い、業種分類は業種が空でも作成します。
func newCompany(res entity.EnrichmentResult, originalName string) entity.Company {
	return entity.Company{
		Name:           originalName,
		Prefecture:     res.Prefecture,
		Address:        res.Address,
		IncorporatedAt: ParseIncorporatedAt(res.IncorporatedAt),
		HoujinBangou:   res.HoujinBangou,
		ListingStatus:  res.ListingStatus,
		Capital:        res.Capital,
		Revenue:        res.Revenue,
		URL:            res.URL,
		Tel:            res.Tel,
		EmployeeNumber: res.EmployeeNumber,
		Memo:           ImportMemo,
		ZenkokuHoujin:  &entity.ZenkokuHoujin{Industry: res.Industry},
	}
}

// buildPatch は既存企業の未設定フィールドだけを埋める差分更新を組み立てます。
// 業種だけは有効な値であれば既存の値を上書きし、メモは常に上書きします。名前は変更しません。
func buildPatch(current entity.Company, res entity.EnrichmentResult) entity.CompanyPatch {
	var p entity.CompanyPatch

	if current.HoujinBangou == "" {
		p.HoujinBangou = &res.HoujinBangou
	}
	if current.URL == "" {
		p.URL = &res.URL
	}
	if current.Tel == "" {
		p.Tel = &res.Tel
	}
	if current.IncorporatedAt == nil {
		// 不正な形式の場合は未設定のまま（nilで上書きしない）
		p.IncorporatedAt = ParseIncorporatedAt(res.IncorporatedAt)
	}
	if res.Industry != "" && res.Industry != industryPlaceholder {
		p.Industry = &res.Industry
	}

	memo := ImportMemo
	p.Memo = &memo
	return p
}
