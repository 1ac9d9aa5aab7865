// Package adapters は全国法人リスト取り込みフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"time"

	"gorm.io/datatypes"

	"company_backend/internal/feature/houjinimport/domain/entity"
)

// CompanyModel は companies テーブルのGORMモデルです。
// houjin_bangou は重複を許すため一意制約ではなく通常のインデックスです。
// 法人情報APIの値は長さを検証せずそのまま保存するため、文字列カラムはすべて text です。
type CompanyModel struct {
	ID             uint            `gorm:"primaryKey"`
	Name           string          `gorm:"type:text;not null"`
	Prefecture     string          `gorm:"type:text;not null;default:''"`
	Address        string          `gorm:"type:text;not null;default:''"`
	IncorporatedAt *datatypes.Date `gorm:"column:incorporated_at"`
	HoujinBangou   string          `gorm:"type:text;not null;default:'';index"`
	ListingStatus  string          `gorm:"type:text;not null;default:''"`
	Capital        string          `gorm:"type:text;not null;default:''"`
	Revenue        string          `gorm:"type:text;not null;default:''"`
	URL            string          `gorm:"column:url;type:text;not null;default:''"`
	Tel            string          `gorm:"type:text;not null;default:''"`
	EmployeeNumber string          `gorm:"type:text;not null;default:''"`
	Memo           string          `gorm:"type:text"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	ZenkokuHoujin *ZenkokuHoujinModel `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE"`
}

func (CompanyModel) TableName() string {
	return "companies"
}

// ZenkokuHoujinModel は企業に1対1で紐づく業種分類テーブルのGORMモデルです。
type ZenkokuHoujinModel struct {
	ID        uint   `gorm:"primaryKey"`
	CompanyID uint   `gorm:"not null;uniqueIndex"`
	Industry  string `gorm:"type:text;not null;default:''"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ZenkokuHoujinModel) TableName() string {
	return "zenkoku_houjins"
}

func toModel(e entity.Company) CompanyModel {
	m := CompanyModel{
		Name:           e.Name,
		Prefecture:     e.Prefecture,
		Address:        e.Address,
		HoujinBangou:   e.HoujinBangou,
		ListingStatus:  e.ListingStatus,
		Capital:        e.Capital,
		Revenue:        e.Revenue,
		URL:            e.URL,
		Tel:            e.Tel,
		EmployeeNumber: e.EmployeeNumber,
		Memo:           e.Memo,
	}
	if e.IncorporatedAt != nil {
		d := datatypes.Date(*e.IncorporatedAt)
		m.IncorporatedAt = &d
	}
	if e.ZenkokuHoujin != nil {
		m.ZenkokuHoujin = &ZenkokuHoujinModel{Industry: e.ZenkokuHoujin.Industry}
	}
	return m
}

func toEntity(m CompanyModel) entity.Company {
	e := entity.Company{
		ID:             m.ID,
		Name:           m.Name,
		Prefecture:     m.Prefecture,
		Address:        m.Address,
		HoujinBangou:   m.HoujinBangou,
		ListingStatus:  m.ListingStatus,
		Capital:        m.Capital,
		Revenue:        m.Revenue,
		URL:            m.URL,
		Tel:            m.Tel,
		EmployeeNumber: m.EmployeeNumber,
		Memo:           m.Memo,
	}
	if m.IncorporatedAt != nil {
		t := time.Time(*m.IncorporatedAt)
		e.IncorporatedAt = &t
	}
	if m.ZenkokuHoujin != nil {
		e.ZenkokuHoujin = &entity.ZenkokuHoujin{Industry: m.ZenkokuHoujin.Industry}
	}
	return e
}
