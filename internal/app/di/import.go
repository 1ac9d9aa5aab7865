package di

import (
	"os"
	"strconv"

	"gorm.io/gorm"

	houjinadapters "company_backend/internal/feature/houjinimport/adapters"
	"company_backend/internal/feature/houjinimport/adapters/csvsource"
	houjinhandler "company_backend/internal/feature/houjinimport/transport/handler"
	"company_backend/internal/feature/houjinimport/usecase"
	"company_backend/internal/platform/lock"
)

// NewImportUsecase creates the batch coordinator backed by the gorm company repository and the import lock file.
func NewImportUsecase(db *gorm.DB, client usecase.EnrichmentClient, cfg usecase.ImportConfig, reporters ...usecase.Reporter) *usecase.ImportUsecase {
	repo := houjinadapters.NewCompanyRepository(db)
	guard := lock.NewFileGuard(lock.LoadPath())
	return usecase.NewImportUsecase(client, repo, guard, cfg, reporters...)
}

// NewImportHandler creates the HTTP handler that triggers imports of the configured CSV file.
func NewImportHandler(uc *usecase.ImportUsecase) (*houjinhandler.ImportHandler, error) {
	cfg, err := csvsource.LoadConfig()
	if err != nil {
		return nil, err
	}
	return houjinhandler.NewImportHandler(uc, csvsource.Opener(cfg), ImportAsync()), nil
}

// ImportAsync は IMPORT_ASYNC を読み込みます。未設定の場合はtrueです。
func ImportAsync() bool {
	v, err := strconv.ParseBool(os.Getenv("IMPORT_ASYNC"))
	if err != nil {
		return true
	}
	return v
}
