// Package repository provides form persistence backends
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Koyo-os/form-builder/internal/entity"
	"github.com/Koyo-os/form-builder/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Repository handles database operations using GORM
type Repository struct {
	db     *gorm.DB
	logger *logger.Logger
}

// Init creates and returns a new Repository instance
func Init(db *gorm.DB, logger *logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// OpenGorm opens a GORM connection for the sqlite or mysql driver
func OpenGorm(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported gorm driver %q", driver)
	}

	return gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
}

// Migrate creates or updates the form tables
func (repo *Repository) Migrate() error {
	return repo.db.AutoMigrate(&entity.Form{}, &entity.Question{}, &entity.Response{})
}

func (repo *Repository) preloaded(ctx context.Context) *gorm.DB {
	return repo.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, row_id ASC")
		}).
		Preload("Responses", func(db *gorm.DB) *gorm.DB {
			return db.Order("row_id ASC")
		})
}

// Create persists a new form with its questions and responses
func (repo *Repository) Create(ctx context.Context, form *entity.Form) error {
	res := repo.db.WithContext(ctx).Create(form)

	if err := res.Error; err != nil {
		repo.logger.Error("error create form",
			zap.String("form_id", form.ID),
			zap.Error(err))
		return err
	}

	return nil
}

// Get retrieves a form by its ID
// Returns entity.ErrFormNotFound when no form has that ID
func (repo *Repository) Get(ctx context.Context, ID string) (*entity.Form, error) {
	var form entity.Form

	res := repo.preloaded(ctx).Where("id = ?", ID).First(&form)
	if err := res.Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrFormNotFound
		}

		repo.logger.Error("error get form",
			zap.String("form_id", ID),
			zap.Error(err),
		)
		return nil, err
	}

	return &form, nil
}

// List returns every form in creation order
func (repo *Repository) List(ctx context.Context) ([]entity.Form, error) {
	var forms []entity.Form

	res := repo.preloaded(ctx).Order("created_at ASC").Find(&forms)
	if err := res.Error; err != nil {
		repo.logger.Error("error list forms", zap.Error(err))
		return nil, err
	}

	return forms, nil
}

// Save replaces the form and its questions, inserting it when missing.
// Stored responses are kept, responses carried by form that are not yet
// stored are appended. The forms row is updated in place so responses
// referencing it stay valid under foreign key enforcement.
func (repo *Repository) Save(ctx context.Context, form *entity.Form) error {
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entity.Form{}).Where("id = ?", form.ID).Count(&count).Error; err != nil {
			return err
		}

		row := *form
		row.Questions = nil
		row.Responses = nil

		if count == 0 {
			if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Model(&entity.Form{}).Where("id = ?", form.ID).Updates(map[string]any{
				"title":      form.Title,
				"created_at": form.CreatedAt,
				"updated_at": form.UpdatedAt,
			}).Error; err != nil {
				return err
			}
			if err := tx.Where("form_id = ?", form.ID).Delete(&entity.Question{}).Error; err != nil {
				return err
			}
		}

		if len(form.Questions) > 0 {
			questions := make([]entity.Question, len(form.Questions))
			for i, q := range form.Questions {
				q.RowID = 0
				q.FormID = form.ID
				q.Position = i
				questions[i] = q
			}

			if err := tx.Create(&questions).Error; err != nil {
				return err
			}
		}

		var stored []string
		if err := tx.Model(&entity.Response{}).
			Where("form_id = ?", form.ID).
			Pluck("response_id", &stored).Error; err != nil {
			return err
		}

		known := make(map[string]bool, len(stored))
		for _, id := range stored {
			known[id] = true
		}

		var fresh []entity.Response
		for _, r := range form.Responses {
			if !known[r.ID] {
				r.RowID = 0
				r.FormID = form.ID
				fresh = append(fresh, r)
			}
		}

		if len(fresh) == 0 {
			return nil
		}

		return tx.Create(&fresh).Error
	})
	if err != nil {
		repo.logger.Error("error save form",
			zap.String("form_id", form.ID),
			zap.Error(err))
		return err
	}

	return nil
}

// DeleteForm removes a form with its questions and responses
func (repo *Repository) DeleteForm(ctx context.Context, formID string) error {
	var deleted int64

	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("form_id = ?", formID).Delete(&entity.Question{}).Error; err != nil {
			return err
		}
		if err := tx.Where("form_id = ?", formID).Delete(&entity.Response{}).Error; err != nil {
			return err
		}

		res := tx.Where(&entity.Form{ID: formID}).Delete(&entity.Form{})
		deleted = res.RowsAffected
		return res.Error
	})
	if err != nil {
		repo.logger.Error("error delete form",
			zap.String("form_id", formID),
			zap.Error(err),
		)
		return err
	}

	if deleted == 0 {
		return entity.ErrFormNotFound
	}

	return nil
}

// AppendResponse stores a response at the end of the form's responses
func (repo *Repository) AppendResponse(ctx context.Context, formID string, response *entity.Response) error {
	var count int64

	if err := repo.db.WithContext(ctx).Model(&entity.Form{}).Where("id = ?", formID).Count(&count).Error; err != nil {
		repo.logger.Error("error check form",
			zap.String("form_id", formID),
			zap.Error(err))
		return err
	}
	if count == 0 {
		return entity.ErrFormNotFound
	}

	response.FormID = formID

	if err := repo.db.WithContext(ctx).Create(response).Error; err != nil {
		repo.logger.Error("error append response",
			zap.String("form_id", formID),
			zap.String("response_id", response.ID),
			zap.Error(err))
		return err
	}

	return nil
}

// GetResponse retrieves one response of a form
func (repo *Repository) GetResponse(ctx context.Context, formID, responseID string) (*entity.Response, error) {
	var response entity.Response

	res := repo.db.WithContext(ctx).
		Where("form_id = ? AND response_id = ?", formID, responseID).
		First(&response)
	if err := res.Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.missingResponse(ctx, formID)
		}

		repo.logger.Error("error get response",
			zap.String("form_id", formID),
			zap.String("response_id", responseID),
			zap.Error(err))
		return nil, err
	}

	return &response, nil
}

// missingResponse tells an unknown form apart from an unknown response
func (repo *Repository) missingResponse(ctx context.Context, formID string) error {
	var count int64

	if err := repo.db.WithContext(ctx).Model(&entity.Form{}).Where("id = ?", formID).Count(&count).Error; err != nil {
		repo.logger.Error("error check form",
			zap.String("form_id", formID),
			zap.Error(err))
		return err
	}
	if count == 0 {
		return entity.ErrFormNotFound
	}

	return entity.ErrResponseNotFound
}

// IsHealthy pings the underlying connection
func (repo *Repository) IsHealthy() bool {
	sqlDB, err := repo.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.Ping() == nil
}

// Close closes the underlying connection
func (repo *Repository) Close() error {
	sqlDB, err := repo.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
