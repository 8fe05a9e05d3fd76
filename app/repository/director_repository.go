package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/BookForge/app/models"
)

// directorRepository implements the DirectorRepository interface
type directorRepository struct {
	db *gorm.DB
}

// NewDirectorRepository creates a new director repository instance
func NewDirectorRepository(db *gorm.DB) DirectorRepository {
	return &directorRepository{db: db}
}

func (r *directorRepository) CreateProject(project *models.DirectorProject) error {
	return r.db.Omit(clause.Associations).Create(project).Error
}

// GetProject loads a project of the given user with its chapters in order.
func (r *directorRepository) GetProject(userID, projectID string) (*models.DirectorProject, error) {
	var project models.DirectorProject
	err := r.db.Preload("Chapters", func(db *gorm.DB) *gorm.DB {
		return db.Order("number asc")
	}).Where("id = ? AND user_id = ?", projectID, userID).First(&project).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// SaveChapter inserts a chapter or replaces title, content and instruction of
// the chapter with the same project and number.
func (r *directorRepository) SaveChapter(chapter *models.DirectorChapter) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "number"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "content", "instruction", "updated_at"}),
	}).Create(chapter).Error
}
