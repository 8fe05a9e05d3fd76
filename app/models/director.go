package models

import "time"

// DirectorProject is a chat-driven book project persisted server-side.
type DirectorProject struct {
	ID           string            `gorm:"type:char(36);primaryKey" json:"id"`
	UserID       string            `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Title        string            `gorm:"type:varchar(200);not null" json:"title" validate:"required,max=200"`
	Idea         string            `gorm:"type:text" json:"idea" validate:"required"`
	Language     string            `gorm:"type:varchar(40);default:'English'" json:"language"`
	BookType     string            `gorm:"type:varchar(60);default:''" json:"book_type"`
	WritingStyle string            `gorm:"type:varchar(60);default:''" json:"writing_style"`
	Chapters     []DirectorChapter `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"chapters"`
	CreatedAt    time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// DirectorChapter is one generated chapter of a director project.
type DirectorChapter struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	ProjectID   string    `gorm:"type:char(36);not null;index:ux_director_chapters_project_number,unique,priority:1" json:"-"`
	Number      int       `gorm:"not null;index:ux_director_chapters_project_number,unique,priority:2" json:"number"`
	Title       string    `gorm:"type:varchar(200);not null" json:"title"`
	Content     string    `gorm:"type:longtext" json:"content"`
	Instruction string    `gorm:"type:text" json:"instruction"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
