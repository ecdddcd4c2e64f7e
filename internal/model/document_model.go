package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Document struct {
	Id            uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title         string         `gorm:"type:text;not null"`
	Source        string         `gorm:"type:text"`
	Status        string         `gorm:"type:varchar(20);not null;default:'pending'"`
	ChatSessionId *uuid.UUID     `gorm:"type:uuid;index"` // nil = shared corpus
	ChunkCount    int            `gorm:"default:0"`
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime"`
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

func (Document) TableName() string {
	return "documents"
}
