package postgres

import (
	"gorm.io/gorm"

	"github.com/evstream/cdc-service/internal/ports"
)

type Repositories struct {
	Events      ports.EventRepository
	DeadLetters ports.DeadLetterSink
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Events:      &eventRepository{db: db},
		DeadLetters: &deadLetterRepository{db: db},
	}
}
