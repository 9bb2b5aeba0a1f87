package boot

import (
	"log"

	"frs/src/db"
	"frs/src/models"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.User{},
		&models.Event{},
		&models.Team{},
		&models.TeamMember{},
		&models.Payment{},
		&models.Pass{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}
