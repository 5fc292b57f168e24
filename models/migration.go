package models

import (
	"log"

	"bitbucket.org/agasretail/erpsync_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&SaleLine{},
		&StockMovement{},
		&Product{},
		&WarehouseMapping{},
		&IdempotencyKey{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
