package db

import (
	"hedgeback/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Order{},
		&models.HedgeContract{},
		&models.HedgeOrderLinkage{},
		&models.RFQSequence{},
		&models.RFQ{},
		&models.RFQInvitation{},
		&models.RFQQuote{},
		&models.RFQStateEvent{},
		&models.CashSettlementPrice{},
		&models.MTMSnapshot{},
		&models.CashFlowBaselineSnapshot{},
		&models.HedgeContractSettlementEvent{},
		&models.CashFlowLedgerEntry{},
		&models.PLSnapshot{},
		&models.AuditEvent{},
	)
}
