package domain

// Models lists every table for AutoMigrate, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&User{},
		&Investor{},
		&Fund{},
		&Company{},
		&Holding{},
		&ShareTransaction{},
		&TradeRequest{},
		&TradeRequestLog{},
		&EntityLog{},
		&Notification{},
		&Payment{},
	}
}
