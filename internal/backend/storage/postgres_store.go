package storage

import "github.com/jackc/pgx/v5/pgxpool"

// postgresStore собирает хранилища на одном пуле в Store
type postgresStore struct {
	MonitorStore
	CheckStore
	MaintenanceStore
	SLOStore
	HiddenIncidentStore
}

func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{
		MonitorStore:        NewMonitorStore(pool),
		CheckStore:          NewCheckStore(pool),
		MaintenanceStore:    NewMaintenanceStore(pool),
		SLOStore:            NewSLOStore(pool),
		HiddenIncidentStore: NewHiddenIncidentStore(pool),
	}
}
