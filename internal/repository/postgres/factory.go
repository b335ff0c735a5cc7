package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	repo "github.com/redpay/terminal-api/internal/repository"
)

type Repositories struct {
	Users        repo.Users
	Profiles     repo.Profiles
	Transactions repo.Transactions
	AuditLogs    repo.AuditLogs
}

func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Users:        &usersRepo{pool},
		Profiles:     &profilesRepo{pool},
		Transactions: &transactionsRepo{pool},
		AuditLogs:    &auditLogsRepo{pool},
	}
}
