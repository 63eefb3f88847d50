package lead

import "context"

// Store defines the persistence operations the pipeline and allocator need.
// Two implementations exist: PostgresStore (pgx) and MemStore (in-memory
// fake for tests and the "memory" driver). The implementation is chosen
// once at construction; callers never branch on it.
type Store interface {
	// Leads
	InsertLeads(ctx context.Context, leads []Lead) (int64, error)
	LeadsByBatch(ctx context.Context, batchID int64) ([]Lead, error)
	FindLeadsByIdentity(ctx context.Context, emails, phones []string) ([]Lead, error)

	// Upload batches
	CreateBatch(ctx context.Context, b *UploadBatch) error
	UpdateBatch(ctx context.Context, b *UploadBatch) error
	GetBatch(ctx context.Context, id int64) (*UploadBatch, error)
	ListCompletedBatches(ctx context.Context) ([]UploadBatch, error)

	// Suppliers and clients
	GetSupplier(ctx context.Context, id int64) (*Supplier, error)
	ListActiveClients(ctx context.Context) ([]Client, error)
	GetClients(ctx context.Context, ids []int64) ([]Client, error)

	// DNC
	ActiveDNCEntries(ctx context.Context) ([]DNCEntry, error)
	GetDNCListByName(ctx context.Context, name string) (*DNCList, error)
	CreateDNCList(ctx context.Context, l *DNCList) error
	InsertDNCEntries(ctx context.Context, entries []DNCEntry) (int64, error)
	TouchDNCList(ctx context.Context, id int64) error

	// Distribution
	CreateDistribution(ctx context.Context, d *Distribution) error
	SetDistributionExport(ctx context.Context, id int64, filename string) error
	GetDistribution(ctx context.Context, id int64) (*Distribution, error)
	ListDistributions(ctx context.Context, limit, offset int) ([]Distribution, error)
	InsertClientHistory(ctx context.Context, records []ClientHistory) (int64, error)
	FindClientHistory(ctx context.Context, clientIDs, leadIDs []int64) ([]ClientHistory, error)
	HistoryByDistribution(ctx context.Context, distributionID int64) ([]ClientHistory, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
