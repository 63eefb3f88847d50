package lead

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/SafeerAbbas624/lead-management-system/internal/db"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, maxConns, minConns int32) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "lead: parse pool config")
	}

	if maxConns <= 0 {
		maxConns = 10
	}
	if minConns <= 0 {
		minConns = 2
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "lead: create pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "lead: ping")
	}

	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool (used by tests with pgxmock).
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS suppliers (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		isactive BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS clients (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		contactperson TEXT NOT NULL DEFAULT '',
		deliveryformat TEXT NOT NULL DEFAULT 'csv',
		isactive BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS upload_batches (
		id BIGSERIAL PRIMARY KEY,
		filename TEXT NOT NULL,
		sourcename TEXT NOT NULL DEFAULT '',
		supplierid BIGINT NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'Processing',
		totalleads INT NOT NULL DEFAULT 0,
		cleanedleads INT NOT NULL DEFAULT 0,
		duplicateleads INT NOT NULL DEFAULT 0,
		dncmatches INT NOT NULL DEFAULT 0,
		totalbuyingprice DOUBLE PRECISION NOT NULL DEFAULT 0,
		buyingpriceperlead DOUBLE PRECISION NOT NULL DEFAULT 0,
		errormessage TEXT NOT NULL DEFAULT '',
		createdat TIMESTAMPTZ NOT NULL DEFAULT now(),
		completedat TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS leads (
		id BIGSERIAL PRIMARY KEY,
		firstname TEXT NOT NULL DEFAULT '',
		lastname TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		companyname TEXT NOT NULL DEFAULT '',
		taxid TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		zipcode TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		leadscore DOUBLE PRECISION NOT NULL DEFAULT 0,
		leadcost DOUBLE PRECISION NOT NULL DEFAULT 0,
		revenue DOUBLE PRECISION NOT NULL DEFAULT 0,
		exclusivity BOOLEAN NOT NULL DEFAULT FALSE,
		exclusivitynotes TEXT NOT NULL DEFAULT '',
		tags JSONB,
		metadata JSONB,
		isdnc BOOLEAN NOT NULL DEFAULT FALSE,
		leadstatus TEXT NOT NULL DEFAULT 'New',
		flagged BOOLEAN NOT NULL DEFAULT FALSE,
		uploadbatchid BIGINT NOT NULL DEFAULT 0,
		supplierid BIGINT NOT NULL DEFAULT 0,
		leadsource TEXT NOT NULL DEFAULT '',
		createdat TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_email ON leads (email)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_phone ON leads (phone)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_batch ON leads (uploadbatchid)`,
	`CREATE TABLE IF NOT EXISTS dnc_lists (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		isactive BOOLEAN NOT NULL DEFAULT TRUE,
		createdat TIMESTAMPTZ NOT NULL DEFAULT now(),
		lastupdated TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS dnc_entries (
		id BIGSERIAL PRIMARY KEY,
		value TEXT NOT NULL,
		valuetype TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		dnclistid BIGINT NOT NULL REFERENCES dnc_lists(id),
		createdat TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (value, valuetype, dnclistid)
	)`,
	`CREATE TABLE IF NOT EXISTS lead_distributions (
		id BIGSERIAL PRIMARY KEY,
		distribution_name TEXT NOT NULL,
		leadsallocated INT NOT NULL,
		selling_price_per_sheet DOUBLE PRECISION NOT NULL,
		selling_price_per_lead DOUBLE PRECISION NOT NULL,
		blend_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		batch_percentages JSONB,
		deliverystatus TEXT NOT NULL DEFAULT 'Completed',
		exported_filename TEXT NOT NULL DEFAULT '',
		createdat TIMESTAMPTZ NOT NULL DEFAULT now(),
		exported_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS clients_history (
		id BIGSERIAL PRIMARY KEY,
		client_id BIGINT NOT NULL,
		distribution_id BIGINT NOT NULL,
		lead_id BIGINT NOT NULL,
		firstname TEXT NOT NULL DEFAULT '',
		lastname TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		companyname TEXT NOT NULL DEFAULT '',
		taxid TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		zipcode TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		selling_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
		source_batch_id BIGINT NOT NULL DEFAULT 0,
		source_supplier_id BIGINT NOT NULL DEFAULT 0,
		source_name TEXT NOT NULL DEFAULT '',
		distributed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (client_id, lead_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_history_distribution ON clients_history (distribution_id)`,
}

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return eris.Wrap(err, "lead: migrate")
		}
	}
	return nil
}

var leadColumns = []string{
	"firstname", "lastname", "email", "phone", "companyname", "taxid",
	"address", "city", "state", "zipcode", "country",
	"leadscore", "leadcost", "revenue",
	"exclusivity", "exclusivitynotes", "tags", "metadata",
	"isdnc", "leadstatus", "flagged",
	"uploadbatchid", "supplierid", "leadsource", "createdat",
}

// InsertLeads bulk-inserts leads via COPY.
func (s *PostgresStore) InsertLeads(ctx context.Context, leads []Lead) (int64, error) {
	rows := make([][]any, 0, len(leads))
	for _, l := range leads {
		tags, err := json.Marshal(l.Tags)
		if err != nil {
			return 0, eris.Wrap(err, "lead: marshal tags")
		}
		meta, err := json.Marshal(l.Metadata)
		if err != nil {
			return 0, eris.Wrap(err, "lead: marshal metadata")
		}
		created := l.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		rows = append(rows, []any{
			l.FirstName, l.LastName, l.Email, l.Phone, l.CompanyName, l.TaxID,
			l.Address, l.City, l.State, l.ZipCode, l.Country,
			l.LeadScore, l.LeadCost, l.Revenue,
			l.Exclusivity, l.ExclusivityNotes, tags, meta,
			l.IsDNC, l.LeadStatus, l.Flagged,
			l.UploadBatchID, l.SupplierID, l.LeadSource, created,
		})
	}
	return db.CopyFrom(ctx, s.pool, "leads", leadColumns, rows)
}

const leadSelect = `SELECT id, firstname, lastname, email, phone, companyname, taxid,
	address, city, state, zipcode, country,
	leadscore, leadcost, revenue,
	exclusivity, exclusivitynotes, tags, metadata,
	isdnc, leadstatus, flagged,
	uploadbatchid, supplierid, leadsource, createdat
	FROM leads`

func scanLeads(rows pgx.Rows) ([]Lead, error) {
	var out []Lead
	for rows.Next() {
		var l Lead
		var tags, meta []byte
		if err := rows.Scan(&l.ID, &l.FirstName, &l.LastName, &l.Email, &l.Phone,
			&l.CompanyName, &l.TaxID,
			&l.Address, &l.City, &l.State, &l.ZipCode, &l.Country,
			&l.LeadScore, &l.LeadCost, &l.Revenue,
			&l.Exclusivity, &l.ExclusivityNotes, &tags, &meta,
			&l.IsDNC, &l.LeadStatus, &l.Flagged,
			&l.UploadBatchID, &l.SupplierID, &l.LeadSource, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "lead: scan lead")
		}
		if len(tags) > 0 {
			if err := json.Unmarshal(tags, &l.Tags); err != nil {
				return nil, eris.Wrap(err, "lead: unmarshal tags")
			}
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &l.Metadata); err != nil {
				return nil, eris.Wrap(err, "lead: unmarshal metadata")
			}
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// LeadsByBatch returns all leads belonging to an upload batch.
func (s *PostgresStore) LeadsByBatch(ctx context.Context, batchID int64) ([]Lead, error) {
	rows, err := s.pool.Query(ctx, leadSelect+` WHERE uploadbatchid=$1 ORDER BY id`, batchID)
	if err != nil {
		return nil, eris.Wrapf(err, "lead: leads by batch %d", batchID)
	}
	defer rows.Close()
	return scanLeads(rows)
}

// FindLeadsByIdentity returns stored leads whose email or phone matches any
// of the given normalized identities. Used by the cross-store duplicate pass.
func (s *PostgresStore) FindLeadsByIdentity(ctx context.Context, emails, phones []string) ([]Lead, error) {
	if len(emails) == 0 && len(phones) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		leadSelect+` WHERE lower(email) = ANY($1) OR regexp_replace(phone, '\D', '', 'g') = ANY($2)`,
		emails, phones)
	if err != nil {
		return nil, eris.Wrap(err, "lead: find by identity")
	}
	defer rows.Close()
	return scanLeads(rows)
}

// CreateBatch inserts an upload batch and sets its ID.
func (s *PostgresStore) CreateBatch(ctx context.Context, b *UploadBatch) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO upload_batches (filename, sourcename, supplierid, status,
			totalleads, cleanedleads, duplicateleads, dncmatches,
			totalbuyingprice, buyingpriceperlead, errormessage, completedat)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, createdat`,
		b.FileName, b.SourceName, b.SupplierID, b.Status,
		b.TotalLeads, b.CleanedLeads, b.DuplicateLeads, b.DNCMatches,
		b.TotalBuyingPrice, b.BuyingPricePerLead, b.ErrorMessage, b.CompletedAt,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return eris.Wrap(err, "lead: create batch")
	}
	return nil
}

// UpdateBatch updates an existing batch row.
func (s *PostgresStore) UpdateBatch(ctx context.Context, b *UploadBatch) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE upload_batches SET
			sourcename=$2, supplierid=$3, status=$4,
			totalleads=$5, cleanedleads=$6, duplicateleads=$7, dncmatches=$8,
			totalbuyingprice=$9, buyingpriceperlead=$10, errormessage=$11, completedat=$12
		WHERE id=$1`,
		b.ID, b.SourceName, b.SupplierID, b.Status,
		b.TotalLeads, b.CleanedLeads, b.DuplicateLeads, b.DNCMatches,
		b.TotalBuyingPrice, b.BuyingPricePerLead, b.ErrorMessage, b.CompletedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "lead: update batch %d", b.ID)
	}
	return nil
}

const batchSelect = `SELECT id, filename, sourcename, supplierid, status,
	totalleads, cleanedleads, duplicateleads, dncmatches,
	totalbuyingprice, buyingpriceperlead, errormessage, createdat, completedat
	FROM upload_batches`

func scanBatch(row pgx.Row, b *UploadBatch) error {
	return row.Scan(&b.ID, &b.FileName, &b.SourceName, &b.SupplierID, &b.Status,
		&b.TotalLeads, &b.CleanedLeads, &b.DuplicateLeads, &b.DNCMatches,
		&b.TotalBuyingPrice, &b.BuyingPricePerLead, &b.ErrorMessage,
		&b.CreatedAt, &b.CompletedAt)
}

// GetBatch fetches a batch by ID; returns nil if absent.
func (s *PostgresStore) GetBatch(ctx context.Context, id int64) (*UploadBatch, error) {
	b := &UploadBatch{}
	err := scanBatch(s.pool.QueryRow(ctx, batchSelect+` WHERE id=$1`, id), b)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "lead: get batch %d", id)
	}
	return b, nil
}

// ListCompletedBatches returns completed batches, newest first.
func (s *PostgresStore) ListCompletedBatches(ctx context.Context) ([]UploadBatch, error) {
	rows, err := s.pool.Query(ctx, batchSelect+` WHERE status=$1 ORDER BY createdat DESC`, BatchCompleted)
	if err != nil {
		return nil, eris.Wrap(err, "lead: list completed batches")
	}
	defer rows.Close()

	var out []UploadBatch
	for rows.Next() {
		var b UploadBatch
		if err := scanBatch(rows, &b); err != nil {
			return nil, eris.Wrap(err, "lead: scan batch")
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetSupplier fetches a supplier by ID; returns nil if absent.
func (s *PostgresStore) GetSupplier(ctx context.Context, id int64) (*Supplier, error) {
	sp := &Supplier{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, isactive FROM suppliers WHERE id=$1`, id).
		Scan(&sp.ID, &sp.Name, &sp.Email, &sp.IsActive)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "lead: get supplier %d", id)
	}
	return sp, nil
}

func scanClients(rows pgx.Rows) ([]Client, error) {
	var out []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.ContactPerson, &c.DeliveryFormat, &c.IsActive); err != nil {
			return nil, eris.Wrap(err, "lead: scan client")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListActiveClients returns active clients ordered by name.
func (s *PostgresStore) ListActiveClients(ctx context.Context) ([]Client, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, email, contactperson, deliveryformat, isactive
		 FROM clients WHERE isactive ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "lead: list active clients")
	}
	defer rows.Close()
	return scanClients(rows)
}

// GetClients fetches clients by ID.
func (s *PostgresStore) GetClients(ctx context.Context, ids []int64) ([]Client, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, email, contactperson, deliveryformat, isactive
		 FROM clients WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, eris.Wrap(err, "lead: get clients")
	}
	defer rows.Close()
	return scanClients(rows)
}

// ActiveDNCEntries returns all entries belonging to active DNC lists.
func (s *PostgresStore) ActiveDNCEntries(ctx context.Context) ([]DNCEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.id, e.value, e.valuetype, e.source, e.reason, e.dnclistid, e.createdat
		FROM dnc_entries e
		JOIN dnc_lists l ON l.id = e.dnclistid
		WHERE l.isactive`)
	if err != nil {
		return nil, eris.Wrap(err, "lead: active dnc entries")
	}
	defer rows.Close()

	var out []DNCEntry
	for rows.Next() {
		var e DNCEntry
		if err := rows.Scan(&e.ID, &e.Value, &e.ValueType, &e.Source, &e.Reason, &e.DNCListID, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "lead: scan dnc entry")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetDNCListByName fetches a DNC list by name; returns nil if absent.
func (s *PostgresStore) GetDNCListByName(ctx context.Context, name string) (*DNCList, error) {
	l := &DNCList{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, type, description, isactive, createdat, lastupdated
		FROM dnc_lists WHERE name=$1`, name).
		Scan(&l.ID, &l.Name, &l.Type, &l.Description, &l.IsActive, &l.CreatedAt, &l.LastUpdated)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "lead: get dnc list %q", name)
	}
	return l, nil
}

// CreateDNCList inserts a DNC list and sets its ID. Insertion is idempotent
// on name: racing a concurrent create resolves to the existing row.
func (s *PostgresStore) CreateDNCList(ctx context.Context, l *DNCList) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO dnc_lists (name, type, description, isactive)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET lastupdated = now()
		RETURNING id, createdat, lastupdated`,
		l.Name, l.Type, l.Description, l.IsActive,
	).Scan(&l.ID, &l.CreatedAt, &l.LastUpdated)
	if err != nil {
		return eris.Wrapf(err, "lead: create dnc list %q", l.Name)
	}
	return nil
}

// InsertDNCEntries bulk-inserts entries, skipping ones whose
// (value, valuetype, dnclistid) key already exists.
func (s *PostgresStore) InsertDNCEntries(ctx context.Context, entries []DNCEntry) (int64, error) {
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		created := e.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		rows = append(rows, []any{e.Value, e.ValueType, e.Source, e.Reason, e.DNCListID, created})
	}
	return db.InsertIgnore(ctx, s.pool, "dnc_entries",
		[]string{"value", "valuetype", "source", "reason", "dnclistid", "createdat"},
		[]string{"value", "valuetype", "dnclistid"},
		rows)
}

// TouchDNCList bumps a list's lastupdated timestamp.
func (s *PostgresStore) TouchDNCList(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE dnc_lists SET lastupdated=now() WHERE id=$1`, id)
	if err != nil {
		return eris.Wrapf(err, "lead: touch dnc list %d", id)
	}
	return nil
}

// CreateDistribution inserts a distribution record and sets its ID.
func (s *PostgresStore) CreateDistribution(ctx context.Context, d *Distribution) error {
	shares, err := json.Marshal(d.BatchShares)
	if err != nil {
		return eris.Wrap(err, "lead: marshal batch shares")
	}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO lead_distributions (distribution_name, leadsallocated,
			selling_price_per_sheet, selling_price_per_lead, blend_enabled,
			batch_percentages, deliverystatus, exported_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, createdat`,
		d.Name, d.LeadsAllocated, d.SheetPrice, d.PricePerLead, d.BlendEnabled,
		shares, d.DeliveryStatus, d.ExportedAt,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return eris.Wrap(err, "lead: create distribution")
	}
	return nil
}

// SetDistributionExport records the export filename for a distribution.
func (s *PostgresStore) SetDistributionExport(ctx context.Context, id int64, filename string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE lead_distributions SET exported_filename=$2, exported_at=now() WHERE id=$1`,
		id, filename)
	if err != nil {
		return eris.Wrapf(err, "lead: set export for distribution %d", id)
	}
	return nil
}

const distributionSelect = `SELECT id, distribution_name, leadsallocated,
	selling_price_per_sheet, selling_price_per_lead, blend_enabled,
	batch_percentages, deliverystatus, exported_filename, createdat, exported_at
	FROM lead_distributions`

func scanDistribution(row pgx.Row, d *Distribution) error {
	var shares []byte
	if err := row.Scan(&d.ID, &d.Name, &d.LeadsAllocated,
		&d.SheetPrice, &d.PricePerLead, &d.BlendEnabled,
		&shares, &d.DeliveryStatus, &d.ExportedFilename,
		&d.CreatedAt, &d.ExportedAt); err != nil {
		return err
	}
	if len(shares) > 0 {
		if err := json.Unmarshal(shares, &d.BatchShares); err != nil {
			return err
		}
	}
	return nil
}

// GetDistribution fetches a distribution by ID; returns nil if absent.
func (s *PostgresStore) GetDistribution(ctx context.Context, id int64) (*Distribution, error) {
	d := &Distribution{}
	err := scanDistribution(s.pool.QueryRow(ctx, distributionSelect+` WHERE id=$1`, id), d)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "lead: get distribution %d", id)
	}
	return d, nil
}

// ListDistributions returns distributions newest first.
func (s *PostgresStore) ListDistributions(ctx context.Context, limit, offset int) ([]Distribution, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, distributionSelect+` ORDER BY createdat DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "lead: list distributions")
	}
	defer rows.Close()

	var out []Distribution
	for rows.Next() {
		var d Distribution
		if err := scanDistribution(rows, &d); err != nil {
			return nil, eris.Wrap(err, "lead: scan distribution")
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

var historyColumns = []string{
	"client_id", "distribution_id", "lead_id",
	"firstname", "lastname", "email", "phone", "companyname", "taxid",
	"address", "city", "state", "zipcode", "country",
	"selling_cost", "source_batch_id", "source_supplier_id", "source_name",
	"distributed_at",
}

// InsertClientHistory bulk-inserts history rows. Rows violating the
// (client_id, lead_id) uniqueness are skipped rather than erroring, keeping
// the ledger append-only.
func (s *PostgresStore) InsertClientHistory(ctx context.Context, records []ClientHistory) (int64, error) {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		at := r.DistributedAt
		if at.IsZero() {
			at = time.Now().UTC()
		}
		rows = append(rows, []any{
			r.ClientID, r.DistributionID, r.LeadID,
			r.FirstName, r.LastName, r.Email, r.Phone, r.CompanyName, r.TaxID,
			r.Address, r.City, r.State, r.ZipCode, r.Country,
			r.SellingCost, r.SourceBatchID, r.SourceSupplier, r.SourceName,
			at,
		})
	}
	return db.InsertIgnore(ctx, s.pool, "clients_history", historyColumns,
		[]string{"client_id", "lead_id"}, rows)
}

const historySelect = `SELECT id, client_id, distribution_id, lead_id,
	firstname, lastname, email, phone, companyname, taxid,
	address, city, state, zipcode, country,
	selling_cost, source_batch_id, source_supplier_id, source_name, distributed_at
	FROM clients_history`

func scanHistory(rows pgx.Rows) ([]ClientHistory, error) {
	var out []ClientHistory
	for rows.Next() {
		var r ClientHistory
		if err := rows.Scan(&r.ID, &r.ClientID, &r.DistributionID, &r.LeadID,
			&r.FirstName, &r.LastName, &r.Email, &r.Phone, &r.CompanyName, &r.TaxID,
			&r.Address, &r.City, &r.State, &r.ZipCode, &r.Country,
			&r.SellingCost, &r.SourceBatchID, &r.SourceSupplier, &r.SourceName,
			&r.DistributedAt); err != nil {
			return nil, eris.Wrap(err, "lead: scan history")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// FindClientHistory returns history rows matching any requested client and
// lead, the conflict-check primitive of the allocator.
func (s *PostgresStore) FindClientHistory(ctx context.Context, clientIDs, leadIDs []int64) ([]ClientHistory, error) {
	if len(clientIDs) == 0 || len(leadIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		historySelect+` WHERE client_id = ANY($1) AND lead_id = ANY($2)`,
		clientIDs, leadIDs)
	if err != nil {
		return nil, eris.Wrap(err, "lead: find client history")
	}
	defer rows.Close()
	return scanHistory(rows)
}

// HistoryByDistribution returns all history rows for a distribution.
func (s *PostgresStore) HistoryByDistribution(ctx context.Context, distributionID int64) ([]ClientHistory, error) {
	rows, err := s.pool.Query(ctx,
		historySelect+` WHERE distribution_id=$1 ORDER BY id`, distributionID)
	if err != nil {
		return nil, eris.Wrapf(err, "lead: history for distribution %d", distributionID)
	}
	defer rows.Close()
	return scanHistory(rows)
}
