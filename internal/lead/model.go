// Package lead defines the canonical lead data model and its persistence
// interface. All pipeline stages operate on these types; anything a source
// file carries beyond the canonical fields lands in Lead.Metadata.
package lead

import "time"

// Lead is the canonical lead record. It is mutated only between mapping and
// upload; once persisted it is immutable.
type Lead struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"firstname"`
	LastName    string `json:"lastname"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	CompanyName string `json:"companyname"`
	TaxID       string `json:"taxid"`

	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipcode"`
	Country string `json:"country"`

	LeadScore float64 `json:"leadscore"`
	LeadCost  float64 `json:"leadcost"`
	Revenue   float64 `json:"revenue"`

	Exclusivity      bool     `json:"exclusivity"`
	ExclusivityNotes string   `json:"exclusivitynotes"`
	Tags             []string `json:"tags,omitempty"`

	// Metadata carries unmapped source columns verbatim.
	Metadata map[string]string `json:"metadata,omitempty"`

	IsDNC      bool   `json:"isdnc"`
	LeadStatus string `json:"leadstatus"`

	// Flagged marks a record whose email or phone failed validation during
	// cleaning. Flagged records are kept, not dropped.
	Flagged bool `json:"flagged"`

	UploadBatchID int64  `json:"uploadbatchid"`
	SupplierID    int64  `json:"supplierid"`
	LeadSource    string `json:"leadsource"`

	CreatedAt time.Time `json:"createdat"`
}

// UploadBatch tracks one processed file and its counters.
type UploadBatch struct {
	ID                 int64      `json:"id"`
	FileName           string     `json:"filename"`
	SourceName         string     `json:"sourcename"`
	SupplierID         int64      `json:"supplierid"`
	Status             string     `json:"status"`
	TotalLeads         int        `json:"totalleads"`
	CleanedLeads       int        `json:"cleanedleads"`
	DuplicateLeads     int        `json:"duplicateleads"`
	DNCMatches         int        `json:"dncmatches"`
	TotalBuyingPrice   float64    `json:"totalbuyingprice"`
	BuyingPricePerLead float64    `json:"buyingpriceperlead"`
	ErrorMessage       string     `json:"errormessage,omitempty"`
	CreatedAt          time.Time  `json:"createdat"`
	CompletedAt        *time.Time `json:"completedat,omitempty"`
}

// Batch statuses.
const (
	BatchProcessing = "Processing"
	BatchCompleted  = "Completed"
	BatchFailed     = "Failed"
)

// Supplier is a lead source we buy sheets from.
type Supplier struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	IsActive bool   `json:"isactive"`
}

// Client is a paying customer leads are distributed to.
type Client struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	ContactPerson  string `json:"contactperson"`
	DeliveryFormat string `json:"deliveryformat"`
	IsActive       bool   `json:"isactive"`
}

// DNCList groups do-not-contact entries.
type DNCList struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	IsActive    bool      `json:"isactive"`
	CreatedAt   time.Time `json:"createdat"`
	LastUpdated time.Time `json:"lastupdated"`
}

// DNCEntry is a single do-not-contact identity. The dedup key on insert is
// (value, valuetype, dnclistid).
type DNCEntry struct {
	ID        int64     `json:"id"`
	Value     string    `json:"value"`
	ValueType string    `json:"valuetype"` // "email" or "phone"
	Source    string    `json:"source"`
	Reason    string    `json:"reason,omitempty"`
	DNCListID int64     `json:"dnclistid"`
	CreatedAt time.Time `json:"createdat"`
}

// BatchShare records how much of a source batch went into a distribution.
type BatchShare struct {
	BatchID    int64   `json:"batch_id"`
	Percentage float64 `json:"percentage"`
	LeadCount  int     `json:"lead_count"`
}

// Distribution is an immutable record of one allocation of leads to clients.
type Distribution struct {
	ID               int64        `json:"id"`
	Name             string       `json:"distribution_name"`
	LeadsAllocated   int          `json:"leadsallocated"`
	SheetPrice       float64      `json:"selling_price_per_sheet"`
	PricePerLead     float64      `json:"selling_price_per_lead"`
	BlendEnabled     bool         `json:"blend_enabled"`
	BatchShares      []BatchShare `json:"batch_percentages"`
	DeliveryStatus   string       `json:"deliverystatus"`
	ExportedFilename string       `json:"exported_filename,omitempty"`
	CreatedAt        time.Time    `json:"createdat"`
	ExportedAt       *time.Time   `json:"exported_at,omitempty"`
}

// ClientHistory is one row per (client, distributed lead), snapshotting the
// lead at distribution time. The (client_id, lead_id) pair is unique; it is
// the ledger that prevents re-selling a lead to the same client.
type ClientHistory struct {
	ID             int64     `json:"id"`
	ClientID       int64     `json:"client_id"`
	DistributionID int64     `json:"distribution_id"`
	LeadID         int64     `json:"lead_id"`
	FirstName      string    `json:"firstname"`
	LastName       string    `json:"lastname"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	CompanyName    string    `json:"companyname"`
	TaxID          string    `json:"taxid"`
	Address        string    `json:"address"`
	City           string    `json:"city"`
	State          string    `json:"state"`
	ZipCode        string    `json:"zipcode"`
	Country        string    `json:"country"`
	SellingCost    float64   `json:"selling_cost"`
	SourceBatchID  int64     `json:"source_batch_id"`
	SourceSupplier int64     `json:"source_supplier_id"`
	SourceName     string    `json:"source_name"`
	DistributedAt  time.Time `json:"distributed_at"`
}
