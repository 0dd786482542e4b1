// Package domain contains the core business entities for product entity resolution.
package domain

// Record is one immutable product row from a vendor catalog.
// Records are owned by the source backend that produced them; the engine and
// query layer only ever reference them by ID.
type Record struct {
	ID              string `json:"id"`
	SourceKey       string `json:"source_key"`
	ManufacturerRaw string `json:"manufacturer_raw"`
	PartNumberRaw   string `json:"part_number_raw"`
	Title           string `json:"title,omitempty"`
	Description     string `json:"description,omitempty"`
	UNSPSC          string `json:"unspsc,omitempty"`
	GTIN            string `json:"gtin,omitempty"`
}

// Summary is the short record view embedded in comparison results.
type Summary struct {
	ID           string `json:"id"`
	SourceKey    string `json:"source_key"`
	Manufacturer string `json:"manufacturer"`
	PartNumber   string `json:"part_number"`
	Description  string `json:"description,omitempty"`
}

// Summarize returns the short view of the record.
func (r *Record) Summarize() Summary {
	return Summary{
		ID:           r.ID,
		SourceKey:    r.SourceKey,
		Manufacturer: r.ManufacturerRaw,
		PartNumber:   r.PartNumberRaw,
		Description:  r.Description,
	}
}

// CandidatePair is an unordered pair of record IDs with IDA < IDB.
type CandidatePair struct {
	IDA string `json:"id_a"`
	IDB string `json:"id_b"`
}

// NewCandidatePair orders the two IDs so that IDA < IDB.
func NewCandidatePair(a, b string) CandidatePair {
	if b < a {
		a, b = b, a
	}
	return CandidatePair{IDA: a, IDB: b}
}

// Key returns the canonical pair key used for dedup and store lookups.
func (p CandidatePair) Key() string {
	return p.IDA + "|" + p.IDB
}
