package domain

import "time"

// GoldenRecord is one resolved cluster: a set of member records judged to be
// the same real-world product, with a representative field-set chosen by
// fixed deterministic rules. The ID derives from the sorted member IDs, so an
// unchanged membership reproduces an identical ID across rebuilds.
type GoldenRecord struct {
	ID             string         `json:"id"`
	Representative Representative `json:"representative"`
	MemberIDs      []string       `json:"member_ids"`
	SourceKeys     []string       `json:"source_keys,omitempty"`
	Size           int            `json:"size"`
	Generation     uint64         `json:"generation,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Representative is the canonical field-set of a cluster. Each field is
// chosen independently: title and description take the longest non-empty
// member value, the rest take the most frequent non-empty value; all ties
// break to the lowest member ID.
type Representative struct {
	Manufacturer string `json:"manufacturer"`
	PartNumber   string `json:"part_number"`
	Title        string `json:"title,omitempty"`
	Description  string `json:"description,omitempty"`
	UNSPSC       string `json:"unspsc,omitempty"`
	GTIN         string `json:"gtin,omitempty"`
}

// IsSingleton reports whether the cluster holds exactly one record.
// Singletons are a valid outcome, not a failure to cluster.
func (g *GoldenRecord) IsSingleton() bool {
	return len(g.MemberIDs) == 1
}

// HasMember reports whether the record ID belongs to this cluster.
func (g *GoldenRecord) HasMember(recordID string) bool {
	for _, id := range g.MemberIDs {
		if id == recordID {
			return true
		}
	}
	return false
}
