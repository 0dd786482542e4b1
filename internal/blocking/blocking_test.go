package blocking

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/productgraph/resolver/internal/alias"
	"github.com/productgraph/resolver/internal/domain"
)

func rec(id, mfr, unspsc string) *domain.Record {
	return &domain.Record{ID: id, ManufacturerRaw: mfr, UNSPSC: unspsc}
}

func newTestBlocker(cfg Config) *Blocker {
	return New(cfg, alias.NewResolver(alias.Table{"Eaton": {"Cutler-Hammer"}}, 0))
}

func TestBlocker_Key(t *testing.T) {
	b := newTestBlocker(Config{})

	tests := []struct {
		name string
		rec  *domain.Record
		want string
	}{
		{"both signals", rec("r1", "Acme Corp", "43211503"), "ACME|4321"},
		{"manufacturer only", rec("r2", "Acme Corp", ""), "ACME"},
		{"manufacturer with invalid unspsc", rec("r3", "Acme Corp", "43-21"), "ACME"},
		{"unspsc only", rec("r4", "", "43211503"), "|4321"},
		{"neither", rec("r5", "", ""), OverflowKey},
		{"alias resolved", rec("r6", "Cutler-Hammer", "43211503"), "EATON|4321"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.Key(tt.rec))
		})
	}
}

func TestBlocker_KeyPrefixLength(t *testing.T) {
	b := newTestBlocker(Config{UNSPSCPrefixLen: 6})

	assert.Equal(t, "ACME|432115", b.Key(rec("r1", "Acme", "43211503")))
}

func TestBlocker_Partition(t *testing.T) {
	b := newTestBlocker(Config{})

	records := []*domain.Record{
		rec("r3", "Acme", "43211503"),
		rec("r1", "Acme", "43211599"), // same family prefix as r3
		rec("r2", "Eaton Corp", "43211503"),
		rec("r4", "", ""),
		rec("r5", "Cutler-Hammer", "43211503"), // alias of Eaton
	}

	buckets, stats := b.Partition(records)

	require.Len(t, buckets, 3)
	assert.Equal(t, "ACME|4321", buckets[0].Key)
	assert.Equal(t, "EATON|4321", buckets[1].Key)
	assert.Equal(t, OverflowKey, buckets[2].Key)

	// Records inside each bucket are ordered by id.
	assert.Equal(t, []string{"r1", "r3"}, ids(buckets[0].Records))
	assert.Equal(t, []string{"r2", "r5"}, ids(buckets[1].Records))

	assert.Equal(t, 3, stats.Buckets)
	assert.Equal(t, 5, stats.Records)
	assert.Equal(t, 2, stats.LargestBucket)
	assert.Equal(t, 1, stats.OverflowSize)
	assert.False(t, stats.Degraded)
}

func TestBlocker_PartitionDegraded(t *testing.T) {
	b := newTestBlocker(Config{OverflowCap: 3})

	var records []*domain.Record
	for i := 0; i < 5; i++ {
		records = append(records, rec(fmt.Sprintf("r%d", i), "", ""))
	}

	buckets, stats := b.Partition(records)

	require.Len(t, buckets, 1)
	assert.Equal(t, 5, stats.OverflowSize)
	assert.True(t, stats.Degraded)
}

func TestBlocker_Pairs(t *testing.T) {
	b := newTestBlocker(Config{})

	bucket := Bucket{Key: "ACME|4321", Records: []*domain.Record{
		rec("r1", "Acme", ""), rec("r2", "Acme", ""), rec("r3", "Acme", ""),
	}}

	pairs := b.Pairs(bucket)

	require.Len(t, pairs, 3)
	assert.Equal(t, domain.NewCandidatePair("r1", "r2"), pairs[0])
	assert.Equal(t, domain.NewCandidatePair("r1", "r3"), pairs[1])
	assert.Equal(t, domain.NewCandidatePair("r2", "r3"), pairs[2])
	for _, p := range pairs {
		assert.Less(t, p.IDA, p.IDB)
	}
}

func TestBlocker_PairsSingleton(t *testing.T) {
	b := newTestBlocker(Config{})

	assert.Nil(t, b.Pairs(Bucket{Key: "ACME", Records: []*domain.Record{rec("r1", "Acme", "")}}))
	assert.Nil(t, b.Pairs(Bucket{Key: "ACME"}))
}

func TestBlocker_OverflowSample(t *testing.T) {
	b := newTestBlocker(Config{OverflowCap: 3, OverflowMaxPairs: 4, OverflowPolicy: PolicySample})

	var records []*domain.Record
	for i := 0; i < 5; i++ {
		records = append(records, rec(fmt.Sprintf("r%d", i), "", ""))
	}
	bucket := Bucket{Key: OverflowKey, Records: records}

	pairs := b.Pairs(bucket)

	// 10 possible pairs sampled down with stride 3: indexes 0, 3, 6, 9.
	require.Len(t, pairs, 4)
	assert.Equal(t, pairs, b.Pairs(bucket), "sampling must be reproducible")
}

func TestBlocker_OverflowSkip(t *testing.T) {
	b := newTestBlocker(Config{OverflowCap: 3, OverflowPolicy: PolicySkip})

	var records []*domain.Record
	for i := 0; i < 5; i++ {
		records = append(records, rec(fmt.Sprintf("r%d", i), "", ""))
	}

	assert.Nil(t, b.Pairs(Bucket{Key: OverflowKey, Records: records}))
}

func TestBlocker_OverflowUnderCapIsExhaustive(t *testing.T) {
	b := newTestBlocker(Config{OverflowCap: 10})

	var records []*domain.Record
	for i := 0; i < 4; i++ {
		records = append(records, rec(fmt.Sprintf("r%d", i), "", ""))
	}

	assert.Len(t, b.Pairs(Bucket{Key: OverflowKey, Records: records}), 6)
}

func ids(records []*domain.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
