package internaldefs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCumulativeBuckets(t *testing.T) {
	raw := NormalizeBuckets([]uint64{1, 2, 3})
	assert.Equal(t, [BucketCount]uint64{1, 3, 6, 6, 6, 6, 6, 6}, CumulativeBuckets(raw))
}

func TestNormalizeBucketsTruncates(t *testing.T) {
	raw := NormalizeBuckets([]uint64{1, 1, 1, 1, 1, 1, 1, 1, 99})
	assert.Equal(t, uint64(1), raw[BucketCount-1])
}

func TestDefinitionsAreUnique(t *testing.T) {
	names := map[string]bool{AuditDroppedName: true}
	ids := map[uint16]bool{}
	for _, def := range CounterDefs {
		assert.True(t, strings.HasSuffix(def.Name, "_total"), def.Name)
		assert.False(t, names[def.Name], "duplicate name %s", def.Name)
		assert.False(t, ids[uint16(def.ID)], "duplicate id %d", def.ID)
		names[def.Name] = true
		ids[uint16(def.ID)] = true
	}
	for _, def := range HistogramDefs {
		assert.False(t, names[def.Name], "duplicate name %s", def.Name)
		assert.False(t, ids[uint16(def.ID)], "histogram id %d also used as counter", def.ID)
	}
}
