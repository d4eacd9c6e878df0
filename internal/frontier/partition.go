package frontier

import (
	"fmt"
	"hash/crc32"
	"hash/fnv"
)

// Partitioner strategy names accepted in configuration.
const (
	PartitionerFingerprint = "fingerprint"
	PartitionerCRC32       = "crc32"
)

// FingerprintPartitioner routes by FNV-1a over the fingerprint bytes.
// This is the default strategy.
type FingerprintPartitioner struct {
	slots int
}

// NewFingerprintPartitioner builds the default partitioner.
func NewFingerprintPartitioner(slots int) *FingerprintPartitioner {
	return &FingerprintPartitioner{slots: slots}
}

// Partition implements PartitionStrategy.
func (p *FingerprintPartitioner) Partition(fingerprint string) int {
	h := fnv.New32a()
	h.Write([]byte(fingerprint))
	return int(h.Sum32() % uint32(p.slots))
}

// CRC32Partitioner routes by CRC-32 (IEEE) over the fingerprint bytes.
type CRC32Partitioner struct {
	slots int
}

// NewCRC32Partitioner builds a CRC-32 partitioner.
func NewCRC32Partitioner(slots int) *CRC32Partitioner {
	return &CRC32Partitioner{slots: slots}
}

// Partition implements PartitionStrategy.
func (p *CRC32Partitioner) Partition(fingerprint string) int {
	return int(crc32.ChecksumIEEE([]byte(fingerprint)) % uint32(p.slots))
}

// NewPartitioner builds a strategy by configuration name.
func NewPartitioner(name string, slots int) (PartitionStrategy, error) {
	if slots <= 0 {
		return nil, fmt.Errorf("partitioner needs a positive slot count, got %d", slots)
	}
	switch name {
	case "", PartitionerFingerprint:
		return NewFingerprintPartitioner(slots), nil
	case PartitionerCRC32:
		return NewCRC32Partitioner(slots), nil
	default:
		return nil, fmt.Errorf("unknown partitioner %q", name)
	}
}
