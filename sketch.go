package tlfu

import "math/bits"

// frequencySketch is a 4-bit Count-Min Sketch with periodic aging, used as
// the popularity history behind the TinyLFU admission policy.
//
// Ported from the Caffeine/moka design (original_source/src/frequency_sketch.rs):
// the counter matrix is one flat array of 64-bit words, sixteen 4-bit
// counters per word, depth 4. The array length is the next power of two at
// or above the configured capacity, which lets index_of use a bit mask
// instead of a modulo.
type frequencySketch struct {
	sampleSize int
	tableMask  uint64
	table      []uint64
	size       int
}

// seed is a mixture of seeds from FNV-1a, CityHash, and Murmur3 (ported
// verbatim from Caffeine via moka).
var sketchSeed = [4]uint64{
	0xc3a5c85c97cb3127,
	0xb492b66fbe98f273,
	0x9ae16a3b2f90404f,
	0xcbf29ce484222325,
}

const (
	sketchResetMask uint64 = 0x7777777777777777
	sketchOneMask   uint64 = 0x1111111111111111
)

// newFrequencySketch builds a sketch sized for cap entries. cap=0 yields a
// one-word table.
func newFrequencySketch(cap int) *frequencySketch {
	maximum := cap
	if maximum > ((1<<31 - 1) >> 1) {
		maximum = (1<<31 - 1) >> 1
	}
	var tableSize int
	if maximum == 0 {
		tableSize = 1
	} else {
		tableSize = nextPow2(maximum)
	}

	sampleSize := 10
	if cap != 0 {
		if maximum > (1<<31-1)/10 {
			sampleSize = 1<<31 - 1
		} else {
			sampleSize = maximum * 10
		}
	}

	return &frequencySketch{
		sampleSize: sampleSize,
		tableMask:  uint64(tableSize - 1),
		table:      make([]uint64, tableSize),
	}
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// frequency returns the estimated number of occurrences of hash, in [0,15].
func (s *frequencySketch) frequency(hash uint64) uint8 {
	start := uint8((hash & 3) << 2)
	freq := uint8(0xFF)
	for i := uint8(0); i < 4; i++ {
		idx := s.indexOf(hash, i)
		count := uint8((s.table[idx] >> ((start + i) << 2)) & 0xF)
		if count < freq {
			freq = count
		}
	}
	return freq
}

// increment bumps hash's four counters, aging the whole table if the
// observed-event budget (sampleSize) has been spent.
func (s *frequencySketch) increment(hash uint64) {
	start := uint8((hash & 3) << 2)
	added := false
	for i := uint8(0); i < 4; i++ {
		idx := s.indexOf(hash, i)
		if s.incrementAt(idx, start+i) {
			added = true
		}
	}
	if added {
		s.size++
		if s.size >= s.sampleSize {
			s.reset()
		}
	}
}

// incrementAt bumps the 4-bit counter at counterIndex within table[tableIndex]
// unless it is already saturated at 15.
func (s *frequencySketch) incrementAt(tableIndex int, counterIndex uint8) bool {
	offset := uint(counterIndex) << 2
	mask := uint64(0xF) << offset
	if s.table[tableIndex]&mask != mask {
		s.table[tableIndex] += uint64(1) << offset
		return true
	}
	return false
}

// reset halves every counter in the table, correcting size for the
// half-counted odd counters.
func (s *frequencySketch) reset() {
	count := 0
	for i, word := range s.table {
		count += bits.OnesCount64(word & sketchOneMask)
		s.table[i] = (word >> 1) & sketchResetMask
	}
	s.size = (s.size >> 1) - (count >> 2)
}

// indexOf returns the table index for the counter at the given depth (0..3).
func (s *frequencySketch) indexOf(hash uint64, depth uint8) int {
	h := (hash + sketchSeed[depth]) * sketchSeed[depth]
	h += h >> 32
	return int(h & s.tableMask)
}
