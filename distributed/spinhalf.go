// Package distributed spreads a spin-1/2 basis over the ranks of a
// communicator and applies operators to distributed vectors.
//
// A configuration is split into a prefix (the high sites) and a postfix
// (the low nsites/2 sites). Every prefix is owned by exactly one rank,
// chosen by hashing the prefix, and the owner stores all configurations with
// that prefix as one contiguous block ordered by postfix.
package distributed

import (
	"encoding/binary"
	"fmt"
	"iter"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/cespare/xxhash/v2"

	"github.com/hupe1980/diaggo/basis"
	"github.com/hupe1980/diaggo/bitops"
	"github.com/hupe1980/diaggo/combinatorics"
	"github.com/hupe1980/diaggo/comm"
	"github.com/hupe1980/diaggo/internal/errs"
)

// Spinhalf is the rank-local part of a spin-1/2 basis with fixed number of
// up spins.
type Spinhalf struct {
	comm   comm.Communicator
	nsites int
	nup    int
	npost  int
	mask   uint64

	// posts[k] is the postfix sector with k up spins, nil if unused.
	posts    []*combinatorics.Combinations
	prefixes []uint64
	owned    *roaring64.Bitmap
	// offsets[i] is the local index of the first state of prefixes[i].
	offsets []int64
}

// NewSpinhalf creates the local part of the basis of nsites spins with nup
// up spins on the rank of c. All ranks must pass the same arguments.
func NewSpinhalf(c comm.Communicator, nsites, nup int) (*Spinhalf, error) {
	if nsites < 1 || nsites > basis.MaxSpinhalfSites {
		return nil, fmt.Errorf("distributed: nsites=%d outside [1, %d]: %w", nsites, basis.MaxSpinhalfSites, errs.ErrInvalidArgument)
	}
	if nup < 0 || nup > nsites {
		return nil, fmt.Errorf("distributed: nup=%d outside [0, %d]: %w", nup, nsites, errs.ErrInvalidArgument)
	}
	npost := nsites / 2
	npre := nsites - npost
	b := &Spinhalf{
		comm:   c,
		nsites: nsites,
		nup:    nup,
		npost:  npost,
		mask:   bitops.LowMask(npost),
		posts:  make([]*combinatorics.Combinations, npost+1),
		owned:  roaring64.New(),
	}

	for k := max(0, nup-npost); k <= min(nup, npre); k++ {
		pre, err := combinatorics.NewCombinations(npre, k)
		if err != nil {
			return nil, err
		}
		if b.posts[nup-k], err = combinatorics.NewCombinations(npost, nup-k); err != nil {
			return nil, err
		}
		for _, p := range pre.All() {
			if b.Owner(p) == c.Rank() {
				b.owned.Add(p)
			}
		}
	}

	b.prefixes = b.owned.ToArray()
	b.offsets = make([]int64, len(b.prefixes)+1)
	for i, p := range b.prefixes {
		b.offsets[i+1] = b.offsets[i] + b.post(p).Size()
	}
	return b, nil
}

// Owner returns the rank owning all configurations with prefix p.
func (b *Spinhalf) Owner(p uint64) int {
	if b.comm.Size() == 1 {
		return 0
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], p)
	return int(xxhash.Sum64(buf[:]) % uint64(b.comm.Size()))
}

// Comm returns the communicator of the basis.
func (b *Spinhalf) Comm() comm.Communicator { return b.comm }

// NSites returns the number of sites.
func (b *Spinhalf) NSites() int { return b.nsites }

// NUp returns the number of up spins.
func (b *Spinhalf) NUp() int { return b.nup }

// Size returns the number of states stored on this rank.
func (b *Spinhalf) Size() int64 { return b.offsets[len(b.offsets)-1] }

// Dim returns the number of states on all ranks.
func (b *Spinhalf) Dim() int64 { return combinatorics.Binomial(b.nsites, b.nup) }

// NumPrefixes returns the number of prefixes owned by this rank.
func (b *Spinhalf) NumPrefixes() int { return len(b.prefixes) }

// Index returns the local index of configuration x, or InvalidIndex if x is
// not stored on this rank.
func (b *Spinhalf) Index(x uint64) int64 {
	p := x >> uint(b.npost)
	if !b.owned.Contains(p) {
		return basis.InvalidIndex
	}
	post := b.post(p)
	if post == nil {
		return basis.InvalidIndex
	}
	j := post.Index(x & b.mask)
	if j == combinatorics.InvalidIndex {
		return basis.InvalidIndex
	}
	return b.offsets[b.owned.Rank(p)-1] + j
}

// State returns the configuration of local index idx.
func (b *Spinhalf) State(idx int64) uint64 {
	lo, hi := 0, len(b.prefixes)
	for lo+1 < hi {
		mid := (lo + hi) / 2
		if b.offsets[mid] <= idx {
			lo = mid
		} else {
			hi = mid
		}
	}
	p := b.prefixes[lo]
	return p<<uint(b.npost) | b.post(p).Nth(idx-b.offsets[lo])
}

// All yields every (local index, configuration) pair in order.
func (b *Spinhalf) All() iter.Seq2[int64, uint64] {
	return func(yield func(int64, uint64) bool) {
		for i, p := range b.prefixes {
			hi := p << uint(b.npost)
			for j, x := range b.post(p).All() {
				if !yield(b.offsets[i]+j, hi|x) {
					return
				}
			}
		}
	}
}

func (b *Spinhalf) post(p uint64) *combinatorics.Combinations {
	k := b.nup - bitops.Popcount(p)
	if k < 0 || k >= len(b.posts) {
		return nil
	}
	return b.posts[k]
}

func (b *Spinhalf) String() string {
	return fmt.Sprintf("distributed.Spinhalf(nsites=%d, nup=%d, rank=%d/%d, size=%d)",
		b.nsites, b.nup, b.comm.Rank(), b.comm.Size(), b.Size())
}
