package flexihash

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/atomic"
)

// DefaultReplicas is the number of ring positions a weight-1 target occupies
// when Options.Replicas is left unset. Low values cause poor distribution.
const DefaultReplicas = 64

var (
	// ErrTargetExists is returned when adding a target that is already
	// registered on the ring.
	ErrTargetExists = errors.New("target already registered")

	// ErrTargetNotFound is returned when removing a target that is not
	// registered on the ring.
	ErrTargetNotFound = errors.New("target not registered")

	// ErrNoTargets is returned by Lookup and LookupChoose when the ring has
	// no targets.
	ErrNoTargets = errors.New("no targets registered")

	// ErrInvalidCount is returned by lookups when the requested number of
	// owners is zero or negative.
	ErrInvalidCount = errors.New("requested count must be positive")
)

// Options configures a Ring.
type Options struct {
	// Hasher places targets and resources on the ring. Every position a Ring
	// sees must come from the same Hasher; swapping Hashers on a live Ring is
	// not supported. Defaults to XXHasher.
	Hasher Hasher

	// Replicas is the number of positions a weight-1 target occupies.
	// Defaults to DefaultReplicas.
	Replicas int

	// Choose picks an index in [0, n) among the candidate owners returned by
	// LookupChoose. Defaults to uniform random.
	Choose func(n int) int
}

func (o *Options) validate() error {
	if o.Hasher == nil {
		o.Hasher = XXHasher{}
	}
	if o.Replicas == 0 {
		o.Replicas = DefaultReplicas
	}
	if o.Replicas < 0 {
		return fmt.Errorf("replica count must be positive, got %d", o.Replicas)
	}
	if o.Choose == nil {
		o.Choose = rand.Intn
	}
	return nil
}

// Ring maps resource keys to targets with consistent hashing. Each target
// occupies several hashed positions on the ring; a resource resolves to the
// target owning the next position after the resource's hash, wrapping at the
// ring boundary. Adding or removing a target only remaps resources adjacent
// to that target's positions.
//
// Ring is safe for concurrent use. Mutations are serialized; lookups read an
// immutable compiled view that is invalidated by every mutation and rebuilt
// on the first lookup afterwards.
type Ring struct {
	opts Options

	mut               sync.Mutex
	positionToTarget  map[uint64]string
	targetToPositions map[string][]uint64

	// compiled caches the sorted view used by lookups. nil means stale.
	compiled atomic.Pointer[compiledRing]
}

// compiledRing is an immutable snapshot of the ring's positions. Lookups
// read it without holding the mutex.
type compiledRing struct {
	entries []ringEntry // ascending by position
	targets []string    // distinct registered targets, sorted
}

type ringEntry struct {
	position uint64
	target   string
}

// New returns an empty Ring configured by opts.
func New(opts Options) (*Ring, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Ring{
		opts:              opts,
		positionToTarget:  make(map[uint64]string),
		targetToPositions: make(map[string][]uint64),
	}, nil
}

// AddTarget registers target on the ring with weight 1. It fails with
// ErrTargetExists if target is already registered.
func (r *Ring) AddTarget(target string) error {
	return r.AddWeightedTarget(target, 1)
}

// AddWeightedTarget registers target on the ring at round(Replicas*weight)
// positions. It fails with ErrTargetExists if target is already registered
// and rejects negative weights. A weight rounding to zero positions still
// registers the target; lookups will simply never land on it.
func (r *Ring) AddWeightedTarget(target string, weight float64) error {
	r.mut.Lock()
	defer r.mut.Unlock()
	return r.addTarget(target, weight)
}

// addTarget registers target while holding r.mut.
func (r *Ring) addTarget(target string, weight float64) error {
	if weight < 0 {
		return fmt.Errorf("add target %q: weight must be non-negative, got %v", target, weight)
	}
	if _, ok := r.targetToPositions[target]; ok {
		return fmt.Errorf("add target %q: %w", target, ErrTargetExists)
	}

	replicas := int(math.Round(float64(r.opts.Replicas) * weight))
	positions := make([]uint64, 0, replicas)
	for i := 0; i < replicas; i++ {
		// When two replica keys hash to the same position, the later replica
		// overwrites the earlier mapping. Last writer wins per position;
		// changing this would change placement for existing deployments.
		position := r.opts.Hasher.Hash([]byte(target + strconv.Itoa(i)))
		r.positionToTarget[position] = target
		positions = append(positions, position)
	}

	r.targetToPositions[target] = positions
	r.compiled.Store(nil)
	return nil
}

// AddTargets registers each target in order with weight 1. It is not atomic:
// a failure partway (e.g. a duplicate) leaves the targets added before it on
// the ring. Callers needing all-or-nothing semantics should use
// AddTargetsAtomic.
func (r *Ring) AddTargets(targets ...string) error {
	r.mut.Lock()
	defer r.mut.Unlock()

	for _, target := range targets {
		if err := r.addTarget(target, 1); err != nil {
			return err
		}
	}
	return nil
}

// AddTargetsAtomic registers every target with weight 1, or none of them.
// The whole batch is validated up front; on failure the returned error
// reports every target that is already registered or duplicated within the
// batch, and the ring is left unchanged.
func (r *Ring) AddTargetsAtomic(targets ...string) error {
	r.mut.Lock()
	defer r.mut.Unlock()

	var (
		errs *multierror.Error
		seen = make(map[string]struct{}, len(targets))
	)
	for _, target := range targets {
		if _, ok := r.targetToPositions[target]; ok {
			errs = multierror.Append(errs, fmt.Errorf("add target %q: %w", target, ErrTargetExists))
			continue
		}
		if _, ok := seen[target]; ok {
			errs = multierror.Append(errs, fmt.Errorf("add target %q: duplicated in batch: %w", target, ErrTargetExists))
			continue
		}
		seen[target] = struct{}{}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return err
	}

	for _, target := range targets {
		// Cannot fail; the batch was validated above.
		if err := r.addTarget(target, 1); err != nil {
			return err
		}
	}
	return nil
}

// RemoveTarget removes target and all of its positions from the ring. It
// fails with ErrTargetNotFound if target is not registered.
func (r *Ring) RemoveTarget(target string) error {
	r.mut.Lock()
	defer r.mut.Unlock()

	positions, ok := r.targetToPositions[target]
	if !ok {
		return fmt.Errorf("remove target %q: %w", target, ErrTargetNotFound)
	}

	for _, position := range positions {
		delete(r.positionToTarget, position)
	}
	delete(r.targetToPositions, target)
	r.compiled.Store(nil)
	return nil
}

// Targets returns the registered targets. The order carries no meaning; it
// is sorted only to be stable.
func (r *Ring) Targets() []string {
	r.mut.Lock()
	defer r.mut.Unlock()

	targets := make([]string, 0, len(r.targetToPositions))
	for target := range r.targetToPositions {
		targets = append(targets, target)
	}
	sort.Strings(targets)
	return targets
}

// TargetCount returns the number of registered targets.
func (r *Ring) TargetCount() int {
	r.mut.Lock()
	defer r.mut.Unlock()
	return len(r.targetToPositions)
}

// compile returns the current sorted view of the ring, rebuilding it if a
// mutation invalidated it.
func (r *Ring) compile() *compiledRing {
	if c := r.compiled.Load(); c != nil {
		return c
	}

	r.mut.Lock()
	defer r.mut.Unlock()
	if c := r.compiled.Load(); c != nil {
		return c
	}

	c := &compiledRing{
		entries: make([]ringEntry, 0, len(r.positionToTarget)),
		targets: make([]string, 0, len(r.targetToPositions)),
	}
	for position, target := range r.positionToTarget {
		c.entries = append(c.entries, ringEntry{position: position, target: target})
	}
	sort.Slice(c.entries, func(i, j int) bool { return c.entries[i].position < c.entries[j].position })
	for target := range r.targetToPositions {
		c.targets = append(c.targets, target)
	}
	sort.Strings(c.targets)

	r.compiled.Store(c)
	return c
}

// LookupList returns up to count distinct targets owning resource, nearest
// owner first. It walks exactly count positions forward from the resource's
// position, collapsing duplicate targets, so the result can be shorter than
// count even when more distinct targets exist elsewhere on the ring.
//
// An empty ring yields an empty list, not an error. count must be positive
// or LookupList fails with ErrInvalidCount.
func (r *Ring) LookupList(resource string, count int) ([]string, error) {
	if count <= 0 {
		return nil, fmt.Errorf("lookup %q: count %d: %w", resource, count, ErrInvalidCount)
	}

	c := r.compile()
	switch len(c.targets) {
	case 0:
		return []string{}, nil
	case 1:
		// A single target owns the whole ring; no hashing needed.
		return []string{c.targets[0]}, nil
	}

	resourcePosition := r.opts.Hasher.Hash([]byte(resource))

	// The first owner is the target at the smallest position strictly
	// greater than the resource's. Wrap around if we hit the end of the
	// list.
	idx := sort.Search(len(c.entries), func(i int) bool {
		return c.entries[i].position > resourcePosition
	})
	if idx == len(c.entries) {
		idx = 0
	}

	if count > len(c.entries) {
		count = len(c.entries)
	}
	var (
		res  = make([]string, 0, count)
		seen = make(map[string]struct{}, count)
	)
	for i := 0; i < count; i++ {
		owner := c.entries[(idx+i)%len(c.entries)].target
		if _, ok := seen[owner]; ok {
			continue
		}
		seen[owner] = struct{}{}
		res = append(res, owner)
	}
	return res, nil
}

// Lookup returns the target owning resource. It fails with ErrNoTargets if
// the ring is empty.
func (r *Ring) Lookup(resource string) (string, error) {
	targets, err := r.LookupList(resource, 1)
	if err != nil {
		return "", err
	}
	if len(targets) == 0 {
		return "", fmt.Errorf("lookup %q: %w", resource, ErrNoTargets)
	}
	return targets[0], nil
}

// LookupChoose returns one of the top count owners of resource, picked by
// the ring's Choose function. This spreads load across the owners rather
// than designating a primary; use Lookup for the deterministic first owner.
func (r *Ring) LookupChoose(resource string, count int) (string, error) {
	targets, err := r.LookupList(resource, count)
	if err != nil {
		return "", err
	}
	switch len(targets) {
	case 0:
		return "", fmt.Errorf("lookup %q: %w", resource, ErrNoTargets)
	case 1:
		return targets[0], nil
	}
	return targets[r.opts.Choose(len(targets))], nil
}

// String returns a diagnostic rendering of the ring.
func (r *Ring) String() string {
	return fmt.Sprintf("flexihash.Ring{targets:[%s]}", strings.Join(r.Targets(), ","))
}
