// Package admission answers "what is eligible right now?" and gates the
// mutations that could violate the priority-overlap cap. It is the only
// component in the engine with side effects; the evaluator it drives is
// pure.
package admission

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"promo-engine/internal/eligibility"
)

// Store is the keyed promotion collection the controller reads and writes.
// The controller never issues queries of its own; durability and atomicity
// beyond the in-process check belong to the implementation.
type Store interface {
	LoadAll(ctx context.Context) ([]eligibility.Promotion, error)
	LoadOne(ctx context.Context, id string) (*eligibility.Promotion, error)
	Save(ctx context.Context, id string, patch Patch) (*eligibility.Promotion, error)
}

// Options tune a Controller. Zero values fall back to cap 2, no
// active-overlap cap, wall clock, local timezone.
type Options struct {
	// PriorityCap bounds the number of concurrently-eligible priority
	// promotions.
	PriorityCap int
	// ActiveCap, when > 0, additionally bounds the number of
	// concurrently-eligible promotions of any tier.
	ActiveCap int
	// Now supplies the current instant; injected so admission decisions
	// are reproducible in tests.
	Now func() time.Time
	// Location is the reference timezone eligibility is computed in.
	Location *time.Location
}

type Controller struct {
	store       Store
	priorityCap int
	activeCap   int
	now         func() time.Time
	loc         *time.Location

	// Serializes check-then-write within this process. Cross-instance
	// races are handled (best effort) by the store's row lock.
	mu sync.Mutex
}

func New(store Store, opts Options) *Controller {
	if opts.PriorityCap <= 0 {
		opts.PriorityCap = 2
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Controller{
		store:       store,
		priorityCap: opts.PriorityCap,
		activeCap:   opts.ActiveCap,
		now:         opts.Now,
		loc:         opts.Location,
	}
}

// Now returns the current instant in the controller's reference timezone.
func (c *Controller) Now() time.Time {
	return c.now().In(c.loc)
}

// ListEligibleNow loads every rule-set, active or not, and returns the
// subset eligible at the current instant. Filtering happens in the
// evaluator, not the query, so the admin preview sees exactly what the
// storefront would.
func (c *Controller) ListEligibleNow(ctx context.Context) ([]eligibility.Promotion, error) {
	return c.EligibleAt(ctx, c.Now())
}

// EligibleAt is ListEligibleNow against an arbitrary instant.
func (c *Controller) EligibleAt(ctx context.Context, at time.Time) ([]eligibility.Promotion, error) {
	all, err := c.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load promotions: %w", err)
	}
	return eligibility.EligibleAt(all, at.In(c.loc)), nil
}

// CountPriorityEligible reports how many priority promotions are eligible
// at the given instant. Exposed separately for the admin UI badge.
func (c *Controller) CountPriorityEligible(ctx context.Context, asOf time.Time) (int, error) {
	eligible, err := c.EligibleAt(ctx, asOf)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range eligible {
		if p.IsPriority {
			n++
		}
	}
	return n, nil
}

// AttemptActivate applies a partial update to a promotion after checking
// that the result would not exceed the priority cap (or the optional
// active-overlap cap) at the current instant.
//
// The check evaluates the hypothetical merged rule-set: if it would not be
// eligible right now, no overlap can occur and the mutation is allowed
// unconditionally — the cap limits concurrent visibility, not how many
// rows carry the priority flag. Rejections return *Error listing the
// titles of every currently-eligible blocker. Nothing is written on
// rejection.
func (c *Controller) AttemptActivate(ctx context.Context, id string, patch Patch) (*eligibility.Promotion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.store.LoadOne(ctx, id)
	if err != nil {
		return nil, err
	}

	hypothetical := patch.Apply(*current)
	if err := eligibility.Validate(hypothetical); err != nil {
		return nil, err
	}

	now := c.Now()
	if res := eligibility.Evaluate(hypothetical, now); res.Eligible {
		all, err := c.store.LoadAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("load promotions: %w", err)
		}
		// Other rows are judged by their stored rules, not the
		// hypothetical one; the target is excluded from its own count.
		var others []eligibility.Promotion
		for _, p := range all {
			if p.ID != id {
				others = append(others, p)
			}
		}
		eligible := eligibility.EligibleAt(others, now)

		if hypothetical.IsPriority {
			var conflicts []string
			for _, p := range eligible {
				if p.IsPriority {
					conflicts = append(conflicts, p.Title)
				}
			}
			if len(conflicts) >= c.priorityCap {
				log.Warn().Str("id", id).Strs("conflicts", conflicts).
					Msg("priority cap rejection")
				return nil, &Error{Code: CodePriorityLimit, Conflicts: conflicts}
			}
		}

		if c.activeCap > 0 && len(eligible) >= c.activeCap {
			conflicts := make([]string, 0, len(eligible))
			for _, p := range eligible {
				conflicts = append(conflicts, p.Title)
			}
			log.Warn().Str("id", id).Strs("conflicts", conflicts).
				Msg("active overlap cap rejection")
			return nil, &Error{Code: CodeActiveOverlapLimit, Conflicts: conflicts}
		}
	}

	updated, err := c.store.Save(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("save promotion: %w", err)
	}
	return updated, nil
}
