package admission

import (
	"encoding/json"
	"time"

	"promo-engine/internal/eligibility"
)

// Field is a JSON value that remembers whether its key was present at all.
// An absent key leaves the stored field untouched; an explicit null clears
// an optional constraint (Set=true, pointer value nil).
type Field[T any] struct {
	Set   bool
	Value T
}

func (f *Field[T]) UnmarshalJSON(b []byte) error {
	f.Set = true
	return json.Unmarshal(b, &f.Value)
}

// Patch is a partial update to a promotion, as submitted by the admin UI.
type Patch struct {
	Title       Field[string]                 `json:"title"`
	Description Field[string]                 `json:"description"`
	ImageRef    Field[string]                 `json:"imageRef"`
	IsActive    Field[bool]                   `json:"isActive"`
	IsPriority  Field[bool]                   `json:"isPriority"`
	ValidFrom   Field[*eligibility.Date]      `json:"validFrom"`
	ValidTo     Field[*eligibility.Date]      `json:"validTo"`
	StartTime   Field[*eligibility.TimeOfDay] `json:"startTime"`
	EndTime     Field[*eligibility.TimeOfDay] `json:"endTime"`
	Days        Field[[]time.Weekday]         `json:"daysOfWeek"`
}

// IsZero reports whether the patch carries no changes at all.
func (p Patch) IsZero() bool {
	return !p.Title.Set && !p.Description.Set && !p.ImageRef.Set &&
		!p.IsActive.Set && !p.IsPriority.Set &&
		!p.ValidFrom.Set && !p.ValidTo.Set &&
		!p.StartTime.Set && !p.EndTime.Set && !p.Days.Set
}

// Apply merges the patch over a stored promotion and returns the result.
// The input is not mutated; callers use the merged value both as the
// hypothetical rule-set for admission checks and as the write payload.
func (p Patch) Apply(base eligibility.Promotion) eligibility.Promotion {
	out := base
	if p.Title.Set {
		out.Title = p.Title.Value
	}
	if p.Description.Set {
		out.Description = p.Description.Value
	}
	if p.ImageRef.Set {
		out.ImageRef = p.ImageRef.Value
	}
	if p.IsActive.Set {
		out.IsActive = p.IsActive.Value
	}
	if p.IsPriority.Set {
		out.IsPriority = p.IsPriority.Value
	}
	if p.ValidFrom.Set {
		out.ValidFrom = p.ValidFrom.Value
	}
	if p.ValidTo.Set {
		out.ValidTo = p.ValidTo.Value
	}
	if p.StartTime.Set {
		out.StartTime = p.StartTime.Value
	}
	if p.EndTime.Set {
		out.EndTime = p.EndTime.Value
	}
	if p.Days.Set {
		out.Days = p.Days.Value
	}
	return out
}
