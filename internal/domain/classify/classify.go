// Package classify assigns records a temporal status and display type,
// applying the exclusion, facet and type-visibility rules.
package classify

import (
	"github.com/okian/relmap/internal/domain/model"
	"github.com/okian/relmap/internal/domain/temporal"
)

// Variant captures the differences between the two map engines so the rest
// of the pipeline stays generic. The collaborators and trainees maps are
// the two instantiations.
type Variant interface {
	// Name identifies the variant in payloads and metrics.
	Name() model.Variant

	// Label is the human heading used in the diagnostics summary.
	Label() string

	// ExcludedTags lists reserved roles that are always excluded from
	// this engine regardless of other filters.
	ExcludedTags() []string

	// ResolveType maps a record to its display type.
	ResolveType(rec model.Record) model.EntityType

	// DefaultType is re-enabled when the user switches every type off.
	DefaultType() model.EntityType

	// Types lists the toggleable types this variant exposes.
	Types() []model.EntityType
}

// Collaborators is the collaborator-map variant: records tagged with the
// reserved institution tag become institution markers, trainee-tagged
// records are excluded entirely.
type Collaborators struct{}

func (Collaborators) Name() model.Variant     { return model.VariantCollaborators }
func (Collaborators) Label() string           { return "Collaborators" }
func (Collaborators) ExcludedTags() []string  { return []string{"trainee"} }
func (Collaborators) DefaultType() model.EntityType { return model.TypeCollaborator }

func (Collaborators) ResolveType(rec model.Record) model.EntityType {
	if rec.HasTag(model.InstitutionTag) {
		return model.TypeInstitution
	}
	return model.TypeCollaborator
}

func (Collaborators) Types() []model.EntityType {
	return []model.EntityType{model.TypeCollaborator, model.TypeInstitution}
}

// Trainees is the trainee-map variant: type is implicit in institution
// grouping, so every record is a trainee.
type Trainees struct{}

func (Trainees) Name() model.Variant    { return model.VariantTrainees }
func (Trainees) Label() string          { return "Trainees" }
func (Trainees) ExcludedTags() []string { return nil }
func (Trainees) DefaultType() model.EntityType { return model.TypeTrainee }

func (Trainees) ResolveType(model.Record) model.EntityType { return model.TypeTrainee }

func (Trainees) Types() []model.EntityType {
	return []model.EntityType{model.TypeTrainee}
}

// VariantFor returns the engine variant for a payload variant name.
func VariantFor(v model.Variant) (Variant, bool) {
	switch v {
	case model.VariantCollaborators:
		return Collaborators{}, true
	case model.VariantTrainees:
		return Trainees{}, true
	default:
		return nil, false
	}
}

// TypeToggles records which display types the UI currently shows.
type TypeToggles map[model.EntityType]bool

// Enabled reports whether any type is switched on.
func (t TypeToggles) Enabled() bool {
	for _, on := range t {
		if on {
			return true
		}
	}
	return false
}

// Query is the active view query a record is classified against.
type Query struct {
	// ActiveFacets holds normalized tag facets; empty means no facet
	// filter. Multiple facets combine with OR semantics.
	ActiveFacets []string

	// Types holds the UI type toggles.
	Types TypeToggles

	// Time is the temporal sub-query.
	Time temporal.Query
}

// Outcome is the classification of one record under a query.
type Outcome struct {
	Included bool
	Status   model.Status
	Type     model.EntityType
	// MissingYears is set when a year query dropped the record for lack
	// of a start year.
	MissingYears bool
}

// Classifier applies the variant's rules to records.
type Classifier struct {
	variant Variant
	clock   temporal.Clock
}

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithClock injects the clock used to resolve "present" ranges.
func WithClock(clock temporal.Clock) Option {
	return func(c *Classifier) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// New constructs a Classifier for a variant.
func New(variant Variant, opts ...Option) *Classifier {
	c := &Classifier{
		variant: variant,
		clock:   temporal.SystemClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Variant returns the engine variant this classifier serves.
func (c *Classifier) Variant() Variant { return c.variant }

// Clock returns the injected clock.
func (c *Classifier) Clock() temporal.Clock { return c.clock }

// NormalizeTypes auto-corrects an all-off toggle set by re-enabling the
// variant's default type. Returns the corrected set and whether a
// correction happened. The map is copied, never mutated in place.
func (c *Classifier) NormalizeTypes(t TypeToggles) (TypeToggles, bool) {
	out := make(TypeToggles, len(t))
	for k, v := range t {
		out[k] = v
	}
	if out.Enabled() {
		return out, false
	}
	out[c.variant.DefaultType()] = true
	return out, true
}

// Classify resolves one record against the query. Rules apply in order:
// reserved exclusions, type resolution, tag facets, type visibility, and
// finally temporal evaluation.
func (c *Classifier) Classify(rec model.Record, q Query) Outcome {
	for _, t := range c.variant.ExcludedTags() {
		if rec.HasTag(t) {
			return Outcome{}
		}
	}

	typ := c.variant.ResolveType(rec)

	if len(q.ActiveFacets) > 0 && !hasAnyTag(rec, q.ActiveFacets) {
		return Outcome{Type: typ}
	}

	if q.Types != nil && !q.Types[typ] {
		return Outcome{Type: typ}
	}

	res := temporal.Evaluate(rec.Years, rec.StatusHint, q.Time, c.clock)
	return Outcome{
		Included:     res.Included,
		Status:       res.Status,
		Type:         typ,
		MissingYears: res.MissingYears,
	}
}

// ObservedTags collects the distinct normalized tags across records in
// first-seen order, skipping the variant's reserved tags. The facet bar is
// built from this set.
func (c *Classifier) ObservedTags(records []model.Record) []string {
	reserved := make(map[string]struct{})
	for _, t := range c.variant.ExcludedTags() {
		reserved[t] = struct{}{}
	}
	seen := make(map[string]struct{})
	var tags []string
	for _, rec := range records {
		for _, t := range rec.Tags {
			if _, skip := reserved[t]; skip {
				continue
			}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			tags = append(tags, t)
		}
	}
	return tags
}

func hasAnyTag(rec model.Record, facets []string) bool {
	for _, f := range facets {
		if rec.HasTag(f) {
			return true
		}
	}
	return false
}
