package draft

import "venueadmin/pkg/domain"

// Schema describes one entity kind to the engine. Implementations are
// stateless values; the venue package provides one per collection.
type Schema[K domain.Key, F any] interface {
	Kind() domain.EntityKind
	KeySpace() KeySpace[K]
	// Defaults returns the fields of a freshly activated key.
	Defaults(key K) F
	// Clone returns a copy of fields sharing no pointers with the input.
	Clone(fields F) F
	// Normalize returns the effective value of fields: gated values whose gate
	// is off become absent, text is trimmed. The input is not modified.
	Normalize(fields F) F
	// Equal reports whether two normalized payloads are identical.
	Equal(a, b F) bool
	// Reconcile restores derived-field consistency after an edit, using
	// before to tell which field the edit touched.
	Reconcile(before F, after *F)
	Fields() FieldSet[F]
	Rules() *domain.RuleSet[F]
}
