package event

// Kind labels a timeline event. Kinds are free-form; these are the ones the engine emits.
type Kind string

const (
	KindCreated           Kind = "Created"
	KindStatusChanged     Kind = "StatusChanged"
	KindOwnerAssigned     Kind = "OwnerAssigned"
	KindOwnerReleased     Kind = "OwnerReleased"
	KindFieldsUpdated     Kind = "FieldsUpdated"
	KindAdjustmentCreated Kind = "AdjustmentCreated"
)

// String returns the string representation of the event kind
func (k Kind) String() string {
	return string(k)
}

// Kinds returns every kind the engine emits
func Kinds() []Kind {
	return []Kind{
		KindCreated,
		KindStatusChanged,
		KindOwnerAssigned,
		KindOwnerReleased,
		KindFieldsUpdated,
		KindAdjustmentCreated,
	}
}

// Envelope carries a persisted timeline event to in-process subscribers
type Envelope struct {
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	Event      Event  `json:"event"`
}
