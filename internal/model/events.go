package model

// ArcNotifyEvent announces that a lot of a dataset is available. It is raised
// by boundaries and timers, and by the complete handler for every published
// sink of a completed lot.
type ArcNotifyEvent struct {
	ID        string    `json:"id,omitempty"`
	LotID     string    `json:"lot"`
	Dataset   Dataset   `json:"dataset"`
	Placement Placement `json:"placement"`
	// Role is the sink role that produced the dataset, empty for external
	// triggers.
	Role string `json:"role,omitempty"`
	// Manifest is the manifest URI of the produced lot, empty for timers.
	Manifest string `json:"manifest,omitempty"`
}

// ArcExecContext is returned by the start handler and handed to the workload.
type ArcExecContext struct {
	PreviousState  ArcState       `json:"previousState,omitempty"`
	CurrentState   ArcState       `json:"currentState"`
	Role           string         `json:"role"`
	ArcNotifyEvent ArcNotifyEvent `json:"arcNotifyEvent"`
	// SinkManifestURIs maps sink role to the manifest path (lot set, state
	// unset) the workload writes its manifest under.
	SinkManifestURIs map[string]string `json:"sinkManifestURIs"`
}

// ArcStateContext is the input and output of the complete handler.
type ArcStateContext struct {
	PreviousState  ArcState       `json:"previousState,omitempty"`
	CurrentState   ArcState       `json:"currentState"`
	Role           string         `json:"role,omitempty"`
	ArcNotifyEvent ArcNotifyEvent `json:"arcNotifyEvent"`
	// SinkManifestURIs maps sink role to the manifest identifier the workload
	// wrote.
	SinkManifestURIs map[string]string `json:"sinkManifestURIs,omitempty"`
	// WorkloadErrors is empty unless the workload failed.
	WorkloadErrors map[string]string `json:"workloadErrors,omitempty"`
}

// LotID returns the lot the context refers to.
func (c ArcStateContext) LotID() string {
	return c.ArcNotifyEvent.LotID
}
