// Package collab defines the JSON wire shapes exchanged over the
// platform's message bus, ported from the AMQP `json2msg`/`msg2json`
// framing in common.py. The profiler itself never publishes or
// consumes these messages; it only produces the schema.Dataset that
// a DatasetReadyEvent carries once profiling completes. No AMQP
// client is wired here — see DESIGN.md.
package collab

import "time"

// ProfileJob is queued by a collaborator asking the profiler to process
// one dataset, identified by a storage path the profiler can load.
type ProfileJob struct {
	DatasetID string `json:"dataset_id"`
	DataPath  string `json:"materialize_direct_url,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// DatasetReadyEvent is published once a ProfileJob's dataset has been
// profiled and indexed, so downstream collaborators (the search
// frontend, the augmentation service) know it is queryable.
type DatasetReadyEvent struct {
	DatasetID string    `json:"dataset_id"`
	Indexed   time.Time `json:"indexed"`
}

// ProfileFailedEvent is published when a ProfileJob could not be
// completed, carrying enough detail for a collaborator to decide
// whether to retry.
type ProfileFailedEvent struct {
	DatasetID string `json:"dataset_id"`
	Reason    string `json:"reason"`
}
