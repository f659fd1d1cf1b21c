// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Label is the document-type class assigned to a record.
type Label string

const (
	LabelResearch  Label = "research_discourse"
	LabelEditorial Label = "editorial_discourse"
)

// Classification is the classifier outcome for one record. It is never
// persisted on its own; it is attached to the output record it describes.
type Classification struct {
	// Probability is the positive (research) class probability in [0, 1].
	Probability float64 `json:"proba" yaml:"proba"`

	// Label is derived from Probability with a 0.5 threshold.
	Label Label `json:"label" yaml:"label"`
}
