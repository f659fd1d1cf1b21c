// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ShardStatus is the terminal state of one shard task.
type ShardStatus string

const (
	ShardDone      ShardStatus = "done"
	ShardFailed    ShardStatus = "failed"
	ShardCancelled ShardStatus = "cancelled"
)

// ShardOutcome describes how one input shard was processed.
type ShardOutcome struct {
	// Input is the path of the source shard.
	Input string `json:"input" yaml:"input"`

	// Output is the path of the written shard. It does not exist unless
	// Status is ShardDone.
	Output string `json:"output" yaml:"output"`

	// Read counts records decoded from Input.
	Read int `json:"records_read" yaml:"records_read"`

	// Written counts records written to Output after filtering.
	Written int `json:"records_written" yaml:"records_written"`

	Status   ShardStatus   `json:"status" yaml:"status"`
	Duration time.Duration `json:"duration" yaml:"duration"`

	// Err holds the failure or cancellation cause.
	Err error `json:"-" yaml:"-"`
}

// ErrorText returns the error message, or "" when the shard succeeded.
func (o ShardOutcome) ErrorText() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
