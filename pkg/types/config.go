package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "scholar-snapshot/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries bounds retries on HTTP 429/503 (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// APIKey is sent as a bearer token when set. Never serialized.
	APIKey string `json:"-" yaml:"-"`
}

// FailurePolicy decides what happens to sibling shards when one fails.
type FailurePolicy string

const (
	// FailFast cancels queued and running shards on the first failure.
	FailFast FailurePolicy = "fail-fast"

	// ContinueOnError runs every shard and reports all failures together.
	ContinueOnError FailurePolicy = "continue"
)

// ProcessConfig holds settings for the parallel shard processor.
type ProcessConfig struct {
	// SourceDir holds the input shards. Only regular files directly inside
	// it are processed.
	SourceDir string `json:"source_dir" yaml:"source_dir"`

	// DestDir receives one output shard per input shard.
	DestDir string `json:"dest_dir" yaml:"dest_dir"`

	// Workers is the worker pool size (default: number of CPUs).
	Workers int `json:"workers" yaml:"workers"`

	// Suffix is appended to each input base name (default "l.gz").
	Suffix string `json:"suffix" yaml:"suffix"`

	// FailurePolicy defaults to FailFast.
	FailurePolicy FailurePolicy `json:"failure_policy" yaml:"failure_policy"`
}

// FilterConfig holds settings for the legacy inclusion predicate.
type FilterConfig struct {
	// Type is the accepted record type (default "journal-article").
	Type string `json:"type" yaml:"type"`

	// Cutoff is the earliest accepted issued date (default 2013-01-01).
	Cutoff time.Time `json:"cutoff" yaml:"cutoff"`
}

// ClassifierConfig holds settings for the document-type classification stage.
type ClassifierConfig struct {
	HTTPConfig `yaml:",inline"`

	// Source selects the field mapping: "crossref" or "openalex".
	Source string `json:"source" yaml:"source"`

	// ModelPath is a YAML logistic-regression model file.
	ModelPath string `json:"model_path" yaml:"model_path"`

	// ModelURL is a remote scoring endpoint, used when ModelPath is empty.
	ModelURL string `json:"model_url" yaml:"model_url"`
}

// LedgerConfig holds settings for the run ledger.
type LedgerConfig struct {
	// Path is the SQLite database file. Empty disables the ledger.
	Path string `json:"path" yaml:"path"`
}
