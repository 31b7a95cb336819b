package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "sra-harvester/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AcquisitionConfig holds settings for the acquisition stage: the background
// worker that drives the esearch|efetch process pipeline into a corpus file.
type AcquisitionConfig struct {
	// FetchTimeout is the wall-clock ceiling for one keyword's download.
	// On expiry both external processes are killed and whatever reached the
	// scratch file is merged (default 5m).
	FetchTimeout time.Duration `json:"fetch_timeout" yaml:"fetch_timeout"`

	// PollInterval is how often the worker checks scratch-file growth (default 2s).
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`

	// GrowthThreshold is the number of new scratch-file bytes that triggers an
	// incremental merge into the corpus (default 10 KiB).
	GrowthThreshold int64 `json:"growth_threshold" yaml:"growth_threshold"`

	// WorkDir is the directory for corpus and scratch files.
	WorkDir string `json:"work_dir" yaml:"work_dir"`
}

// CorpusConfig holds settings for the corpus tailer that turns the growing
// corpus file into batches of accessions.
type CorpusConfig struct {
	// BatchSize is the number of accessions per yielded batch (default 10).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// CreateTimeout bounds the wait for the corpus file to appear; prolonged
	// absence is treated as an acquisition-tooling failure (default 120s).
	CreateTimeout time.Duration `json:"create_timeout" yaml:"create_timeout"`

	// PollInterval is the sleep between no-growth checks (default 2s).
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`

	// MaxIdleCycles is the number of consecutive no-growth cycles after which
	// the tailer checks whether the producer has finished (default 10).
	MaxIdleCycles int `json:"max_idle_cycles" yaml:"max_idle_cycles"`
}

// AIConfig holds shared settings for stages that call the inference backend.
type AIConfig struct {
	// Model is the Ollama model identifier (e.g. "qwen3:8b").
	Model string `json:"model" yaml:"model"`

	// Host is the Ollama base URL (default "http://localhost:11434").
	Host string `json:"host" yaml:"host"`

	// MaxRetries is the number of retry attempts for failed backend calls
	// (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// CallTimeout is the per-call ceiling for one backend invocation
	// (default 120s).
	CallTimeout time.Duration `json:"call_timeout" yaml:"call_timeout"`

	// MinInterval is the minimum gap between consecutive backend requests,
	// protecting a single-capacity local model from overload (default 1s).
	MinInterval time.Duration `json:"min_interval" yaml:"min_interval"`
}

// ExtractionConfig holds settings for the extraction stage.
type ExtractionConfig struct {
	AIConfig `yaml:",inline"`

	// AuditDir is where raw backend responses and their parsed interpretation
	// are persisted for offline inspection. Empty disables auditing.
	AuditDir string `json:"audit_dir" yaml:"audit_dir"`

	// SessionRefreshEvery bounds backend-side state inside one very large
	// study group: the session is rotated after this many samples without
	// discarding the study context (default 30).
	SessionRefreshEvery int `json:"session_refresh_every" yaml:"session_refresh_every"`
}

// ArchiveConfig holds settings for the SQLite result archive.
type ArchiveConfig struct {
	// Dir is the base directory for the archive database (contains index/).
	Dir string `json:"dir" yaml:"dir"`

	// MaxResults is the default maximum number of search results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// PipelineConfig groups all stage configurations for one run.
type PipelineConfig struct {
	HTTP        HTTPConfig        `json:"http" yaml:"http"`
	Acquisition AcquisitionConfig `json:"acquisition" yaml:"acquisition"`
	Corpus      CorpusConfig      `json:"corpus" yaml:"corpus"`
	Extraction  ExtractionConfig  `json:"extraction" yaml:"extraction"`
	Archive     ArchiveConfig     `json:"archive" yaml:"archive"`

	// Workers is the size of the sample worker pool. One is the safe default:
	// the local backend is assumed single-capacity and crash-prone under
	// concurrent load.
	Workers int `json:"workers" yaml:"workers"`

	// Append resumes into an existing result file instead of truncating it.
	Append bool `json:"append" yaml:"append"`
}
