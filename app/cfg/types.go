package cfg

import "time"

type Command string

const (
	CommandDiscover Command = "discover"
	CommandBackfill Command = "backfill"
	CommandClassify Command = "classify"
	CommandRun      Command = "run"
	CommandReport   Command = "report"
	CommandServe    Command = "serve"
)

type Cfg struct {
	Command Command

	// Storage and source
	DBPath     string
	SourceFile string

	// LLM configuration
	LLMAPIKey     string
	LLMBaseURL    string
	LLMModel      string
	LLMMaxRetries int
	LLMTimeout    time.Duration
	ExcerptChars  int

	// Pipeline configuration
	BatchLimit   int
	FetchTimeout time.Duration
	Pages        int
	UserAgent    string

	// Report configuration
	Year   int
	Out    string
	InPath string

	// Server configuration
	Port              string
	APIAccessKey      string
	SchedulerInterval time.Duration

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
