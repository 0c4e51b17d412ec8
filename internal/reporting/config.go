package reporting

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/gboutry/defining-acceptance/internal/observer"
)

// Environment variables consumed by the reporting layer.
const (
	EnvURL          = "TO_URL"
	EnvAPIToken     = "TO_API_TOKEN"
	EnvSnapName     = "TO_SNAP_NAME"
	EnvSnapVersion  = "TO_SNAP_VERSION"
	EnvSnapRevision = "TO_SNAP_REVISION"
	EnvSnapTrack    = "TO_SNAP_TRACK"
	EnvSnapStage    = "TO_SNAP_STAGE"
	EnvSnapStore    = "TO_SNAP_STORE"
	EnvEnvironment  = "TO_ENVIRONMENT"
	EnvTestPlan     = "TO_TEST_PLAN"
	EnvArch         = "TO_ARCH"
	EnvCILink       = "TO_CI_LINK"
)

// Mode selects which sink the factory builds
type Mode int

const (
	// ModeNull drops events; selected when no collector is configured
	ModeNull Mode = iota
	// ModeLive posts events to the collector as they arrive
	ModeLive
	// ModeBuffered appends events to local JSONL logs for later upload
	ModeBuffered
)

// String returns the mode's name for logs
func (m Mode) String() string {
	switch m {
	case ModeNull:
		return "null"
	case ModeLive:
		return "live"
	case ModeBuffered:
		return "buffered"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Metadata describes the artefact under test. It is attached to every
// create-execution call and embedded into buffered run-started records.
type Metadata struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	Arch           string `json:"arch"`
	Environment    string `json:"environment"`
	TestPlanPrefix string `json:"test_plan_prefix"`
	Revision       int    `json:"revision"`
	Track          string `json:"track"`
	Store          string `json:"store"`
	Stage          string `json:"stage"`
	CILink         string `json:"ci_link,omitempty"`
}

// TestPlan returns the collector test plan name for one category
func (m Metadata) TestPlan(category string) string {
	return m.TestPlanPrefix + "-" + category
}

// StartRequest builds the create-execution body for one category
func (m Metadata) StartRequest(category string) observer.StartRequest {
	plan := m.TestPlan(category)

	req := observer.StartRequest{
		Name:           m.Name,
		Version:        m.Version,
		Arch:           m.Arch,
		Environment:    m.Environment,
		TestPlan:       plan,
		InitialStatus:  observer.ExecutionInProgress,
		Family:         "snap",
		Revision:       m.Revision,
		Track:          m.Track,
		Store:          m.Store,
		ExecutionStage: m.Stage,
	}

	if m.CILink != "" {
		req.RelevantLinks = []observer.RelevantLink{{Label: "CI job", URL: m.CILink}}
		req.CILink = m.CILink + "#" + plan
	}

	return req
}

// Config is the reporting configuration, read once at process start
type Config struct {
	Mode  Mode
	URL   string // collector base URL, live mode only
	Dir   string // buffer directory, buffered mode only
	Token string
	Meta  Metadata
}

// snap release stages the collector understands
var validStages = map[string]bool{
	"edge":      true,
	"beta":      true,
	"candidate": true,
	"stable":    true,
}

// Debian architecture names differ from Go's for a few platforms
var archNames = map[string]string{
	"386":     "i386",
	"arm":     "armhf",
	"ppc64le": "ppc64el",
}

// detectArch maps runtime.GOARCH to the Debian architecture name the
// collector expects
func detectArch() string {
	if name, ok := archNames[runtime.GOARCH]; ok {
		return name
	}
	return runtime.GOARCH
}

func getenvDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// FromEnv builds the reporting configuration from TO_* environment
// variables. An empty TO_URL disables reporting entirely. A file:// URL
// selects buffered mode rooted at the URL's path; http and https select
// live mode; anything else is a configuration error.
func FromEnv() (*Config, error) {
	rawURL := os.Getenv(EnvURL)
	if rawURL == "" {
		return &Config{Mode: ModeNull}, nil
	}

	meta, err := metadataFromEnv()
	if err != nil {
		return nil, err
	}

	switch {
	case strings.HasPrefix(rawURL, "file://"):
		dir := strings.TrimPrefix(rawURL, "file://")
		if dir == "" {
			return nil, fmt.Errorf("%s file URL must include a directory path", EnvURL)
		}
		return &Config{Mode: ModeBuffered, Dir: dir, Meta: *meta}, nil

	case strings.HasPrefix(rawURL, "http://"), strings.HasPrefix(rawURL, "https://"):
		return &Config{
			Mode:  ModeLive,
			URL:   rawURL,
			Token: os.Getenv(EnvAPIToken),
			Meta:  *meta,
		}, nil

	default:
		return nil, fmt.Errorf("%s must be a file://, http:// or https:// URL, got %q", EnvURL, rawURL)
	}
}

// metadataFromEnv reads the artefact description. The revision is the only
// required value; everything else has the defaults the collector's snap
// dashboard expects.
func metadataFromEnv() (*Metadata, error) {
	rawRevision := os.Getenv(EnvSnapRevision)
	if rawRevision == "" {
		return nil, fmt.Errorf("%s is required when %s is set", EnvSnapRevision, EnvURL)
	}
	revision, err := strconv.Atoi(rawRevision)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer, got %q", EnvSnapRevision, rawRevision)
	}

	stage := getenvDefault(EnvSnapStage, "edge")
	if !validStages[stage] {
		return nil, fmt.Errorf("%s must be one of edge, beta, candidate or stable, got %q", EnvSnapStage, stage)
	}

	track := getenvDefault(EnvSnapTrack, "2024.1")

	return &Metadata{
		Name:           getenvDefault(EnvSnapName, "openstack"),
		Version:        getenvDefault(EnvSnapVersion, track+"/"+stage),
		Arch:           getenvDefault(EnvArch, detectArch()),
		Environment:    getenvDefault(EnvEnvironment, "manual"),
		TestPlanPrefix: getenvDefault(EnvTestPlan, "sunbeam-acceptance"),
		Revision:       revision,
		Track:          track,
		Store:          getenvDefault(EnvSnapStore, "ubuntu"),
		Stage:          stage,
		CILink:         os.Getenv(EnvCILink),
	}, nil
}

// NewSink builds the sink selected by the configuration
func NewSink(cfg *Config) (Sink, error) {
	switch cfg.Mode {
	case ModeNull:
		return NewNullSink(), nil
	case ModeBuffered:
		return NewBufferedSink(cfg.Dir, cfg.Meta)
	case ModeLive:
		return NewLiveSink(observer.NewClient(cfg.URL, cfg.Token), cfg.Meta), nil
	default:
		return nil, fmt.Errorf("unknown reporting mode %d", int(cfg.Mode))
	}
}
