package reporting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearReportingEnv blanks every TO_* variable so each test starts from a
// known environment.
func clearReportingEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		EnvURL, EnvAPIToken, EnvSnapName, EnvSnapVersion, EnvSnapRevision,
		EnvSnapTrack, EnvSnapStage, EnvSnapStore, EnvEnvironment,
		EnvTestPlan, EnvArch, EnvCILink,
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnvNoURLDisablesReporting(t *testing.T) {
	clearReportingEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ModeNull, cfg.Mode)
}

func TestFromEnvLive(t *testing.T) {
	clearReportingEnv(t)
	t.Setenv(EnvURL, "https://observer.example.com")
	t.Setenv(EnvSnapRevision, "1234")
	t.Setenv(EnvAPIToken, "sekrit")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ModeLive, cfg.Mode)
	assert.Equal(t, "https://observer.example.com", cfg.URL)
	assert.Equal(t, "sekrit", cfg.Token)
	assert.Equal(t, 1234, cfg.Meta.Revision)
}

func TestFromEnvBuffered(t *testing.T) {
	clearReportingEnv(t)
	t.Setenv(EnvURL, "file:///var/tmp/acceptance-buffer")
	t.Setenv(EnvSnapRevision, "99")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ModeBuffered, cfg.Mode)
	assert.Equal(t, "/var/tmp/acceptance-buffer", cfg.Dir)
}

func TestFromEnvDefaults(t *testing.T) {
	clearReportingEnv(t)
	t.Setenv(EnvURL, "https://observer.example.com")
	t.Setenv(EnvSnapRevision, "7")

	cfg, err := FromEnv()
	require.NoError(t, err)

	meta := cfg.Meta
	assert.Equal(t, "openstack", meta.Name)
	assert.Equal(t, "2024.1", meta.Track)
	assert.Equal(t, "edge", meta.Stage)
	assert.Equal(t, "2024.1/edge", meta.Version)
	assert.Equal(t, "ubuntu", meta.Store)
	assert.Equal(t, "manual", meta.Environment)
	assert.Equal(t, "sunbeam-acceptance", meta.TestPlanPrefix)
	assert.NotEmpty(t, meta.Arch)
	assert.Empty(t, meta.CILink)
}

func TestFromEnvVersionFollowsTrackAndStage(t *testing.T) {
	clearReportingEnv(t)
	t.Setenv(EnvURL, "https://observer.example.com")
	t.Setenv(EnvSnapRevision, "7")
	t.Setenv(EnvSnapTrack, "2025.1")
	t.Setenv(EnvSnapStage, "candidate")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "2025.1/candidate", cfg.Meta.Version)
	assert.Equal(t, "2025.1", cfg.Meta.Track)
}

func TestFromEnvErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		errText string
	}{
		{
			name:    "unknown scheme",
			env:     map[string]string{EnvURL: "ftp://host/x", EnvSnapRevision: "1"},
			errText: "must be a file://, http:// or https:// URL",
		},
		{
			name:    "missing revision",
			env:     map[string]string{EnvURL: "https://observer.example.com"},
			errText: "TO_SNAP_REVISION is required",
		},
		{
			name:    "non-integer revision",
			env:     map[string]string{EnvURL: "https://observer.example.com", EnvSnapRevision: "twelve"},
			errText: "must be an integer",
		},
		{
			name:    "unknown stage",
			env:     map[string]string{EnvURL: "https://observer.example.com", EnvSnapRevision: "1", EnvSnapStage: "nightly"},
			errText: "must be one of edge, beta, candidate or stable",
		},
		{
			name:    "empty file path",
			env:     map[string]string{EnvURL: "file://", EnvSnapRevision: "1"},
			errText: "must include a directory path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearReportingEnv(t)
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestMetadataStartRequest(t *testing.T) {
	req := testMeta().StartRequest("security")

	assert.Equal(t, "sunbeam-acceptance-security", req.TestPlan)
	assert.Equal(t, "IN_PROGRESS", req.InitialStatus)
	assert.Equal(t, "snap", req.Family)
	assert.Equal(t, 1234, req.Revision)
	assert.Equal(t, "https://ci.example.com/job/42#sunbeam-acceptance-security", req.CILink)
	require.Len(t, req.RelevantLinks, 1)
	assert.Equal(t, "CI job", req.RelevantLinks[0].Label)
	assert.Equal(t, "https://ci.example.com/job/42", req.RelevantLinks[0].URL)
}

func TestMetadataStartRequestWithoutCILink(t *testing.T) {
	meta := testMeta()
	meta.CILink = ""

	req := meta.StartRequest("operations")
	assert.Empty(t, req.CILink)
	assert.Empty(t, req.RelevantLinks)
}

func TestNewSinkSelectsImplementation(t *testing.T) {
	null, err := NewSink(&Config{Mode: ModeNull})
	require.NoError(t, err)
	assert.IsType(t, &NullSink{}, null)

	buffered, err := NewSink(&Config{Mode: ModeBuffered, Dir: t.TempDir(), Meta: testMeta()})
	require.NoError(t, err)
	assert.IsType(t, &BufferedSink{}, buffered)

	live, err := NewSink(&Config{Mode: ModeLive, URL: "https://observer.example.com", Meta: testMeta()})
	require.NoError(t, err)
	assert.IsType(t, &LiveSink{}, live)
}

func TestUploadConfigFromEnvPrefersArgument(t *testing.T) {
	clearReportingEnv(t)
	t.Setenv(EnvURL, "https://from-env.example.com")
	t.Setenv(EnvAPIToken, "tok")

	cfg, err := UploadConfigFromEnv("https://from-flag.example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://from-flag.example.com", cfg.URL)
	assert.Equal(t, "tok", cfg.Token)
	assert.Equal(t, Metadata{}, cfg.Meta)
}

func TestUploadConfigFromEnvFallsBackToEnvURL(t *testing.T) {
	clearReportingEnv(t)
	t.Setenv(EnvURL, "https://from-env.example.com")

	cfg, err := UploadConfigFromEnv("")
	require.NoError(t, err)
	assert.Equal(t, "https://from-env.example.com", cfg.URL)
}

func TestUploadConfigFromEnvPicksUpMetadata(t *testing.T) {
	clearReportingEnv(t)
	t.Setenv(EnvSnapRevision, "55")

	cfg, err := UploadConfigFromEnv("https://observer.example.com")
	require.NoError(t, err)
	assert.Equal(t, 55, cfg.Meta.Revision)
}

func TestUploadConfigFromEnvRejectsFileURL(t *testing.T) {
	clearReportingEnv(t)

	_, err := UploadConfigFromEnv("file:///var/tmp/buffer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http:// or https://")
}

func TestUploadConfigFromEnvNoURL(t *testing.T) {
	clearReportingEnv(t)

	_, err := UploadConfigFromEnv("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no collector URL")
}

func TestDetectArch(t *testing.T) {
	assert.NotEmpty(t, detectArch())

	// Debian names for the platforms Go spells differently
	assert.Equal(t, "armhf", archNames["arm"])
	assert.Equal(t, "ppc64el", archNames["ppc64le"])
	assert.Equal(t, "i386", archNames["386"])
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "null", ModeNull.String())
	assert.Equal(t, "live", ModeLive.String())
	assert.Equal(t, "buffered", ModeBuffered.String())
}
