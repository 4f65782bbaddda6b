package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"nicepods-server/creation-service/internal/config"
	"nicepods-server/creation-service/internal/flow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wizard.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadWizardSettingsFromFile(t *testing.T) {
	path := writeSettings(t, `
disabled_intents: [inspire]
disabled_choices: ["learnMode=deep"]
session_max_age: 12h
autosave_delay: 500ms
`)
	s, err := config.LoadWizardSettings(path)
	require.NoError(t, err)

	assert.Equal(t, 12*time.Hour, s.SessionMaxAge)
	assert.Equal(t, 500*time.Millisecond, s.AutosaveDelay)
	assert.Equal(t, 3*time.Minute, s.GenerationTimeout, "unset values fall back to defaults")
	assert.Equal(t, "0 * * * *", s.SweepSchedule)

	cfg := s.WizardConfig()
	assert.Equal(t, []flow.Intent{flow.IntentInspire}, cfg.Flow.DisabledIntents)
	assert.Equal(t, []string{flow.LearnDeep}, cfg.Flow.DisabledChoices[flow.FieldLearnMode])
	assert.Equal(t, 100*time.Millisecond, cfg.FrameInterval)
}

func TestLoadWizardSettingsWithoutFile(t *testing.T) {
	s, err := config.LoadWizardSettings(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, s.SessionMaxAge)
	assert.Equal(t, 168*time.Hour, s.SweepMaxAge)
	assert.Empty(t, s.DisabledIntents)
}

func TestLoadWizardSettingsRejectsUnknownOptions(t *testing.T) {
	for name, body := range map[string]string{
		"intent": "disabled_intents: [podcast]\n",
		"choice": "disabled_choices: [learnMode]\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := config.LoadWizardSettings(writeSettings(t, body))
			assert.Error(t, err)
		})
	}
}
