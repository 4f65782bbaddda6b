package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"nicepods-server/creation-service/internal/flow"
	"nicepods-server/creation-service/internal/wizard"

	"github.com/ilyakaznacheev/cleanenv"
)

// WizardSettings - тонкая настройка мастера (YAML с переопределением из окружения).
type WizardSettings struct {
	// Отключенные намерения и варианты развилок ("learnMode=deep").
	DisabledIntents []string `yaml:"disabled_intents" env:"WIZARD_DISABLED_INTENTS" env-separator:","`
	DisabledChoices []string `yaml:"disabled_choices" env:"WIZARD_DISABLED_CHOICES" env-separator:","`

	SessionMaxAge     time.Duration `yaml:"session_max_age" env:"WIZARD_SESSION_MAX_AGE" env-default:"24h"`
	AutosaveDelay     time.Duration `yaml:"autosave_delay" env:"WIZARD_AUTOSAVE_DELAY" env-default:"1500ms"`
	GenerationTimeout time.Duration `yaml:"generation_timeout" env:"WIZARD_GENERATION_TIMEOUT" env-default:"3m"`
	FrameInterval     time.Duration `yaml:"frame_interval" env:"WIZARD_FRAME_INTERVAL" env-default:"100ms"`

	SweepSchedule string        `yaml:"sweep_schedule" env:"WIZARD_SWEEP_SCHEDULE" env-default:"0 * * * *"`
	SweepMaxAge   time.Duration `yaml:"sweep_max_age" env:"WIZARD_SWEEP_MAX_AGE" env-default:"168h"`

	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"WIZARD_IDLE_TIMEOUT" env-default:"2h"`
	JanitorInterval time.Duration `yaml:"janitor_interval" env:"WIZARD_JANITOR_INTERVAL" env-default:"10m"`
}

// LoadWizardSettings читает файл настроек; без файла используются окружение и умолчания.
func LoadWizardSettings(path string) (*WizardSettings, error) {
	var s WizardSettings
	if err := cleanenv.ReadConfig(path, &s); err != nil {
		log.Printf("Предупреждение: не удалось прочитать настройки мастера '%s': %v. Используются переменные окружения.", path, err)
		if err := cleanenv.ReadEnv(&s); err != nil {
			return nil, fmt.Errorf("ошибка загрузки настроек мастера: %w", err)
		}
	}
	if _, err := s.FlowOptions(); err != nil {
		return nil, err
	}
	return &s, nil
}

// FlowOptions переводит списки отключенных вариантов в опции автомата.
func (s *WizardSettings) FlowOptions() (flow.Options, error) {
	opts := flow.Options{DisabledChoices: make(map[flow.Field][]string)}
	for _, raw := range s.DisabledIntents {
		intent, err := flow.ParseIntent(strings.TrimSpace(raw))
		if err != nil {
			return flow.Options{}, fmt.Errorf("disabled_intents: %w", err)
		}
		opts.DisabledIntents = append(opts.DisabledIntents, intent)
	}
	for _, raw := range s.DisabledChoices {
		field, value, ok := strings.Cut(strings.TrimSpace(raw), "=")
		if !ok || field == "" || value == "" {
			return flow.Options{}, fmt.Errorf("disabled_choices: %q must look like field=value", raw)
		}
		opts.DisabledChoices[flow.Field(field)] = append(opts.DisabledChoices[flow.Field(field)], value)
	}
	return opts, nil
}

// WizardConfig собирает конфигурацию мастера. Ошибки опций отсеяны при загрузке.
func (s *WizardSettings) WizardConfig() wizard.Config {
	opts, _ := s.FlowOptions()
	return wizard.Config{
		Flow:              opts,
		AutosaveDelay:     s.AutosaveDelay,
		GenerationTimeout: s.GenerationTimeout,
		FrameInterval:     s.FrameInterval,
	}
}
