package session

import (
	"encoding/json"
	"fmt"
	"time"

	"nicepods-server/creation-service/internal/flow"

	"github.com/xeipuuv/gojsonschema"
)

// SnapshotVersion - текущая форма снимка. Снимки другой версии не восстанавливаются.
const SnapshotVersion = 1

// Snapshot - сериализуемое состояние незавершенного мастера.
type Snapshot struct {
	Version     int           `json:"version"`
	Intent      flow.Intent   `json:"intent,omitempty"`
	CurrentStep flow.Step     `json:"currentStep"`
	StepHistory []flow.Step   `json:"stepHistory"`
	FormData    flow.FormData `json:"formData"`
	SavedAt     time.Time     `json:"savedAt"`
	Revision    int64         `json:"revision"`
}

// NewSnapshot упаковывает состояние машины.
func NewSnapshot(state flow.State, revision int64, savedAt time.Time) Snapshot {
	return Snapshot{
		Version:     SnapshotVersion,
		Intent:      state.Intent,
		CurrentStep: state.CurrentStep,
		StepHistory: state.StepHistory,
		FormData:    state.FormData,
		SavedAt:     savedAt.UTC(),
		Revision:    revision,
	}
}

// State возвращает состояние для flow.Machine.Restore.
func (s Snapshot) State() flow.State {
	return flow.State{
		Intent:      s.Intent,
		CurrentStep: s.CurrentStep,
		StepHistory: s.StepHistory,
		FormData:    s.FormData,
	}
}

const snapshotSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version", "currentStep", "stepHistory", "formData", "savedAt"],
  "properties": {
    "version": {"type": "integer", "minimum": 1},
    "intent": {"type": "string", "enum": ["learn", "inspire", "explore", "reflect", "answer", "freestyle"]},
    "currentStep": {"type": "string", "minLength": 1},
    "stepHistory": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}},
    "formData": {
      "type": "object",
      "properties": {
        "generateAudioDirectly": {"type": "boolean"},
        "narrativeOptions": {"type": "array", "items": {"type": "object", "required": ["title"]}},
        "sources": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["title", "url"],
            "properties": {"origin": {"type": "string", "enum": ["vault", "web"]}}
          }
        }
      }
    },
    "savedAt": {"type": "string", "format": "date-time"},
    "revision": {"type": "integer", "minimum": 0}
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(snapshotSchema)

// Decode проверяет сырые данные по схеме и версии.
// Ошибка означает поврежденный или несовместимый снимок.
func Decode(raw []byte) (*Snapshot, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("snapshot is not valid json: %w", err)
	}
	if !result.Valid() {
		msg := ""
		for i, e := range result.Errors() {
			if i > 0 {
				msg += "; "
			}
			msg += e.String()
		}
		return nil, fmt.Errorf("snapshot failed schema validation: %s", msg)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d is not supported (want %d)", snap.Version, SnapshotVersion)
	}
	return &snap, nil
}

// Encode сериализует снимок.
func Encode(s Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// Fresh сообщает, моложе ли снимок порога свежести.
func (s Snapshot) Fresh(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.SavedAt) <= maxAge
}
