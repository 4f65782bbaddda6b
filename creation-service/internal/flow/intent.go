package flow

import "fmt"

// Intent - творческая цель пользователя, выбирается один раз на сессию мастера.
type Intent string

const (
	IntentLearn     Intent = "learn"
	IntentInspire   Intent = "inspire"
	IntentExplore   Intent = "explore"
	IntentReflect   Intent = "reflect"
	IntentAnswer    Intent = "answer"
	IntentFreestyle Intent = "freestyle"
)

// AllIntents перечисляет закрытое множество намерений в порядке показа.
var AllIntents = []Intent{
	IntentLearn,
	IntentInspire,
	IntentExplore,
	IntentReflect,
	IntentAnswer,
	IntentFreestyle,
}

// Valid сообщает, входит ли значение в закрытое множество.
func (i Intent) Valid() bool {
	switch i {
	case IntentLearn, IntentInspire, IntentExplore, IntentReflect, IntentAnswer, IntentFreestyle:
		return true
	}
	return false
}

// ParseIntent преобразует строку запроса в Intent.
func ParseIntent(s string) (Intent, error) {
	i := Intent(s)
	if !i.Valid() {
		return "", fmt.Errorf("unknown intent %q", s)
	}
	return i, nil
}
