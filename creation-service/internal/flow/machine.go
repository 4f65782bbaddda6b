package flow

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	sharedModels "nicepods-server/shared/models"
)

// ErrStaleGeneration - результат генерации пришел для уже отмененного или замененного запуска.
var ErrStaleGeneration = errors.New("generation result is stale")

// ValidationErrors - ошибки полей текущего шага. Переход при них не выполняется.
type ValidationErrors map[Field]string

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for f, msg := range v {
		parts = append(parts, fmt.Sprintf("%s: %s", f, msg))
	}
	sort.Strings(parts)
	return "validation failed: " + strings.Join(parts, "; ")
}

// Options - отключенные варианты. Отключенный вариант недостижим ни через Advance, ни через JumpTo.
type Options struct {
	DisabledIntents []Intent
	DisabledChoices map[Field][]string
}

// AdvanceResult описывает исход успешного Advance.
// Если Generation не пуст, машина осталась на From и ждет ResolveGeneration с Token.
type AdvanceResult struct {
	From       Step
	To         Step
	Generation GenerationKind
	Token      uint64
}

type pendingGeneration struct {
	kind   GenerationKind
	source Step
	next   Step
	token  uint64
}

// State - сериализуемый срез машины.
type State struct {
	Intent      Intent   `json:"intent,omitempty"`
	CurrentStep Step     `json:"currentStep"`
	StepHistory []Step   `json:"stepHistory"`
	FormData    FormData `json:"formData"`
}

// Machine - конечный автомат мастера: текущий шаг, стек истории и форма.
// Не потокобезопасен, синхронизация - на стороне владельца.
type Machine struct {
	intent     Intent
	route      []Step
	history    []Step
	form       FormData
	generating *pendingGeneration
	token      uint64
	opts       Options
}

// NewMachine создает машину в состоянии SELECTING_INTENT.
func NewMachine(opts Options) *Machine {
	return &Machine{
		history: []Step{StepSelectingIntent},
		form:    NewFormData(),
		opts:    opts,
	}
}

// Current возвращает текущий шаг (вершину стека).
func (m *Machine) Current() Step {
	return m.history[len(m.history)-1]
}

// History возвращает копию стека шагов.
func (m *Machine) History() []Step {
	return append([]Step(nil), m.history...)
}

// Intent возвращает выбранное намерение.
func (m *Machine) Intent() Intent {
	return m.intent
}

// Form возвращает копию формы.
func (m *Machine) Form() FormData {
	return m.form.Clone()
}

// Generating возвращает вид идущей генерации, привязанной к текущему шагу.
func (m *Machine) Generating() (GenerationKind, bool) {
	if m.generating == nil {
		return GenerationNone, false
	}
	return m.generating.kind, true
}

// Awaiting сообщает, ждет ли машина результат генерации с этим token.
func (m *Machine) Awaiting(token uint64) bool {
	g := m.generating
	return g != nil && g.token == token && m.Current() == g.source
}

// Route возвращает активный маршрут.
func (m *Machine) Route() []Step {
	return append([]Step(nil), m.route...)
}

// SelectIntent выбирает путь намерения и сбрасывает историю.
// Смена намерения очищает поля, специфичные для намерения; общие поля сохраняются.
func (m *Machine) SelectIntent(intent Intent) (FlowPath, error) {
	if !intent.Valid() {
		return FlowPath{}, ValidationErrors{FieldIntent: "unknown intent"}
	}
	if m.intentDisabled(intent) {
		return FlowPath{}, ValidationErrors{FieldIntent: "option is disabled"}
	}
	m.cancelGeneration()

	if m.intent != "" && m.intent != intent {
		m.form.resetIntentSpecific()
	}
	m.intent = intent
	m.form.Purpose = intent
	m.route = m.routeFor(intent)
	m.history = []Step{StepSelectingIntent, m.route[0]}

	return FlowPath{Intent: intent, Steps: m.Route()}, nil
}

// SetField меняет редактируемое поле формы.
func (m *Machine) SetField(field Field, value string) error {
	return m.SetFields(map[Field]string{field: value})
}

// SetFields применяет пакет полей целиком или не применяет ничего.
// Поля проверяются в порядке имен, ошибка указывает на первое отклоненное.
func (m *Machine) SetFields(values map[Field]string) error {
	fields := make([]Field, 0, len(values))
	for field := range values {
		fields = append(fields, field)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })

	form := m.form.Clone()
	for _, field := range fields {
		if field == FieldIntent {
			return fmt.Errorf("%w: use SelectIntent to change the intent", sharedModels.ErrInvalidInput)
		}
		if err := form.set(field, values[field]); err != nil {
			return fmt.Errorf("%w: %v", sharedModels.ErrInvalidInput, err)
		}
	}
	m.form = form
	return nil
}

// Validate проверяет обязательные поля шага.
func (m *Machine) Validate(step Step) ValidationErrors {
	errs := ValidationErrors{}
	for _, field := range requiredFields[step] {
		if !m.form.Filled(field) {
			errs[field] = "required"
			continue
		}
		if m.choiceDisabled(field, m.form.Value(field)) {
			errs[field] = "option is disabled"
		}
	}
	if b, ok := branches[step]; ok && m.form.Filled(b.field) {
		if _, known := b.choices[m.form.Value(b.field)]; !known {
			errs[b.field] = "unknown option"
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Advance проверяет текущий шаг и переходит к следующему.
// Для шагов-триггеров генерации переход откладывается до ResolveGeneration.
func (m *Machine) Advance() (AdvanceResult, error) {
	if m.generating != nil {
		return AdvanceResult{}, sharedModels.ErrGenerationInProgress
	}
	cur := m.Current()
	if m.intent == "" {
		return AdvanceResult{}, sharedModels.ErrIntentNotSelected
	}
	if errs := m.Validate(cur); errs != nil {
		return AdvanceResult{}, errs
	}

	next, err := m.resolveNext(cur)
	if err != nil {
		return AdvanceResult{}, err
	}

	if kind := generationTriggers[cur]; kind != GenerationNone {
		m.token++
		m.generating = &pendingGeneration{kind: kind, source: cur, next: next, token: m.token}
		return AdvanceResult{From: cur, Generation: kind, Token: m.token}, nil
	}

	if err := m.enter(next); err != nil {
		return AdvanceResult{}, err
	}
	return AdvanceResult{From: cur, To: next}, nil
}

// ResolveGeneration завершает отложенный переход: apply записывает результат в форму,
// затем машина переходит к следующему шагу. Устаревший token отклоняется без изменений формы.
func (m *Machine) ResolveGeneration(token uint64, apply func(*FormData)) (Step, error) {
	if !m.Awaiting(token) {
		return "", ErrStaleGeneration
	}
	g := m.generating
	m.generating = nil
	if apply != nil {
		apply(&m.form)
	}
	if err := m.enter(g.next); err != nil {
		return "", err
	}
	return g.next, nil
}

// FailGeneration снимает подсостояние генерации, оставляя машину на исходном шаге.
func (m *Machine) FailGeneration(token uint64) bool {
	if m.generating == nil || m.generating.token != token {
		return false
	}
	m.generating = nil
	return true
}

// GoBack возвращается на предыдущий шаг. Никогда не валидирует.
// Во время генерации только отменяет ее и остается на исходном шаге.
// Вернуться за первый шаг пути (к выбору намерения) нельзя.
func (m *Machine) GoBack() (Step, GenerationKind) {
	if m.generating != nil {
		kind := m.generating.kind
		m.cancelGeneration()
		return m.Current(), kind
	}
	if len(m.history) <= m.minHistory() {
		return m.Current(), GenerationNone
	}
	m.history = m.history[:len(m.history)-1]
	return m.Current(), GenerationNone
}

// JumpTo используется шагами-развилками: кладет выбранный шаг напрямую,
// минуя статическую таблицу на один переход.
func (m *Machine) JumpTo(step Step) error {
	if m.generating != nil {
		return sharedModels.ErrGenerationInProgress
	}
	cur := m.Current()
	b, ok := branches[cur]
	if !ok {
		return fmt.Errorf("%w: %s is not a branch step", sharedModels.ErrStepUnavailable, cur)
	}
	choice := ""
	for value, target := range b.choices {
		if target == step {
			choice = value
			break
		}
	}
	if choice == "" {
		return fmt.Errorf("%w: %s is not an option of %s", sharedModels.ErrStepUnavailable, step, cur)
	}
	if m.choiceDisabled(b.field, choice) {
		return fmt.Errorf("%w: option %s is disabled", sharedModels.ErrStepUnavailable, choice)
	}
	if err := m.checkPrerequisites(step); err != nil {
		return err
	}
	if err := m.form.set(b.field, choice); err != nil {
		return err
	}
	m.route = m.routeFor(m.intent)
	m.history = append(m.history, step)
	return nil
}

// Snapshot возвращает сериализуемое состояние машины.
func (m *Machine) Snapshot() State {
	return State{
		Intent:      m.intent,
		CurrentStep: m.Current(),
		StepHistory: m.History(),
		FormData:    m.Form(),
	}
}

// Restore применяет сохраненное состояние. Подсостояние генерации не восстанавливается.
func (m *Machine) Restore(s State) error {
	if len(s.StepHistory) == 0 || s.StepHistory[0] != StepSelectingIntent {
		return fmt.Errorf("%w: history must start at %s", sharedModels.ErrInvalidInput, StepSelectingIntent)
	}
	if s.StepHistory[len(s.StepHistory)-1] != s.CurrentStep {
		return fmt.Errorf("%w: current step does not match history", sharedModels.ErrInvalidInput)
	}
	for _, step := range s.StepHistory {
		if !knownStep(step) {
			return fmt.Errorf("%w: unknown step %q", sharedModels.ErrInvalidInput, step)
		}
	}
	if len(s.StepHistory) > 1 && !s.Intent.Valid() {
		return fmt.Errorf("%w: session has steps but no intent", sharedModels.ErrInvalidInput)
	}

	m.cancelGeneration()
	m.intent = s.Intent
	m.form = s.FormData.Clone()
	m.form.Purpose = s.Intent
	m.history = append([]Step(nil), s.StepHistory...)
	m.route = nil
	if s.Intent != "" {
		m.route = m.routeFor(s.Intent)
		for _, step := range m.history[1:] {
			if indexOf(m.route, step) < 0 {
				return fmt.Errorf("%w: step %s is not on the %s path", sharedModels.ErrInvalidInput, step, s.Intent)
			}
		}
	}
	return nil
}

func (m *Machine) resolveNext(cur Step) (Step, error) {
	if b, ok := branches[cur]; ok {
		// Следующий шаг развилки вычисляется по ответу пользователя.
		m.route = m.routeFor(m.intent)
		return b.choices[m.form.Value(b.field)], nil
	}
	i := indexOf(m.route, cur)
	if i < 0 || i+1 >= len(m.route) {
		return "", fmt.Errorf("%w: no step after %s", sharedModels.ErrStepUnavailable, cur)
	}
	return m.route[i+1], nil
}

func (m *Machine) enter(next Step) error {
	if err := m.checkPrerequisites(next); err != nil {
		return err
	}
	m.history = append(m.history, next)
	return nil
}

func (m *Machine) checkPrerequisites(step Step) error {
	for _, field := range prerequisites[step] {
		if !m.form.Filled(field) {
			return fmt.Errorf("%w: %s requires %s", sharedModels.ErrStepUnavailable, step, field)
		}
	}
	return nil
}

// routeFor выбирает вариант пути по значению поля-развилки; без выбора - маршрут по умолчанию.
func (m *Machine) routeFor(intent Intent) []Step {
	routes := Routes(intent)
	for _, r := range routes {
		if r.Choice == "" {
			continue
		}
		if b, ok := branches[r.Steps[0]]; ok && m.form.Value(b.field) == r.Choice {
			return append([]Step(nil), r.Steps...)
		}
	}
	return append([]Step(nil), routes[0].Steps...)
}

func (m *Machine) cancelGeneration() {
	if m.generating != nil {
		m.generating = nil
		m.token++
	}
}

func (m *Machine) minHistory() int {
	if m.intent == "" {
		return 1
	}
	return 2
}

func (m *Machine) intentDisabled(intent Intent) bool {
	for _, d := range m.opts.DisabledIntents {
		if d == intent {
			return true
		}
	}
	return false
}

func (m *Machine) choiceDisabled(field Field, value string) bool {
	for _, d := range m.opts.DisabledChoices[field] {
		if d == value {
			return true
		}
	}
	return false
}

func indexOf(steps []Step, step Step) int {
	for i, s := range steps {
		if s == step {
			return i
		}
	}
	return -1
}
