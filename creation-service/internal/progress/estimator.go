package progress

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Clock позволяет подменять время в тестах.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Frame - опубликованное состояние прогресса.
type Frame struct {
	Progress float64 `json:"progress"`
	Phase    int     `json:"phase"`
	Label    string  `json:"label,omitempty"`
	Icon     string  `json:"icon,omitempty"`
	Running  bool    `json:"running"`
	Done     bool    `json:"done"`

	// Оценка остановлена без завершения: ошибка генерации или уход назад.
	Cancelled bool `json:"cancelled,omitempty"`
}

// Final сообщает, что после этого кадра новых не будет до следующего Start.
func (f Frame) Final() bool {
	return f.Done || f.Cancelled
}

// Option настраивает Estimator.
type Option func(*Estimator)

// WithClock подменяет источник времени.
func WithClock(c Clock) Option {
	return func(e *Estimator) { e.clock = c }
}

// WithFrameInterval задает период кадров фонового цикла. 0 - цикл не запускается, кадры считаются через Tick.
func WithFrameInterval(d time.Duration) Option {
	return func(e *Estimator) { e.interval = d }
}

// Estimator превращает одну долгую операцию в плавный многофазный прогресс.
// До 100 доходит только через Complete.
type Estimator struct {
	mu       sync.Mutex
	clock    Clock
	interval time.Duration
	logger   *zap.Logger

	plan       Plan
	phase      int
	phaseStart time.Time
	phaseFrom  float64
	value      float64
	running    bool
	done       bool
	cancelled  bool

	stop   chan struct{}
	subs   map[int]chan Frame
	nextID int
}

// New создает остановленный Estimator.
func New(logger *zap.Logger, opts ...Option) *Estimator {
	e := &Estimator{
		clock:  systemClock{},
		logger: logger.Named("ProgressEstimator"),
		subs:   make(map[int]chan Frame),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start запускает план с нуля. Идущий запуск заменяется.
func (e *Estimator) Start(plan Plan) error {
	if err := plan.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	e.stopLoopLocked()
	e.plan = append(Plan(nil), plan...)
	e.phase = 0
	e.phaseStart = e.clock.Now()
	e.phaseFrom = 0
	e.value = 0
	e.running = true
	e.done = false
	e.cancelled = false
	e.publishLocked(e.frameLocked())
	if e.interval > 0 {
		e.stop = make(chan struct{})
		go e.loop(e.stop, e.interval)
	}
	e.mu.Unlock()

	e.logger.Debug("Progress started", zap.Int("phases", len(plan)), zap.Duration("estimated", plan.TotalDuration()))
	return nil
}

// Tick пересчитывает значение по текущему времени и публикует кадр.
// Кадры публикуются под той же блокировкой, что и вычисляются, поэтому
// кадр Tick не может прийти подписчику после кадра Complete или Cancel.
func (e *Estimator) Tick() Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return e.frameLocked()
	}
	e.advanceLocked(e.clock.Now())
	f := e.frameLocked()
	e.publishLocked(f)
	return f
}

// Current возвращает последний вычисленный кадр без пересчета.
func (e *Estimator) Current() Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frameLocked()
}

// Complete доводит прогресс до 100 и останавливает цикл.
func (e *Estimator) Complete() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.stopLoopLocked()
	e.running = false
	e.done = true
	e.value = 100
	e.publishLocked(e.frameLocked())
	e.mu.Unlock()
}

// Cancel останавливает цикл и сбрасывает состояние. Если оценка шла,
// подписчики получают кадр с Cancelled, кадр завершения не публикуется.
func (e *Estimator) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	wasRunning := e.running
	e.stopLoopLocked()
	e.running = false
	e.done = false
	e.plan = nil
	e.phase = 0
	e.value = 0
	e.cancelled = wasRunning
	if wasRunning {
		e.publishLocked(e.frameLocked())
	}
}

// Running сообщает, идет ли оценка.
func (e *Estimator) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Subscribe возвращает канал кадров и функцию отписки.
// Медленный подписчик получает только самый свежий кадр.
func (e *Estimator) Subscribe() (<-chan Frame, func()) {
	ch := make(chan Frame, 1)
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.subs[id] = ch
	ch <- e.frameLocked()
	e.mu.Unlock()

	return ch, func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

func (e *Estimator) loop(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.Tick()
		}
	}
}

// advanceLocked: фаза интерполируется от значения, на котором остановилась предыдущая,
// до своей цели. После последней фазы значение держится на ее цели.
func (e *Estimator) advanceLocked(now time.Time) {
	for {
		ph := e.plan[e.phase]
		elapsed := now.Sub(e.phaseStart)
		if elapsed < ph.Duration {
			frac := float64(elapsed) / float64(ph.Duration)
			if frac < 0 {
				frac = 0
			}
			v := e.phaseFrom + (ph.Target-e.phaseFrom)*frac
			if v > e.value {
				e.value = v
			}
			return
		}
		if ph.Target > e.value {
			e.value = ph.Target
		}
		if e.phase == len(e.plan)-1 {
			return
		}
		e.phase++
		e.phaseStart = e.phaseStart.Add(ph.Duration)
		e.phaseFrom = e.value
	}
}

func (e *Estimator) frameLocked() Frame {
	f := Frame{Progress: e.value, Phase: e.phase, Running: e.running, Done: e.done, Cancelled: e.cancelled}
	if e.phase < len(e.plan) {
		f.Label = e.plan[e.phase].Label
		f.Icon = e.plan[e.phase].Icon
	}
	return f
}

func (e *Estimator) stopLoopLocked() {
	if e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
}

// publishLocked заменяет кадр в буфере каждого подписчика.
func (e *Estimator) publishLocked(f Frame) {
	for _, ch := range e.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- f:
		default:
		}
	}
}
