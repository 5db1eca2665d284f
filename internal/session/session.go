// Package session drives a single quiz run: navigation, answer capture, the
// countdown timer, and final submission.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"quizforge/internal/model"
	"quizforge/internal/scoring"
)

// State is the run lifecycle phase.
type State string

const (
	// StateIdle is a created but not started run.
	StateIdle State = "IDLE"
	// StateRunning is an active run accepting answers.
	StateRunning State = "RUNNING"
	// StatePaused is a run with the clock stopped.
	StatePaused State = "PAUSED"
	// StateReviewing lets the user revisit answers before submitting.
	StateReviewing State = "REVIEWING"
	// StateCompleted is a submitted or expired run.
	StateCompleted State = "COMPLETED"
)

// Event is a lifecycle notification delivered to the configured callback.
type Event string

const (
	EventStarted   Event = "STARTED"
	EventPaused    Event = "PAUSED"
	EventResumed   Event = "RESUMED"
	EventSubmitted Event = "SUBMITTED"
	EventExpired   Event = "EXPIRED"
	EventCancelled Event = "CANCELLED"
)

// ErrState is returned when an operation does not apply to the current state.
var ErrState = errors.New("operation not allowed in current state")

// ResultWriter persists a finished result. Satisfied by *store.Store.
type ResultWriter interface {
	PutResult(r *model.Result) error
}

// Timer is a stoppable countdown, abstracted so tests control expiry.
type Timer interface {
	Stop()
}

// TimerFactory schedules fn after d. The default wraps time.AfterFunc.
type TimerFactory func(d time.Duration, fn func()) Timer

type realTimer struct{ t *time.Timer }

func (r realTimer) Stop() { r.t.Stop() }

func defaultTimerFactory(d time.Duration, fn func()) Timer {
	return realTimer{time.AfterFunc(d, fn)}
}

// Config carries the controller's collaborators. Zero values take real
// implementations; tests inject clocks and timers.
type Config struct {
	Store    ResultWriter
	Grader   *scoring.Grader
	Logger   *slog.Logger
	Clock    func() time.Time
	NewTimer TimerFactory
	Rand     *rand.Rand
	OnEvent  func(Event)
}

// Controller runs one quiz attempt. All methods are safe for concurrent use.
type Controller struct {
	mu sync.Mutex

	quiz   model.Quiz
	userID string
	order  []int

	state      State
	current    int
	answers    map[string]model.Answer
	timestamps map[string]time.Time

	startedAt time.Time
	deadline  time.Time
	pausedAt  time.Time
	timer     Timer

	result    *model.Result
	persisted bool

	store    ResultWriter
	grader   *scoring.Grader
	logger   *slog.Logger
	clock    func() time.Time
	newTimer TimerFactory
	rng      *rand.Rand
	onEvent  func(Event)
}

// New creates an idle controller for one attempt at quiz by userID.
func New(quiz model.Quiz, userID string, cfg Config) *Controller {
	if cfg.Grader == nil {
		cfg.Grader = scoring.NewGrader()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.NewTimer == nil {
		cfg.NewTimer = defaultTimerFactory
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.OnEvent == nil {
		cfg.OnEvent = func(Event) {}
	}

	order := make([]int, len(quiz.Questions))
	for i := range order {
		order[i] = i
	}

	return &Controller{
		quiz:       quiz,
		userID:     userID,
		order:      order,
		state:      StateIdle,
		answers:    make(map[string]model.Answer),
		timestamps: make(map[string]time.Time),
		store:      cfg.Store,
		grader:     cfg.Grader,
		logger:     cfg.Logger,
		clock:      cfg.Clock,
		newTimer:   cfg.NewTimer,
		rng:        cfg.Rand,
		onEvent:    cfg.OnEvent,
	}
}

// State reports the current lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start begins the run. Questions are shuffled when the quiz asks for it, and
// the countdown starts when a time limit is set.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return fmt.Errorf("%w: start from %s", ErrState, c.state)
	}
	if len(c.quiz.Questions) == 0 {
		return errors.New("quiz has no questions")
	}

	if c.quiz.Settings.ShuffleQuestions {
		c.rng.Shuffle(len(c.order), func(i, j int) {
			c.order[i], c.order[j] = c.order[j], c.order[i]
		})
	}

	c.startedAt = c.clock()
	if limit := c.quiz.Settings.TimeLimitSeconds; limit > 0 {
		c.deadline = c.startedAt.Add(time.Duration(limit) * time.Second)
		c.timer = c.newTimer(time.Duration(limit)*time.Second, c.expire)
	}
	c.state = StateRunning
	c.emit(EventStarted)
	return nil
}

// Current returns the question at the cursor plus its position.
func (c *Controller) Current() (model.Question, int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quiz.Questions[c.order[c.current]], c.current, len(c.order)
}

// Next advances the cursor, stopping at the last question.
func (c *Controller) Next() { c.move(1) }

// Previous moves the cursor back, stopping at the first question.
func (c *Controller) Previous() { c.move(-1) }

func (c *Controller) move(delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = clamp(c.current+delta, 0, len(c.order)-1)
}

// GoTo jumps to position i, clamped to the valid range.
func (c *Controller) GoTo(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = clamp(i, 0, len(c.order)-1)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Answer records the user's answer for a question. The answer's shape must
// match the question type; a later answer to the same question replaces the
// earlier one. A nil answer un-skips nothing, it clears the recorded answer.
func (c *Controller) Answer(questionID string, answer model.Answer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning && c.state != StateReviewing {
		return fmt.Errorf("%w: answer in %s", ErrState, c.state)
	}

	q, ok := c.findQuestion(questionID)
	if !ok {
		return fmt.Errorf("unknown question %q", questionID)
	}
	if answer == nil {
		delete(c.answers, questionID)
		delete(c.timestamps, questionID)
		return nil
	}
	if err := checkShape(q, answer); err != nil {
		return err
	}

	c.answers[questionID] = answer
	c.timestamps[questionID] = c.clock()
	return nil
}

// checkShape rejects answers whose dynamic type cannot belong to the
// question, before they can poison grading.
func checkShape(q model.Question, answer model.Answer) error {
	switch q.Type {
	case model.SingleChoice:
		i, ok := model.AsIndex(answer)
		if !ok {
			return fmt.Errorf("question %q expects an option index", q.ID)
		}
		if i < 0 || i >= len(q.Options) {
			return fmt.Errorf("option index %d out of range for question %q", i, q.ID)
		}
	case model.MultiChoice:
		is, ok := model.AsIndices(answer)
		if !ok {
			return fmt.Errorf("question %q expects a list of option indices", q.ID)
		}
		for _, i := range is {
			if i < 0 || i >= len(q.Options) {
				return fmt.Errorf("option index %d out of range for question %q", i, q.ID)
			}
		}
	case model.FreeText:
		if _, ok := model.AsText(answer); !ok {
			return fmt.Errorf("question %q expects a text answer", q.ID)
		}
	}
	return nil
}

func (c *Controller) findQuestion(id string) (model.Question, bool) {
	for _, q := range c.quiz.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return model.Question{}, false
}

// AnsweredCount reports how many questions currently have answers.
func (c *Controller) AnsweredCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.answers)
}

// CanComplete reports whether every question has an answer in an active run.
// Submit does not require it; submitting with skipped questions is the
// caller's call to confirm.
func (c *Controller) CanComplete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning && c.state != StateReviewing {
		return false
	}
	return len(c.answers) == len(c.quiz.Questions)
}

// Review moves the run into the pre-submission review phase. Answers can
// still be changed there.
func (c *Controller) Review() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning {
		return fmt.Errorf("%w: review from %s", ErrState, c.state)
	}
	c.state = StateReviewing
	return nil
}

// Pause stops the clock. The remaining time is preserved; the deadline moves
// by however long the run stays paused.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning {
		return fmt.Errorf("%w: pause from %s", ErrState, c.state)
	}
	c.pausedAt = c.clock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.state = StatePaused
	c.emit(EventPaused)
	return nil
}

// Resume restarts the clock after a pause.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePaused {
		return fmt.Errorf("%w: resume from %s", ErrState, c.state)
	}
	if !c.deadline.IsZero() {
		pausedFor := c.clock().Sub(c.pausedAt)
		c.deadline = c.deadline.Add(pausedFor)
		remaining := c.deadline.Sub(c.clock())
		if remaining < 0 {
			remaining = 0
		}
		c.timer = c.newTimer(remaining, c.expire)
	}
	c.pausedAt = time.Time{}
	c.state = StateRunning
	c.emit(EventResumed)
	return nil
}

// Remaining reports the time left, or zero when the run has no limit.
func (c *Controller) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deadline.IsZero() {
		return 0
	}
	ref := c.clock()
	if c.state == StatePaused {
		ref = c.pausedAt
	}
	d := c.deadline.Sub(ref)
	if d < 0 {
		return 0
	}
	return d
}

// Submit grades the run and persists the result. When persistence fails the
// run still completes and the result stays readable in memory, but the error
// is returned so the caller knows the write did not land. A second Submit
// returns the result already computed and retries the write if it is still
// pending.
func (c *Controller) Submit() (*model.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateCompleted:
		return c.result, c.persist()
	case StateRunning, StateReviewing:
	default:
		return nil, fmt.Errorf("%w: submit from %s", ErrState, c.state)
	}
	return c.finish(false)
}

// expire fires when the countdown runs out: the run auto-submits with
// whatever answers exist, flagged as timed out.
func (c *Controller) expire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning && c.state != StateReviewing {
		return
	}
	// The persist outcome has no caller here; a failed write surfaces on the
	// next Submit, which retries it.
	_, _ = c.finish(true)
	c.emit(EventExpired)
}

// finish grades and persists. Callers hold mu.
func (c *Controller) finish(timedOut bool) (*model.Result, error) {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	r := c.grader.CalculateResult(c.quiz, c.answers, c.timestamps, c.startedAt, c.clock(), c.userID)
	r.Metadata.TimedOut = timedOut
	c.result = &r
	c.state = StateCompleted

	err := c.persist()
	if !timedOut {
		c.emit(EventSubmitted)
	}
	return c.result, err
}

// persist writes the result once. Callers hold mu.
func (c *Controller) persist() error {
	if c.store == nil || c.result == nil || c.persisted {
		return nil
	}
	if err := c.store.PutResult(c.result); err != nil {
		c.logger.Error("persist result", "quiz", c.quiz.ID, "result", c.result.ID, "error", err)
		return err
	}
	c.persisted = true
	return nil
}

// Cancel abandons the run and returns the controller to idle. Answers, the
// cursor, and the clock are discarded; no result is computed or stored. The
// run may be started again afterwards.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateIdle, StateCompleted:
		return fmt.Errorf("%w: cancel from %s", ErrState, c.state)
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.answers = make(map[string]model.Answer)
	c.timestamps = make(map[string]time.Time)
	c.current = 0
	c.startedAt = time.Time{}
	c.deadline = time.Time{}
	c.pausedAt = time.Time{}
	c.state = StateIdle
	c.emit(EventCancelled)
	return nil
}

// Result returns the computed result, nil before completion.
func (c *Controller) Result() *model.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// emit runs the callback under the controller lock; callbacks must not call
// back into the controller.
func (c *Controller) emit(e Event) {
	c.onEvent(e)
}
