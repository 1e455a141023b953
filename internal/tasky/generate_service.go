package tasky

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/colonyops/tasky/internal/core/logging"
	"github.com/colonyops/tasky/internal/core/task"
	"github.com/colonyops/tasky/internal/core/validate"
	"github.com/colonyops/tasky/internal/generate"
	"github.com/colonyops/tasky/internal/llm"
)

// DefaultGenerateConcurrency bounds parallel draft writes when no option is given.
const DefaultGenerateConcurrency = 4

// GenerateRequest is the input to the generation pipeline.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
	UserID string `json:"userId"`
}

// GenerateService runs the generation pipeline: prompt, model call, parse,
// and one transactional write per main task.
type GenerateService struct {
	users       task.UserStore
	tasks       task.Store
	completer   llm.Completer
	parser      *generate.Parser
	concurrency int
	now         func() time.Time
	log         zerolog.Logger
}

// GenerateOption configures a GenerateService.
type GenerateOption func(*GenerateService)

// WithConcurrency sets how many drafts are written in parallel.
func WithConcurrency(n int) GenerateOption {
	return func(s *GenerateService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithClock replaces the clock used for the prompt timestamp.
func WithClock(now func() time.Time) GenerateOption {
	return func(s *GenerateService) { s.now = now }
}

// NewGenerateService creates a new GenerateService.
func NewGenerateService(users task.UserStore, tasks task.Store, completer llm.Completer, log zerolog.Logger, opts ...GenerateOption) *GenerateService {
	log = log.With().Str("component", "generate-service").Logger()
	s := &GenerateService{
		users:       users,
		tasks:       tasks,
		completer:   completer,
		parser:      generate.NewParser(log),
		concurrency: DefaultGenerateConcurrency,
		now:         time.Now,
		log:         log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate turns req.Prompt into main tasks owned by req.UserID.
//
// Input is validated and the user loaded before the model is called. Every
// parsed draft is written in its own transaction; a failed write does not
// undo its siblings. The created tasks are returned in model order. When
// every write fails the error wraps task.ErrPersistence.
func (s *GenerateService) Generate(ctx context.Context, req GenerateRequest) ([]task.MainTask, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if err := validate.Prompt(prompt); err != nil {
		return nil, &task.ValidationError{Field: "prompt", Message: err.Error()}
	}
	if err := validate.UserID(req.UserID); err != nil {
		return nil, &task.ValidationError{Field: "userId", Message: err.Error()}
	}
	ctx = logging.WithUserID(ctx, req.UserID)

	if _, err := s.users.Get(ctx, req.UserID); err != nil {
		return nil, err
	}

	raw, err := s.completer.Complete(ctx, generate.BuildTaskPrompt(prompt, s.now()))
	if err != nil {
		return nil, fmt.Errorf("complete: %w", err)
	}

	drafts, err := s.parser.ParseTasks(raw)
	if err != nil {
		s.log.Warn().Ctx(ctx).Err(err).Int("completion_len", len(raw)).Msg("model output unusable")
		return nil, err
	}

	created, err := s.writeDrafts(ctx, req.UserID, drafts)
	if err != nil {
		return nil, err
	}

	s.checkMilestone(ctx, req.UserID)

	s.log.Info().Ctx(ctx).
		Str("user_id", req.UserID).
		Int("drafts", len(drafts)).
		Int("created", len(created)).
		Msg("generated tasks")

	return created, nil
}

// CreateTask writes a single draft for userID through the same path as
// Generate, including the milestone check.
func (s *GenerateService) CreateTask(ctx context.Context, userID string, d task.Draft) (task.MainTask, error) {
	if err := validate.UserIDField("userId", userID); err != nil {
		return task.MainTask{}, &task.ValidationError{Field: "userId", Message: validate.Message(err)}
	}
	if err := validate.TitleField("title", d.Title); err != nil {
		return task.MainTask{}, &task.ValidationError{Field: "title", Message: validate.Message(err)}
	}
	if _, err := s.users.Get(ctx, userID); err != nil {
		return task.MainTask{}, err
	}

	mt := draftToMainTask(userID, d, s.now())
	if err := s.tasks.CreateWithSubtasks(ctx, &mt); err != nil {
		return task.MainTask{}, err
	}

	s.checkMilestone(ctx, userID)
	return mt, nil
}

// Breakdown asks the model to split a single task description into subtasks.
func (s *GenerateService) Breakdown(ctx context.Context, text string) ([]task.SubtaskDraft, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &task.ValidationError{Field: "text", Message: "Task text is required"}
	}

	raw, err := s.completer.Complete(ctx, generate.BuildBreakdownPrompt(text))
	if err != nil {
		return nil, fmt.Errorf("complete: %w", err)
	}

	subs := generate.ParseBreakdown(raw)
	if len(subs) == 0 {
		return nil, fmt.Errorf("%w: no subtasks in breakdown", task.ErrMalformedOutput)
	}
	return subs, nil
}

func (s *GenerateService) writeDrafts(ctx context.Context, userID string, drafts []task.Draft) ([]task.MainTask, error) {
	now := s.now()
	results := make([]task.MainTask, len(drafts))
	errs := make([]error, len(drafts))

	// Writes are independent; a failure is recorded, never returned to the
	// group, so siblings keep going.
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, d := range drafts {
		g.Go(func() error {
			// Distinct timestamps keep newest-first listing in model order.
			mt := draftToMainTask(userID, d, now.Add(time.Duration(i)*time.Microsecond))
			if err := s.tasks.CreateWithSubtasks(ctx, &mt); err != nil {
				errs[i] = fmt.Errorf("draft %d %q: %w", i, d.Title, err)
				return nil
			}
			results[i] = mt
			return nil
		})
	}
	_ = g.Wait()

	created := make([]task.MainTask, 0, len(drafts))
	var failed []error
	for i := range drafts {
		if errs[i] != nil {
			failed = append(failed, errs[i])
			continue
		}
		created = append(created, results[i])
	}

	if len(failed) == 0 {
		return created, nil
	}

	joined := errors.Join(failed...)
	if len(created) == 0 {
		// A user deleted mid-flight surfaces as not found, not as a store failure.
		if errors.Is(joined, task.ErrUserNotFound) {
			return nil, task.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: all %d task writes failed: %w", task.ErrPersistence, len(drafts), joined)
	}

	s.log.Error().Ctx(ctx).
		Err(joined).
		Int("failed", len(failed)).
		Int("created", len(created)).
		Msg("some generated tasks were not saved")
	return created, nil
}

// checkMilestone flags the user once they own ThreeTaskMilestone main tasks.
// Failures are logged; the tasks are already saved.
func (s *GenerateService) checkMilestone(ctx context.Context, userID string) {
	count, err := s.tasks.CountByUser(ctx, userID)
	if err != nil {
		s.log.Warn().Ctx(ctx).Err(err).Msg("count tasks for milestone")
		return
	}
	if count < task.ThreeTaskMilestone {
		return
	}

	flipped, err := s.users.MarkThreeMainTasks(ctx, userID)
	if err != nil {
		s.log.Warn().Ctx(ctx).Err(err).Msg("mark three task milestone")
		return
	}
	if flipped {
		s.log.Info().Ctx(ctx).Str("user_id", userID).Int64("tasks", count).Msg("user reached three main tasks")
	}
}

func draftToMainTask(userID string, d task.Draft, createdAt time.Time) task.MainTask {
	mt := task.MainTask{
		Title:       d.Title,
		Description: d.Description,
		Status:      d.Status,
		UserID:      userID,
		CreatedAt:   createdAt,
		Subtasks:    make([]task.Subtask, 0, len(d.Subtasks)),
	}
	for _, sd := range d.Subtasks {
		mt.Subtasks = append(mt.Subtasks, task.Subtask{
			Title:       sd.Title,
			Description: sd.Description,
			Status:      sd.Status,
			Duration:    sd.Duration,
			StartAt:     sd.StartAt,
			EndAt:       sd.EndAt,
		})
	}
	return mt
}
