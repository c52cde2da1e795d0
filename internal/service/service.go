package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"settlehub/internal/cache"
	"settlehub/internal/domain"
	"settlehub/internal/lock"
	"settlehub/internal/logging"
	"settlehub/internal/store"
)

var (
	ErrForbidden        = errors.New("admin role required")
	ErrDateClosed       = errors.New("purchase sheet for this date is closed")
	ErrNotEditable      = errors.New("only payment entries can be changed")
	ErrCommitInProgress = errors.New("commit already in progress")
)

// InputError carries a user facing reason and matches store.ErrInvalidInput.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return e.Reason
}

func (e *InputError) Is(target error) bool {
	return target == store.ErrInvalidInput
}

func invalidInput(format string, args ...any) error {
	return &InputError{Reason: fmt.Sprintf(format, args...)}
}

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	Logger        *logrus.Logger
	Cache         cache.DashboardCache
	DashboardTTL  time.Duration
	Locker        lock.Locker
	CommitLockTTL time.Duration
	Location      *time.Location
	Now           func() time.Time
}

type Service struct {
	repo          store.Repository
	logger        *logrus.Logger
	cache         cache.DashboardCache
	dashboardTTL  time.Duration
	locker        lock.Locker
	commitLockTTL time.Duration
	location      *time.Location
	now           func() time.Time
	validate      *validator.Validate
}

func New(repo store.Repository, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Cache == nil {
		opts.Cache = cache.NoopDashboardCache{}
	}
	if opts.DashboardTTL <= 0 {
		opts.DashboardTTL = 10 * time.Second
	}
	if opts.Locker == nil {
		opts.Locker = lock.NewLocalLocker()
	}
	if opts.CommitLockTTL <= 0 {
		opts.CommitLockTTL = 30 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		repo:          repo,
		logger:        opts.Logger,
		cache:         opts.Cache,
		dashboardTTL:  opts.DashboardTTL,
		locker:        opts.Locker,
		commitLockTTL: opts.CommitLockTTL,
		location:      opts.Location,
		now:           opts.Now,
		validate:      newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Service) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return invalidInput("%s failed %s validation", fe.Field(), fe.Tag())
	}
	return invalidInput("%v", err)
}

func requireAdmin(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Actor{}, ErrForbidden
	}
	return actor, nil
}

func actorName(ctx context.Context) string {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Username == "" {
		return "system"
	}
	return actor.Username
}

func (s *Service) today() domain.Date {
	return domain.DateOf(s.now().In(s.location))
}

func parseDate(field string, raw string) (domain.Date, error) {
	date, err := domain.ParseDate(raw)
	if err != nil {
		return domain.Date{}, invalidInput("%s must be yyyy-MM-dd", field)
	}
	return date, nil
}

// dateRange resolves optional start/end query values. end defaults to today
// and start to fallbackDays before end.
func (s *Service) dateRange(rawStart, rawEnd string, fallbackDays int) (domain.Date, domain.Date, error) {
	end := s.today()
	if strings.TrimSpace(rawEnd) != "" {
		parsed, err := parseDate("end_date", rawEnd)
		if err != nil {
			return domain.Date{}, domain.Date{}, err
		}
		end = parsed
	}
	start := domain.DateOf(end.AddDate(0, 0, -fallbackDays))
	if strings.TrimSpace(rawStart) != "" {
		parsed, err := parseDate("start_date", rawStart)
		if err != nil {
			return domain.Date{}, domain.Date{}, err
		}
		start = parsed
	}
	if start.After(end) {
		return domain.Date{}, domain.Date{}, invalidInput("start_date must not be after end_date")
	}
	return start, end, nil
}

func validateKind(kind domain.CompanyKind) error {
	if !kind.Valid() {
		return invalidInput("unknown company type %q", kind)
	}
	return nil
}

func (s *Service) logError(funcName string, step string, data any, err error) {
	logging.LogError(s.logger, "service", funcName, step, data, err)
}
