package signal

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/alexisbeaulieu97/signalboard/pkg/errors"
)

// Status classifies a signal's most recent observation.
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarn    Status = "warn"
	StatusBad     Status = "bad"
	StatusUnknown Status = "unknown"
)

// Valid reports whether s is one of the four enumerated statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOK, StatusWarn, StatusBad, StatusUnknown:
		return true
	}
	return false
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Result is the immutable value produced by one fetch. TS is the timestamp of
// the underlying event, not of the fetch itself.
type Result struct {
	Status  Status    `json:"status"`
	Value   string    `json:"value"`
	TS      time.Time `json:"ts"`
	Details string    `json:"details,omitempty"`
	Link    string    `json:"link,omitempty"`
}

// BadResult builds a normalized failure result. The engine uses it to convert
// errors, panics, and timeouts into the contract's bad status.
func BadResult(value, details string) Result {
	return Result{
		Status:  StatusBad,
		Value:   value,
		TS:      time.Now().UTC(),
		Details: details,
	}
}

// Meta is a signal's immutable descriptor. ID is the stable key used by the
// cache and the HTTP routes.
type Meta struct {
	ID           string        `json:"id" validate:"required,signal_id"`
	Title        string        `json:"title" validate:"required"`
	PollInterval time.Duration `json:"poll_interval_s" validate:"gt=0"`
	Timeout      time.Duration `json:"timeout_s" validate:"gt=0"`
}

// Signal is the capability every pluggable source must expose. Fetch must be
// a plain blocking call: no retries, no sleeps, no I/O outside of Fetch, and
// it must not panic. Failures are reported either as an error return or as a
// Result with StatusBad; both are normalized before reaching the cache.
type Signal interface {
	Meta() Meta
	Fetch(ctx context.Context) (Result, error)
}

// Builder constructs a signal instance. Registration is compiled in: the
// command wires a table of builders instead of scanning a plugin directory.
type Builder func() (Signal, error)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	signalIDPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("signal_id", func(fl validator.FieldLevel) bool {
			return signalIDPattern.MatchString(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

// ValidateMeta checks the descriptor invariants: id shape, non-empty title,
// positive poll interval and timeout.
func ValidateMeta(m Meta) error {
	if err := validatorInstance().Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if ok := asValidationErrors(err, &verrs); ok && len(verrs) > 0 {
			first := verrs[0]
			return apperrors.NewValidationError(
				"meta."+first.Field(),
				fmt.Sprintf("failed %q constraint", first.Tag()),
				err,
			)
		}
		return apperrors.NewValidationError("meta", err.Error(), err)
	}
	return nil
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return false
	}
	*target = verrs
	return true
}
