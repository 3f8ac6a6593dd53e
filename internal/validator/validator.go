package validator

import (
	"reflect"
	"strings"
	"time"
)

// Validator is the entry point handed to services
type Validator struct {
	business *BusinessValidator
}

type Option func(*options)

type options struct {
	maxWeek int
	now     func() time.Time
}

// WithMaxWeek sets the last valid teaching week
func WithMaxWeek(n int) Option {
	return func(o *options) { o.maxWeek = n }
}

// WithClock overrides time.Now, used by tests
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func New(opts ...Option) *Validator {
	o := &options{maxWeek: DefaultMaxWeek, now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return &Validator{business: NewBusinessValidator(o.maxWeek, o.now)}
}

func (v *Validator) GetBusinessValidator() *BusinessValidator {
	return v.business
}

// jsonFieldName reports fields by their json name so error payloads match the request
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}
