package util

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// ContextualError is an error bundled with the fields that were relevant when
// it happened, so the top level can log it with full context instead of a
// bare string.
type ContextualError struct {
	RealError error
	Fields    map[string]interface{}
	Context   string
}

func NewContextualError(msg string, fields map[string]interface{}, realError error) ContextualError {
	return ContextualError{Context: msg, Fields: fields, RealError: realError}
}

func (ce ContextualError) Error() string {
	if ce.RealError == nil {
		return ce.Context
	}
	return fmt.Sprintf("%s: %s", ce.Context, ce.RealError.Error())
}

func (ce ContextualError) Unwrap() error {
	return ce.RealError
}

func (ce *ContextualError) Log(l *logrus.Logger) {
	if ce.RealError != nil {
		l.WithFields(ce.Fields).WithError(ce.RealError).Error(ce.Context)
	} else {
		l.WithFields(ce.Fields).Error(ce.Context)
	}
}
