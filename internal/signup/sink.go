package signup

import (
	"context"

	"github.com/gabrielmiguelok/stepform/pkg/forms"
	"github.com/gabrielmiguelok/stepform/pkg/logging"
	"github.com/gabrielmiguelok/stepform/pkg/wizard"
)

// LogSink logs every submitted applicant at info level. Only the email
// and the country are logged.
func LogSink(logger logging.Logger) wizard.Sink {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return wizard.SinkFunc(func(ctx context.Context, record forms.Record) error {
		a, err := DecodeApplicant(record)
		if err != nil {
			return err
		}
		logger.Info("signup received",
			logging.String("email", a.Email),
			logging.String("country", a.Country),
		)
		return nil
	})
}

// ChannelSink delivers submitted records on a channel. Submit blocks until
// the record is taken or ctx ends.
type ChannelSink struct {
	ch chan forms.Record
}

// NewChannelSink creates a sink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{ch: make(chan forms.Record, buffer)}
}

// Submit implements wizard.Sink.
func (s *ChannelSink) Submit(ctx context.Context, record forms.Record) error {
	select {
	case s.ch <- record.Clone():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Records returns the delivery channel.
func (s *ChannelSink) Records() <-chan forms.Record {
	return s.ch
}
