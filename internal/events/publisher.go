package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/issuetracker/internal/issue"
	"github.com/fyrsmithlabs/issuetracker/internal/logging"
)

// Publisher sends store changes to NATS. It implements issue.Observer.
type Publisher struct {
	nc     *nats.Conn
	prefix string
	logger *logging.Logger
	now    func() time.Time
}

var _ issue.Observer = (*Publisher)(nil)

// NewPublisher creates a publisher on an open connection.
func NewPublisher(nc *nats.Conn, prefix string, logger *logging.Logger) (*Publisher, error) {
	if nc == nil {
		return nil, errors.New("nats connection cannot be nil")
	}
	if prefix == "" {
		return nil, errors.New("subject prefix is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Publisher{
		nc:     nc,
		prefix: prefix,
		logger: logger.Named("events"),
		now:    time.Now,
	}, nil
}

// Publish sends one change and returns any marshal or publish error.
func (p *Publisher) Publish(ctx context.Context, change issue.Change) error {
	evt := Event{
		Type:    change.Op,
		Project: change.Project,
		IssueID: change.ID,
		Issue:   change.Issue,
		Seq:     change.Seq,
		At:      p.now().UTC(),
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", change.Op, err)
	}

	subject := Subject(p.prefix, change.Project, change.Op)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s event: %w", change.Op, err)
	}

	p.logger.Trace(ctx, "event published", zap.String("subject", subject), zap.String("issue.id", change.ID))
	return nil
}

// IssueChanged implements issue.Observer. Failures are logged.
func (p *Publisher) IssueChanged(ctx context.Context, change issue.Change) {
	if err := p.Publish(ctx, change); err != nil {
		p.logger.Warn(ctx, "failed to publish issue event",
			zap.String("op", string(change.Op)),
			zap.String("issue.id", change.ID),
			zap.Error(err),
		)
	}
}

// Connect dials the broker and logs connection state changes.
func Connect(url string, logger *logging.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	z := logger.Underlying().Named("nats")

	nc, err := nats.Connect(url,
		nats.Name("issuetracker"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				z.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			z.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", url, err)
	}
	return nc, nil
}

// Subscribe decodes events for project (or all projects when empty) and
// passes them to handle. Undecodable messages are dropped.
func Subscribe(nc *nats.Conn, prefix, project string, handle func(Event)) (*nats.Subscription, error) {
	return nc.Subscribe(SubjectFilter(prefix, project), func(msg *nats.Msg) {
		var evt Event
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			return
		}
		handle(evt)
	})
}
