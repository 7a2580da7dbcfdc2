package main

import (
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/rcowham/svncore/delta"
)

// natsPublisher sends one message per replicated revision, for external
// dashboards watching a long-running sync without polling the
// destination's bookkeeping properties.
type natsPublisher struct {
	conn    *nats.Conn
	subject string
}

func newNATSPublisher(url, subject string) (*natsPublisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	return &natsPublisher{conn: conn, subject: subject}, nil
}

func (p *natsPublisher) Publish(rev delta.Revision) {
	_ = p.conn.Publish(p.subject, []byte(fmt.Sprintf("%d", int64(rev))))
}

func (p *natsPublisher) Close() {
	p.conn.Close()
}
