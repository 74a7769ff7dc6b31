package bus

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	SubjectTestCaseUpserted  = "testcase.upserted"
	SubjectTestCaseDeleted   = "testcase.deleted"
	SubjectTestCasesImported = "testcases.imported"
	SubjectTestRunCompleted  = "testrun.completed"
)

type Publisher struct {
	Conn *nats.Conn
}

func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("apitest-backend"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{Conn: conn}, nil
}

func (p *Publisher) Close() {
	if p.Conn != nil {
		p.Conn.Drain()
		p.Conn.Close()
	}
}

func (p *Publisher) Publish(subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.Conn.Publish(subject, data)
}

// Discard drops every event. It is used when no NATS server is configured.
type Discard struct{}

func (Discard) Publish(subject string, payload any) error { return nil }

func (Discard) Close() {}
