package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// PublisherMock stands in for the AMQP publisher behind lifecycle events and audit entries.
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// ExpectPublish expects one event of the named Go type (e.g. "telemetry.AuditEnvelope") on routingKey
// and succeeds it.
func (m *PublisherMock) ExpectPublish(routingKey, eventType string) *mock.Call {
	return m.On("Publish", mock.Anything, routingKey, mock.AnythingOfType(eventType)).Return(nil).Once()
}

// RoutingKeys lists the routing keys published so far, in call order.
func (m *PublisherMock) RoutingKeys() []string {
	var keys []string
	for _, call := range m.Calls {
		if call.Method == "Publish" {
			keys = append(keys, call.Arguments.String(1))
		}
	}
	return keys
}
