package fulfillment

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReader struct {
	mu       sync.Mutex
	messages []kafka.Message
	closed   bool
}

func (m *mockReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return kafka.Message{}, context.Canceled
	}
	msg := m.messages[0]
	m.messages = m.messages[1:]
	return msg, nil
}

func (m *mockReader) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type mockClearer struct {
	mu      sync.Mutex
	userIDs []string
	err     error
}

func (m *mockClearer) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.userIDs = append(m.userIDs, userID)
	return nil
}

type mockCompleter struct {
	mu          sync.Mutex
	checkoutIDs []string
	err         error
}

func (m *mockCompleter) Complete(_ context.Context, checkoutID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.checkoutIDs = append(m.checkoutIDs, checkoutID)
	return nil
}

func eventMessage(t *testing.T, event OrderCompletedEvent) kafka.Message {
	t.Helper()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(event.OrderID), Value: value}
}

func TestConsumer_ProcessMessage(t *testing.T) {
	reader := &mockReader{messages: []kafka.Message{
		eventMessage(t, OrderCompletedEvent{
			OrderID:    "ord-1",
			UserID:     "user-1",
			CheckoutID: "chk-1",
			Total:      15,
			Currency:   "GBP",
		}),
	}}
	clearer := &mockClearer{}
	completer := &mockCompleter{}
	c := &Consumer{reader: reader, selections: clearer, checkouts: completer}

	c.processMessage(context.Background())

	assert.Equal(t, []string{"user-1"}, clearer.userIDs)
	assert.Equal(t, []string{"chk-1"}, completer.checkoutIDs)
}

func TestConsumer_GuestOrder(t *testing.T) {
	// No user id means nothing to clear, no checkout id means nothing to
	// complete; the message is still consumed.
	reader := &mockReader{messages: []kafka.Message{
		eventMessage(t, OrderCompletedEvent{OrderID: "ord-2", Total: 5, Currency: "GBP"}),
	}}
	clearer := &mockClearer{}
	completer := &mockCompleter{}
	c := &Consumer{reader: reader, selections: clearer, checkouts: completer}

	c.processMessage(context.Background())

	assert.Empty(t, clearer.userIDs)
	assert.Empty(t, completer.checkoutIDs)
}

func TestConsumer_MalformedMessage(t *testing.T) {
	reader := &mockReader{messages: []kafka.Message{
		{Value: []byte("not json")},
	}}
	clearer := &mockClearer{}
	completer := &mockCompleter{}
	c := &Consumer{reader: reader, selections: clearer, checkouts: completer}

	c.processMessage(context.Background())

	assert.Empty(t, clearer.userIDs)
	assert.Empty(t, completer.checkoutIDs)
}

func TestConsumer_ClearFailureStillCompletes(t *testing.T) {
	reader := &mockReader{messages: []kafka.Message{
		eventMessage(t, OrderCompletedEvent{
			OrderID:    "ord-3",
			UserID:     "user-3",
			CheckoutID: "chk-3",
		}),
	}}
	clearer := &mockClearer{err: assert.AnError}
	completer := &mockCompleter{}
	c := &Consumer{reader: reader, selections: clearer, checkouts: completer}

	c.processMessage(context.Background())

	assert.Equal(t, []string{"chk-3"}, completer.checkoutIDs)
}

func TestConsumer_RunStopsOnCancel(t *testing.T) {
	reader := &mockReader{}
	c := &Consumer{reader: reader, selections: &mockClearer{}, checkouts: &mockCompleter{}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	<-done

	c.Close()
	assert.True(t, reader.closed)
}
