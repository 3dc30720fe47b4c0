package bot_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/tartampluch/go-birthday-bot/internal/engine"
)

// MockClock controls time for deterministic testing.
type MockClock struct {
	CurrentTime time.Time
}

func (m MockClock) Now() time.Time {
	return m.CurrentTime
}

// MockMessenger records outbound notifications.
type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) Notify(ctx context.Context, text string) error {
	args := m.Called(ctx, text)
	return args.Error(0)
}

// MockPublisher records published calendar feeds.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(feed engine.Feed) {
	m.Called(feed)
}
