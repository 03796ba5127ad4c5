package call

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockMediaSession struct {
	mock.Mock
}

func (m *MockMediaSession) Connect(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockMediaSession) Disconnect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockMediaSession) SetMuted(muted bool) error {
	args := m.Called(muted)
	return args.Error(0)
}

func (m *MockMediaSession) SetParticipantAudio(userId string, enabled bool) error {
	args := m.Called(userId, enabled)
	return args.Error(0)
}
