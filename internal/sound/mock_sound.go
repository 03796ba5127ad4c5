package sound

import "github.com/stretchr/testify/mock"

type MockPlayer struct {
	mock.Mock
}

func (m *MockPlayer) Play(cue Cue) {
	m.Called(cue)
}
