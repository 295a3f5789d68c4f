package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	storyverse "github.com/opd-ai/storyverse/src"
)

// MockImageClient is a mock type for the ImageClient type
type MockImageClient struct {
	mock.Mock
}

// ImageGenerate provides a mock function with given fields: ctx, prompt
func (_m *MockImageClient) ImageGenerate(ctx context.Context, prompt string) ([]byte, error) {
	ret := _m.Called(ctx, prompt)

	var r0 []byte
	if rf, ok := ret.Get(0).(func(context.Context, string) []byte); ok {
		r0 = rf(ctx, prompt)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]byte)
	}

	return r0, ret.Error(1)
}

// NewMockImageClient creates a new instance of MockImageClient and asserts
// its expectations when the test finishes.
func NewMockImageClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockImageClient {
	m := &MockImageClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ storyverse.ImageClient = (*MockImageClient)(nil)
