package requesttoken

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Identity), args.Error(1)
}

type MockBinder struct {
	mock.Mock
}

func (m *MockBinder) BindRequest(ctx context.Context, identity Identity) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}

func (m *MockBinder) EstablishSession(ctx context.Context, identity Identity) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}

type MockDecoder struct {
	mock.Mock
}

func (m *MockDecoder) Decode(raw string) (*TokenClaims, error) {
	args := m.Called(raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TokenClaims), args.Error(1)
}
