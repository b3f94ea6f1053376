// Package mocks provides test doubles for the serpapi client.
package mocks

import (
	"context"

	serpapi "github.com/sells-group/phone-finder/pkg/serpapi"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// MapsSearch provides a mock function with given fields: ctx, q
func (_m *MockClient) MapsSearch(ctx context.Context, q serpapi.MapsQuery) (*serpapi.MapsPage, error) {
	ret := _m.Called(ctx, q)

	if len(ret) == 0 {
		panic("no return value specified for MapsSearch")
	}

	var r0 *serpapi.MapsPage
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, serpapi.MapsQuery) (*serpapi.MapsPage, error)); ok {
		return rf(ctx, q)
	}
	if rf, ok := ret.Get(0).(func(context.Context, serpapi.MapsQuery) *serpapi.MapsPage); ok {
		r0 = rf(ctx, q)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*serpapi.MapsPage)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, serpapi.MapsQuery) error); ok {
		r1 = rf(ctx, q)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Next provides a mock function with given fields: ctx, page
func (_m *MockClient) Next(ctx context.Context, page *serpapi.MapsPage) (*serpapi.MapsPage, error) {
	ret := _m.Called(ctx, page)

	if len(ret) == 0 {
		panic("no return value specified for Next")
	}

	var r0 *serpapi.MapsPage
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, *serpapi.MapsPage) (*serpapi.MapsPage, error)); ok {
		return rf(ctx, page)
	}
	if rf, ok := ret.Get(0).(func(context.Context, *serpapi.MapsPage) *serpapi.MapsPage); ok {
		r0 = rf(ctx, page)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*serpapi.MapsPage)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, *serpapi.MapsPage) error); ok {
		r1 = rf(ctx, page)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// WebSearch provides a mock function with given fields: ctx, q
func (_m *MockClient) WebSearch(ctx context.Context, q serpapi.WebQuery) (*serpapi.WebPage, error) {
	ret := _m.Called(ctx, q)

	if len(ret) == 0 {
		panic("no return value specified for WebSearch")
	}

	var r0 *serpapi.WebPage
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, serpapi.WebQuery) (*serpapi.WebPage, error)); ok {
		return rf(ctx, q)
	}
	if rf, ok := ret.Get(0).(func(context.Context, serpapi.WebQuery) *serpapi.WebPage); ok {
		r0 = rf(ctx, q)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*serpapi.WebPage)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, serpapi.WebQuery) error); ok {
		r1 = rf(ctx, q)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient. It also registers a
// testing interface on the mock and a cleanup function to assert the mocks
// expectations.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
