// Package mocks provides mock implementations of the core ports for testing the report pipeline.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	transport := mocks.NewMockTransport(ctrl)
//	transport.EXPECT().Do(gomock.Any(), gomock.Any()).Return(&core.Response{StatusCode: 200}, nil)
package mocks

// Generate mock for Transport interface from internal/core package.
// This creates MockTransport with methods for all Transport interface methods:
// Do
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=transport_mock.go github.com/target/reportfetch/internal/core Transport

// Generate mock for ReportWriter interface from internal/core package.
// This creates MockReportWriter with methods for all ReportWriter interface methods:
// WriteReport
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=report_writer_mock.go github.com/target/reportfetch/internal/core ReportWriter
