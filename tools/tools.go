//go:build tools
// +build tools

// Package tools documents development tool dependencies.
// These tools are run through `go run` or installed globally via `go install` and are
// not imported here, so they do not add requirements to go.mod.
package tools

// Development tools:
//
// mockgen - gomock code generator for internal/mocks
//   Run: go generate ./internal/mocks
//   Version: v0.6.0 (matches go.uber.org/mock in go.mod)
//   Docs: https://github.com/uber-go/mock
//
// golangci-lint - linter aggregator
//   Install: go install github.com/golangci/golangci-lint/v2/cmd/golangci-lint@v2.4.0
//   Docs: https://golangci-lint.run
