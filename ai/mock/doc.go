// Package mock provides test doubles for the ai package interfaces.
//
// All mocks support behavior injection via function fields and track call
// counts for assertions. The default behaviors are deterministic so tests
// can run without external AI services.
package mock
