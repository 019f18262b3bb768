// Package proxies holds proxies generated ahead of time for test fixtures.
// Importing it registers their classes.
package proxies

//go:generate go run github.com/broady/proxykit/cmd/proxygen gen github.com/broady/proxykit/internal/testfixtures.GraphInterface
