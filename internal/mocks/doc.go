// Package mocks provides test doubles for the store layer: a testify mock of
// store.TaskStore and a Transactor that records commits and rollbacks
// without a database.
package mocks
