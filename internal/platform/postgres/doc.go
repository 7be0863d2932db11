// Package postgres provides the PostgreSQL implementation of store.TaskStore.
// It handles query execution, mapping between domain.Task and table rows,
// and translation of driver errors into store errors. Schema migrations live
// in the migrations subpackage.
package postgres
