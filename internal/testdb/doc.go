//go:build integration

// Package testdb provides utilities for database integration tests.
//
// Tests run inside a transaction that is rolled back when the test
// completes, so they can share one database and run in parallel:
//
//	func TestMyFeature(t *testing.T) {
//	    db := testdb.GetTestDBWithT(t)
//
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        taskStore := postgres.NewPostgresTaskStore(tx, nil)
//	        // ...
//	    })
//	}
//
// The connection string comes from TASKS_TEST_DATABASE_URL or DATABASE_URL;
// tests are skipped when neither is set. GetTestDBWithT applies the embedded
// goose migrations before returning.
package testdb
