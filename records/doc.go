// Package records stores the Application, Version and Rules entities that the
// deployer reads and writes.
//
// The Store interface is a typed, keyed document store. Load operations return
// a nil record and a nil error when the record is absent; Save operations are
// unconditional upserts. Callers must not assume atomicity across Save calls.
//
// Two implementations are provided: DynamoStore, backed by a single DynamoDB
// table using composite PK/SK keys, and MemoryStore for tests and local runs.
package records
