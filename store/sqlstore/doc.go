// Package sqlstore maps the provider's users, accounts, organizations and roles onto
// an application-owned relational schema.
//
// Table and column names come from a [Schema]; [DefaultSchema] matches the layout the
// rest of the application uses, where a user's display name lives in first_name.
// Tables are the application's. [Store.CreateTables] applies a reference layout for
// development databases and tests; nothing else touches DDL.
//
// [Open] uses the pure-Go modernc.org/sqlite driver. [New] accepts any *sql.DB whose
// driver understands "?" placeholders.
package sqlstore
