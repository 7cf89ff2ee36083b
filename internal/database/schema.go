package database

// sqliteSchema mirrors migrations/0001_initial.sql for sqlite3 databases.
//
// Money columns are TEXT so decimal values round-trip exactly.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	avatar TEXT NOT NULL DEFAULT 'no-img.png',
	cash TEXT NOT NULL,
	version INTEGER NOT NULL DEFAULT 1,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS posts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	message TEXT NOT NULL,
	posted_at TIMESTAMP NOT NULL,
	owner_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS posts_owner_id ON posts(owner_id);
CREATE INDEX IF NOT EXISTS posts_posted_at ON posts(posted_at);

CREATE TABLE IF NOT EXISTS transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	symbol TEXT NOT NULL,
	name TEXT NOT NULL,
	shares INTEGER NOT NULL,
	price TEXT NOT NULL,
	cost TEXT NOT NULL,
	transacted_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS transactions_user_symbol ON transactions(user_id, symbol);
`
