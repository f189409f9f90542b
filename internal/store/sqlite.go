package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// modernc sqlite is happiest with a single writer connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			nickname TEXT NOT NULL,
			skin TEXT NOT NULL DEFAULT 'skin_fox',
			created_at TEXT NOT NULL,
			last_login TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_username ON accounts(username);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			account_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			expires_at INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_account ON sessions(account_id);`,
		`CREATE TABLE IF NOT EXISTS trees (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			x REAL NOT NULL,
			y REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS placed_objects (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			owner_username TEXT,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_placed_coords ON placed_objects(x, y);`,
		`CREATE TABLE IF NOT EXISTS guestbook (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			nickname TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_guestbook_created ON guestbook(created_at);`,
		`CREATE TABLE IF NOT EXISTS inventory (
			account_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			item TEXT NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (account_id, item)
		);`,
		`CREATE TABLE IF NOT EXISTS scores (
			account_id INTEGER PRIMARY KEY REFERENCES accounts(id) ON DELETE CASCADE,
			nickname TEXT NOT NULL,
			score INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_scores_score ON scores(score DESC);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// --- accounts ---

func (s *Store) CreateAccount(ctx context.Context, username, passwordHash, nickname, skin string) (Account, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Account{}, err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM accounts WHERE username = ?`, username).Scan(&exists)
	if err != nil {
		return Account{}, err
	}
	if exists > 0 {
		return Account{}, ErrUsernameTaken
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO accounts (username, password_hash, nickname, skin, created_at) VALUES (?, ?, ?, ?, ?)`,
		username, passwordHash, nickname, skin, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return Account{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Account{}, err
	}
	if err := tx.Commit(); err != nil {
		return Account{}, err
	}
	return Account{ID: id, Username: username, PasswordHash: passwordHash, Nickname: nickname, Skin: skin}, nil
}

func (s *Store) AccountByUsername(ctx context.Context, username string) (Account, error) {
	var a Account
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, nickname, skin FROM accounts WHERE username = ?`, username).
		Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Nickname, &a.Skin)
	if err == sql.ErrNoRows {
		return Account{}, ErrNotFound
	}
	return a, err
}

func (s *Store) AccountByID(ctx context.Context, id int64) (Account, error) {
	var a Account
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, nickname, skin FROM accounts WHERE id = ?`, id).
		Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Nickname, &a.Skin)
	if err == sql.ErrNoRows {
		return Account{}, ErrNotFound
	}
	return a, err
}

func (s *Store) UpdateAccountNickname(ctx context.Context, id int64, nickname string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE accounts SET nickname = ? WHERE id = ?`, nickname, id)
	return err
}

func (s *Store) UpdateAccountSkin(ctx context.Context, id int64, skin string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE accounts SET skin = ? WHERE id = ?`, skin, id)
	return err
}

func (s *Store) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE accounts SET last_login = ? WHERE id = ?`,
		at.UTC().Format(time.RFC3339Nano), id)
	return err
}

// --- sessions ---

func (s *Store) CreateSession(ctx context.Context, token string, accountID int64, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token, account_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		token, accountID, expiresAt.Unix(), time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *Store) SessionByToken(ctx context.Context, token string) (Session, error) {
	var sess Session
	var exp int64
	err := s.db.QueryRowContext(ctx,
		`SELECT token, account_id, expires_at FROM sessions WHERE token = ?`, token).
		Scan(&sess.Token, &sess.AccountID, &exp)
	if err == sql.ErrNoRows {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	sess.ExpiresAt = time.Unix(exp, 0)
	return sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return err
}

// PurgeExpiredSessions lazily removes sessions whose expiry is at or before now.
func (s *Store) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- trees ---

func (s *Store) TreeCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM trees`).Scan(&n)
	return n, err
}

func (s *Store) InsertTrees(ctx context.Context, trees []Tree) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, t := range trees {
		if _, err := tx.ExecContext(ctx, `INSERT INTO trees (x, y) VALUES (?, ?)`, t.X, t.Y); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) Trees(ctx context.Context) ([]Tree, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT x, y FROM trees ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Tree
	for rows.Next() {
		var t Tree
		if err := rows.Scan(&t.X, &t.Y); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// --- placed objects ---

func (s *Store) PlacedObjects(ctx context.Context) ([]PlacedObject, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, x, y, COALESCE(owner_username, ''), created_at FROM placed_objects ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PlacedObject
	for rows.Next() {
		var o PlacedObject
		var created string
		if err := rows.Scan(&o.ID, &o.Kind, &o.X, &o.Y, &o.Owner, &created); err != nil {
			return nil, err
		}
		o.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, o)
	}
	return out, rows.Err()
}

// PlaceObjectCharged inserts a placed object and deducts its inventory cost in
// one transaction. Either the object lands and the items are spent, or
// neither happens.
func (s *Store) PlaceObjectCharged(ctx context.Context, accountID int64, owner, kind string, x, y float64, cost map[string]int) (PlacedObject, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return PlacedObject{}, err
	}
	defer tx.Rollback()

	for item, need := range cost {
		if need <= 0 {
			continue
		}
		var have int
		err := tx.QueryRowContext(ctx,
			`SELECT count FROM inventory WHERE account_id = ? AND item = ?`, accountID, item).Scan(&have)
		if err == sql.ErrNoRows {
			have = 0
		} else if err != nil {
			return PlacedObject{}, err
		}
		if have < need {
			return PlacedObject{}, ErrInsufficientItems
		}
		if have == need {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM inventory WHERE account_id = ? AND item = ?`, accountID, item); err != nil {
				return PlacedObject{}, err
			}
		} else {
			if _, err := tx.ExecContext(ctx,
				`UPDATE inventory SET count = count - ? WHERE account_id = ? AND item = ?`, need, accountID, item); err != nil {
				return PlacedObject{}, err
			}
		}
	}

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO placed_objects (kind, x, y, owner_username, created_at) VALUES (?, ?, ?, ?, ?)`,
		kind, x, y, owner, now.Format(time.RFC3339Nano))
	if err != nil {
		return PlacedObject{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return PlacedObject{}, err
	}
	if err := tx.Commit(); err != nil {
		return PlacedObject{}, err
	}
	return PlacedObject{ID: id, Kind: kind, X: x, Y: y, Owner: owner, CreatedAt: now}, nil
}

// DeletePlacedObject removes an object if it belongs to owner.
func (s *Store) DeletePlacedObject(ctx context.Context, id int64, owner string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM placed_objects WHERE id = ? AND owner_username = ?`, id, owner)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- guestbook ---

func (s *Store) InsertGuestbookPost(ctx context.Context, nickname, message string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO guestbook (nickname, message, created_at) VALUES (?, ?, ?)`,
		nickname, message, at.Unix())
	return err
}

// RecentGuestbook returns the n most recent posts, oldest first.
func (s *Store) RecentGuestbook(ctx context.Context, n int) ([]GuestbookEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT nickname, message, created_at FROM guestbook ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GuestbookEntry
	for rows.Next() {
		var e GuestbookEntry
		var at int64
		if err := rows.Scan(&e.Nickname, &e.Message, &at); err != nil {
			return nil, err
		}
		e.CreatedAt = time.Unix(at, 0)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// --- inventory ---

func (s *Store) Inventory(ctx context.Context, accountID int64) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item, count FROM inventory WHERE account_id = ?`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var item string
		var count int
		if err := rows.Scan(&item, &count); err != nil {
			return nil, err
		}
		out[item] = count
	}
	return out, rows.Err()
}

// ReplaceInventory swaps the whole inventory of an account in one transaction:
// either every item lands or none do.
func (s *Store) ReplaceInventory(ctx context.Context, accountID int64, items map[string]int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM inventory WHERE account_id = ?`, accountID); err != nil {
		return err
	}
	for item, count := range items {
		if count <= 0 {
			continue
		}
		if item == "" {
			return fmt.Errorf("empty item name")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO inventory (account_id, item, count) VALUES (?, ?, ?)`, accountID, item, count); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// --- scores ---

// SubmitScore records a score, keeping the account's best.
func (s *Store) SubmitScore(ctx context.Context, accountID int64, nickname string, score int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scores (account_id, nickname, score, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(account_id) DO UPDATE SET
			nickname = excluded.nickname,
			score = MAX(score, excluded.score),
			updated_at = excluded.updated_at`,
		accountID, nickname, score, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *Store) Leaderboard(ctx context.Context, n int) ([]ScoreRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT nickname, score FROM scores ORDER BY score DESC, updated_at ASC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ScoreRow
	for rows.Next() {
		var r ScoreRow
		if err := rows.Scan(&r.Nickname, &r.Score); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
