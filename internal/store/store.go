// Package store is the synchronous persistence gateway: accounts, sessions,
// static trees, placed objects, guestbook, inventory and scores, all in one
// SQLite database.
package store

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("store: not found")
	ErrUsernameTaken     = errors.New("store: username taken")
	ErrInsufficientItems = errors.New("store: insufficient items")
)

type Account struct {
	ID           int64
	Username     string
	PasswordHash string
	Nickname     string
	Skin         string
}

type Session struct {
	Token     string
	AccountID int64
	ExpiresAt time.Time
}

// Tree is a static world object: position only, generated once, immutable.
type Tree struct {
	X float64
	Y float64
}

type PlacedObject struct {
	ID        int64
	Kind      string
	X         float64
	Y         float64
	Owner     string
	CreatedAt time.Time
}

type GuestbookEntry struct {
	Nickname  string
	Message   string
	CreatedAt time.Time
}

type ScoreRow struct {
	Nickname string
	Score    int64
}
