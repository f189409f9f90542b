// Package httpapi is the request/response side of the server: accounts,
// sessions, inventory, object placement and the leaderboard. The real-time
// world only hears about placements after they are durably written.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"foxhollow.gg/internal/auth"
	"foxhollow.gg/internal/protocol"
	"foxhollow.gg/internal/store"
)

// WorldNotifier receives durably-written placements for broadcast.
type WorldNotifier interface {
	NotifyObjectPlaced(obj store.PlacedObject)
}

type Server struct {
	store *store.Store
	gate  *auth.Gate
	world WorldNotifier
	log   *zap.SugaredLogger

	sessionTTL     time.Duration
	leaderboardTop int
	objectCosts    map[string]map[string]int
}

type Options struct {
	SessionTTL     time.Duration
	LeaderboardTop int
	ObjectCosts    map[string]map[string]int
}

func NewServer(st *store.Store, gate *auth.Gate, notifier WorldNotifier, opts Options, logger *zap.SugaredLogger) *Server {
	return &Server{
		store:          st,
		gate:           gate,
		world:          notifier,
		log:            logger,
		sessionTTL:     opts.SessionTTL,
		leaderboardTop: opts.LeaderboardTop,
		objectCosts:    opts.ObjectCosts,
	}
}

func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/signup", s.handleSignup)
	mux.HandleFunc("/api/login", s.handleLogin)
	mux.HandleFunc("/api/logout", s.handleLogout)
	mux.HandleFunc("/api/verify", s.handleVerify)
	mux.HandleFunc("/api/profile", s.handleProfile)
	mux.HandleFunc("/api/inventory", s.handleInventory)
	mux.HandleFunc("/api/place", s.handlePlace)
	mux.HandleFunc("/api/place/", s.handleRemove)
	mux.HandleFunc("/api/score", s.handleScore)
	mux.HandleFunc("/api/leaderboard", s.handleLeaderboard)
}

// --- helpers ---

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, apiError{Code: code, Message: msg})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// authenticate resolves the bearer token or fails the whole request: invalid
// and expired tokens get a 401 with zero side effects.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (store.Account, bool) {
	acct, err := s.gate.Verify(r.Context(), bearerToken(r), time.Now())
	if errors.Is(err, auth.ErrInvalidToken) {
		writeError(w, http.StatusUnauthorized, protocol.ErrAuth, "invalid or expired token")
		return store.Account{}, false
	}
	if err != nil {
		s.log.Errorw("verify token", "err", err)
		writeError(w, http.StatusInternalServerError, protocol.ErrInternal, "internal error")
		return store.Account{}, false
	}
	return acct, true
}

// --- accounts ---

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, protocol.ErrBadRequest, "method not allowed")
		return
	}
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Nickname string `json:"nickname"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, "invalid json")
		return
	}
	body.Username = strings.TrimSpace(strings.ToLower(body.Username))
	body.Nickname = strings.TrimSpace(body.Nickname)
	if body.Username == "" || body.Password == "" || body.Nickname == "" {
		writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, "username, password and nickname are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		s.log.Errorw("hash password", "err", err)
		writeError(w, http.StatusInternalServerError, protocol.ErrInternal, "internal error")
		return
	}
	acct, err := s.store.CreateAccount(r.Context(), body.Username, string(hash), body.Nickname, "skin_fox")
	if errors.Is(err, store.ErrUsernameTaken) {
		writeError(w, http.StatusConflict, protocol.ErrConflict, "username already registered")
		return
	}
	if err != nil {
		s.log.Errorw("create account", "err", err)
		writeError(w, http.StatusInternalServerError, protocol.ErrInternal, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"username": acct.Username, "nickname": acct.Nickname})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, protocol.ErrBadRequest, "method not allowed")
		return
	}
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, "invalid json")
		return
	}

	acct, err := s.store.AccountByUsername(r.Context(), strings.TrimSpace(strings.ToLower(body.Username)))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, protocol.ErrAuth, "bad credentials")
		return
	}
	if err != nil {
		s.log.Errorw("lookup account", "err", err)
		writeError(w, http.StatusInternalServerError, protocol.ErrInternal, "internal error")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(body.Password)) != nil {
		writeError(w, http.StatusUnauthorized, protocol.ErrAuth, "bad credentials")
		return
	}

	token := uuid.NewString()
	expires := time.Now().Add(s.sessionTTL)
	if err := s.store.CreateSession(r.Context(), token, acct.ID, expires); err != nil {
		s.log.Errorw("create session", "err", err)
		writeError(w, http.StatusInternalServerError, protocol.ErrInternal, "internal error")
		return
	}
	_ = s.store.TouchLastLogin(r.Context(), acct.ID, time.Now())
	writeJSON(w, http.StatusOK, map[string]any{
		"token":    token,
		"nickname": acct.Nickname,
		"skin":     acct.Skin,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, protocol.ErrBadRequest, "method not allowed")
		return
	}
	if token := bearerToken(r); token != "" {
		if err := s.store.DeleteSession(r.Context(), token); err != nil {
			s.log.Warnw("delete session", "err", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, protocol.ErrBadRequest, "method not allowed")
		return
	}
	acct, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"username": acct.Username,
		"nickname": acct.Nickname,
		"skin":     acct.Skin,
	})
}

// handleProfile updates the stored nickname and/or skin of the account. Live
// connections keep their current identity until the player rejoins.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, protocol.ErrBadRequest, "method not allowed")
		return
	}
	acct, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var body struct {
		Nickname string `json:"nickname"`
		Skin     string `json:"skin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, "invalid json")
		return
	}
	body.Nickname = strings.TrimSpace(body.Nickname)
	if body.Nickname == "" && body.Skin == "" {
		writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, "nothing to update")
		return
	}
	if body.Nickname != "" {
		if err := s.store.UpdateAccountNickname(r.Context(), acct.ID, body.Nickname); err != nil {
			s.log.Errorw("update nickname", "err", err)
			writeError(w, http.StatusInternalServerError, protocol.ErrInternal, "internal error")
			return
		}
		acct.Nickname = body.Nickname
	}
	if body.Skin != "" {
		if err := s.store.UpdateAccountSkin(r.Context(), acct.ID, body.Skin); err != nil {
			s.log.Errorw("update skin", "err", err)
			writeError(w, http.StatusInternalServerError, protocol.ErrInternal, "internal error")
			return
		}
		acct.Skin = body.Skin
	}
	writeJSON(w, http.StatusOK, map[string]any{"nickname": acct.Nickname, "skin": acct.Skin})
}

// --- inventory ---

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		items, err := s.store.Inventory(r.Context(), acct.ID)
		if err != nil {
			s.log.Errorw("load inventory", "err", err)
			writeError(w, http.StatusInternalServerError, protocol.ErrInternal, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPut:
		var body struct {
			Items map[string]int `json:"items"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, "invalid json")
			return
		}
		if err := s.store.ReplaceInventory(r.Context(), acct.ID, body.Items); err != nil {
			s.log.Errorw("replace inventory", "err", err)
			writeError(w, http.StatusInternalServerError, protocol.ErrInternal, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, protocol.ErrBadRequest, "method not allowed")
	}
}

// --- placement ---

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, protocol.ErrBadRequest, "method not allowed")
		return
	}
	acct, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var body struct {
		Kind string  `json:"kind"`
		X    float64 `json:"x"`
		Y    float64 `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, "invalid json")
		return
	}
	cost, known := s.objectCosts[body.Kind]
	if !known {
		writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, "unknown object kind")
		return
	}

	// One transaction: cost check, deduction and insert. On failure nothing
	// is charged, nothing lands and nothing is broadcast.
	obj, err := s.store.PlaceObjectCharged(r.Context(), acct.ID, acct.Username, body.Kind, body.X, body.Y, cost)
	if errors.Is(err, store.ErrInsufficientItems) {
		writeError(w, http.StatusConflict, protocol.ErrNoResource, "not enough materials")
		return
	}
	if err != nil {
		s.log.Errorw("place object", "err", err)
		writeError(w, http.StatusInternalServerError, protocol.ErrInternal, "internal error")
		return
	}

	s.world.NotifyObjectPlaced(obj)
	writeJSON(w, http.StatusCreated, map[string]any{"id": obj.ID})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, protocol.ErrBadRequest, "method not allowed")
		return
	}
	acct, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	idStr := strings.TrimPrefix(r.URL.Path, "/api/place/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, "invalid object id")
		return
	}
	err = s.store.DeletePlacedObject(r.Context(), id, acct.Username)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, protocol.ErrNotFound, "no such object owned by you")
		return
	}
	if err != nil {
		s.log.Errorw("remove object", "err", err)
		writeError(w, http.StatusInternalServerError, protocol.ErrInternal, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// --- scores ---

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, protocol.ErrBadRequest, "method not allowed")
		return
	}
	acct, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var body struct {
		Score int64 `json:"score"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Score < 0 {
		writeError(w, http.StatusBadRequest, protocol.ErrBadRequest, "invalid score")
		return
	}
	if err := s.store.SubmitScore(r.Context(), acct.ID, acct.Nickname, body.Score); err != nil {
		s.log.Errorw("submit score", "err", err)
		writeError(w, http.StatusInternalServerError, protocol.ErrInternal, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, protocol.ErrBadRequest, "method not allowed")
		return
	}
	rows, err := s.store.Leaderboard(r.Context(), s.leaderboardTop)
	if err != nil {
		s.log.Errorw("load leaderboard", "err", err)
		writeError(w, http.StatusInternalServerError, protocol.ErrInternal, "internal error")
		return
	}
	type entry struct {
		Nickname string `json:"nickname"`
		Score    int64  `json:"score"`
	}
	out := make([]entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, entry{Nickname: r.Nickname, Score: r.Score})
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": out})
}
