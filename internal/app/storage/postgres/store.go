// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/quest4deals/quest4deals/internal/app/domain/game"
	"github.com/quest4deals/quest4deals/internal/app/domain/pricing"
	"github.com/quest4deals/quest4deals/internal/app/domain/user"
	"github.com/quest4deals/quest4deals/internal/app/domain/watchlist"
	"github.com/quest4deals/quest4deals/internal/app/storage"
)

// Store implements the storage interfaces over database/sql.
type Store struct {
	db *sql.DB
}

var _ storage.GameStore = (*Store)(nil)
var _ storage.PriceHistoryStore = (*Store)(nil)
var _ storage.WatchlistStore = (*Store)(nil)
var _ storage.UserStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// uniqueViolation is the Postgres error code for unique index violations.
const uniqueViolation = "23505"

func mapWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return fmt.Errorf("%v: %w", pqErr.Constraint, storage.ErrDuplicate)
	}
	return err
}

func mapReadError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}

// --- GameStore --------------------------------------------------------------

func (s *Store) CreateGame(ctx context.Context, g game.Game) (game.Game, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO games (id, external_id, title, genre, platform, current_price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, g.ID, g.ExternalID, g.Title, g.Genre, g.Platform, g.CurrentPrice, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return game.Game{}, mapWriteError(err)
	}
	return g, nil
}

func (s *Store) UpdateGame(ctx context.Context, g game.Game) (game.Game, error) {
	existing, err := s.GetGame(ctx, g.ID)
	if err != nil {
		return game.Game{}, err
	}

	g.ExternalID = existing.ExternalID
	g.CreatedAt = existing.CreatedAt
	g.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE games
		SET title = $2, genre = $3, platform = $4, current_price = $5, updated_at = $6
		WHERE id = $1
	`, g.ID, g.Title, g.Genre, g.Platform, g.CurrentPrice, g.UpdatedAt)
	if err != nil {
		return game.Game{}, mapWriteError(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return game.Game{}, storage.ErrNotFound
	}
	return g, nil
}

const gameColumns = `id, external_id, title, genre, platform, current_price, created_at, updated_at`

func scanGame(row interface{ Scan(...any) error }) (game.Game, error) {
	var g game.Game
	err := row.Scan(&g.ID, &g.ExternalID, &g.Title, &g.Genre, &g.Platform, &g.CurrentPrice, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

func (s *Store) GetGame(ctx context.Context, id string) (game.Game, error) {
	g, err := scanGame(s.db.QueryRowContext(ctx, `
		SELECT `+gameColumns+` FROM games WHERE id = $1
	`, id))
	if err != nil {
		return game.Game{}, mapReadError(err)
	}
	return g, nil
}

func (s *Store) GetGameByExternal(ctx context.Context, externalID, platform string) (game.Game, error) {
	g, err := scanGame(s.db.QueryRowContext(ctx, `
		SELECT `+gameColumns+` FROM games WHERE external_id = $1 AND lower(platform) = lower($2)
	`, externalID, platform))
	if err != nil {
		return game.Game{}, mapReadError(err)
	}
	return g, nil
}

func (s *Store) ListGames(ctx context.Context) ([]game.Game, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+gameColumns+` FROM games ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []game.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

func (s *Store) DeleteGame(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- PriceHistoryStore ------------------------------------------------------

func (s *Store) AppendPriceRecord(ctx context.Context, rec pricing.Record) (pricing.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO price_history (id, game_id, price, recorded_at)
		VALUES ($1, $2, $3, $4)
	`, rec.ID, rec.GameID, rec.Price, rec.RecordedAt)
	if err != nil {
		return pricing.Record{}, mapWriteError(err)
	}
	return rec, nil
}

func (s *Store) LatestPriceRecord(ctx context.Context, gameID string) (pricing.Record, error) {
	var rec pricing.Record
	err := s.db.QueryRowContext(ctx, `
		SELECT id, game_id, price, recorded_at
		FROM price_history
		WHERE game_id = $1
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1
	`, gameID).Scan(&rec.ID, &rec.GameID, &rec.Price, &rec.RecordedAt)
	if err != nil {
		return pricing.Record{}, mapReadError(err)
	}
	return rec, nil
}

func (s *Store) ListPriceRecords(ctx context.Context, gameID string) ([]pricing.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, game_id, price, recorded_at
		FROM price_history
		WHERE game_id = $1
		ORDER BY recorded_at DESC, id DESC
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []pricing.Record
	for rows.Next() {
		var rec pricing.Record
		if err := rows.Scan(&rec.ID, &rec.GameID, &rec.Price, &rec.RecordedAt); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// --- WatchlistStore ---------------------------------------------------------

const entryColumns = `id, user_id, game_id, external_game_id, platform, title, genre, price, notify_mode, notify_threshold, enabled, last_notified_at, created_at, updated_at`

func scanEntry(row interface{ Scan(...any) error }) (watchlist.Entry, error) {
	var (
		e            watchlist.Entry
		mode         string
		threshold    sql.NullFloat64
		lastNotified sql.NullTime
	)
	err := row.Scan(&e.ID, &e.UserID, &e.GameID, &e.ExternalGameID, &e.Platform, &e.Title, &e.Genre,
		&e.Price, &mode, &threshold, &e.Enabled, &lastNotified, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return watchlist.Entry{}, err
	}
	if watchlist.Mode(mode) == watchlist.ModeThreshold && threshold.Valid {
		e.Notify = watchlist.BelowThreshold(threshold.Float64)
	} else {
		e.Notify = watchlist.OnAnyChange()
	}
	if lastNotified.Valid {
		e.LastNotifiedAt = lastNotified.Time.UTC()
	}
	return e, nil
}

func entryNotifyColumns(e watchlist.Entry) (string, sql.NullFloat64) {
	if t, ok := e.Notify.Threshold(); ok {
		return string(watchlist.ModeThreshold), sql.NullFloat64{Float64: t, Valid: true}
	}
	return string(watchlist.ModeAnyChange), sql.NullFloat64{}
}

func (s *Store) CreateEntry(ctx context.Context, e watchlist.Entry) (watchlist.Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	mode, threshold := entryNotifyColumns(e)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watchlist_entries
			(id, user_id, game_id, external_game_id, platform, title, genre, price,
			 notify_mode, notify_threshold, enabled, last_notified_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, e.ID, e.UserID, e.GameID, e.ExternalGameID, e.Platform, e.Title, e.Genre, e.Price,
		mode, threshold, e.Enabled, toNullTime(e.LastNotifiedAt), e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return watchlist.Entry{}, mapWriteError(err)
	}
	return e, nil
}

func (s *Store) UpdateEntry(ctx context.Context, e watchlist.Entry) (watchlist.Entry, error) {
	existing, err := s.GetEntry(ctx, e.ID)
	if err != nil {
		return watchlist.Entry{}, err
	}

	e.UserID = existing.UserID
	e.CreatedAt = existing.CreatedAt
	e.UpdatedAt = time.Now().UTC()

	mode, threshold := entryNotifyColumns(e)
	result, err := s.db.ExecContext(ctx, `
		UPDATE watchlist_entries
		SET title = $2, genre = $3, price = $4, notify_mode = $5, notify_threshold = $6,
		    enabled = $7, last_notified_at = $8, updated_at = $9
		WHERE id = $1
	`, e.ID, e.Title, e.Genre, e.Price, mode, threshold, e.Enabled, toNullTime(e.LastNotifiedAt), e.UpdatedAt)
	if err != nil {
		return watchlist.Entry{}, mapWriteError(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return watchlist.Entry{}, storage.ErrNotFound
	}
	return e, nil
}

func (s *Store) UpdateEntries(ctx context.Context, entries []watchlist.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, e := range entries {
		mode, threshold := entryNotifyColumns(e)
		result, err := tx.ExecContext(ctx, `
			UPDATE watchlist_entries
			SET title = $2, genre = $3, price = $4, notify_mode = $5, notify_threshold = $6,
			    enabled = $7, last_notified_at = $8, updated_at = $9
			WHERE id = $1
		`, e.ID, e.Title, e.Genre, e.Price, mode, threshold, e.Enabled, toNullTime(e.LastNotifiedAt), now)
		if err != nil {
			return mapWriteError(err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return storage.ErrNotFound
		}
	}
	return tx.Commit()
}

func (s *Store) GetEntry(ctx context.Context, id string) (watchlist.Entry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+` FROM watchlist_entries WHERE id = $1
	`, id))
	if err != nil {
		return watchlist.Entry{}, mapReadError(err)
	}
	return e, nil
}

func (s *Store) FindEntry(ctx context.Context, userID, externalGameID, platform string) (watchlist.Entry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+` FROM watchlist_entries
		WHERE user_id = $1 AND external_game_id = $2 AND lower(platform) = lower($3)
	`, userID, externalGameID, platform))
	if err != nil {
		return watchlist.Entry{}, mapReadError(err)
	}
	return e, nil
}

func (s *Store) listEntries(ctx context.Context, query string, args ...any) ([]watchlist.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []watchlist.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s *Store) ListEntriesByUser(ctx context.Context, userID string) ([]watchlist.Entry, error) {
	return s.listEntries(ctx, `
		SELECT `+entryColumns+` FROM watchlist_entries
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
}

func (s *Store) ListEntriesForGame(ctx context.Context, gameID, platform string) ([]watchlist.Entry, error) {
	return s.listEntries(ctx, `
		SELECT `+entryColumns+` FROM watchlist_entries
		WHERE game_id = $1 AND lower(platform) = lower($2)
		ORDER BY created_at
	`, gameID, platform)
}

func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM watchlist_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- UserStore --------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Email, u.DisplayName, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return user.User{}, mapWriteError(err)
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	existing, err := s.GetUser(ctx, u.ID)
	if err != nil {
		return user.User{}, err
	}

	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET email = $2, display_name = $3, password_hash = $4, updated_at = $5
		WHERE id = $1
	`, u.ID, u.Email, u.DisplayName, u.PasswordHash, u.UpdatedAt)
	if err != nil {
		return user.User{}, mapWriteError(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	var u user.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, created_at, updated_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return user.User{}, mapReadError(err)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, created_at, updated_at
		FROM users WHERE lower(email) = lower($1)
	`, email).Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return user.User{}, mapReadError(err)
	}
	return u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) CreateResetToken(ctx context.Context, t user.ResetToken) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_reset_tokens (token, user_id, expires_at, used_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, t.Token, t.UserID, t.ExpiresAt, toNullTime(t.UsedAt), t.CreatedAt)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (s *Store) GetResetToken(ctx context.Context, token string) (user.ResetToken, error) {
	var (
		t      user.ResetToken
		usedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT token, user_id, expires_at, used_at, created_at
		FROM password_reset_tokens WHERE token = $1
	`, token).Scan(&t.Token, &t.UserID, &t.ExpiresAt, &usedAt, &t.CreatedAt)
	if err != nil {
		return user.ResetToken{}, mapReadError(err)
	}
	if usedAt.Valid {
		t.UsedAt = usedAt.Time.UTC()
	}
	return t, nil
}

func (s *Store) MarkResetTokenUsed(ctx context.Context, token string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE password_reset_tokens SET used_at = $2 WHERE token = $1
	`, token, time.Now().UTC())
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func toNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
