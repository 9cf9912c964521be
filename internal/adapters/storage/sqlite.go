package storage

// sqlite.go: persistencia de señales, posiciones y portfolios.
//
// Estrategia:
//   - `signals`: una fila por trade evaluado, con UNIQUE(transaction_hash)
//     como última línea de defensa contra duplicados entre pollers.
//   - `positions`: apuestas simuladas por (usuario, estrategia). Los shadow
//     bets viven en la misma tabla bajo la estrategia shadow_mining y nunca
//     tocan portfolios.
//   - `portfolios`: bankroll virtual por (usuario, estrategia). Todo
//     movimiento de balance viaja en la misma transacción que el cambio de
//     estado de la posición: un débito huérfano es un bug, no un estado.

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/whaletracker/engine/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Un trade de whale que mereció evaluación
CREATE TABLE IF NOT EXISTS signals (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    market_slug      TEXT,
    event_slug       TEXT,
    condition_id     TEXT    NOT NULL,
    outcome          TEXT    NOT NULL,
    side             TEXT    NOT NULL,
    entry_price      REAL    NOT NULL,
    size_usd         REAL    NOT NULL,
    wallet           TEXT    NOT NULL,
    token_index      INTEGER,
    transaction_hash TEXT    NOT NULL UNIQUE,
    status           TEXT    NOT NULL DEFAULT 'OPEN',
    result_pnl_pct   REAL,
    resolved_outcome TEXT,
    created_at       DATETIME NOT NULL
);

-- Apuesta simulada de un (usuario, estrategia) sobre una señal
CREATE TABLE IF NOT EXISTS positions (
    id               TEXT PRIMARY KEY,
    user_id          INTEGER NOT NULL,
    strategy_id      TEXT    NOT NULL,
    signal_id        INTEGER NOT NULL,
    condition_id     TEXT    NOT NULL,
    market_slug      TEXT,
    outcome          TEXT    NOT NULL,
    side             TEXT    NOT NULL,
    entry_price      REAL    NOT NULL,
    size_usd         REAL    NOT NULL DEFAULT 0,
    bet_amount       REAL    NOT NULL,
    category         TEXT    NOT NULL DEFAULT 'other',
    league           TEXT    NOT NULL DEFAULT '',
    score            INTEGER NOT NULL DEFAULT 0,
    reason           TEXT    NOT NULL DEFAULT '',
    status           TEXT    NOT NULL DEFAULT 'OPEN',
    exit_price       REAL,
    result_pnl_pct   REAL,
    resolved_outcome TEXT    NOT NULL DEFAULT '',
    notified         INTEGER NOT NULL DEFAULT 0,
    created_at       DATETIME NOT NULL,
    closed_at        DATETIME
);

-- Bankroll virtual por (usuario, estrategia)
CREATE TABLE IF NOT EXISTS portfolios (
    user_id     INTEGER NOT NULL,
    strategy_id TEXT    NOT NULL,
    balance     REAL    NOT NULL,
    locked      REAL    NOT NULL DEFAULT 0,
    is_active   INTEGER NOT NULL DEFAULT 1,
    updated_at  DATETIME NOT NULL,
    PRIMARY KEY (user_id, strategy_id)
);

CREATE INDEX IF NOT EXISTS idx_signals_status ON signals(status);
CREATE INDEX IF NOT EXISTS idx_pos_status     ON positions(status);
CREATE INDEX IF NOT EXISTS idx_pos_condition  ON positions(condition_id, status);
CREATE INDEX IF NOT EXISTS idx_pos_owner      ON positions(user_id, strategy_id, status);
CREATE INDEX IF NOT EXISTS idx_pos_notified   ON positions(notified, status);
`

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica
// el schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// Ping verifica que la base de datos responde.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("storage.Ping: %w", err)
	}
	return nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- señales ---

// SignalExists reporta si ya hay una señal con ese transaction hash.
func (s *SQLiteStorage) SignalExists(ctx context.Context, txHash string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM signals WHERE transaction_hash = ?`, txHash,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("storage.SignalExists: %w", err)
	}
	return n > 0, nil
}

// SaveSignal inserta una señal nueva y devuelve su id. Un hash duplicado
// devuelve domain.ErrDuplicateSignal aunque haya pasado el check previo:
// la constraint UNIQUE cubre la race entre pollers concurrentes.
func (s *SQLiteStorage) SaveSignal(ctx context.Context, sig domain.Signal) (int64, error) {
	status := sig.Status
	if status == "" {
		status = domain.StatusOpen
	}
	createdAt := sig.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO signals
			(market_slug, event_slug, condition_id, outcome, side, entry_price,
			 size_usd, wallet, token_index, transaction_hash, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sig.MarketSlug, sig.EventSlug, sig.ConditionID, sig.Outcome, sig.Side,
		sig.EntryPrice, sig.SizeUSD, sig.Wallet, nullInt(sig.TokenIndex),
		sig.TransactionHash, status, createdAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return 0, domain.ErrDuplicateSignal
		}
		return 0, fmt.Errorf("storage.SaveSignal: insert %s: %w", sig.TransactionHash, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage.SaveSignal: last insert id: %w", err)
	}
	return id, nil
}

// Signal devuelve una señal por id.
func (s *SQLiteStorage) Signal(ctx context.Context, id int64) (domain.Signal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, market_slug, event_slug, condition_id, outcome, side,
		       entry_price, size_usd, wallet, token_index, transaction_hash,
		       status, result_pnl_pct, resolved_outcome, created_at
		FROM signals WHERE id = ?`, id)
	sig, err := scanSignal(row)
	if err != nil {
		return domain.Signal{}, fmt.Errorf("storage.Signal: %d: %w", id, err)
	}
	return sig, nil
}

// PendingSignals devuelve las señales aún OPEN, las más antiguas primero.
func (s *SQLiteStorage) PendingSignals(ctx context.Context) ([]domain.Signal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, market_slug, event_slug, condition_id, outcome, side,
		       entry_price, size_usd, wallet, token_index, transaction_hash,
		       status, result_pnl_pct, resolved_outcome, created_at
		FROM signals
		WHERE status = ?
		ORDER BY created_at ASC`, domain.StatusOpen)
	if err != nil {
		return nil, fmt.Errorf("storage.PendingSignals: query: %w", err)
	}
	defer rows.Close()

	var sigs []domain.Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.PendingSignals: %w", err)
		}
		sigs = append(sigs, sig)
	}
	return sigs, rows.Err()
}

// UpdateSignalResult muta status y campos de resultado de una señal.
func (s *SQLiteStorage) UpdateSignalResult(ctx context.Context, id int64, status string, pnlPct *float64, resolvedOutcome string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE signals
		SET status = ?, result_pnl_pct = ?, resolved_outcome = ?
		WHERE id = ?`,
		status, nullFloat(pnlPct), resolvedOutcome, id,
	)
	if err != nil {
		return fmt.Errorf("storage.UpdateSignalResult: signal %d: %w", id, err)
	}
	return nil
}

// --- posiciones ---

// HasOpenPosition reporta si (usuario, estrategia) ya tiene una posición
// OPEN sobre el mercado.
func (s *SQLiteStorage) HasOpenPosition(ctx context.Context, userID int64, strategyID, conditionID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM positions
		WHERE user_id = ? AND strategy_id = ? AND condition_id = ? AND status = ?`,
		userID, strategyID, conditionID, domain.StatusOpen,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("storage.HasOpenPosition: %w", err)
	}
	return n > 0, nil
}

// OpenPositionAtomic abre una posición debitando el balance y bloqueando el
// stake en una sola transacción. Los shadow bets no tocan ningún portfolio y
// nacen ya marcados como notificados.
func (s *SQLiteStorage) OpenPositionAtomic(ctx context.Context, pos domain.Position) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.OpenPositionAtomic: begin tx: %w", err)
	}
	defer tx.Rollback()

	shadow := pos.StrategyID == domain.StrategyShadow
	if !shadow {
		var balance float64
		err := tx.QueryRowContext(ctx,
			`SELECT balance FROM portfolios WHERE user_id = ? AND strategy_id = ?`,
			pos.UserID, pos.StrategyID,
		).Scan(&balance)
		if err != nil {
			return fmt.Errorf("storage.OpenPositionAtomic: read portfolio %d/%s: %w", pos.UserID, pos.StrategyID, err)
		}
		if balance < pos.BetAmount {
			return domain.ErrInsufficientBalance
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE portfolios
			SET balance = balance - ?, locked = locked + ?, updated_at = ?
			WHERE user_id = ? AND strategy_id = ?`,
			pos.BetAmount, pos.BetAmount, time.Now().UTC(), pos.UserID, pos.StrategyID,
		); err != nil {
			return fmt.Errorf("storage.OpenPositionAtomic: debit portfolio: %w", err)
		}
	}

	createdAt := pos.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	notified := 0
	if shadow {
		notified = 1 // los shadow bets se settlean en silencio
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO positions
			(id, user_id, strategy_id, signal_id, condition_id, market_slug,
			 outcome, side, entry_price, size_usd, bet_amount, category, league,
			 score, reason, status, notified, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pos.ID, pos.UserID, pos.StrategyID, pos.SignalID, pos.ConditionID,
		pos.MarketSlug, pos.Outcome, pos.Side, pos.EntryPrice, pos.SizeUSD,
		pos.BetAmount, string(pos.Category), pos.League, pos.Score, pos.Reason,
		domain.StatusOpen, notified, createdAt,
	); err != nil {
		return fmt.Errorf("storage.OpenPositionAtomic: insert position %s: %w", pos.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.OpenPositionAtomic: commit: %w", err)
	}
	return nil
}

// OpenPositions devuelve todas las posiciones OPEN reales (sin shadow).
func (s *SQLiteStorage) OpenPositions(ctx context.Context) ([]domain.Position, error) {
	return s.queryPositions(ctx, `
		SELECT `+positionColumns+` FROM positions
		WHERE status = ? AND strategy_id != ?
		ORDER BY created_at ASC`,
		domain.StatusOpen, domain.StrategyShadow)
}

// OpenShadowPositions devuelve los shadow bets pendientes de resolver.
func (s *SQLiteStorage) OpenShadowPositions(ctx context.Context, limit int) ([]domain.Position, error) {
	return s.queryPositions(ctx, `
		SELECT `+positionColumns+` FROM positions
		WHERE status = ? AND strategy_id = ?
		ORDER BY created_at ASC
		LIMIT ?`,
		domain.StatusOpen, domain.StrategyShadow, limit)
}

// AnyPositionOnCondition reporta si algún usuario tiene posición OPEN sobre
// el mercado.
func (s *SQLiteStorage) AnyPositionOnCondition(ctx context.Context, conditionID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM positions
		WHERE condition_id = ? AND status = ? AND strategy_id != ?`,
		conditionID, domain.StatusOpen, domain.StrategyShadow,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("storage.AnyPositionOnCondition: %w", err)
	}
	return n > 0, nil
}

// OpenPositionsOnCondition devuelve las posiciones OPEN sobre un mercado.
func (s *SQLiteStorage) OpenPositionsOnCondition(ctx context.Context, conditionID string) ([]domain.Position, error) {
	return s.queryPositions(ctx, `
		SELECT `+positionColumns+` FROM positions
		WHERE condition_id = ? AND status = ? AND strategy_id != ?
		ORDER BY created_at ASC`,
		conditionID, domain.StatusOpen, domain.StrategyShadow)
}

// SettlePosition cierra una posición resuelta y acredita el payout al
// portfolio en una transacción. Idempotente: una posición ya cerrada
// devuelve domain.ErrPositionNotOpen sin mover balances.
func (s *SQLiteStorage) SettlePosition(ctx context.Context, id string, exitPrice float64, resolvedOutcome string, roiPct, payout float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SettlePosition: begin tx: %w", err)
	}
	defer tx.Rollback()

	pos, err := lockOpenPosition(ctx, tx, id)
	if err != nil {
		return fmt.Errorf("storage.SettlePosition: %w", err)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		UPDATE positions
		SET status = ?, exit_price = ?, result_pnl_pct = ?, resolved_outcome = ?, closed_at = ?
		WHERE id = ?`,
		domain.StatusClosed, exitPrice, roiPct, resolvedOutcome, now, id,
	); err != nil {
		return fmt.Errorf("storage.SettlePosition: update position %s: %w", id, err)
	}

	if pos.StrategyID != domain.StrategyShadow {
		if _, err := tx.ExecContext(ctx, `
			UPDATE portfolios
			SET balance = balance + ?, locked = locked - ?, updated_at = ?
			WHERE user_id = ? AND strategy_id = ?`,
			payout, pos.BetAmount, now, pos.UserID, pos.StrategyID,
		); err != nil {
			return fmt.Errorf("storage.SettlePosition: credit portfolio: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SettlePosition: commit: %w", err)
	}
	return nil
}

// SettleVoid devuelve el stake completo de una posición anulada:
// balance += betAmount, locked -= betAmount, PnL 0.
func (s *SQLiteStorage) SettleVoid(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SettleVoid: begin tx: %w", err)
	}
	defer tx.Rollback()

	pos, err := lockOpenPosition(ctx, tx, id)
	if err != nil {
		return fmt.Errorf("storage.SettleVoid: %w", err)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		UPDATE positions
		SET status = ?, result_pnl_pct = 0, closed_at = ?
		WHERE id = ?`,
		domain.StatusClosedVoid, now, id,
	); err != nil {
		return fmt.Errorf("storage.SettleVoid: update position %s: %w", id, err)
	}

	if pos.StrategyID != domain.StrategyShadow {
		if _, err := tx.ExecContext(ctx, `
			UPDATE portfolios
			SET balance = balance + ?, locked = locked - ?, updated_at = ?
			WHERE user_id = ? AND strategy_id = ?`,
			pos.BetAmount, pos.BetAmount, now, pos.UserID, pos.StrategyID,
		); err != nil {
			return fmt.Errorf("storage.SettleVoid: refund portfolio: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SettleVoid: commit: %w", err)
	}
	return nil
}

// CloseEarly cierra una posición OPEN al precio observado (emergency exit) y
// acredita los proceeds. Devuelve la posición cerrada y los proceeds.
func (s *SQLiteStorage) CloseEarly(ctx context.Context, id string, exitPrice float64) (domain.Position, float64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Position{}, 0, fmt.Errorf("storage.CloseEarly: begin tx: %w", err)
	}
	defer tx.Rollback()

	pos, err := lockOpenPosition(ctx, tx, id)
	if err != nil {
		return domain.Position{}, 0, fmt.Errorf("storage.CloseEarly: %w", err)
	}

	proceeds := roundCents(domain.Payout(pos.BetAmount, pos.EntryPrice, exitPrice))
	pnlPct := 0.0
	if pos.BetAmount > 0 {
		pnlPct = (proceeds - pos.BetAmount) / pos.BetAmount * 100
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		UPDATE positions
		SET status = ?, exit_price = ?, result_pnl_pct = ?, resolved_outcome = 'EARLY_EXIT', closed_at = ?
		WHERE id = ?`,
		domain.StatusClosed, exitPrice, pnlPct, now, id,
	); err != nil {
		return domain.Position{}, 0, fmt.Errorf("storage.CloseEarly: update position %s: %w", id, err)
	}

	if pos.StrategyID != domain.StrategyShadow {
		if _, err := tx.ExecContext(ctx, `
			UPDATE portfolios
			SET balance = balance + ?, locked = locked - ?, updated_at = ?
			WHERE user_id = ? AND strategy_id = ?`,
			proceeds, pos.BetAmount, now, pos.UserID, pos.StrategyID,
		); err != nil {
			return domain.Position{}, 0, fmt.Errorf("storage.CloseEarly: credit portfolio: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Position{}, 0, fmt.Errorf("storage.CloseEarly: commit: %w", err)
	}

	pos.Status = domain.StatusClosed
	pos.ExitPrice = &exitPrice
	pos.ResultPnLPct = &pnlPct
	pos.ResolvedOutcome = "EARLY_EXIT"
	pos.ClosedAt = &now
	return pos, proceeds, nil
}

// MarkPositionError cierra una posición cuyo mercado desapareció de la API.
// El stake vuelve al balance: un 404 no debe dejar fondos bloqueados.
func (s *SQLiteStorage) MarkPositionError(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.MarkPositionError: begin tx: %w", err)
	}
	defer tx.Rollback()

	pos, err := lockOpenPosition(ctx, tx, id)
	if err != nil {
		return fmt.Errorf("storage.MarkPositionError: %w", err)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		UPDATE positions
		SET status = ?, result_pnl_pct = 0, closed_at = ?
		WHERE id = ?`,
		domain.StatusError, now, id,
	); err != nil {
		return fmt.Errorf("storage.MarkPositionError: update position %s: %w", id, err)
	}

	if pos.StrategyID != domain.StrategyShadow {
		if _, err := tx.ExecContext(ctx, `
			UPDATE portfolios
			SET balance = balance + ?, locked = locked - ?, updated_at = ?
			WHERE user_id = ? AND strategy_id = ?`,
			pos.BetAmount, pos.BetAmount, now, pos.UserID, pos.StrategyID,
		); err != nil {
			return fmt.Errorf("storage.MarkPositionError: refund portfolio: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.MarkPositionError: commit: %w", err)
	}
	return nil
}

// --- portfolios ---

// Portfolio devuelve el portfolio de (usuario, estrategia), creándolo con el
// balance inicial si no existe.
func (s *SQLiteStorage) Portfolio(ctx context.Context, userID int64, strategyID string, startBalance float64) (domain.Portfolio, error) {
	p := domain.Portfolio{UserID: userID, StrategyID: strategyID}
	var active int
	var updated sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT balance, locked, is_active, updated_at
		FROM portfolios WHERE user_id = ? AND strategy_id = ?`,
		userID, strategyID,
	).Scan(&p.Balance, &p.Locked, &active, &updated)

	switch {
	case err == sql.ErrNoRows:
		now := time.Now().UTC()
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO portfolios (user_id, strategy_id, balance, locked, is_active, updated_at)
			VALUES (?, ?, ?, 0, 1, ?)`,
			userID, strategyID, startBalance, now,
		); err != nil {
			return domain.Portfolio{}, fmt.Errorf("storage.Portfolio: create %d/%s: %w", userID, strategyID, err)
		}
		p.Balance = startBalance
		p.IsActive = true
		p.UpdatedAt = now
		return p, nil
	case err != nil:
		return domain.Portfolio{}, fmt.Errorf("storage.Portfolio: read %d/%s: %w", userID, strategyID, err)
	}

	p.IsActive = active == 1
	p.UpdatedAt = parseTime(updated)
	return p, nil
}

// UpdatePortfolio aplica deltas de balance/locked en un solo write.
func (s *SQLiteStorage) UpdatePortfolio(ctx context.Context, userID int64, strategyID string, balanceDelta, lockedDelta float64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE portfolios
		SET balance = balance + ?, locked = locked + ?, updated_at = ?
		WHERE user_id = ? AND strategy_id = ?`,
		balanceDelta, lockedDelta, time.Now().UTC(), userID, strategyID,
	)
	if err != nil {
		return fmt.Errorf("storage.UpdatePortfolio: %d/%s: %w", userID, strategyID, err)
	}
	return nil
}

// ResetPortfolio restaura el balance inicial y fuerza las posiciones OPEN de
// (usuario, estrategia) a CLOSED_RESET sin payout.
func (s *SQLiteStorage) ResetPortfolio(ctx context.Context, userID int64, strategyID string, startBalance float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.ResetPortfolio: begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		UPDATE positions
		SET status = ?, result_pnl_pct = 0, closed_at = ?
		WHERE user_id = ? AND strategy_id = ? AND status = ?`,
		domain.StatusClosedReset, now, userID, strategyID, domain.StatusOpen,
	); err != nil {
		return fmt.Errorf("storage.ResetPortfolio: close positions: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO portfolios (user_id, strategy_id, balance, locked, is_active, updated_at)
		VALUES (?, ?, ?, 0, 1, ?)
		ON CONFLICT(user_id, strategy_id) DO UPDATE SET
			balance = excluded.balance,
			locked = 0,
			updated_at = excluded.updated_at`,
		userID, strategyID, startBalance, now,
	); err != nil {
		return fmt.Errorf("storage.ResetPortfolio: reset portfolio: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.ResetPortfolio: commit: %w", err)
	}
	return nil
}

// SetStrategyActive pausa o reactiva una estrategia para un usuario.
func (s *SQLiteStorage) SetStrategyActive(ctx context.Context, userID int64, strategyID string, active bool) error {
	flag := 0
	if active {
		flag = 1
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE portfolios SET is_active = ?, updated_at = ?
		WHERE user_id = ? AND strategy_id = ?`,
		flag, time.Now().UTC(), userID, strategyID,
	)
	if err != nil {
		return fmt.Errorf("storage.SetStrategyActive: %d/%s: %w", userID, strategyID, err)
	}
	return nil
}

// --- usuarios y notificaciones ---

// ActiveUsers devuelve los ids de usuario con al menos una estrategia activa.
// El usuario shadow no cuenta.
func (s *SQLiteStorage) ActiveUsers(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT user_id FROM portfolios
		WHERE is_active = 1 AND user_id != ?
		ORDER BY user_id`, domain.ShadowUserID)
	if err != nil {
		return nil, fmt.Errorf("storage.ActiveUsers: query: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("storage.ActiveUsers: scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UnnotifiedSettled devuelve posiciones cerradas aún no notificadas,
// las más antiguas primero.
func (s *SQLiteStorage) UnnotifiedSettled(ctx context.Context) ([]domain.Position, error) {
	return s.queryPositions(ctx, `
		SELECT `+positionColumns+` FROM positions
		WHERE notified = 0 AND status IN (?, ?)
		ORDER BY closed_at ASC`,
		domain.StatusClosed, domain.StatusClosedVoid)
}

// MarkNotified marca una posición como notificada.
func (s *SQLiteStorage) MarkNotified(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE positions SET notified = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("storage.MarkNotified: position %s: %w", id, err)
	}
	return nil
}

// --- reporting ---

// roiCapSQL capa el ROI por fila a ±1000% antes de promediar, para que un
// longshot ganador no distorsione la media del rollup.
const roiCapSQL = `MAX(MIN(result_pnl_pct, 1000.0), -1000.0)`

// StrategyReport agrega resultados por estrategia en la ventana dada.
func (s *SQLiteStorage) StrategyReport(ctx context.Context, days int) ([]domain.StrategyPerformance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT strategy_id,
		       COUNT(1),
		       SUM(CASE WHEN status = 'CLOSED' AND result_pnl_pct > 0 THEN 1 ELSE 0 END),
		       SUM(CASE WHEN status = 'OPEN' THEN 1 ELSE 0 END),
		       COALESCE(AVG(CASE WHEN status = 'CLOSED' THEN result_pnl_pct END), 0),
		       COALESCE(AVG(CASE WHEN status = 'CLOSED' THEN `+roiCapSQL+` END), 0)
		FROM positions
		WHERE created_at >= ?
		GROUP BY strategy_id
		ORDER BY strategy_id`,
		cutoff(days))
	if err != nil {
		return nil, fmt.Errorf("storage.StrategyReport: query: %w", err)
	}
	defer rows.Close()

	var report []domain.StrategyPerformance
	for rows.Next() {
		var r domain.StrategyPerformance
		if err := rows.Scan(&r.StrategyID, &r.Total, &r.Wins, &r.Pending, &r.AvgROI, &r.AvgROICapped); err != nil {
			return nil, fmt.Errorf("storage.StrategyReport: scan: %w", err)
		}
		report = append(report, r)
	}
	return report, rows.Err()
}

// OddsBucketReport agrega resultados settled por banda de precio de entrada.
func (s *SQLiteStorage) OddsBucketReport(ctx context.Context, days int) ([]domain.OddsBucketPerformance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT CASE
		         WHEN entry_price < 0.20 THEN '0.00-0.20'
		         WHEN entry_price < 0.40 THEN '0.20-0.40'
		         WHEN entry_price < 0.60 THEN '0.40-0.60'
		         WHEN entry_price < 0.80 THEN '0.60-0.80'
		         ELSE '0.80-1.00'
		       END AS bucket,
		       COUNT(1),
		       SUM(CASE WHEN result_pnl_pct > 0 THEN 1 ELSE 0 END),
		       COALESCE(AVG(`+roiCapSQL+`), 0)
		FROM positions
		WHERE status = 'CLOSED' AND created_at >= ?
		GROUP BY bucket
		ORDER BY bucket`,
		cutoff(days))
	if err != nil {
		return nil, fmt.Errorf("storage.OddsBucketReport: query: %w", err)
	}
	defer rows.Close()

	var report []domain.OddsBucketPerformance
	for rows.Next() {
		var r domain.OddsBucketPerformance
		if err := rows.Scan(&r.Bucket, &r.Total, &r.Wins, &r.AvgROICapped); err != nil {
			return nil, fmt.Errorf("storage.OddsBucketReport: scan: %w", err)
		}
		report = append(report, r)
	}
	return report, rows.Err()
}

// CategoryReport agrega resultados settled por categoría y liga.
func (s *SQLiteStorage) CategoryReport(ctx context.Context, days int) ([]domain.CategoryPerformance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, league,
		       COUNT(1),
		       SUM(CASE WHEN result_pnl_pct > 0 THEN 1 ELSE 0 END),
		       COALESCE(AVG(`+roiCapSQL+`), 0)
		FROM positions
		WHERE status = 'CLOSED' AND created_at >= ?
		GROUP BY category, league
		ORDER BY category, league`,
		cutoff(days))
	if err != nil {
		return nil, fmt.Errorf("storage.CategoryReport: query: %w", err)
	}
	defer rows.Close()

	var report []domain.CategoryPerformance
	for rows.Next() {
		var r domain.CategoryPerformance
		var cat string
		if err := rows.Scan(&cat, &r.League, &r.Total, &r.Wins, &r.AvgROICapped); err != nil {
			return nil, fmt.Errorf("storage.CategoryReport: scan: %w", err)
		}
		r.Category = domain.Category(cat)
		report = append(report, r)
	}
	return report, rows.Err()
}

// --- helpers internos ---

const positionColumns = `
	id, user_id, strategy_id, signal_id, condition_id, market_slug, outcome,
	side, entry_price, size_usd, bet_amount, category, league, score, reason,
	status, exit_price, result_pnl_pct, resolved_outcome, created_at, closed_at`

func (s *SQLiteStorage) queryPositions(ctx context.Context, query string, args ...any) ([]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: query positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan position: %w", err)
		}
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosition(row rowScanner) (domain.Position, error) {
	var pos domain.Position
	var cat string
	var exitPrice, pnl sql.NullFloat64
	var createdAt, closedAt sql.NullString

	if err := row.Scan(
		&pos.ID, &pos.UserID, &pos.StrategyID, &pos.SignalID, &pos.ConditionID,
		&pos.MarketSlug, &pos.Outcome, &pos.Side, &pos.EntryPrice, &pos.SizeUSD,
		&pos.BetAmount, &cat, &pos.League, &pos.Score, &pos.Reason, &pos.Status,
		&exitPrice, &pnl, &pos.ResolvedOutcome, &createdAt, &closedAt,
	); err != nil {
		return domain.Position{}, err
	}

	pos.Category = domain.Category(cat)
	if exitPrice.Valid {
		pos.ExitPrice = &exitPrice.Float64
	}
	if pnl.Valid {
		pos.ResultPnLPct = &pnl.Float64
	}
	pos.CreatedAt = parseTime(createdAt)
	if closedAt.Valid {
		t := parseTime(closedAt)
		pos.ClosedAt = &t
	}
	return pos, nil
}

func scanSignal(row rowScanner) (domain.Signal, error) {
	var sig domain.Signal
	var tokenIdx sql.NullInt64
	var pnl sql.NullFloat64
	var resolved sql.NullString
	var createdAt sql.NullString

	if err := row.Scan(
		&sig.ID, &sig.MarketSlug, &sig.EventSlug, &sig.ConditionID, &sig.Outcome,
		&sig.Side, &sig.EntryPrice, &sig.SizeUSD, &sig.Wallet, &tokenIdx,
		&sig.TransactionHash, &sig.Status, &pnl, &resolved, &createdAt,
	); err != nil {
		return domain.Signal{}, err
	}

	if tokenIdx.Valid {
		idx := int(tokenIdx.Int64)
		sig.TokenIndex = &idx
	}
	if pnl.Valid {
		sig.ResultPnLPct = &pnl.Float64
	}
	sig.ResolvedOutcome = resolved.String
	sig.CreatedAt = parseTime(createdAt)
	return sig, nil
}

// lockOpenPosition lee una posición dentro de la transacción y exige que siga
// OPEN. Sobre SQLite single-writer esto basta como lock.
func lockOpenPosition(ctx context.Context, tx *sql.Tx, id string) (domain.Position, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+positionColumns+` FROM positions WHERE id = ?`, id)
	pos, err := scanPosition(row)
	if err == sql.ErrNoRows {
		return domain.Position{}, domain.ErrPositionNotOpen
	}
	if err != nil {
		return domain.Position{}, fmt.Errorf("read position %s: %w", id, err)
	}
	if pos.Status != domain.StatusOpen {
		return domain.Position{}, domain.ErrPositionNotOpen
	}
	return pos, nil
}

func cutoff(days int) time.Time {
	if days <= 0 {
		days = 30
	}
	return time.Now().UTC().AddDate(0, 0, -days)
}

// parseTime tolera los formatos con los que el driver serializa DATETIME.
func parseTime(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s.String); err == nil {
			return t
		}
	}
	return time.Time{}
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func roundCents(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
