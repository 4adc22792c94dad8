package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"reservas/internal/models"
)

const reservationColumns = `id, room_id, owner_id, discipline_id, start_time, end_time,
                 participants, status, created_at, updated_at, version`

// CreateReservationWithGuard checks for overlapping active reservations and
// inserts inside a single transaction. SQLite serializes the transaction, so
// two concurrent calls for the same slot cannot both commit.
func (db *DB) CreateReservationWithGuard(ctx context.Context, r *models.Reservation) error {
	participants, err := encodeParticipants(r.Participants)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	busy, err := overlapExistsTx(ctx, tx, r.RoomID, r.Start, r.End, "")
	if err != nil {
		return err
	}
	if busy {
		return ErrRoomBusy
	}

	queryInsert := `INSERT INTO reservations (
				id, room_id, owner_id, discipline_id, start_time, end_time,
				participants, status, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, queryInsert,
		r.ID,
		r.RoomID,
		r.OwnerID,
		r.DisciplineID,
		formatTime(r.Start),
		formatTime(r.End),
		participants,
		r.Status,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reservation in tx: %w", err)
	}

	r.CreatedAt = now
	r.UpdatedAt = now
	r.Version = 1

	return tx.Commit()
}

// UpdateReservationWithGuard applies the full field set under the overlap
// guard, excluding the reservation itself from the check. The version column
// protects against concurrent writers of the same reservation.
func (db *DB) UpdateReservationWithGuard(ctx context.Context, r *models.Reservation, fromVersion int64) error {
	participants, err := encodeParticipants(r.Participants)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if r.Status == models.StatusActive {
		busy, err := overlapExistsTx(ctx, tx, r.RoomID, r.Start, r.End, r.ID)
		if err != nil {
			return err
		}
		if busy {
			return ErrRoomBusy
		}
	}

	query := `UPDATE reservations
	          SET room_id = ?, start_time = ?, end_time = ?, participants = ?,
	              status = ?, version = version + 1, updated_at = ?
	          WHERE id = ? AND version = ?`
	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, query,
		r.RoomID,
		formatTime(r.Start),
		formatTime(r.End),
		participants,
		r.Status,
		now,
		r.ID,
		fromVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update reservation in tx: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}

	r.UpdatedAt = now
	r.Version = fromVersion + 1

	return tx.Commit()
}

// UpdateReservationStatusWithVersion flips only the status. No overlap guard
// is needed: leaving the active state can never create a conflict.
func (db *DB) UpdateReservationStatusWithVersion(ctx context.Context, id string, fromVersion int64, status string) error {
	query := `UPDATE reservations SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now().UTC(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update reservation status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

func (db *DB) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	r, err := scanReservation(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return r, nil
}

// ActiveReservationsForRoom returns candidates for conflict checking:
// all active reservations in the room, minus the optional excluded id.
func (db *DB) ActiveReservationsForRoom(ctx context.Context, roomID, excludeID string) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
              FROM reservations
              WHERE room_id = ? AND status = ? AND id != ?
              ORDER BY start_time ASC`
	rows, err := db.QueryContext(ctx, query, roomID, models.StatusActive, excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active reservations: %w", err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

// ListReservations applies the filter as an AND-conjunction.
func (db *DB) ListReservations(ctx context.Context, filter models.ReservationFilter) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE 1=1`
	var args []any

	if filter.RoomID != "" {
		query += ` AND room_id = ?`
		args = append(args, filter.RoomID)
	}
	if filter.OwnerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, filter.OwnerID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.From != nil {
		query += ` AND start_time >= ?`
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		query += ` AND start_time <= ?`
		args = append(args, formatTime(*filter.To))
	}
	query += ` ORDER BY start_time ASC, created_at ASC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

func overlapExistsTx(ctx context.Context, tx *sql.Tx, roomID string, start, end time.Time, excludeID string) (bool, error) {
	query := `SELECT COUNT(*) FROM reservations
	          WHERE room_id = ? AND status = ? AND id != ?
	          AND start_time < ? AND end_time > ?`
	var count int
	err := tx.QueryRowContext(ctx, query, roomID, models.StatusActive, excludeID,
		formatTime(end), formatTime(start)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check overlap in tx: %w", err)
	}
	return count > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	r := &models.Reservation{}
	var disciplineID sql.NullString
	var startStr, endStr, participantsRaw string
	err := row.Scan(
		&r.ID, &r.RoomID, &r.OwnerID, &disciplineID, &startStr, &endStr,
		&participantsRaw, &r.Status, &r.CreatedAt, &r.UpdatedAt, &r.Version,
	)
	if err != nil {
		return nil, err
	}

	r.DisciplineID = disciplineID.String
	if r.Start, err = parseTime(startStr); err != nil {
		return nil, fmt.Errorf("failed to parse reservation start %s: %w", startStr, err)
	}
	if r.End, err = parseTime(endStr); err != nil {
		return nil, fmt.Errorf("failed to parse reservation end %s: %w", endStr, err)
	}
	if err := json.Unmarshal([]byte(participantsRaw), &r.Participants); err != nil {
		return nil, fmt.Errorf("failed to decode participants: %w", err)
	}
	return r, nil
}

func collectReservations(rows *sql.Rows) ([]*models.Reservation, error) {
	var reservations []*models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reservations, nil
}

func encodeParticipants(participants []string) (string, error) {
	if participants == nil {
		participants = []string{}
	}
	raw, err := json.Marshal(participants)
	if err != nil {
		return "", fmt.Errorf("failed to encode participants: %w", err)
	}
	return string(raw), nil
}
