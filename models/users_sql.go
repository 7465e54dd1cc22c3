package models

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"

	"eventmanager/utils"
)

type sqlUserRepo struct{ db *sql.DB }

func NewSQLUserRepository(db *sql.DB) UserRepository { return &sqlUserRepo{db} }

func (r *sqlUserRepo) Create(u *User) error {
	// Conflict messages are field-specific, so look before inserting. The
	// unique constraints still back this up under a race.
	var existingUsername, existingEmail string
	err := r.db.QueryRow(
		`SELECT username, email FROM users WHERE username=$1 OR email=$2`,
		u.Username, u.Email,
	).Scan(&existingUsername, &existingEmail)
	switch {
	case err == nil:
		if existingUsername == u.Username {
			return ErrUsernameTaken
		}
		return ErrEmailTaken
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}

	hashed, err := utils.HashPassword(u.Password)
	if err != nil {
		return err
	}
	u.Password = hashed

	if err := r.db.QueryRow(
		`INSERT INTO users(username, email, password) VALUES ($1,$2,$3) RETURNING id`,
		u.Username, u.Email, u.Password,
	).Scan(&u.ID); err != nil {
		return mapUniqueViolation(err)
	}
	return nil
}

// mapUniqueViolation keeps a concurrent duplicate signup that slipped past
// the pre-check a 409 conflict rather than an opaque failure.
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		if strings.Contains(pqErr.Constraint, "username") {
			return ErrUsernameTaken
		}
		return ErrEmailTaken
	}
	return err
}

func (r *sqlUserRepo) ValidateCredentials(email, plain string) (User, error) {
	var u User
	err := r.db.QueryRow(
		`SELECT id, username, email, password FROM users WHERE email=$1`, email,
	).Scan(&u.ID, &u.Username, &u.Email, &u.Password)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}

	if !utils.CheckPasswordHash(plain, u.Password) {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (r *sqlUserRepo) AddToken(userID int64, t SessionToken) error {
	_, err := r.db.Exec(
		`INSERT INTO session_tokens(token, user_id, created_at) VALUES ($1,$2,$3)`,
		t.Token, userID, t.CreatedAt,
	)
	return err
}

func (r *sqlUserRepo) FindByToken(token string) (User, error) {
	var u User
	err := r.db.QueryRow(
		`SELECT u.id, u.username, u.email
		   FROM users u JOIN session_tokens t ON t.user_id = u.id
		  WHERE t.token = $1`, token,
	).Scan(&u.ID, &u.Username, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUnauthorized
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (r *sqlUserRepo) SweepTokens(cutoff time.Time) (int, error) {
	rows, err := r.db.Query(
		`DELETE FROM session_tokens WHERE created_at < $1 RETURNING user_id`, cutoff,
	)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	touched := map[int64]struct{}{}
	for rows.Next() {
		var uid int64
		if err := rows.Scan(&uid); err != nil {
			return 0, err
		}
		touched[uid] = struct{}{}
	}
	return len(touched), rows.Err()
}
