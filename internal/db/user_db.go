package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/rajivgeraev/domio-api/internal/models"
)

// GetUserByID возвращает краткий профиль пользователя для ответов API
func GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User

	err := Pool.QueryRow(ctx, `
        SELECT id, username, first_name, last_name, avatar_url
        FROM users
        WHERE id = $1
    `, userID).Scan(
		&user.ID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.AvatarURL,
	)

	if err != nil {
		return nil, err
	}

	return &user, nil
}
