// Package auth содержит логику входа администратора движка.
//
// Движок не хранит пользователей: единственный администратор задаётся
// в конфигурации парой логин/bcrypt-хэш. Успешный вход выдаёт JWT с
// ролью admin, которой защищены административные маршруты.
package auth

import (
	"errors"

	"github.com/magabrotheeeer/ticket-subscription-engine/internal/lib/jwt"
	"github.com/magabrotheeeer/ticket-subscription-engine/internal/lib/password"
)

// ErrInvalidCredentials возвращается при неверном логине или пароле.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service отвечает за проверку учётных данных и выпуск JWT администратора.
type Service struct {
	username     string
	passwordHash string
	jwtMaker     jwt.Maker
}

// New создает новый Service с учётными данными из конфигурации.
func New(username, passwordHash string, jwtMaker jwt.Maker) *Service {
	return &Service{
		username:     username,
		passwordHash: passwordHash,
		jwtMaker:     jwtMaker,
	}
}

// Login проверяет пароль администратора и генерирует JWT с ролью admin.
func (s *Service) Login(username, rawPassword string) (string, error) {
	if username != s.username {
		return "", ErrInvalidCredentials
	}
	if err := password.CompareHash(s.passwordHash, rawPassword); err != nil {
		return "", ErrInvalidCredentials
	}
	token, err := s.jwtMaker.GenerateToken(username, "admin")
	if err != nil {
		return "", err
	}
	return token, nil
}
