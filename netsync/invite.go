package netsync

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// InviteService signs and checks HS256 invite tokens that bind a peer to one room.
type InviteService struct {
	secret []byte
	room   string
}

func NewInviteService(secret, room string) *InviteService {
	return &InviteService{secret: []byte(secret), room: room}
}

func (s *InviteService) Room() string {
	return s.room
}

func (s *InviteService) Issue(ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"room": s.room,
		"exp":  time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(s.secret)
}

// Validate accepts only unexpired tokens signed with our secret for our room.
func (s *InviteService) Validate(tokenString string) error {
	if tokenString == "" {
		return ErrInvalidInvite
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInvite, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return ErrInvalidInvite
	}
	room, ok := claims["room"].(string)
	if !ok || room != s.room {
		return fmt.Errorf("%w: %w", ErrInvalidInvite, errors.New("token is for another room"))
	}
	return nil
}
