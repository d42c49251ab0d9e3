package jwttoken

import (
	"confia/internal/platform/middleware"
)

// MiddlewareAdapter exposes JWTService through the middleware's validator
// interface.
type MiddlewareAdapter struct {
	service *JWTService
}

func NewMiddlewareAdapter(service *JWTService) *MiddlewareAdapter {
	return &MiddlewareAdapter{service: service}
}

func (a *MiddlewareAdapter) ValidateAdminToken(tokenString string) (*middleware.AdminClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.AdminClaims{
		AdminID: claims.AdminID,
		Role:    claims.Role,
	}, nil
}
