package jwttoken

import "onboarding-gateway/internal/platform/middleware"

// MiddlewareAdapter bridges the JWT service to the middleware.TokenValidator
// interface without the middleware package importing JWT internals.
type MiddlewareAdapter struct {
	service *Service
}

func NewMiddlewareAdapter(service *Service) *MiddlewareAdapter {
	return &MiddlewareAdapter{service: service}
}

func (a *MiddlewareAdapter) ValidateToken(tokenString string) (*middleware.Claims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.Claims{
		ActorID: claims.ActorID,
		Role:    claims.Role,
	}, nil
}
