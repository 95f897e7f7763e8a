package service

import "errors"

var (
	ErrDishNotFound       = errors.New("dish not found")
	ErrPlanNotFound       = errors.New("weekly plan not found")
	ErrQuotaOutOfRange    = errors.New("category quota out of range")
	ErrQuotaTotalExceeded = errors.New("category quotas exceed the days of a week")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
)
