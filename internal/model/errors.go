package model

import "errors"

var (
	// ErrValidation возвращается при некорректных входных данных; запись не выполняется.
	ErrValidation = errors.New("validation error")
	// ErrForbidden возвращается, если роли пользователя недостаточно для операции.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound возвращается, если запрошенная сущность не существует.
	ErrNotFound = errors.New("not found")
	// ErrTransport возвращается при сбое обращения к хранилищу.
	ErrTransport = errors.New("transport error")
	// ErrUnauthenticated возвращается, если личность пользователя не подтверждена.
	ErrUnauthenticated = errors.New("unauthenticated")
)
