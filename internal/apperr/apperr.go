// Package apperr описывает типизированные ошибки сервиса: вид, HTTP-статус и
// стабильное сообщение для клиента.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind вид ошибки
type Kind string

const (
	KindDuplicateEmail          Kind = "DUPLICATE_EMAIL"
	KindDuplicateUsername       Kind = "DUPLICATE_USERNAME"
	KindWeakPassword            Kind = "WEAK_PASSWORD"
	KindNotFound                Kind = "NOT_FOUND"
	KindMismatch                Kind = "MISMATCH"
	KindInvalidCredential       Kind = "INVALID_CREDENTIAL"
	KindAccountNotActive        Kind = "ACCOUNT_NOT_ACTIVE"
	KindAccountNotAuthenticated Kind = "ACCOUNT_NOT_AUTHENTICATED"
	KindInvalidOrExpiredToken   Kind = "INVALID_OR_EXPIRED_TOKEN"
	KindUnauthorized            Kind = "UNAUTHORIZED"
	KindStoreFailure            Kind = "STORE_FAILURE"
)

// Error ошибка с видом, статусом и сообщением для клиента
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Cause   error
}

// Error возвращает сообщение об ошибке
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap возвращает причину ошибки
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки по виду
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// New создает новую ошибку
func New(kind Kind, status int, message string) *Error {
	return &Error{Kind: kind, Status: status, Message: message}
}

// Wrap копирует ошибку с причиной
func (e *Error) Wrap(cause error) *Error {
	return &Error{Kind: e.Kind, Status: e.Status, Message: e.Message, Cause: cause}
}

// Ошибки с фиксированными сообщениями
var (
	ErrDuplicateEmail          = New(KindDuplicateEmail, http.StatusBadRequest, "A user with this email already exists.")
	ErrDuplicateUsername       = New(KindDuplicateUsername, http.StatusBadRequest, "A user with this username already exists.")
	ErrWeakPassword            = New(KindWeakPassword, http.StatusBadRequest, "Password isn't strong enough.")
	ErrPasswordTooLong         = New(KindWeakPassword, http.StatusBadRequest, "Password must not exceed 72 bytes.")
	ErrEmailNotRegistered      = New(KindNotFound, http.StatusBadRequest, "No user with this email exists in the database.")
	ErrUserDoesNotExist        = New(KindNotFound, http.StatusBadRequest, "user doesn't exist.")
	ErrInvalidPassword         = New(KindInvalidCredential, http.StatusBadRequest, "Invalid password.")
	ErrAccountNotActive        = New(KindAccountNotActive, http.StatusBadRequest, "Your account isn't active.")
	ErrAccountNotAuthenticated = New(KindAccountNotAuthenticated, http.StatusBadRequest, "Your account isn't authenticated.")
	ErrInvalidVerification     = New(KindInvalidOrExpiredToken, http.StatusBadRequest, "This link either expired or is not valid.")
	ErrInvalidRefreshToken     = New(KindInvalidOrExpiredToken, http.StatusBadRequest, "Invalid or expired refresh token.")
	ErrInvalidTokenRequest     = New(KindInvalidOrExpiredToken, http.StatusBadRequest, "Invalid or expired token request.")
	ErrResetEmailNotFound      = New(KindNotFound, http.StatusBadRequest, "No user with the following email has been found.")
	ErrResetUsernameMismatch   = New(KindMismatch, http.StatusBadRequest,
		"No user with the following username matches the account linked to the email address.")
	ErrNotAuthorised           = New(KindUnauthorized, http.StatusUnauthorized, "Not authorised.")
	ErrNotAdmin                = New(KindUnauthorized, http.StatusUnauthorized, "Not an Admin thus not authorized.")
	ErrStoreFailure            = New(KindStoreFailure, http.StatusInternalServerError, "internal error")
)

// UserNotFound 404 для админских запросов по id
func UserNotFound(id int64) *Error {
	return New(KindNotFound, http.StatusNotFound, fmt.Sprintf("User with ID=%d not found.", id))
}

// Store оборачивает ошибку хранилища
func Store(cause error) *Error {
	return ErrStoreFailure.Wrap(cause)
}

// Resolve возвращает HTTP-статус и сообщение для клиента.
// Нетипизированные ошибки считаются внутренними.
func Resolve(err error) (int, string) {
	var e *Error
	if errors.As(err, &e) {
		return e.Status, e.Message
	}
	return ErrStoreFailure.Status, ErrStoreFailure.Message
}
