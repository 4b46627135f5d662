package errors

import (
	"fmt"
	"net/http"
)

// AppError define la estructura estándar para errores de la aplicación
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"` // No se serializa, usado para el header
	Err        error  `json:"-"` // Error original (causa), útil para logs, no se expone al cliente
}

// Error implementa la interfaz error
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap permite acceder al error original
func (e *AppError) Unwrap() error {
	return e.Err
}

// New crea un nuevo AppError
func New(status int, code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
	}
}

// FromError intenta convertir un error genérico en un AppError.
// Si no es un AppError, devuelve un error interno genérico conservando la causa.
func FromError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrInternalServerError.WithCause(err)
}

// WithDetail agrega detalles adicionales al error.
// Devuelve una COPIA para no mutar las variables globales base.
func (e *AppError) WithDetail(detail string) *AppError {
	newErr := *e
	newErr.Detail = detail
	return &newErr
}

// WithCause agrega el error original (causa). Devuelve una COPIA.
func (e *AppError) WithCause(err error) *AppError {
	newErr := *e
	newErr.Err = err
	return &newErr
}

// =================================================================================
// LISTA DE ERRORES PREDEFINIDOS
// =================================================================================

// ─── 400 Bad Request ───

var (
	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "La solicitud contiene sintaxis inválida o parámetros faltantes.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidJSON = &AppError{
		Code:       "INVALID_JSON",
		Message:    "El cuerpo de la solicitud no es un JSON válido.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrMissingFields = &AppError{
		Code:       "MISSING_FIELDS",
		Message:    "Faltan campos requeridos en la solicitud.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidDID = &AppError{
		Code:       "INVALID_DID",
		Message:    "El identificador DID es inválido o usa un método no soportado.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrUnregisteredDID = &AppError{
		Code:       "UNREGISTERED_DID",
		Message:    "El DID no está registrado en el DID registry.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrBadCredentialDocument = &AppError{
		Code:       "BAD_CREDENTIAL_DOCUMENT",
		Message:    "El documento de credencial está malformado.",
		HTTPStatus: http.StatusBadRequest,
	}

	// Challenge inexistente, expirado o ya usado: el cliente mandó una
	// referencia inválida, no una credencial inválida.
	ErrInvalidChallenge = &AppError{
		Code:       "INVALID_CHALLENGE",
		Message:    "El challenge no existe, expiró o ya fue usado.",
		HTTPStatus: http.StatusBadRequest,
	}
)

// ─── 401 Unauthorized ───

var (
	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "No autorizado. Se requiere autenticación.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrInvalidSignature = &AppError{
		Code:       "INVALID_SIGNATURE",
		Message:    "La firma no corresponde a la dirección del DID.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrInvalidSubstrateSignature = &AppError{
		Code:       "INVALID_SUBSTRATE_SIGNATURE",
		Message:    "La firma substrate no corresponde a la dirección vinculada.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTokenInvalid = &AppError{
		Code:       "TOKEN_INVALID",
		Message:    "El token de acceso es inválido, expiró o está malformado.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTokenMissing = &AppError{
		Code:       "TOKEN_MISSING",
		Message:    "No se proporcionó token de autenticación.",
		HTTPStatus: http.StatusUnauthorized,
	}
)

// ─── 403 Forbidden ───

var (
	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "No tiene permisos para realizar esta acción.",
		HTTPStatus: http.StatusForbidden,
	}

	ErrNotResourceOwner = &AppError{
		Code:       "NOT_RESOURCE_OWNER",
		Message:    "El recurso pertenece a otro DID.",
		HTTPStatus: http.StatusForbidden,
	}
)

// ─── 404 Not Found ───

var (
	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "El recurso solicitado no fue encontrado.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrCredentialNotFound = &AppError{
		Code:       "CREDENTIAL_NOT_FOUND",
		Message:    "La credencial especificada no existe.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrRouteNotFound = &AppError{
		Code:       "ROUTE_NOT_FOUND",
		Message:    "La ruta solicitada no existe.",
		HTTPStatus: http.StatusNotFound,
	}
)

// ─── 405 Method Not Allowed ───

var (
	ErrMethodNotAllowed = &AppError{
		Code:       "METHOD_NOT_ALLOWED",
		Message:    "El método HTTP no está permitido para este recurso.",
		HTTPStatus: http.StatusMethodNotAllowed,
	}
)

// ─── 409 Conflict ───

var (
	ErrConflict = &AppError{
		Code:       "CONFLICT",
		Message:    "La solicitud entra en conflicto con el estado actual del servidor.",
		HTTPStatus: http.StatusConflict,
	}

	ErrDIDAlreadyExists = &AppError{
		Code:       "DID_ALREADY_EXISTS",
		Message:    "El DID ya tiene un registro activo.",
		HTTPStatus: http.StatusConflict,
	}

	ErrCredentialRevoked = &AppError{
		Code:       "CREDENTIAL_REVOKED",
		Message:    "La credencial ya fue revocada.",
		HTTPStatus: http.StatusConflict,
	}
)

// ─── 429 Too Many Requests ───

var (
	ErrRateLimited = &AppError{
		Code:       "RATE_LIMITED",
		Message:    "Demasiadas solicitudes. Intente nuevamente más tarde.",
		HTTPStatus: http.StatusTooManyRequests,
	}
)

// ─── 500+ Server Errors ───

var (
	ErrInternalServerError = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Ocurrió un error interno en el servidor.",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrServiceUnavailable = &AppError{
		Code:       "SERVICE_UNAVAILABLE",
		Message:    "El servicio no está disponible temporalmente.",
		HTTPStatus: http.StatusServiceUnavailable,
	}
)
