package portalx

import "fmt"

// ErrorCode represents client error categories.
type ErrorCode string

const (
	ErrCodeUnauthenticated   ErrorCode = "unauthenticated"
	ErrCodeUnauthorized      ErrorCode = "unauthorized"
	ErrCodeConnection        ErrorCode = "connection_error"
	ErrCodeMissingIdentifier ErrorCode = "missing_identifier"
	ErrCodeBadResponse       ErrorCode = "bad_response"
	ErrCodeStorage           ErrorCode = "storage_error"
	ErrCodeInternal          ErrorCode = "internal_error"
)

// User-facing messages follow the portal's vocabulary.
var errorMessages = map[ErrorCode]string{
	ErrCodeUnauthenticated:   "Usuário não autenticado. Faça login para continuar.",
	ErrCodeUnauthorized:      "Sessão expirada. Faça login novamente.",
	ErrCodeConnection:        "Erro de conexão. Tente novamente.",
	ErrCodeMissingIdentifier: "Identificadores do boleto e da parcela são obrigatórios.",
	ErrCodeBadResponse:       "Resposta inválida do servidor.",
	ErrCodeStorage:           "Falha ao acessar o armazenamento local.",
	ErrCodeInternal:          "Erro interno.",
}

// Error wraps client errors with a stable code and a user-facing message.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	base := e.Message
	if base == "" {
		base = string(e.Code)
	}
	if e.Err == nil {
		return base
	}
	return fmt.Sprintf("%s: %v", base, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, err error) error {
	msg, ok := errorMessages[code]
	if !ok {
		msg = string(code)
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// newServerError keeps the message extracted from a server payload instead of
// the generic one mapped to the code.
func newServerError(code ErrorCode, message string, err error) error {
	if message == "" {
		return newError(code, err)
	}
	return &Error{Code: code, Message: message, Err: err}
}
