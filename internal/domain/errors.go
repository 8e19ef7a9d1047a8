package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageUnavailable - индекс нельзя удалить или записать.
	// Rebuild прерывается, ошибка уходит вызывающему.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrTransientProvider - временный отказ провайдера (rate limit, 5xx).
	ErrTransientProvider = errors.New("transient provider error")

	// ErrGenerationUnavailable - исчерпан бюджет повторов генерации.
	ErrGenerationUnavailable = errors.New("generation unavailable")

	// ErrInvalidInput - некорректная конфигурация или входные данные.
	ErrInvalidInput = errors.New("invalid input")
)

// LoadError - файл или папка не читаются. Логируется и пропускается.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ProviderError - ошибка внешнего провайдера эмбеддингов или LLM
type ProviderError struct {
	Provider   string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is позволяет проверять временные ошибки через errors.Is(err, ErrTransientProvider)
func (e *ProviderError) Is(target error) bool {
	return target == ErrTransientProvider && e.Transient
}

// IsTransient сообщает, стоит ли повторять вызов
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientProvider)
}

// TransientStatus - коды HTTP, после которых имеет смысл повторить запрос
func TransientStatus(code int) bool {
	switch code {
	case 408, 429, 500, 502, 503, 504:
		return true
	}
	return false
}
