package translator

import (
	"context"
	"errors"
	"fmt"
)

var ErrEmptyResult = errors.New("translation result is empty")

type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Error reports a failed translation. Provider names the backend that failed.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("translation via %s failed: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Direction string

const (
	MeiteiToEnglish Direction = "mni-en"
	EnglishToMeitei Direction = "en-mni"
)
