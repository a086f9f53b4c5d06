package engine

import (
	"errors"
	"fmt"
)

// Kind 失败分类
type Kind string

const (
	KindGeneration  Kind = "generation"
	KindExtraction  Kind = "extraction"
	KindValidation  Kind = "validation"
	KindPersistence Kind = "persistence"
)

// Failure 流水线中某一步的失败
type Failure struct {
	Kind Kind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s error: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// KindOf 取出错误的分类
func KindOf(err error) (Kind, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return "", false
}

func fail(kind Kind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}
