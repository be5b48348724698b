package htm

import (
	"errors"
	"fmt"
)

var (
	// ErrDepth 层级超出 id 位宽所能表示的范围
	ErrDepth = errors.New("htm: depth out of range")
	// ErrLevelMismatch id 层级与索引层级不一致
	ErrLevelMismatch = errors.New("htm: id level does not match index level")
	// ErrInvalidID id 不是合法的三角形编号
	ErrInvalidID = errors.New("htm: invalid id")
	// ErrInvalidName 名称格式不合法
	ErrInvalidName = errors.New("htm: invalid name")
)

// InterfaceError 命令解析失败
type InterfaceError struct {
	Cmd string
	Msg string
	Err error
}

func (e *InterfaceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("htm interface: %s: %s: %v", e.Cmd, e.Msg, e.Err)
	}
	return fmt.Sprintf("htm interface: %s: %s", e.Cmd, e.Msg)
}

func (e *InterfaceError) Unwrap() error { return e.Err }
