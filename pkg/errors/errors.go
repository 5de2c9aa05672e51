package errors

import "errors"

// ErrOpenSessionExists 该会员已存在未签出的到馆记录（由部分唯一索引拦截）
var ErrOpenSessionExists = errors.New("open attendance session already exists")

// ErrSessionAlreadyClosed 条件更新未命中：记录已被并发请求签出
var ErrSessionAlreadyClosed = errors.New("attendance session already closed")
