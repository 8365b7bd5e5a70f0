package service

import "errors"

// ErrorKind 业务错误类别
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"         // 输入不合法
	KindLimitExceeded    ErrorKind = "limit_exceeded"     // 机构配额已满
	KindInvalidHierarchy ErrorKind = "invalid_hierarchy"  // 层级关系不允许
	KindInvalidScope     ErrorKind = "invalid_scope"      // 角色作用域不允许
	KindHasChildren      ErrorKind = "has_children"       // 存在下级，删除被阻止
	KindHasAssignedUsers ErrorKind = "has_assigned_users" // 存在已分配用户，删除被阻止
	KindDuplicateUser    ErrorKind = "duplicate_user"     // 邮箱已被注册
	KindPermissionDenied ErrorKind = "permission_denied"  // 创建者权限不足
	KindNotFound         ErrorKind = "not_found"          // 目标不存在
)

// Error 业务错误，所有校验在写入前完成，单次操作不存在部分生效
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NewError 构造业务错误
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf 取出错误类别，非业务错误返回空串
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind 判断错误是否属于指定类别
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
