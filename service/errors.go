package service

import (
	"errors"
	"log"

	"github.com/go-sql-driver/mysql"
)

// 服务层错误分类。每个操作把内部失败收敛到这几类，
// handler 层据此映射业务码；原始存储错误只打日志不外漏。
var (
	// ErrUnauthenticated 调用者身份无法解析
	ErrUnauthenticated = errors.New("未登录")

	// ErrNotFound 话题/消息/回复目标不存在或已被删除
	ErrNotFound = errors.New("记录不存在")

	// ErrPermissionDenied 本层权限检查失败，或存储层策略拒绝
	ErrPermissionDenied = errors.New("没有权限")
)

// ValidationError 输入校验失败，Msg 为第一条校验信息（直接面向用户）。
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationErr(msg string) error {
	return &ValidationError{Msg: msg}
}

// IsValidationError 判断是否为校验错误
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// MySQL 错误码
const (
	mysqlErrDuplicateEntry     = 1062 // ER_DUP_ENTRY
	mysqlErrTableAccessDenied  = 1142 // ER_TABLEACCESS_DENIED_ERROR
	mysqlErrColumnAccessDenied = 1143 // ER_COLUMNACCESS_DENIED_ERROR
)

// isDuplicateKeyErr 唯一索引冲突（toggle 并发、重复加入成员）
func isDuplicateKeyErr(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlErrDuplicateEntry
	}
	return false
}

// isStorePolicyErr 存储层权限策略拒绝（GRANT 级别的写拒绝）。
// 话题写权限由存储层策略兜底执行，这里把它翻译成 ErrPermissionDenied。
func isStorePolicyErr(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlErrTableAccessDenied || me.Number == mysqlErrColumnAccessDenied
	}
	return false
}

// internalErr 兜底：打日志，对外只报通用失败。
func internalErr(op string, err error) error {
	log.Printf("[%s] internal error: %v", op, err)
	return errors.New("操作失败，请稍后再试")
}
