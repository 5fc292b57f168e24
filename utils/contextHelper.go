package utils

import (
	"context"

	"bitbucket.org/agasretail/erpsync_backend/appctx"
)

// Re-exported so call sites keep importing utils for context access.
var (
	ContextKeyOrderCode     = appctx.ContextKeyOrderCode
	ContextKeyDepartment    = appctx.ContextKeyDepartment
	ContextKeyUserName      = appctx.ContextKeyUserName
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId

	ContextKeyInternalOps = appctx.ContextKeyInternalOps
)

func GetOrderCodeFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyOrderCode)
}

func GetDepartmentFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyDepartment)
}

func GetUserNameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyUserName)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetOrderCodeInContext(ctx context.Context, orderCode string) context.Context {
	return appctx.Set(ctx, ContextKeyOrderCode, orderCode)
}

func SetDepartmentInContext(ctx context.Context, department string) context.Context {
	return appctx.Set(ctx, ContextKeyDepartment, department)
}

func SetUserNameInContext(ctx context.Context, userName string) context.Context {
	return appctx.Set(ctx, ContextKeyUserName, userName)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func GetInternalOpsFromContext(ctx context.Context) (bool, bool) {
	return appctx.GetBool(ctx, ContextKeyInternalOps)
}

func SetInternalOpsInContext(ctx context.Context, internal bool) context.Context {
	return appctx.Set(ctx, ContextKeyInternalOps, internal)
}
