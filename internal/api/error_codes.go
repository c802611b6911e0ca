// internal/api/error_codes.go
package api

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorConflict      = "CONFLICT"
	ErrorForbidden     = "FORBIDDEN"

	// 项目相关错误
	ErrorProjectNotFound     = "PROJECT_NOT_FOUND"
	ErrorProjectCreateFailed = "PROJECT_CREATE_FAILED"
	ErrorProjectNotComposed  = "PROJECT_NOT_COMPOSED"

	// 合成管线相关错误
	ErrorCaptionInvalid  = "CAPTION_INVALID"
	ErrorComposeFailed   = "COMPOSE_FAILED"
	ErrorRateLimited     = "RATE_LIMITED"
	ErrorBadModelOutput  = "BAD_MODEL_OUTPUT"
	ErrorSnapshotFailed  = "SNAPSHOT_FAILED"

	// 组件相关错误
	ErrorComponentNotFound = "COMPONENT_NOT_FOUND"
	ErrorComponentInvalid  = "COMPONENT_INVALID"
	ErrorManifestInvalid   = "MANIFEST_INVALID"

	// LLM服务相关错误
	ErrorLLMServiceUnavailable = "LLM_SERVICE_UNAVAILABLE"
	ErrorLLMConfigInvalid      = "LLM_CONFIG_INVALID"

	// 文件相关错误
	ErrorFileUploadFailed = "FILE_UPLOAD_FAILED"
	ErrorFileInvalid      = "FILE_INVALID"
	ErrorFileNotFound     = "FILE_NOT_FOUND"
)
